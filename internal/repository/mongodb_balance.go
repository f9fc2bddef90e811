package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"commerce-core/internal/model"
	apperrors "commerce-core/pkg/errors"
)

// mongodbBalanceRepository implements BalanceRepository using MongoDB
type mongodbBalanceRepository struct {
	collection *mongo.Collection
}

// NewBalanceRepository creates a new MongoDB-based balance repository
func NewBalanceRepository(db *mongo.Database) BalanceRepository {
	return &mongodbBalanceRepository{
		collection: db.Collection("balances"),
	}
}

// GetBalance returns the user's balance, zero when the user has none
func (r *mongodbBalanceRepository) GetBalance(ctx context.Context, userID string) (*model.Balance, error) {
	var balance model.Balance
	err := r.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&balance)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &model.Balance{UserID: userID}, nil
		}
		return nil, err
	}
	return &balance, nil
}

// AddBalance atomically applies delta, guarding against negative results
func (r *mongodbBalanceRepository) AddBalance(ctx context.Context, userID string, delta int64, at time.Time) (int64, int64, error) {
	filter := bson.M{"_id": userID}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)
	if delta < 0 {
		filter["amount"] = bson.M{"$gte": -delta}
	} else {
		opts.SetUpsert(true)
	}

	var before model.Balance
	err := r.collection.FindOneAndUpdate(
		ctx,
		filter,
		bson.M{
			"$inc": bson.M{"amount": delta},
			"$set": bson.M{"updated_at": at},
		},
		opts,
	).Decode(&before)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return 0, 0, err
		}
		if delta < 0 {
			return 0, 0, apperrors.ErrInsufficientBalance
		}
		// upserted: there was no balance before
		return 0, delta, nil
	}

	return before.Amount, before.Amount + delta, nil
}
