package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"commerce-core/internal/model"
	apperrors "commerce-core/pkg/errors"
)

// mongodbCouponRepository implements CouponRepository using MongoDB
type mongodbCouponRepository struct {
	collection *mongo.Collection
}

// NewCouponRepository creates a new MongoDB-based coupon repository
func NewCouponRepository(db *mongo.Database) CouponRepository {
	return &mongodbCouponRepository{
		collection: db.Collection("coupons"),
	}
}

// CreateCoupon creates a new coupon
func (r *mongodbCouponRepository) CreateCoupon(ctx context.Context, coupon *model.Coupon) error {
	_, err := r.collection.InsertOne(ctx, coupon)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.ErrCouponAlreadyExists
		}
		return err
	}

	return nil
}

// GetCoupon retrieves a coupon by its ID
func (r *mongodbCouponRepository) GetCoupon(ctx context.Context, id string) (*model.Coupon, error) {
	var coupon model.Coupon
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&coupon)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrCouponNotFound
		}
		return nil, err
	}

	return &coupon, nil
}

// ListCoupons retrieves every coupon, newest first
func (r *mongodbCouponRepository) ListCoupons(ctx context.Context) ([]*model.Coupon, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	coupons := make([]*model.Coupon, 0)
	if err := cursor.All(ctx, &coupons); err != nil {
		return nil, err
	}
	return coupons, nil
}

// IssueOne atomically increments issued_quantity while it is below total_quantity
func (r *mongodbCouponRepository) IssueOne(ctx context.Context, id string, now time.Time) (*model.Coupon, error) {
	var coupon model.Coupon
	err := r.collection.FindOneAndUpdate(
		ctx,
		bson.M{
			"_id":        id,
			"expires_at": bson.M{"$gte": now},
			// Only update while issued < total
			"$expr": bson.M{"$lt": bson.A{"$issued_quantity", "$total_quantity"}},
		},
		bson.M{
			"$inc": bson.M{"issued_quantity": 1},
			"$set": bson.M{"updated_at": now},
		},
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetUpsert(false),
	).Decode(&coupon)
	if err == nil {
		return &coupon, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	// The guard rejected the update; work out why from the current document
	current, err := r.GetCoupon(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := current.Issue(now); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("issue coupon %s: supply changed concurrently", id)
}

// RestoreOne atomically decrements issued_quantity while it is positive
func (r *mongodbCouponRepository) RestoreOne(ctx context.Context, id string, now time.Time) error {
	res, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "issued_quantity": bson.M{"$gt": 0}},
		bson.M{
			"$inc": bson.M{"issued_quantity": -1},
			"$set": bson.M{"updated_at": now},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := r.GetCoupon(ctx, id); err != nil {
			return err
		}
		return apperrors.ErrInvalidState
	}
	return nil
}
