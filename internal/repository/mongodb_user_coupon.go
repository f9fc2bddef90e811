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

// mongodbUserCouponRepository implements UserCouponRepository using MongoDB
type mongodbUserCouponRepository struct {
	collection *mongo.Collection
}

// NewUserCouponRepository creates a new MongoDB-based user coupon repository
func NewUserCouponRepository(db *mongo.Database) UserCouponRepository {
	return &mongodbUserCouponRepository{
		collection: db.Collection("user_coupons"),
	}
}

// CreateUserCoupon creates a new user coupon record
func (r *mongodbUserCouponRepository) CreateUserCoupon(ctx context.Context, uc *model.UserCoupon) error {
	_, err := r.collection.InsertOne(ctx, uc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.ErrAlreadyIssued
		}
		return err
	}

	return nil
}

// GetUserCoupon retrieves a user coupon by its ID
func (r *mongodbUserCouponRepository) GetUserCoupon(ctx context.Context, id string) (*model.UserCoupon, error) {
	var uc model.UserCoupon
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&uc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrUserCouponNotFound
		}
		return nil, err
	}
	return &uc, nil
}

// ListByUser retrieves all coupons issued to a user, newest first
func (r *mongodbUserCouponRepository) ListByUser(ctx context.Context, userID string) ([]*model.UserCoupon, error) {
	return r.find(ctx, bson.M{"user_id": userID})
}

// ListByUserAndCoupon retrieves the user's records for one coupon
func (r *mongodbUserCouponRepository) ListByUserAndCoupon(ctx context.Context, userID, couponID string) ([]*model.UserCoupon, error) {
	return r.find(ctx, bson.M{"user_id": userID, "coupon_id": couponID})
}

func (r *mongodbUserCouponRepository) find(ctx context.Context, filter bson.M) ([]*model.UserCoupon, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "issued_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	ucs := make([]*model.UserCoupon, 0)
	if err := cursor.All(ctx, &ucs); err != nil {
		return nil, err
	}

	return ucs, nil
}

// MarkUsed moves an AVAILABLE coupon to USED
func (r *mongodbUserCouponRepository) MarkUsed(ctx context.Context, id string, at time.Time) error {
	res, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "status": model.UserCouponAvailable},
		bson.M{"$set": bson.M{"status": model.UserCouponUsed, "used_at": at}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrUserCouponUnavailable
	}
	return nil
}

// ReleaseUsed moves a USED coupon back to AVAILABLE
func (r *mongodbUserCouponRepository) ReleaseUsed(ctx context.Context, id string) error {
	res, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "status": model.UserCouponUsed},
		bson.M{
			"$set":   bson.M{"status": model.UserCouponAvailable},
			"$unset": bson.M{"used_at": ""},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrUserCouponUnavailable
	}
	return nil
}
