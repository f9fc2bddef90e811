package repository

import (
	"context"
	"time"

	"commerce-core/internal/model"
)

// UserCouponRepository defines the interface for issued coupon data operations
type UserCouponRepository interface {
	// CreateUserCoupon creates a new user coupon record
	CreateUserCoupon(ctx context.Context, uc *model.UserCoupon) error

	// GetUserCoupon retrieves a user coupon by its ID
	GetUserCoupon(ctx context.Context, id string) (*model.UserCoupon, error)

	// ListByUser retrieves all coupons issued to a user, newest first
	ListByUser(ctx context.Context, userID string) ([]*model.UserCoupon, error)

	// ListByUserAndCoupon retrieves the user's records for one coupon
	ListByUserAndCoupon(ctx context.Context, userID, couponID string) ([]*model.UserCoupon, error)

	// MarkUsed moves an AVAILABLE coupon to USED.
	// Returns ErrUserCouponUnavailable if it is not AVAILABLE.
	MarkUsed(ctx context.Context, id string, at time.Time) error

	// ReleaseUsed moves a USED coupon back to AVAILABLE
	ReleaseUsed(ctx context.Context, id string) error
}
