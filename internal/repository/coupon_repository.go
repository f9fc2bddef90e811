package repository

import (
	"context"
	"time"

	"commerce-core/internal/model"
)

// CouponRepository defines the interface for coupon data operations
type CouponRepository interface {
	// CreateCoupon creates a new coupon
	CreateCoupon(ctx context.Context, coupon *model.Coupon) error

	// GetCoupon retrieves a coupon by its ID
	GetCoupon(ctx context.Context, id string) (*model.Coupon, error)

	// ListCoupons retrieves every coupon, newest first
	ListCoupons(ctx context.Context) ([]*model.Coupon, error)

	// IssueOne atomically takes one unit of supply if the coupon has supply left and is
	// not expired at now. Returns the updated coupon.
	// Returns ErrSoldOut, ErrCouponExpired or ErrCouponNotFound otherwise.
	IssueOne(ctx context.Context, id string, now time.Time) (*model.Coupon, error)

	// RestoreOne atomically gives back one unit of supply.
	// Returns ErrInvalidState if nothing is issued.
	RestoreOne(ctx context.Context, id string, now time.Time) error
}
