package model

import (
	"fmt"
	"time"

	apperrors "commerce-core/pkg/errors"
)

// DiscountType determines how CalculateDiscount reads DiscountValue
type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
)

// Coupon is a limited-supply coupon. IssuedQuantity never leaves [0, TotalQuantity].
type Coupon struct {
	ID             string       `bson:"_id" json:"id"`
	Name           string       `bson:"name" json:"name"`
	DiscountType   DiscountType `bson:"discount_type" json:"discount_type"`
	DiscountValue  int64        `bson:"discount_value" json:"discount_value"`
	TotalQuantity  int64        `bson:"total_quantity" json:"total_quantity"`
	IssuedQuantity int64        `bson:"issued_quantity" json:"issued_quantity"`
	ExpiresAt      time.Time    `bson:"expires_at" json:"expires_at"`
	CreatedAt      time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `bson:"updated_at" json:"updated_at"`
}

// RemainingQuantity is the number of units that can still be issued
func (c *Coupon) RemainingQuantity() int64 {
	return c.TotalQuantity - c.IssuedQuantity
}

func (c *Coupon) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Issue takes one unit of supply.
func (c *Coupon) Issue(now time.Time) error {
	if c.IssuedQuantity >= c.TotalQuantity {
		return apperrors.ErrSoldOut
	}
	if c.IsExpired(now) {
		return apperrors.ErrCouponExpired
	}
	c.IssuedQuantity++
	c.UpdatedAt = now
	return nil
}

// Restore gives back one unit taken by Issue.
func (c *Coupon) Restore(now time.Time) error {
	if c.IssuedQuantity <= 0 {
		return apperrors.ErrInvalidState
	}
	c.IssuedQuantity--
	c.UpdatedAt = now
	return nil
}

// CalculateDiscount returns the discount for an order of amount, never more than amount.
func (c *Coupon) CalculateDiscount(amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	var discount int64
	switch c.DiscountType {
	case DiscountPercentage:
		discount = amount * c.DiscountValue / 100
	case DiscountFixed:
		discount = c.DiscountValue
	}
	if discount > amount {
		return amount
	}
	if discount < 0 {
		return 0
	}
	return discount
}

// UserCouponStatus is the lifecycle state of an issued coupon
type UserCouponStatus string

const (
	UserCouponAvailable UserCouponStatus = "AVAILABLE"
	UserCouponUsed      UserCouponStatus = "USED"
	UserCouponExpired   UserCouponStatus = "EXPIRED"
)

// UserCoupon records one unit of a coupon held by a user
type UserCoupon struct {
	ID       string           `bson:"_id" json:"id"`
	UserID   string           `bson:"user_id" json:"user_id"`
	CouponID string           `bson:"coupon_id" json:"coupon_id"`
	Status   UserCouponStatus `bson:"status" json:"status"`
	IssuedAt time.Time        `bson:"issued_at" json:"issued_at"`
	UsedAt   *time.Time       `bson:"used_at,omitempty" json:"used_at,omitempty"`
}

// StatusAt derives the status at now. Expiry is never persisted; it follows the coupon's ExpiresAt.
func (u *UserCoupon) StatusAt(expiresAt, now time.Time) UserCouponStatus {
	if u.Status == UserCouponAvailable && now.After(expiresAt) {
		return UserCouponExpired
	}
	return u.Status
}

// CreateCouponRequest represents the request to create a coupon
type CreateCouponRequest struct {
	Name          string       `json:"name" binding:"required"`
	DiscountType  DiscountType `json:"discount_type" binding:"required"`
	DiscountValue int64        `json:"discount_value"`
	TotalQuantity int64        `json:"total_quantity"`
	ExpiresAt     time.Time    `json:"expires_at" binding:"required"`
}

func (r *CreateCouponRequest) Validate() error {
	switch r.DiscountType {
	case DiscountPercentage:
		if r.DiscountValue <= 0 || r.DiscountValue > 100 {
			return fmt.Errorf("percentage discount must be in (0, 100], got %d", r.DiscountValue)
		}
	case DiscountFixed:
		if r.DiscountValue <= 0 {
			return fmt.Errorf("fixed discount must be positive, got %d", r.DiscountValue)
		}
	default:
		return fmt.Errorf("unknown discount type %q", r.DiscountType)
	}
	if r.TotalQuantity < 0 {
		return fmt.Errorf("total quantity must not be negative, got %d", r.TotalQuantity)
	}
	return nil
}

// IssueCouponRequest represents the request to issue a coupon to a user
type IssueCouponRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// UserCouponInfo is the view of a user coupon returned to callers
type UserCouponInfo struct {
	ID            string           `json:"id"`
	UserID        string           `json:"user_id"`
	CouponID      string           `json:"coupon_id"`
	CouponName    string           `json:"coupon_name"`
	DiscountType  DiscountType     `json:"discount_type"`
	DiscountValue int64            `json:"discount_value"`
	Status        UserCouponStatus `json:"status"`
	IssuedAt      time.Time        `json:"issued_at"`
	UsedAt        *time.Time       `json:"used_at,omitempty"`
	ExpiresAt     time.Time        `json:"expires_at"`
}

// NewUserCouponInfo joins a user coupon with its coupon as seen at now
func NewUserCouponInfo(uc *UserCoupon, c *Coupon, now time.Time) *UserCouponInfo {
	return &UserCouponInfo{
		ID:            uc.ID,
		UserID:        uc.UserID,
		CouponID:      uc.CouponID,
		CouponName:    c.Name,
		DiscountType:  c.DiscountType,
		DiscountValue: c.DiscountValue,
		Status:        uc.StatusAt(c.ExpiresAt, now),
		IssuedAt:      uc.IssuedAt,
		UsedAt:        uc.UsedAt,
		ExpiresAt:     c.ExpiresAt,
	}
}
