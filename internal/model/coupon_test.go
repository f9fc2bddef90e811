package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "commerce-core/pkg/errors"
)

func newCoupon(total int64, expiresIn time.Duration) *Coupon {
	now := time.Now()
	return &Coupon{
		ID:            NewID(),
		Name:          "WELCOME",
		DiscountType:  DiscountPercentage,
		DiscountValue: 10,
		TotalQuantity: total,
		ExpiresAt:     now.Add(expiresIn),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestCouponIssueUntilSoldOut(t *testing.T) {
	c := newCoupon(2, time.Hour)
	now := time.Now()

	require.NoError(t, c.Issue(now))
	require.NoError(t, c.Issue(now))
	assert.ErrorIs(t, c.Issue(now), apperrors.ErrSoldOut)
	assert.Equal(t, int64(2), c.IssuedQuantity)
	assert.Equal(t, int64(0), c.RemainingQuantity())
}

func TestCouponIssueExpired(t *testing.T) {
	c := newCoupon(5, -time.Minute)
	assert.ErrorIs(t, c.Issue(time.Now()), apperrors.ErrCouponExpired)
	assert.Equal(t, int64(0), c.IssuedQuantity)
}

func TestCouponIssueZeroSupply(t *testing.T) {
	c := newCoupon(0, time.Hour)
	assert.ErrorIs(t, c.Issue(time.Now()), apperrors.ErrSoldOut)
}

func TestCouponRestoreRoundTrip(t *testing.T) {
	c := newCoupon(3, time.Hour)
	now := time.Now()
	require.NoError(t, c.Issue(now))
	before := c.IssuedQuantity

	require.NoError(t, c.Issue(now))
	require.NoError(t, c.Restore(now))
	assert.Equal(t, before, c.IssuedQuantity)
}

func TestCouponRestoreNothingIssued(t *testing.T) {
	c := newCoupon(3, time.Hour)
	assert.ErrorIs(t, c.Restore(time.Now()), apperrors.ErrInvalidState)
	assert.Equal(t, int64(0), c.IssuedQuantity)
}

func TestCalculateDiscount(t *testing.T) {
	tests := []struct {
		name   string
		typ    DiscountType
		value  int64
		amount int64
		want   int64
	}{
		{"percentage", DiscountPercentage, 10, 1000, 100},
		{"percentage truncates", DiscountPercentage, 15, 999, 149},
		{"fixed", DiscountFixed, 300, 1000, 300},
		{"fixed capped at amount", DiscountFixed, 2000, 1000, 1000},
		{"full percentage", DiscountPercentage, 100, 1000, 1000},
		{"zero amount", DiscountFixed, 500, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Coupon{DiscountType: tt.typ, DiscountValue: tt.value}
			assert.Equal(t, tt.want, c.CalculateDiscount(tt.amount))
		})
	}
}

func TestUserCouponStatusAt(t *testing.T) {
	now := time.Now()
	uc := &UserCoupon{Status: UserCouponAvailable}
	assert.Equal(t, UserCouponAvailable, uc.StatusAt(now.Add(time.Hour), now))
	assert.Equal(t, UserCouponExpired, uc.StatusAt(now.Add(-time.Hour), now))

	uc.Status = UserCouponUsed
	assert.Equal(t, UserCouponUsed, uc.StatusAt(now.Add(-time.Hour), now))
}

func TestCreateCouponRequestValidate(t *testing.T) {
	valid := CreateCouponRequest{Name: "A", DiscountType: DiscountFixed, DiscountValue: 100, TotalQuantity: 10}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.DiscountType = DiscountPercentage
	bad.DiscountValue = 150
	assert.Error(t, bad.Validate())

	bad = valid
	bad.DiscountType = "BOGO"
	assert.Error(t, bad.Validate())

	bad = valid
	bad.TotalQuantity = -1
	assert.Error(t, bad.Validate())
}
