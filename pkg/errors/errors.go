package errors

import "errors"

// Domain errors for the commerce core.
var (
	ErrCouponNotFound      = errors.New("coupon not found")
	ErrCouponAlreadyExists = errors.New("coupon already exists")
	ErrSoldOut             = errors.New("coupon sold out")
	ErrCouponExpired       = errors.New("coupon expired")
	ErrAlreadyIssued       = errors.New("coupon already issued to this user")
	ErrInvalidState        = errors.New("coupon has nothing to restore")
	ErrLockTimeout         = errors.New("timed out waiting for coupon lock")

	ErrUserCouponNotFound    = errors.New("user coupon not found")
	ErrUserCouponUnavailable = errors.New("user coupon is not available")

	ErrProductNotFound     = errors.New("product not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrOrderNotFound       = errors.New("order not found")

	ErrRollupInProgress = errors.New("rollup already running for this window")
	ErrSnapshotNotFound = errors.New("ranking snapshot not found")
	ErrWindowOpen       = errors.New("ranking window has not ended yet")
)
