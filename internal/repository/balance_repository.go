package repository

import (
	"context"
	"time"

	"commerce-core/internal/model"
)

// BalanceRepository defines the interface for balance data operations
type BalanceRepository interface {
	// GetBalance returns the user's balance; users never charged have a zero balance
	GetBalance(ctx context.Context, userID string) (*model.Balance, error)

	// AddBalance atomically applies delta and returns the amounts before and after.
	// A negative delta fails with ErrInsufficientBalance if the result would be negative.
	AddBalance(ctx context.Context, userID string, delta int64, at time.Time) (before, after int64, err error)
}
