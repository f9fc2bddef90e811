package memory

import (
	"context"
	"sync"
	"time"

	"commerce-core/internal/model"
	"commerce-core/internal/repository"
	apperrors "commerce-core/pkg/errors"
)

type BalanceRepository struct {
	mu       sync.Mutex
	balances map[string]*model.Balance
}

var _ repository.BalanceRepository = (*BalanceRepository)(nil)

func NewBalanceRepository() *BalanceRepository {
	return &BalanceRepository{balances: make(map[string]*model.Balance)}
}

func (r *BalanceRepository) GetBalance(_ context.Context, userID string) (*model.Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.balances[userID]
	if !ok {
		return &model.Balance{UserID: userID}, nil
	}
	cp := *b
	return &cp, nil
}

func (r *BalanceRepository) AddBalance(_ context.Context, userID string, delta int64, at time.Time) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.balances[userID]
	if !ok {
		b = &model.Balance{UserID: userID}
	}
	before := b.Amount
	if before+delta < 0 {
		return 0, 0, apperrors.ErrInsufficientBalance
	}
	b.Amount = before + delta
	b.UpdatedAt = at
	r.balances[userID] = b
	return before, b.Amount, nil
}
