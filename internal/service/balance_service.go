package service

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-logr/logr"

	"commerce-core/internal/model"
	"commerce-core/internal/repository"
	apperrors "commerce-core/pkg/errors"
	"commerce-core/pkg/messaging"
)

// BalanceService mutates user balances and announces every change as a BalanceEvent.
type BalanceService struct {
	repo   repository.BalanceRepository
	pub    message.Publisher
	logger logr.Logger
	now    func() time.Time
}

// NewBalanceService creates a balance service. pub may be nil to skip events.
func NewBalanceService(repo repository.BalanceRepository, pub message.Publisher, logger logr.Logger) *BalanceService {
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}
	return &BalanceService{repo: repo, pub: pub, logger: logger, now: time.Now}
}

func (s *BalanceService) GetBalance(ctx context.Context, userID string) (*model.Balance, error) {
	return s.repo.GetBalance(ctx, userID)
}

// Charge tops up the balance
func (s *BalanceService) Charge(ctx context.Context, userID string, amount int64) (*model.Balance, error) {
	return s.apply(ctx, model.BalanceCharged, userID, amount)
}

// Deduct takes amount from the balance, failing with ErrInsufficientBalance
func (s *BalanceService) Deduct(ctx context.Context, userID string, amount int64) (*model.Balance, error) {
	return s.apply(ctx, model.BalanceDeducted, userID, -amount)
}

// Refund gives back an amount taken by Deduct
func (s *BalanceService) Refund(ctx context.Context, userID string, amount int64) (*model.Balance, error) {
	return s.apply(ctx, model.BalanceRefunded, userID, amount)
}

func (s *BalanceService) apply(ctx context.Context, kind model.BalanceEventKind, userID string, delta int64) (*model.Balance, error) {
	if delta == 0 || (kind == model.BalanceDeducted) != (delta < 0) {
		return nil, apperrors.ErrInvalidAmount
	}

	at := s.now()
	before, after, err := s.repo.AddBalance(ctx, userID, delta, at)
	if err != nil {
		return nil, err
	}

	event := model.NewBalanceEvent(kind, userID, before, after, at)
	if s.pub != nil {
		// the mutation is committed; a lost event must not undo it
		if err := messaging.PublishJSON(s.pub, messaging.TopicBalanceEvents, event); err != nil {
			s.logger.Error(err, "publish balance event", "kind", kind, "userID", userID)
		}
	}
	return &model.Balance{UserID: userID, Amount: after, UpdatedAt: at}, nil
}
