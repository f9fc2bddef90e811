package service

import (
	"context"
	"errors"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-logr/logr"

	"commerce-core/internal/model"
	"commerce-core/internal/ranking"
	"commerce-core/internal/repository"
	apperrors "commerce-core/pkg/errors"
	"commerce-core/pkg/messaging"
)

// RankingService serves published rankings and accepts sales for counting.
type RankingService struct {
	archive repository.RankingArchive
	engine  *ranking.Engine
	pub     message.Publisher
	logger  logr.Logger
	now     func() time.Time
}

func NewRankingService(archive repository.RankingArchive, engine *ranking.Engine, pub message.Publisher, logger logr.Logger) *RankingService {
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}
	return &RankingService{archive: archive, engine: engine, pub: pub, logger: logger, now: time.Now}
}

// GetTopProducts returns up to limit entries of the latest snapshot of kind. Rankings
// are never computed from live counters; before the first rollup the list is empty.
func (s *RankingService) GetTopProducts(ctx context.Context, kind model.WindowKind, limit int) ([]model.ProductRankingInfo, error) {
	snapshot, err := s.archive.GetSnapshot(ctx, kind)
	if err != nil {
		if errors.Is(err, apperrors.ErrSnapshotNotFound) {
			return []model.ProductRankingInfo{}, nil
		}
		return nil, err
	}
	entries := snapshot.Entries
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// GetSnapshot returns the latest snapshot of kind with its window metadata.
func (s *RankingService) GetSnapshot(ctx context.Context, kind model.WindowKind) (*model.RankingSnapshot, error) {
	return s.archive.GetSnapshot(ctx, kind)
}

// RecordSale hands a sale to the ranking pipeline without waiting for it to be counted.
// A zero at means now.
func (s *RankingService) RecordSale(_ context.Context, productID, quantity int64, at time.Time) error {
	if quantity <= 0 {
		return apperrors.ErrInvalidAmount
	}
	if at.IsZero() {
		at = s.now()
	}
	sale := model.SaleRecorded{ProductID: productID, Quantity: quantity, OccurredAt: at}
	if err := messaging.PublishJSON(s.pub, messaging.TopicSaleRecorded, sale); err != nil {
		s.logger.Error(err, "publish sale", "productID", productID)
		return err
	}
	return nil
}

// Rollup closes the window of kind containing date.
func (s *RankingService) Rollup(ctx context.Context, kind model.WindowKind, date time.Time) (*model.RankingSnapshot, error) {
	if kind == model.WindowWeek {
		return s.engine.RollupWeekly(ctx, date)
	}
	return s.engine.RollupDaily(ctx, date)
}
