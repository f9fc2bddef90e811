package repository

import (
	"context"

	"commerce-core/internal/model"
)

// RankingArchive is the durable side of the ranking pipeline: raw counter backups of
// closed windows and the published snapshot per window kind.
type RankingArchive interface {
	// SaveBackup stores scores as the backup of w, replacing any earlier backup of w
	SaveBackup(ctx context.Context, w model.Window, scores []model.RankingScore) error

	// LoadBackup returns the backup of w; empty if none was saved
	LoadBackup(ctx context.Context, w model.Window) ([]model.RankingScore, error)

	// ReplaceSnapshot publishes snapshot as the only snapshot of its kind. Readers see
	// either the previous snapshot or this one, never a mix.
	ReplaceSnapshot(ctx context.Context, snapshot *model.RankingSnapshot) error

	// GetSnapshot returns the current snapshot of kind.
	// Returns ErrSnapshotNotFound before the first rollup.
	GetSnapshot(ctx context.Context, kind model.WindowKind) (*model.RankingSnapshot, error)
}
