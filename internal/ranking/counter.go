// Package ranking tracks per-product sales counters in open day and week windows and
// rolls closed windows up into published snapshots.
package ranking

import (
	"context"
	"time"

	"commerce-core/internal/model"
)

// Counter accumulates sales per product and window.
//
// Every increment lands in both the day and the ISO week containing its timestamp.
// Reads never mutate and are safe alongside increments.
type Counter interface {
	Increment(ctx context.Context, productID, quantity int64, at time.Time) error

	// TopN returns at most n scores of w, quantity descending then product ID ascending.
	TopN(ctx context.Context, w model.Window, n int) ([]model.RankingScore, error)

	// Scores returns every score of w, in the same order as TopN.
	Scores(ctx context.Context, w model.Window) ([]model.RankingScore, error)

	// Windows lists the IDs of kind that still hold live counters, oldest first.
	Windows(ctx context.Context, kind model.WindowKind) ([]string, error)

	// Evict drops the counters of kind whose window ID is at or before throughID and
	// reports how many windows were removed.
	Evict(ctx context.Context, kind model.WindowKind, throughID string) (int, error)
}
