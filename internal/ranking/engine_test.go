package ranking

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"commerce-core/internal/model"
	"commerce-core/internal/repository"
	"commerce-core/internal/repository/memory"
	apperrors "commerce-core/pkg/errors"
	"commerce-core/pkg/lock"
)

type engineFixture struct {
	counter *MemoryCounter
	archive repository.RankingArchive
	engine  *Engine
	locker  *lock.KeyedMutex
	now     time.Time
}

func newArchive(t *testing.T) repository.RankingArchive {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, repository.MigrateRankingArchive(db))
	return repository.NewRankingArchive(db)
}

func newEngineFixture(t *testing.T, wrap func(repository.RankingArchive) repository.RankingArchive) *engineFixture {
	ctx := context.Background()
	products := memory.NewProductRepository()
	for _, p := range []*model.Product{
		{ID: 1, Name: "keyboard", Price: 45000, Stock: 100},
		{ID: 2, Name: "mouse", Price: 19000, Stock: 100},
		{ID: 3, Name: "monitor", Price: 320000, Stock: 100},
	} {
		require.NoError(t, products.SaveProduct(ctx, p))
	}

	archive := newArchive(t)
	if wrap != nil {
		archive = wrap(archive)
	}
	f := &engineFixture{
		counter: NewMemoryCounter(),
		archive: archive,
		locker:  lock.NewKeyedMutex(0),
	}
	// Monday after friday: friday's day and week have both ended
	f.now = friday.AddDate(0, 0, 3)
	f.engine = NewEngine(EngineOptions{
		Counter:    f.counter,
		Archive:    f.archive,
		Products:   products,
		Locker:     f.locker,
		TopN:       2,
		RetryDelay: time.Millisecond,
		Now:        func() time.Time { return f.now },
	})
	return f
}

func TestRollupDailyPublishesSnapshotAndEvicts(t *testing.T) {
	f := newEngineFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.counter.Increment(ctx, 1, 5, friday))
	require.NoError(t, f.counter.Increment(ctx, 2, 15, friday))
	require.NoError(t, f.counter.Increment(ctx, 3, 10, friday))

	snapshot, err := f.engine.RollupDaily(ctx, friday)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-16", snapshot.WindowID)
	assert.Equal(t, []model.ProductRankingInfo{
		{Rank: 1, ProductID: 2, Name: "mouse", Price: 19000, TotalSalesQuantity: 15},
		{Rank: 2, ProductID: 3, Name: "monitor", Price: 320000, TotalSalesQuantity: 10},
	}, snapshot.Entries)

	stored, err := f.archive.GetSnapshot(ctx, model.WindowDay)
	require.NoError(t, err)
	assert.Equal(t, snapshot.Entries, stored.Entries)

	// the full window is backed up, not just the top-N
	backup, err := f.archive.LoadBackup(ctx, model.DayWindow(friday))
	require.NoError(t, err)
	assert.Len(t, backup, 3)

	live, err := f.counter.Scores(ctx, model.DayWindow(friday))
	require.NoError(t, err)
	assert.Empty(t, live)

	// the week keeps counting
	week, err := f.counter.Scores(ctx, model.WeekWindow(friday))
	require.NoError(t, err)
	assert.Len(t, week, 3)

	assert.Equal(t, StateIdle, f.engine.State(model.WindowDay))
}

func TestRollupRerunIsIdempotent(t *testing.T) {
	f := newEngineFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.counter.Increment(ctx, 1, 4, friday))
	first, err := f.engine.RollupDaily(ctx, friday)
	require.NoError(t, err)

	// counters are gone now; the backup still carries the window
	second, err := f.engine.RollupDaily(ctx, friday)
	require.NoError(t, err)
	assert.Equal(t, first.Entries, second.Entries)
}

func TestNextDayStartsFresh(t *testing.T) {
	f := newEngineFixture(t, nil)
	ctx := context.Background()
	saturday := friday.AddDate(0, 0, 1)

	require.NoError(t, f.counter.Increment(ctx, 1, 4, friday))
	_, err := f.engine.RollupDaily(ctx, friday)
	require.NoError(t, err)

	require.NoError(t, f.counter.Increment(ctx, 1, 1, saturday))
	top, err := f.counter.TopN(ctx, model.DayWindow(saturday), 10)
	require.NoError(t, err)
	assert.Equal(t, []model.RankingScore{{ProductID: 1, Quantity: 1}}, top)
}

func TestRollupWeeklyAfterDaily(t *testing.T) {
	f := newEngineFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.counter.Increment(ctx, 1, 5, friday.AddDate(0, 0, -3)))
	require.NoError(t, f.counter.Increment(ctx, 1, 3, friday))
	_, err := f.engine.RollupDaily(ctx, friday)
	require.NoError(t, err)

	snapshot, err := f.engine.RollupWeekly(ctx, friday)
	require.NoError(t, err)
	assert.Equal(t, "2026-W42", snapshot.WindowID)
	require.Len(t, snapshot.Entries, 1)
	assert.Equal(t, int64(8), snapshot.Entries[0].TotalSalesQuantity)
}

func TestRollupSkipsWhenBusy(t *testing.T) {
	f := newEngineFixture(t, nil)
	ctx := context.Background()

	held, err := f.locker.Lock(ctx, "ranking:rollup:day")
	require.NoError(t, err)

	_, err = f.engine.RollupDaily(ctx, friday)
	assert.ErrorIs(t, err, apperrors.ErrRollupInProgress)
	assert.Equal(t, StateIdle, f.engine.State(model.WindowDay))

	// other kinds are not blocked
	_, err = f.engine.RollupWeekly(ctx, friday)
	assert.NoError(t, err)

	require.NoError(t, f.locker.UnLock(ctx, held))
	_, err = f.engine.RollupDaily(ctx, friday)
	assert.NoError(t, err)
}

type flakyArchive struct {
	repository.RankingArchive
	failures atomic.Int32
}

func (a *flakyArchive) ReplaceSnapshot(ctx context.Context, snapshot *model.RankingSnapshot) error {
	if a.failures.Add(-1) >= 0 {
		return errors.New("connection reset")
	}
	return a.RankingArchive.ReplaceSnapshot(ctx, snapshot)
}

func TestRollupRetriesFailingStep(t *testing.T) {
	f := newEngineFixture(t, func(a repository.RankingArchive) repository.RankingArchive {
		flaky := &flakyArchive{RankingArchive: a}
		flaky.failures.Store(2)
		return flaky
	})
	ctx := context.Background()
	require.NoError(t, f.counter.Increment(ctx, 1, 4, friday))

	_, err := f.engine.RollupDaily(ctx, friday)
	require.NoError(t, err)

	_, err = f.archive.GetSnapshot(ctx, model.WindowDay)
	assert.NoError(t, err)
}

func TestRollupFailureKeepsCounters(t *testing.T) {
	f := newEngineFixture(t, func(a repository.RankingArchive) repository.RankingArchive {
		flaky := &flakyArchive{RankingArchive: a}
		flaky.failures.Store(100)
		return flaky
	})
	ctx := context.Background()
	require.NoError(t, f.counter.Increment(ctx, 1, 4, friday))

	_, err := f.engine.RollupDaily(ctx, friday)
	require.Error(t, err)
	assert.Equal(t, StateIdle, f.engine.State(model.WindowDay))

	live, err := f.counter.Scores(ctx, model.DayWindow(friday))
	require.NoError(t, err)
	assert.Equal(t, []model.RankingScore{{ProductID: 1, Quantity: 4}}, live)

	backup, err := f.archive.LoadBackup(ctx, model.DayWindow(friday))
	require.NoError(t, err)
	assert.Len(t, backup, 1)
}

func TestRollupRejectsOpenWindow(t *testing.T) {
	f := newEngineFixture(t, nil)
	ctx := context.Background()
	today := f.now

	require.NoError(t, f.counter.Increment(ctx, 1, 10, today))

	_, err := f.engine.RollupDaily(ctx, today)
	t.Logf("daily: %v", err)
	assert.ErrorIs(t, err, apperrors.ErrWindowOpen)
	_, err = f.engine.RollupWeekly(ctx, today)
	assert.ErrorIs(t, err, apperrors.ErrWindowOpen)
	assert.Equal(t, StateIdle, f.engine.State(model.WindowDay))

	_, err = f.archive.GetSnapshot(ctx, model.WindowDay)
	assert.ErrorIs(t, err, apperrors.ErrSnapshotNotFound)
	backup, err := f.archive.LoadBackup(ctx, model.DayWindow(today))
	require.NoError(t, err)
	assert.Empty(t, backup)

	// sales keep landing in the open window and all of them count once it closes
	require.NoError(t, f.counter.Increment(ctx, 1, 7, today))
	f.now = today.AddDate(0, 0, 1)
	snapshot, err := f.engine.RollupDaily(ctx, today)
	require.NoError(t, err)
	require.Len(t, snapshot.Entries, 1)
	assert.Equal(t, int64(17), snapshot.Entries[0].TotalSalesQuantity)
}

// backupOutage fails SaveBackup for one window while down is set.
type backupOutage struct {
	repository.RankingArchive
	windowID string
	down     atomic.Bool
}

func (a *backupOutage) SaveBackup(ctx context.Context, w model.Window, scores []model.RankingScore) error {
	if a.down.Load() && w.ID() == a.windowID {
		return errors.New("connection refused")
	}
	return a.RankingArchive.SaveBackup(ctx, w, scores)
}

func TestRollupCatchesUpWindowWithFailedBackup(t *testing.T) {
	outage := &backupOutage{windowID: model.DayWindow(friday).ID()}
	outage.down.Store(true)
	f := newEngineFixture(t, func(a repository.RankingArchive) repository.RankingArchive {
		outage.RankingArchive = a
		return outage
	})
	ctx := context.Background()
	saturday := friday.AddDate(0, 0, 1)

	require.NoError(t, f.counter.Increment(ctx, 1, 4, friday))
	require.NoError(t, f.counter.Increment(ctx, 2, 6, saturday))

	_, err := f.engine.RollupDaily(ctx, friday)
	require.Error(t, err)

	// while friday cannot be saved, closing saturday must not evict it
	_, err = f.engine.RollupDaily(ctx, saturday)
	t.Logf("saturday during outage: %v", err)
	require.Error(t, err)
	live, err := f.counter.Scores(ctx, model.DayWindow(friday))
	require.NoError(t, err)
	assert.Equal(t, []model.RankingScore{{ProductID: 1, Quantity: 4}}, live)
	live, err = f.counter.Scores(ctx, model.DayWindow(saturday))
	require.NoError(t, err)
	assert.Equal(t, []model.RankingScore{{ProductID: 2, Quantity: 6}}, live)

	outage.down.Store(false)
	snapshot, err := f.engine.RollupDaily(ctx, saturday)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-17", snapshot.WindowID)

	backup, err := f.archive.LoadBackup(ctx, model.DayWindow(friday))
	require.NoError(t, err)
	assert.Equal(t, []model.RankingScore{{ProductID: 1, Quantity: 4}}, backup)
	backup, err = f.archive.LoadBackup(ctx, model.DayWindow(saturday))
	require.NoError(t, err)
	assert.Equal(t, []model.RankingScore{{ProductID: 2, Quantity: 6}}, backup)

	ids, err := f.counter.Windows(ctx, model.WindowDay)
	require.NoError(t, err)
	assert.Empty(t, ids)

	stored, err := f.archive.GetSnapshot(ctx, model.WindowDay)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-17", stored.WindowID)
}
