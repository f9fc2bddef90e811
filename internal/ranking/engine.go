package ranking

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-logr/logr"

	"commerce-core/internal/model"
	"commerce-core/internal/repository"
	apperrors "commerce-core/pkg/errors"
	"commerce-core/pkg/lock"
	"commerce-core/pkg/metrics"
)

// State is the phase of a rollup run for one window kind.
type State int32

const (
	StateIdle State = iota
	StateBackingUp
	StateMaterializing
	StateEvicting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBackingUp:
		return "backing_up"
	case StateMaterializing:
		return "materializing"
	case StateEvicting:
		return "evicting"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

const (
	defaultTopN       = 10
	defaultAttempts   = 3
	defaultRetryDelay = 200 * time.Millisecond
)

type EngineOptions struct {
	Counter  Counter
	Archive  repository.RankingArchive
	Products repository.ProductRepository

	// Locker keeps runs of the same kind exclusive across processes. It should not wait:
	// a held key means another run is busy and this trigger is skipped.
	Locker lock.Locker

	TopN       int
	Attempts   uint
	RetryDelay time.Duration

	Metrics *metrics.Metrics
	Logger  logr.Logger
	Now     func() time.Time
}

// Engine closes ranking windows: it backs up the raw counters, publishes the top-N
// snapshot, then evicts the counters. Every step is idempotent for a given window, so a
// failed run is simply repeated by the next trigger.
type Engine struct {
	opts   EngineOptions
	states map[model.WindowKind]*atomic.Int32
}

func NewEngine(opts EngineOptions) *Engine {
	if opts.TopN <= 0 {
		opts.TopN = defaultTopN
	}
	if opts.Attempts == 0 {
		opts.Attempts = defaultAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}
	return &Engine{
		opts: opts,
		states: map[model.WindowKind]*atomic.Int32{
			model.WindowDay:  new(atomic.Int32),
			model.WindowWeek: new(atomic.Int32),
		},
	}
}

// State reports the phase of the current run of kind.
func (e *Engine) State(kind model.WindowKind) State {
	st, ok := e.states[kind]
	if !ok {
		return StateIdle
	}
	return State(st.Load())
}

// RollupDaily closes the day containing day.
func (e *Engine) RollupDaily(ctx context.Context, day time.Time) (*model.RankingSnapshot, error) {
	return e.Rollup(ctx, model.DayWindow(day))
}

// RollupWeekly closes the ISO week containing anyDay.
func (e *Engine) RollupWeekly(ctx context.Context, anyDay time.Time) (*model.RankingSnapshot, error) {
	return e.Rollup(ctx, model.WeekWindow(anyDay))
}

// Rollup runs backup, materialize and evict for w. Earlier windows of the same kind that
// still hold counters, left behind by failed runs, are closed first, oldest first. It
// returns ErrWindowOpen for a window that has not ended yet and ErrRollupInProgress
// without side effects if a run of the same kind is active.
func (e *Engine) Rollup(ctx context.Context, w model.Window) (snapshot *model.RankingSnapshot, err error) {
	st, ok := e.states[w.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown window kind %q", w.Kind)
	}
	if end := w.End(); end.After(e.opts.Now()) {
		return nil, fmt.Errorf("%w: %s ends at %s", apperrors.ErrWindowOpen, w, end.Format(time.RFC3339))
	}
	if !st.CompareAndSwap(int32(StateIdle), int32(StateBackingUp)) {
		return nil, apperrors.ErrRollupInProgress
	}
	defer st.Store(int32(StateIdle))

	if e.opts.Locker != nil {
		keyLock, lerr := e.opts.Locker.Lock(ctx, "ranking:rollup:"+string(w.Kind))
		if lerr != nil {
			if errors.Is(lerr, lock.ErrNotObtained) {
				return nil, apperrors.ErrRollupInProgress
			}
			return nil, fmt.Errorf("lock rollup %s: %w", w.Kind, lerr)
		}
		defer func() {
			_ = e.opts.Locker.UnLock(context.WithoutCancel(ctx), keyLock)
		}()
	}

	started := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		e.opts.Metrics.RollupRun(string(w.Kind), result, time.Since(started))
	}()

	missed, err := e.missed(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("list %s windows: %w", w.Kind, err)
	}
	for _, m := range missed {
		e.opts.Logger.Info("closing missed window", "window", m.String(), "before", w.String())
		if _, err = e.closeWindow(ctx, st, m); err != nil {
			return nil, fmt.Errorf("catch up before %s: %w", w, err)
		}
	}
	return e.closeWindow(ctx, st, w)
}

// missed returns the windows of w's kind older than w that still hold counters.
func (e *Engine) missed(ctx context.Context, w model.Window) ([]model.Window, error) {
	var ids []string
	if err := e.step(ctx, func() error {
		var serr error
		ids, serr = e.opts.Counter.Windows(ctx, w.Kind)
		return serr
	}); err != nil {
		return nil, err
	}

	var missed []model.Window
	for _, id := range ids {
		if id >= w.ID() {
			break
		}
		m, err := model.ParseWindowID(w.Kind, id, w.Start.Location())
		if err != nil {
			e.opts.Logger.Error(err, "skipping unrecognized counter window")
			continue
		}
		missed = append(missed, m)
	}
	return missed, nil
}

// closeWindow backs up, publishes and evicts one window. Evicting w also drops any older
// window of the kind, so callers close windows oldest first.
func (e *Engine) closeWindow(ctx context.Context, st *atomic.Int32, w model.Window) (*model.RankingSnapshot, error) {
	log := e.opts.Logger.WithValues("window", w.String())
	started := time.Now()
	log.Info("rollup started")

	st.Store(int32(StateBackingUp))
	var scores []model.RankingScore
	if err := e.step(ctx, func() error {
		var serr error
		scores, serr = e.backup(ctx, w)
		return serr
	}); err != nil {
		log.Error(err, "rollup backup failed")
		return nil, fmt.Errorf("backup %s: %w", w, err)
	}

	st.Store(int32(StateMaterializing))
	var snapshot *model.RankingSnapshot
	if err := e.step(ctx, func() error {
		var serr error
		snapshot, serr = e.materialize(ctx, w, scores)
		return serr
	}); err != nil {
		log.Error(err, "rollup materialize failed")
		return nil, fmt.Errorf("materialize %s: %w", w, err)
	}

	st.Store(int32(StateEvicting))
	var evicted int
	if err := e.step(ctx, func() error {
		var serr error
		evicted, serr = e.opts.Counter.Evict(ctx, w.Kind, w.ID())
		return serr
	}); err != nil {
		log.Error(err, "rollup evict failed")
		return nil, fmt.Errorf("evict %s: %w", w, err)
	}

	log.Info("rollup finished", "products", len(scores), "entries", len(snapshot.Entries),
		"evicted", evicted, "elapsed", time.Since(started).String())
	return snapshot, nil
}

func (e *Engine) step(ctx context.Context, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.DelayType(retry.FixedDelay),
		retry.Delay(e.opts.RetryDelay),
		retry.Attempts(e.opts.Attempts),
		retry.LastErrorOnly(true),
	)
}

// backup merges the live counters into the stored backup, keeping the larger count per
// product. Counters only grow until evicted, so rerunning after a partial run never
// loses what an earlier run saved.
func (e *Engine) backup(ctx context.Context, w model.Window) ([]model.RankingScore, error) {
	live, err := e.opts.Counter.Scores(ctx, w)
	if err != nil {
		return nil, err
	}
	saved, err := e.opts.Archive.LoadBackup(ctx, w)
	if err != nil {
		return nil, err
	}

	merged := make(map[int64]int64, len(live)+len(saved))
	for _, s := range saved {
		merged[s.ProductID] = s.Quantity
	}
	for _, s := range live {
		if s.Quantity > merged[s.ProductID] {
			merged[s.ProductID] = s.Quantity
		}
	}

	scores := make([]model.RankingScore, 0, len(merged))
	for productID, quantity := range merged {
		scores = append(scores, model.RankingScore{ProductID: productID, Quantity: quantity})
	}
	model.SortScores(scores)

	if err := e.opts.Archive.SaveBackup(ctx, w, scores); err != nil {
		return nil, err
	}
	return scores, nil
}

func (e *Engine) materialize(ctx context.Context, w model.Window, scores []model.RankingScore) (*model.RankingSnapshot, error) {
	top := model.TopScores(append([]model.RankingScore(nil), scores...), e.opts.TopN)

	ids := make([]int64, 0, len(top))
	for _, s := range top {
		ids = append(ids, s.ProductID)
	}
	products, err := e.opts.Products.GetProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	snapshot := &model.RankingSnapshot{
		Kind:           w.Kind,
		WindowID:       w.ID(),
		WindowStart:    w.Start,
		MaterializedAt: e.opts.Now(),
		Entries:        make([]model.ProductRankingInfo, 0, len(top)),
	}
	for i, s := range top {
		entry := model.ProductRankingInfo{
			Rank:               i + 1,
			ProductID:          s.ProductID,
			TotalSalesQuantity: s.Quantity,
		}
		if p, ok := products[s.ProductID]; ok {
			entry.Name = p.Name
			entry.Price = p.Price
		} else {
			e.opts.Logger.Info("ranked product missing from catalog", "productID", s.ProductID)
		}
		snapshot.Entries = append(snapshot.Entries, entry)
	}

	if err := e.opts.Archive.ReplaceSnapshot(ctx, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}
