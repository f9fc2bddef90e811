package ranking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"commerce-core/internal/model"
)

type windowKey struct {
	kind model.WindowKind
	id   string
}

// MemoryCounter is a process-local Counter. Each (window, product) score is an atomic
// int64; the maps are only locked exclusively to add a new key or evict.
type MemoryCounter struct {
	mu      sync.RWMutex
	windows map[windowKey]map[int64]*atomic.Int64
}

var _ Counter = (*MemoryCounter)(nil)

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{windows: make(map[windowKey]map[int64]*atomic.Int64)}
}

func (c *MemoryCounter) cell(key windowKey, productID int64) *atomic.Int64 {
	c.mu.RLock()
	cell := c.windows[key][productID]
	c.mu.RUnlock()
	if cell != nil {
		return cell
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	products, ok := c.windows[key]
	if !ok {
		products = make(map[int64]*atomic.Int64)
		c.windows[key] = products
	}
	if cell, ok = products[productID]; !ok {
		cell = new(atomic.Int64)
		products[productID] = cell
	}
	return cell
}

func (c *MemoryCounter) Increment(_ context.Context, productID, quantity int64, at time.Time) error {
	if quantity <= 0 {
		return fmt.Errorf("increment quantity must be positive, got %d", quantity)
	}
	day, week := model.DayWindow(at), model.WeekWindow(at)
	c.cell(windowKey{kind: day.Kind, id: day.ID()}, productID).Add(quantity)
	c.cell(windowKey{kind: week.Kind, id: week.ID()}, productID).Add(quantity)
	return nil
}

func (c *MemoryCounter) Scores(_ context.Context, w model.Window) ([]model.RankingScore, error) {
	c.mu.RLock()
	products := c.windows[windowKey{kind: w.Kind, id: w.ID()}]
	scores := make([]model.RankingScore, 0, len(products))
	for productID, cell := range products {
		scores = append(scores, model.RankingScore{ProductID: productID, Quantity: cell.Load()})
	}
	c.mu.RUnlock()

	model.SortScores(scores)
	return scores, nil
}

func (c *MemoryCounter) TopN(ctx context.Context, w model.Window, n int) ([]model.RankingScore, error) {
	scores, err := c.Scores(ctx, w)
	if err != nil {
		return nil, err
	}
	return model.TopScores(scores, n), nil
}

func (c *MemoryCounter) Windows(_ context.Context, kind model.WindowKind) ([]string, error) {
	c.mu.RLock()
	var ids []string
	for key := range c.windows {
		if key.kind == kind {
			ids = append(ids, key.id)
		}
	}
	c.mu.RUnlock()
	sort.Strings(ids)
	return ids, nil
}

func (c *MemoryCounter) Evict(_ context.Context, kind model.WindowKind, throughID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	evicted := 0
	for key := range c.windows {
		if key.kind == kind && key.id <= throughID {
			delete(c.windows, key)
			evicted++
		}
	}
	return evicted, nil
}
