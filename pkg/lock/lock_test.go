package lock

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// leasedMutex is a KeyedMutex whose keys must be refreshed, with refreshes failing
// once lost is set.
type leasedMutex struct {
	*KeyedMutex
	refreshes atomic.Int32
	lost      atomic.Bool
}

func (m *leasedMutex) Refresh(context.Context, interface{}) error {
	if m.lost.Load() {
		return errors.New("key expired")
	}
	m.refreshes.Add(1)
	return nil
}

func (m *leasedMutex) RefreshInterval() time.Duration {
	return 5 * time.Millisecond
}

func TestRunRefreshesWhileHeld(t *testing.T) {
	m := &leasedMutex{KeyedMutex: NewKeyedMutex(time.Second)}

	err := Run(context.Background(), m, "k", func(ctx context.Context) error {
		time.Sleep(40 * time.Millisecond)
		return ctx.Err()
	})
	require.NoError(t, err)
	t.Logf("refreshed %d times", m.refreshes.Load())
	assert.GreaterOrEqual(t, m.refreshes.Load(), int32(2))

	// the refresher stops with fn
	after := m.refreshes.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, m.refreshes.Load())
	assert.Equal(t, 0, m.size())
}

func TestRunCancelsWhenLockLost(t *testing.T) {
	m := &leasedMutex{KeyedMutex: NewKeyedMutex(time.Second)}
	m.lost.Store(true)

	err := Run(context.Background(), m, "k", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})
	t.Logf("run: %v", err)
	assert.ErrorIs(t, err, ErrLockLost)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, m.size())
}

func TestRunIgnoresLossAfterSuccess(t *testing.T) {
	m := &leasedMutex{KeyedMutex: NewKeyedMutex(time.Second)}
	m.lost.Store(true)

	err := Run(context.Background(), m, "k", func(context.Context) error { return nil })
	assert.NoError(t, err)
}
