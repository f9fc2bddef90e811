package lock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotObtained is returned when a lock could not be acquired within the allowed wait.
	ErrNotObtained = errors.New("lock not obtained")

	// ErrLockLost means a held key expired before its holder finished.
	ErrLockLost = errors.New("lock lost")
)

// Locker provides mutual exclusion per key. Different keys never contend.
type Locker interface {
	// Lock blocks for a bounded time until the key is held and returns a handle for UnLock.
	Lock(ctx context.Context, key string) (keyLock interface{}, err error)
	UnLock(ctx context.Context, keyLock interface{}) error
}

// Refresher is a Locker whose keys expire unless the holder extends them.
type Refresher interface {
	Locker
	// Refresh extends the hold on keyLock, failing with ErrLockLost once it has expired.
	Refresh(ctx context.Context, keyLock interface{}) error
	// RefreshInterval is how often a holder extends its keys. Zero disables refreshing.
	RefreshInterval() time.Duration
}

// Run holds key while fn executes. Running out of time while waiting for the key,
// including the caller's deadline, is reported as ErrNotObtained.
//
// Keys of a Refresher are extended for as long as fn runs. If an extension fails, fn's
// context is cancelled with an ErrLockLost cause and Run reports ErrLockLost.
func Run(ctx context.Context, l Locker, key string, fn func(ctx context.Context) error) error {
	keyLock, err := l.Lock(ctx, key)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", ErrNotObtained, err)
		}
		return err
	}
	defer func() {
		// use a fresh context so a cancelled caller still releases the key
		_ = l.UnLock(context.WithoutCancel(ctx), keyLock)
	}()

	r, ok := l.(Refresher)
	if !ok || r.RefreshInterval() <= 0 {
		return fn(ctx)
	}
	held, stop := keepAlive(ctx, r, keyLock)
	defer stop()
	err = fn(held)
	if cause := context.Cause(held); err != nil && !errors.Is(err, ErrLockLost) && errors.Is(cause, ErrLockLost) {
		return fmt.Errorf("%w: %w", cause, err)
	}
	return err
}

// keepAlive refreshes keyLock until stop is called. The returned context is cancelled
// when a refresh fails.
func keepAlive(ctx context.Context, r Refresher, keyLock interface{}) (context.Context, func()) {
	held, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(r.RefreshInterval())
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-held.Done():
				return
			case <-ticker.C:
				if err := r.Refresh(held, keyLock); err != nil {
					if !errors.Is(err, ErrLockLost) {
						err = fmt.Errorf("%w: %w", ErrLockLost, err)
					}
					cancel(err)
					return
				}
			}
		}
	}()
	return held, func() {
		close(done)
		<-stopped
		cancel(nil)
	}
}
