package lock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type keyEntry struct {
	sem  chan struct{}
	refs int
}

type heldKey struct {
	key   string
	entry *keyEntry
}

// KeyedMutex is an in-process Locker holding one lock per key, created on demand and
// dropped once nobody holds or waits for it.
type KeyedMutex struct {
	wait time.Duration

	mu   sync.Mutex
	keys map[string]*keyEntry
}

// NewKeyedMutex returns a KeyedMutex whose Lock gives up after wait. A zero wait makes
// Lock a single non-blocking attempt.
func NewKeyedMutex(wait time.Duration) *KeyedMutex {
	return &KeyedMutex{wait: wait, keys: make(map[string]*keyEntry)}
}

func (m *KeyedMutex) acquire(key string) *keyEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.keys[key]
	if !ok {
		e = &keyEntry{sem: make(chan struct{}, 1)}
		m.keys[key] = e
	}
	e.refs++
	return e
}

func (m *KeyedMutex) release(key string, e *keyEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.keys, key)
	}
}

func (m *KeyedMutex) Lock(ctx context.Context, key string) (interface{}, error) {
	e := m.acquire(key)

	if m.wait <= 0 {
		select {
		case e.sem <- struct{}{}:
			return &heldKey{key: key, entry: e}, nil
		default:
			m.release(key, e)
			return nil, ErrNotObtained
		}
	}

	timer := time.NewTimer(m.wait)
	defer timer.Stop()
	select {
	case e.sem <- struct{}{}:
		return &heldKey{key: key, entry: e}, nil
	case <-timer.C:
		m.release(key, e)
		return nil, ErrNotObtained
	case <-ctx.Done():
		m.release(key, e)
		return nil, ctx.Err()
	}
}

func (m *KeyedMutex) UnLock(_ context.Context, keyLock interface{}) error {
	h, ok := keyLock.(*heldKey)
	if !ok {
		return fmt.Errorf("unexpected lock handle %T", keyLock)
	}
	<-h.entry.sem
	m.release(h.key, h.entry)
	return nil
}

func (m *KeyedMutex) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}
