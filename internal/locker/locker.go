// Package locker provides per-key critical sections with bounded waits.
package locker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrLockTimeout is returned when a lock could not be acquired in time
var ErrLockTimeout = errors.New("lock wait timed out")

// Locker serializes work on a key. The returned release function must be
// called exactly once; calling it more than once is a no-op.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// DocumentKey returns the lock key guarding a single document
func DocumentKey(id int64) string {
	return fmt.Sprintf("document:%d", id)
}

// LocalLocker is an in-process Locker
type LocalLocker struct {
	mu      sync.Mutex
	entries map[string]*entry
	wait    time.Duration
}

type entry struct {
	slot chan struct{}
	refs int
}

// NewLocalLocker creates a local locker. A zero wait relies on the caller's context alone.
func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{
		entries: make(map[string]*entry),
		wait:    wait,
	}
}

// Lock blocks until key is free, the wait elapses or ctx is done
func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{slot: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	if l.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	select {
	case e.slot <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.slot
				l.forget(key, e)
			})
		}, nil
	case <-ctx.Done():
		l.forget(key, e)
		return nil, fmt.Errorf("%w: %s: %w", ErrLockTimeout, key, ctx.Err())
	}
}

func (l *LocalLocker) forget(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}
