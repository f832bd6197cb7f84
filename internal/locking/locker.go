// Package locking serializes read-modify-write sequences on shared stock records.
package locking

import (
	"context"
	"errors"
	"sync"
)

// ErrNotAcquired is returned when a lock could not be obtained before the context ended.
var ErrNotAcquired = errors.New("locking: lock not acquired")

// Unlock releases a held lock. It is safe to call more than once.
type Unlock func()

// Locker grants exclusive access to a key.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// NoopLocker grants every request immediately and serializes nothing.
type NoopLocker struct{}

func (NoopLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	return func() {}, nil
}

// MemoryLocker is a keyed mutex for a single process.
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{slots: make(map[string]*slot)}
}

func (l *MemoryLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, s)
		return nil, errors.Join(ErrNotAcquired, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.release(key, s)
		})
	}, nil
}

func (l *MemoryLocker) release(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}
