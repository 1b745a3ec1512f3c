// Package keylock implements globallock's per-key serialiser: at most one
// in-process task per key runs at a time. The order in which waiting local
// contenders on the same key are admitted is not defined (each Run takes
// the key's lock from its own goroutine), so it is not FIFO. It wraps
// im7mortal/kmutex, whose
// reference-counted internal map already satisfies the "weak cache that
// never leaks and never returns a stale locked primitive" requirement —
// entries are created on first Lock and reclaimed once their last holder
// calls Unlock.
package keylock

import (
	"context"

	"github.com/im7mortal/kmutex"

	"github.com/osavoskin/globallock/pkg/lockerrors"
)

// Serialiser runs functions one-at-a-time per key.
type Serialiser struct {
	mutexes *kmutex.Kmutex
}

// New creates a Serialiser with no keys held.
func New() *Serialiser {
	return &Serialiser{mutexes: kmutex.New()}
}

// Run acquires the primitive for key, runs fn, and releases it on every
// exit path (success, failure, cancellation). If ctx is cancelled before
// the primitive is acquired, Run returns a Cancelled error without ever
// calling fn.
func (s *Serialiser) Run(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	acquired := make(chan struct{})
	go func() {
		s.mutexes.Lock(key)
		close(acquired)
	}()

	select {
	case <-ctx.Done():
		// The goroutine above may still be blocked waiting to acquire the
		// primitive; once it does, immediately release it so the key is
		// never left permanently held by an abandoned Run call.
		go func() {
			<-acquired
			s.mutexes.Unlock(key)
		}()
		return lockerrors.NewCancelled(ctx.Err())
	case <-acquired:
	}

	defer s.mutexes.Unlock(key)
	return fn(ctx)
}
