package globallock

import (
	"context"
	"sync"
	"time"

	"github.com/osavoskin/globallock/pkg/lockid"
)

// Lease is the user-visible handle returned by TryAcquire. Its state
// machine is New → Acquired → Released, with New → Cancelled and
// Acquired → Expired (observable only via IsAcquired flipping to false
// once now >= expiresAt).
type Lease struct {
	gl       *GlobalLock
	resource string
	scope    string
	ttl      time.Duration

	mu        sync.Mutex
	recordID  *lockid.RecordID
	expiresAt time.Time
	released  bool
}

// LeaseID returns the opaque id of the underlying journal record, or "" if
// the lease was never acquired.
func (l *Lease) LeaseID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.recordID == nil {
		return ""
	}
	return lockid.EncodeLeaseID(*l.recordID)
}

// Resource returns the normalized resource name this lease was requested for.
func (l *Lease) Resource() string { return l.resource }

// Scope returns the normalized scope this lease was requested for.
func (l *Lease) Scope() string { return l.scope }

// IsAcquired reports whether the lease currently holds an active record:
// it has a record id, has not been released, and has not expired.
func (l *Lease) IsAcquired() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isAcquiredLocked()
}

func (l *Lease) isAcquiredLocked() bool {
	return l.recordID != nil && !l.released && l.expiresAt.After(time.Now().UTC())
}

func (l *Lease) setAcquired(id lockid.RecordID, expiresAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recordID = &id
	l.expiresAt = expiresAt
	l.released = false
}

// Wait returns immediately if the lease is already acquired. Otherwise it
// enqueues the lease on the waiter queue and blocks until a later
// acquisition attempt (driven by the ticker, or an out-of-band tick
// triggered by some other lease's Release) succeeds, ctx is cancelled, or
// the process is shutting down. Repeated calls are allowed.
func (l *Lease) Wait(ctx context.Context) error {
	if l.IsAcquired() {
		return nil
	}
	return l.gl.waiters.enqueueAndWait(ctx, l)
}

// Release marks the lease released: if currently acquired, it decodes the
// lease's own id, calls the journal's End, and triggers a tick. No-op if
// not acquired.
func (l *Lease) Release(ctx context.Context) error {
	l.mu.Lock()
	if !l.isAcquiredLocked() {
		l.released = true
		l.mu.Unlock()
		return nil
	}
	id := *l.recordID
	l.released = true
	l.mu.Unlock()

	return l.gl.Release(ctx, lockid.EncodeLeaseID(id))
}

// Close implements io.Closer as globallock's scoped-release-on-dispose:
// releasing best-effort, with no cancellation, so a `defer lease.Close()`
// at the call site always attempts cleanup.
func (l *Lease) Close() error {
	return l.Release(context.Background())
}
