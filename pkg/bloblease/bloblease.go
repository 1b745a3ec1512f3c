// Package bloblease defines the blob-lease gate: a short server-side blob
// lease used strictly as a mutual-exclusion barrier around the journal's
// check-then-insert. The local countdown it exposes is a safety margin,
// not the authoritative expiration — the backend is authoritative.
package bloblease

import "context"

// LeaseDuration is the server-side blob lease TTL requested on acquire.
const LeaseDuration = 30

// LocalExpiry is the local safety-margin countdown: one second short of
// LeaseDuration, so an in-flight journal write gets cancelled before the
// backend could have already expired the lease out from under it.
const LocalExpiry = 29

// Gate guards the critical section of the acquisition protocol. It is
// created once per TryAcquireBlobLease call and used for exactly one
// acquisition attempt.
type Gate interface {
	// IsAcquired reports whether this gate currently holds the blob lease.
	IsAcquired() bool

	// Expired returns a channel closed exactly once, when the local
	// countdown elapses without the gate having been released.
	Expired() <-chan struct{}

	// Release is idempotent: a best-effort release request is sent to the
	// backend if currently acquired; "not held any more" is swallowed,
	// cancellation is surfaced.
	Release(ctx context.Context) error
}

// Gatekeeper acquires Gates for a resourceUID.
type Gatekeeper interface {
	// TryAcquireBlobLease ensures the backing container and blob exist,
	// then attempts to acquire a LeaseDuration-second lease on the blob
	// named resourceUID. On "lease already present" it returns a Gate
	// whose IsAcquired is false rather than an error.
	TryAcquireBlobLease(ctx context.Context, resourceUID string) (Gate, error)
}
