// Package journal defines the operation-log table that backs globallock's
// lock invariant: one row per acquired lease, with conditional
// insert/merge-by-ETag semantics delegated to a Repository implementation.
package journal

import (
	"context"
	"time"
)

// SentinelEpoch is the fixed timestamp denoting "not yet completed". It is
// the CompletedAt of every active record (it is not Go's zero time.Time).
var SentinelEpoch = time.Date(1601, time.January, 1, 0, 0, 0, 0, time.UTC)

// Record is one row of the journal: the durable state of a single lease
// attempt, active or historical.
type Record struct {
	PartitionKey string
	RowKey       string
	Resource     string
	Scope        string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	CompletedAt  time.Time
	ETag         string
}

// IsActive reports whether r is an active record as of now: not yet
// completed and not yet expired.
func (r *Record) IsActive(now time.Time) bool {
	return r.CompletedAt.Equal(SentinelEpoch) && r.ExpiresAt.After(now)
}

// Repository is the journal's storage contract. Implementations must
// guarantee conditional merge-by-ETag semantics for Prolong and End: a
// merge observing a stale ETag must fail distinguishably (see
// ErrETagConflict) so the caller can retry from a fresh read.
type Repository interface {
	// IsResourceAvailable reports whether zero active records exist for
	// (resource, scope). Matching more than one active record is a
	// tolerated data anomaly: implementations return false (unavailable)
	// rather than risk a second concurrent insert.
	IsResourceAvailable(ctx context.Context, resource, scope string) (bool, error)

	// Begin inserts a fresh active record for (resource, scope) with the
	// given TTL. Callers are expected to already hold the blob-lease gate
	// and to have re-checked availability; Begin itself performs no
	// availability check.
	Begin(ctx context.Context, resource, scope string, ttl time.Duration) (*Record, error)

	// Prolong extends an active record's expiresAt by period. Returns
	// false if no active record with the given identity exists.
	Prolong(ctx context.Context, partitionKey, rowKey string, period time.Duration) (bool, error)

	// End marks a record completed. Idempotent: ending an already-ended or
	// absent record is a no-op.
	End(ctx context.Context, partitionKey, rowKey string) error
}
