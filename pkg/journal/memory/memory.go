// Package memory implements journal.Repository over an in-process map. It
// is used for unit tests and single-process development, where no Azure
// Storage account is available.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/osavoskin/globallock/pkg/journal"
	"github.com/osavoskin/globallock/pkg/lockerrors"
	"github.com/osavoskin/globallock/pkg/lockid"
)

// Repository implements journal.Repository using a mutex-guarded map. All
// operations are protected by a single RWMutex, making it safe for
// concurrent access from multiple goroutines.
type Repository struct {
	mu      sync.RWMutex
	records map[string]*journal.Record // keyed by partitionKey+"/"+rowKey
	etagSeq uint64
}

// New creates an empty in-memory journal repository.
func New() *Repository {
	return &Repository{
		records: make(map[string]*journal.Record),
	}
}

func recordKey(partitionKey, rowKey string) string {
	return partitionKey + "/" + rowKey
}

func (r *Repository) nextETag() string {
	r.etagSeq++
	return fmt.Sprintf("etag-%d", r.etagSeq)
}

// IsResourceAvailable implements journal.Repository.
func (r *Repository) IsResourceAvailable(ctx context.Context, resource, scope string) (bool, error) {
	if err := lockerrors.FromContext(ctx); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now().UTC()
	partitionKey := lockid.PartitionKey(scope)
	matches := 0
	for _, rec := range r.records {
		if rec.PartitionKey != partitionKey || rec.Resource != resource {
			continue
		}
		if rec.IsActive(now) {
			matches++
			if matches >= 2 {
				break
			}
		}
	}
	// Matching two or more active rows is a tolerated anomaly: treat the
	// resource as unavailable rather than risk a second concurrent insert.
	return matches == 0, nil
}

// Begin implements journal.Repository.
func (r *Repository) Begin(ctx context.Context, resource, scope string, ttl time.Duration) (*journal.Record, error) {
	if err := lockerrors.FromContext(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	rec := &journal.Record{
		PartitionKey: lockid.PartitionKey(scope),
		RowKey:       uuid.NewString(),
		Resource:     resource,
		Scope:        scope,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		CompletedAt:  journal.SentinelEpoch,
		ETag:         r.nextETag(),
	}
	r.records[recordKey(rec.PartitionKey, rec.RowKey)] = rec

	clone := *rec
	return &clone, nil
}

// Prolong implements journal.Repository.
func (r *Repository) Prolong(ctx context.Context, partitionKey, rowKey string, period time.Duration) (bool, error) {
	if err := lockerrors.FromContext(ctx); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[recordKey(partitionKey, rowKey)]
	if !ok || !rec.IsActive(time.Now().UTC()) {
		return false, nil
	}

	rec.ExpiresAt = rec.ExpiresAt.Add(period)
	rec.ETag = r.nextETag()
	return true, nil
}

// End implements journal.Repository.
func (r *Repository) End(ctx context.Context, partitionKey, rowKey string) error {
	if err := lockerrors.FromContext(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[recordKey(partitionKey, rowKey)]
	if !ok {
		return nil
	}
	if !rec.CompletedAt.Equal(journal.SentinelEpoch) {
		return nil // already completed: idempotent
	}
	rec.CompletedAt = time.Now().UTC()
	rec.ETag = r.nextETag()
	return nil
}

// Snapshot returns a defensive copy of every record currently held, for use
// by tests that need to inspect journal state directly.
func (r *Repository) Snapshot() []*journal.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*journal.Record, 0, len(r.records))
	for _, rec := range r.records {
		clone := *rec
		out = append(out, &clone)
	}
	return out
}

var _ journal.Repository = (*Repository)(nil)
