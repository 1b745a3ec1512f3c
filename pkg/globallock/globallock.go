// Package globallock is a distributed mutual-exclusion coordinator: it
// grants time-bounded exclusive leases on (resource, scope) pairs across
// processes, using an external journal (conditional row updates) and a
// blob-lease gate (short server-side lease) as its only coordination
// primitives.
//
// No peer-to-peer quorum and no strict cross-process FIFO fairness are
// provided — only best-effort local queueing. Callers must tolerate
// TryAcquire returning an unacquired Lease and retry via Lease.Wait.
package globallock

import (
	"context"
	"time"

	"github.com/osavoskin/globallock/internal/telemetry"
	"github.com/osavoskin/globallock/pkg/bloblease"
	"github.com/osavoskin/globallock/pkg/journal"
	"github.com/osavoskin/globallock/pkg/keylock"
	"github.com/osavoskin/globallock/pkg/lockerrors"
	"github.com/osavoskin/globallock/pkg/lockid"
	"github.com/osavoskin/globallock/pkg/metrics"
)

// Config holds the tunables a GlobalLock needs beyond its storage
// collaborators.
type Config struct {
	// DefaultTTL is used by TryAcquire when the caller supplies none.
	DefaultTTL time.Duration
	// TickerInterval is the waiter-queue promotion period.
	TickerInterval time.Duration
}

// DefaultConfig mirrors pkg/config's defaults (86400s TTL, 5s ticker).
func DefaultConfig() Config {
	return Config{
		DefaultTTL:     86400 * time.Second,
		TickerInterval: 5 * time.Second,
	}
}

// GlobalLock is the coordinator. It is safe for concurrent use by multiple
// goroutines and is typically constructed once per process.
type GlobalLock struct {
	journal    journal.Repository
	gatekeeper bloblease.Gatekeeper
	serialiser *keylock.Serialiser
	metrics    *metrics.Metrics
	cfg        Config

	waiters *waiterQueue
	ticker  *time.Ticker
	done    chan struct{}
}

// New constructs a GlobalLock over the given journal and blob-lease
// collaborators, starts its background ticker, and returns the
// coordinator. Call Close to stop the ticker on shutdown.
func New(j journal.Repository, g bloblease.Gatekeeper, cfg Config, m *metrics.Metrics) *GlobalLock {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultConfig().DefaultTTL
	}
	if cfg.TickerInterval <= 0 {
		cfg.TickerInterval = DefaultConfig().TickerInterval
	}

	gl := &GlobalLock{
		journal:    j,
		gatekeeper: g,
		serialiser: keylock.New(),
		metrics:    m,
		cfg:        cfg,
		waiters:    newWaiterQueue(m),
		done:       make(chan struct{}),
	}

	gl.ticker = time.NewTicker(cfg.TickerInterval)
	go gl.runTicker()
	return gl
}

// Close stops the background ticker. It does not release any held leases.
func (gl *GlobalLock) Close() {
	select {
	case <-gl.done:
		return
	default:
		close(gl.done)
	}
	gl.ticker.Stop()
}

func (gl *GlobalLock) runTicker() {
	for {
		select {
		case <-gl.done:
			return
		case <-gl.ticker.C:
			gl.tick()
		}
	}
}

// tick schedules one promotion attempt per queued resourceUID. Scheduled,
// not synchronous: each promotion is posted through the serialiser rather
// than run in place, so a caller triggering an out-of-band tick (Release)
// never re-enters the acquisition path on its own goroutine.
func (gl *GlobalLock) tick() {
	for _, resourceUID := range gl.waiters.keys() {
		resourceUID := resourceUID
		go func() {
			_ = gl.serialiser.Run(context.Background(), resourceUID, func(ctx context.Context) error {
				gl.waiters.tryAcquirePending(ctx, gl, resourceUID)
				return nil
			})
		}()
	}
}

// scheduleTick posts an out-of-band promotion pass without blocking the
// caller, per spec §9: Release should schedule a tick rather than run one
// synchronously on the caller's goroutine.
func (gl *GlobalLock) scheduleTick() {
	select {
	case <-gl.done:
		return
	default:
	}
	go gl.tick()
}

// TryAcquire constructs a Lease for (resource, scope) and attempts to
// acquire it immediately. The returned Lease may be unacquired; the caller
// can enqueue it via Lease.Wait.
func (gl *GlobalLock) TryAcquire(ctx context.Context, resource, scope string, ttl time.Duration) (*Lease, error) {
	resource, scope, err := normalizeIdentity(resource, scope)
	if err != nil {
		return nil, err
	}
	if ttl == 0 {
		ttl = gl.cfg.DefaultTTL
	}
	if ttl <= 0 {
		return nil, lockerrors.NewOutOfRange("ttl must be positive")
	}
	if err := lockerrors.FromContext(ctx); err != nil {
		return nil, err
	}

	lease := &Lease{
		gl:       gl,
		resource: resource,
		scope:    scope,
		ttl:      ttl,
	}

	resourceUID := lockid.ResourceUID(resource, scope)
	if gl.metrics != nil {
		gl.metrics.RecordAcquireAttempt(resource)
	}
	start := time.Now()

	err = gl.serialiser.Run(ctx, resourceUID, func(ctx context.Context) error {
		return gl.runProtocol(ctx, lease)
	})

	outcome := "acquired"
	switch {
	case err != nil && lockerrors.IsCode(err, lockerrors.Cancelled):
		outcome = "cancelled"
	case err != nil:
		outcome = "failed"
	case !lease.IsAcquired():
		outcome = "unavailable"
	}
	if gl.metrics != nil {
		gl.metrics.RecordAcquireOutcome(outcome, time.Since(start))
	}

	if err != nil {
		return nil, err
	}
	return lease, nil
}

// TryExtend decodes leaseID and prolongs the corresponding active record by
// period. Returns false if no active record matches.
func (gl *GlobalLock) TryExtend(ctx context.Context, leaseID string, period time.Duration) (bool, error) {
	if period == 0 {
		period = gl.cfg.DefaultTTL
	}
	if period <= 0 {
		return false, lockerrors.NewOutOfRange("period must be positive")
	}
	id, err := lockid.DecodeLeaseID(leaseID)
	if err != nil {
		return false, lockerrors.NewInvalidArgument(err.Error())
	}
	if err := lockerrors.FromContext(ctx); err != nil {
		return false, err
	}

	ok, err := gl.journal.Prolong(ctx, id.PartitionKey, id.RowKey, period)
	outcome := "not_active"
	if ok {
		outcome = "extended"
	}
	if gl.metrics != nil {
		gl.metrics.RecordExtend(outcome)
	}
	return ok, err
}

// Release decodes leaseID and marks the corresponding record completed,
// then schedules a waiter-queue tick so the next local waiter is
// considered without waiting for the periodic interval.
func (gl *GlobalLock) Release(ctx context.Context, leaseID string) error {
	id, err := lockid.DecodeLeaseID(leaseID)
	if err != nil {
		return lockerrors.NewInvalidArgument(err.Error())
	}
	if err := lockerrors.FromContext(ctx); err != nil {
		return err
	}

	_, span := telemetry.StartLockSpan(ctx, telemetry.SpanRelease, "", "", "", telemetry.LeaseID(leaseID))
	defer span.End()

	err = gl.journal.End(ctx, id.PartitionKey, id.RowKey)
	outcome := "completed"
	if err != nil {
		outcome = "failed"
	}
	if gl.metrics != nil {
		gl.metrics.RecordRelease(outcome)
	}
	if err != nil {
		return err
	}

	gl.scheduleTick()
	return nil
}

// IsAvailable reports whether (resource, scope) currently has no active
// journal record, without attempting to acquire it. Intended for read-only
// status reporting; TryAcquire re-checks availability itself and does not
// rely on a prior IsAvailable call.
func (gl *GlobalLock) IsAvailable(ctx context.Context, resource, scope string) (bool, error) {
	resource, scope, err := normalizeIdentity(resource, scope)
	if err != nil {
		return false, err
	}
	return gl.journal.IsResourceAvailable(ctx, resource, scope)
}

// normalizeIdentity applies the spec's resource/scope normalisation
// (trimmed, lower-cased, scope defaulting to "default") once, up front, so
// every downstream component — the journal record, the resourceUID hash,
// the waiter-queue key — sees the same canonical strings.
func normalizeIdentity(resource, scope string) (string, string, error) {
	resource = lockid.Normalize(resource)
	if resource == "" {
		return "", "", lockerrors.NewInvalidArgument("resource must not be empty")
	}
	scope = lockid.Normalize(scope)
	if scope == "" {
		scope = lockid.DefaultScope
	}
	return resource, scope, nil
}
