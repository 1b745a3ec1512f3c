package globallock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	blmemory "github.com/osavoskin/globallock/pkg/bloblease/memory"
	jmemory "github.com/osavoskin/globallock/pkg/journal/memory"
)

func newTestLock(t *testing.T, tickerInterval time.Duration) (*GlobalLock, *jmemory.Repository) {
	t.Helper()
	j := jmemory.New()
	g := blmemory.New()
	cfg := Config{DefaultTTL: time.Hour, TickerInterval: tickerInterval}
	gl := New(j, g, cfg, nil)
	t.Cleanup(gl.Close)
	return gl, j
}

// S1 — solo acquirer.
func TestSoloAcquirer(t *testing.T) {
	gl, j := newTestLock(t, time.Minute)
	ctx := context.Background()

	lease, err := gl.TryAcquire(ctx, "tenant-1", "E2E", 0)
	require.NoError(t, err)
	assert.True(t, lease.IsAcquired())

	snap := j.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "tenant-1", snap[0].Resource)
	assert.Equal(t, "e2e", snap[0].Scope)
	assert.True(t, snap[0].CompletedAt.IsZero() == false)
}

// S2 — contended, smaller scale than the 50x10 reference scenario but
// asserting the same mutual-exclusion property.
func TestContendedMutualExclusion(t *testing.T) {
	gl, j := newTestLock(t, 10*time.Millisecond)
	ctx := context.Background()

	const workers = 10
	const iterations = 5

	var mu sync.Mutex
	inCriticalSection := 0
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for iter := 0; iter < iterations; iter++ {
				var lease *Lease
				for {
					l, err := gl.TryAcquire(ctx, "contended", "default", time.Second)
					require.NoError(t, err)
					if l.IsAcquired() {
						lease = l
						break
					}
					waitCtx, cancel := context.WithTimeout(ctx, time.Second)
					_ = l.Wait(waitCtx)
					cancel()
					if l.IsAcquired() {
						lease = l
						break
					}
				}

				mu.Lock()
				inCriticalSection++
				count := inCriticalSection
				mu.Unlock()
				assert.LessOrEqual(t, count, 1)

				time.Sleep(time.Millisecond)

				mu.Lock()
				inCriticalSection--
				mu.Unlock()

				require.NoError(t, lease.Release(ctx))
			}
		}()
	}
	wg.Wait()

	snap := j.Snapshot()
	assert.Len(t, snap, workers*iterations)
	for _, rec := range snap {
		assert.True(t, rec.CompletedAt.After(rec.CreatedAt) || rec.CompletedAt.Equal(rec.CreatedAt))
	}
}

// S3 — extend held lease.
func TestExtendHeldLease(t *testing.T) {
	gl, j := newTestLock(t, time.Minute)
	ctx := context.Background()

	lease, err := gl.TryAcquire(ctx, "tenant-1", "default", time.Hour)
	require.NoError(t, err)
	require.True(t, lease.IsAcquired())

	before := lease.expiresAt
	ok, err := gl.TryExtend(ctx, lease.LeaseID(), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// The lease handle's own cached expiresAt is not updated by TryExtend
	// (TryExtend is keyed by lease id alone, matching the spec's
	// repository-level contract); verify via the journal directly.
	snap := j.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, before.Add(time.Minute), snap[0].ExpiresAt)
}

// S4 — extend after release.
func TestExtendAfterRelease(t *testing.T) {
	gl, _ := newTestLock(t, time.Minute)
	ctx := context.Background()

	lease, err := gl.TryAcquire(ctx, "tenant-1", "default", time.Hour)
	require.NoError(t, err)
	require.True(t, lease.IsAcquired())

	leaseID := lease.LeaseID()
	require.NoError(t, lease.Release(ctx))

	ok, err := gl.TryExtend(ctx, leaseID, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

// S6 — contender arrives, queues, is promoted.
func TestContenderQueuedAndPromoted(t *testing.T) {
	gl, _ := newTestLock(t, 20*time.Millisecond)
	ctx := context.Background()

	a, err := gl.TryAcquire(ctx, "shared", "default", time.Hour)
	require.NoError(t, err)
	require.True(t, a.IsAcquired())

	b, err := gl.TryAcquire(ctx, "shared", "default", time.Hour)
	require.NoError(t, err)
	require.False(t, b.IsAcquired())

	waitDone := make(chan error, 1)
	go func() {
		waitCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		waitDone <- b.Wait(waitCtx)
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, a.Release(ctx))

	select {
	case err := <-waitDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("b.Wait never completed")
	}
	assert.True(t, b.IsAcquired())
}

func TestIdempotentRelease(t *testing.T) {
	gl, j := newTestLock(t, time.Minute)
	ctx := context.Background()

	lease, err := gl.TryAcquire(ctx, "tenant-1", "default", time.Hour)
	require.NoError(t, err)
	require.True(t, lease.IsAcquired())

	require.NoError(t, lease.Release(ctx))
	snap := j.Snapshot()
	require.Len(t, snap, 1)
	firstCompletedAt := snap[0].CompletedAt

	require.NoError(t, lease.Release(ctx)) // second call: no-op
	snap = j.Snapshot()
	assert.Equal(t, firstCompletedAt, snap[0].CompletedAt)
}

func TestTryAcquireRejectsEmptyResource(t *testing.T) {
	gl, _ := newTestLock(t, time.Minute)
	_, err := gl.TryAcquire(context.Background(), "   ", "default", time.Hour)
	require.Error(t, err)
}

func TestTryAcquireRejectsNonPositiveTTL(t *testing.T) {
	gl, _ := newTestLock(t, time.Minute)
	_, err := gl.TryAcquire(context.Background(), "tenant-1", "default", -time.Second)
	require.Error(t, err)
}

// Testable property 6: cancelled pre-flight.
func TestCancelledPreflightNeverCallsBackend(t *testing.T) {
	gl, j := newTestLock(t, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gl.TryAcquire(ctx, "tenant-1", "default", time.Hour)
	require.Error(t, err)
	assert.Empty(t, j.Snapshot())
}

func TestTryExtendRejectsMalformedLeaseID(t *testing.T) {
	gl, _ := newTestLock(t, time.Minute)
	_, err := gl.TryExtend(context.Background(), "not-a-valid-lease-id", time.Minute)
	require.Error(t, err)
}

func TestReleaseRejectsMalformedLeaseID(t *testing.T) {
	gl, _ := newTestLock(t, time.Minute)
	err := gl.Release(context.Background(), "not-a-valid-lease-id")
	require.Error(t, err)
}

func TestIsAvailableReflectsHeldState(t *testing.T) {
	gl, _ := newTestLock(t, time.Minute)
	ctx := context.Background()

	available, err := gl.IsAvailable(ctx, "tenant-1", "default")
	require.NoError(t, err)
	assert.True(t, available)

	lease, err := gl.TryAcquire(ctx, "tenant-1", "default", time.Hour)
	require.NoError(t, err)
	require.True(t, lease.IsAcquired())

	available, err = gl.IsAvailable(ctx, "tenant-1", "default")
	require.NoError(t, err)
	assert.False(t, available)

	require.NoError(t, lease.Release(ctx))
	available, err = gl.IsAvailable(ctx, "tenant-1", "default")
	require.NoError(t, err)
	assert.True(t, available)
}

func TestDefaultScopeAppliedWhenEmpty(t *testing.T) {
	gl, _ := newTestLock(t, time.Minute)
	lease, err := gl.TryAcquire(context.Background(), "tenant-1", "", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "default", lease.Scope())
}
