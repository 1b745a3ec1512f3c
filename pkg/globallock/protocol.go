package globallock

import (
	"context"

	"github.com/osavoskin/globallock/internal/telemetry"
	"github.com/osavoskin/globallock/pkg/lockerrors"
	"github.com/osavoskin/globallock/pkg/lockid"
)

// runProtocol is component E, the acquisition protocol: blob-lease-guarded
// check-then-insert. It is always invoked from inside the per-key
// serialiser (component B) for the lease's resourceUID, so at most one
// invocation per resourceUID runs in this process at a time.
//
// On return, lease carries an acquired record id and expiry, or remains
// unacquired; the protocol never returns an error to report "did not
// acquire" — only invalid arguments, cancellation, and unexpected backend
// failures surface as errors.
func (gl *GlobalLock) runProtocol(ctx context.Context, lease *Lease) error {
	ctx, span := telemetry.StartLockSpan(ctx, telemetry.SpanProtocolRun, lease.resource, lease.scope, "")
	defer span.End()

	// 1. Pre-check.
	available, err := gl.journal.IsResourceAvailable(ctx, lease.resource, lease.scope)
	if err != nil {
		return err
	}
	if !available {
		return nil // unacquired: caller may enqueue via Wait
	}

	// 2. Blob-lease-guarded section.
	resourceUID := lockid.ResourceUID(lease.resource, lease.scope)
	gate, err := gl.gatekeeper.TryAcquireBlobLease(ctx, resourceUID)
	if err != nil {
		return err
	}
	// Release on all exit paths using the outer (caller) context, so
	// release survives an inner cancellation triggered by Expired.
	defer func() {
		_ = gate.Release(ctx)
	}()

	if !gate.IsAcquired() {
		return nil // unacquired: another process holds the gate
	}

	innerCtx, cancelInner := context.WithCancel(ctx)
	defer cancelInner()
	go func() {
		select {
		case <-gate.Expired():
			cancelInner()
		case <-gl.done:
			cancelInner()
		case <-innerCtx.Done():
		}
	}()

	// 3. Re-check inside the gate.
	available, err = gl.journal.IsResourceAvailable(innerCtx, lease.resource, lease.scope)
	if err != nil {
		if innerCtx.Err() != nil && ctx.Err() == nil {
			return lockerrors.NewCancelled(innerCtx.Err())
		}
		return err
	}
	if !available {
		return nil
	}

	// 4. Insert.
	rec, err := gl.journal.Begin(innerCtx, lease.resource, lease.scope, lease.ttl)
	if err != nil {
		if innerCtx.Err() != nil && ctx.Err() == nil {
			return lockerrors.NewCancelled(innerCtx.Err())
		}
		return err
	}

	lease.setAcquired(lockid.RecordID{RowKey: rec.RowKey, PartitionKey: rec.PartitionKey}, rec.ExpiresAt)
	return nil
}
