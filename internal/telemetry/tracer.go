package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used across the coordinator's spans.
const (
	AttrResource    = "lock.resource"
	AttrScope       = "lock.scope"
	AttrResourceUID = "lock.resource_uid"
	AttrLeaseID     = "lock.lease_id"
	AttrAcquired    = "lock.acquired"
	AttrQueueDepth  = "lock.queue_depth"
	AttrRetryCount  = "lock.retry_count"
	AttrContainer   = "storage.container" // Azure Blob container
	AttrTable       = "storage.table"     // Azure Table name
)

// Span names for the coordinator's operations.
const (
	SpanTryAcquire     = "globallock.try_acquire"
	SpanWait           = "globallock.wait"
	SpanRelease        = "globallock.release"
	SpanExtend         = "globallock.extend"
	SpanProtocolRun    = "globallock.protocol"
	SpanJournalCheck   = "journal.is_available"
	SpanJournalBegin   = "journal.begin"
	SpanJournalEnd     = "journal.end"
	SpanJournalProlong = "journal.prolong"
	SpanBlobAcquire    = "bloblease.acquire"
	SpanBlobRelease    = "bloblease.release"
	SpanTick           = "waiters.tick"
)

func Resource(name string) attribute.KeyValue   { return attribute.String(AttrResource, name) }
func Scope(name string) attribute.KeyValue      { return attribute.String(AttrScope, name) }
func ResourceUID(uid string) attribute.KeyValue { return attribute.String(AttrResourceUID, uid) }
func LeaseID(id string) attribute.KeyValue      { return attribute.String(AttrLeaseID, id) }
func Acquired(ok bool) attribute.KeyValue       { return attribute.Bool(AttrAcquired, ok) }
func QueueDepth(n int) attribute.KeyValue       { return attribute.Int(AttrQueueDepth, n) }
func RetryCount(n int) attribute.KeyValue       { return attribute.Int(AttrRetryCount, n) }
func Container(name string) attribute.KeyValue  { return attribute.String(AttrContainer, name) }
func Table(name string) attribute.KeyValue      { return attribute.String(AttrTable, name) }

// StartLockSpan starts a span for a coordinator operation, tagging it with
// the resource identity up front.
func StartLockSpan(ctx context.Context, name, resource, scope, resourceUID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{Resource(resource), Scope(scope), ResourceUID(resourceUID)}, attrs...)
	return StartSpan(ctx, name, trace.WithAttributes(allAttrs...))
}
