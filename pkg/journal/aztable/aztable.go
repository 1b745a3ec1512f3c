// Package aztable implements journal.Repository over Azure Table Storage
// using aztables. Conditional updates use entity ETags; an HTTP 412
// precondition-failed response is recovered by re-reading the current ETag
// and retrying the merge, bounded by a small exponential backoff.
package aztable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/osavoskin/globallock/internal/logger"
	"github.com/osavoskin/globallock/internal/telemetry"
	"github.com/osavoskin/globallock/pkg/journal"
	"github.com/osavoskin/globallock/pkg/lockerrors"
	"github.com/osavoskin/globallock/pkg/lockid"
	"github.com/osavoskin/globallock/pkg/metrics"
)

// maxETagRetries bounds the retry-from-read loop on a 412 precondition
// failure. Unbounded retries are safe in principle (each retry re-reads
// state and terminates when the row vanishes or the caller cancels) but a
// small bound keeps a pathological hot-row from spinning forever.
const maxETagRetries = 8

// entity is the on-the-wire shape of a journal row.
type entity struct {
	PartitionKey string
	RowKey       string
	Resource     string
	Scope        string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	CompletedAt  time.Time
}

// Repository implements journal.Repository against an aztables.Client.
type Repository struct {
	client  *aztables.Client
	metrics *metrics.Metrics
}

// New wraps client as a journal.Repository. metrics may be nil.
func New(client *aztables.Client, m *metrics.Metrics) *Repository {
	return &Repository{client: client, metrics: m}
}

// NewFromConnectionString creates a table client for tableName against the
// given storage account connection string, creating the table if absent.
func NewFromConnectionString(ctx context.Context, connectionString, tableName string, m *metrics.Metrics) (*Repository, error) {
	serviceClient, err := aztables.NewServiceClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, lockerrors.NewFatalStorage("create table service client", err)
	}

	client := serviceClient.NewClient(tableName)
	_, err = client.CreateTable(ctx, nil)
	if err != nil && !isAlreadyExists(err) {
		return nil, lockerrors.NewFatalStorage("create table", err)
	}
	return New(client, m), nil
}

// IsResourceAvailable implements journal.Repository.
func (r *Repository) IsResourceAvailable(ctx context.Context, resource, scope string) (bool, error) {
	_, span := telemetry.StartLockSpan(ctx, telemetry.SpanJournalCheck, resource, scope, "")
	defer span.End()

	if err := lockerrors.FromContext(ctx); err != nil {
		return false, err
	}

	partitionKey := lockid.PartitionKey(scope)
	now := time.Now().UTC()
	filter := fmt.Sprintf(
		"Resource eq '%s' and PartitionKey eq '%s' and CompletedAt eq datetime'%s' and ExpiresAt gt datetime'%s'",
		escapeODataString(resource), partitionKey, journal.SentinelEpoch.Format(time.RFC3339), now.Format(time.RFC3339),
	)

	pageSize := int32(2)
	pager := r.client.NewListEntitiesPager(&aztables.ListEntitiesOptions{
		Filter: &filter,
		Top:    &pageSize,
	})

	matches := 0
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return false, mapStorageError(ctx, "list journal entities", err)
		}
		matches += len(page.Entities)
		if matches >= 2 {
			break
		}
	}

	if matches >= 2 {
		logger.WarnCtx(ctx, "journal query matched more than one active record; treating resource as unavailable",
			"resource", resource, "scope", scope)
	}

	return matches == 0, nil
}

// Begin implements journal.Repository.
func (r *Repository) Begin(ctx context.Context, resource, scope string, ttl time.Duration) (*journal.Record, error) {
	_, span := telemetry.StartLockSpan(ctx, telemetry.SpanJournalBegin, resource, scope, "")
	defer span.End()

	if err := lockerrors.FromContext(ctx); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := &journal.Record{
		PartitionKey: lockid.PartitionKey(scope),
		RowKey:       uuid.NewString(),
		Resource:     resource,
		Scope:        scope,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		CompletedAt:  journal.SentinelEpoch,
	}

	body, err := json.Marshal(toEntity(rec))
	if err != nil {
		return nil, lockerrors.NewFatalStorage("marshal journal entity", err)
	}

	resp, err := r.client.AddEntity(ctx, body, nil)
	if err != nil {
		return nil, mapStorageError(ctx, "insert journal entity", err)
	}
	rec.ETag = string(resp.ETag)
	return rec, nil
}

// Prolong implements journal.Repository.
func (r *Repository) Prolong(ctx context.Context, partitionKey, rowKey string, period time.Duration) (bool, error) {
	_, span := telemetry.StartLockSpan(ctx, telemetry.SpanJournalProlong, "", "", "")
	defer span.End()

	found := false
	err := r.retryOnConflict(ctx, func() error {
		ent, err := r.getEntity(ctx, partitionKey, rowKey)
		if journal.IsNotFound(err) {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		if !ent.record.IsActive(time.Now().UTC()) {
			found = false
			return nil
		}

		found = true
		ent.record.ExpiresAt = ent.record.ExpiresAt.Add(period)
		return r.mergeEntity(ctx, ent)
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// End implements journal.Repository.
func (r *Repository) End(ctx context.Context, partitionKey, rowKey string) error {
	_, span := telemetry.StartLockSpan(ctx, telemetry.SpanJournalEnd, "", "", "")
	defer span.End()

	return r.retryOnConflict(ctx, func() error {
		ent, err := r.getEntity(ctx, partitionKey, rowKey)
		if journal.IsNotFound(err) {
			return nil // idempotent: nothing to end
		}
		if err != nil {
			return err
		}
		if !ent.record.CompletedAt.Equal(journal.SentinelEpoch) {
			return nil // already completed
		}

		ent.record.CompletedAt = time.Now().UTC()
		return r.mergeEntity(ctx, ent)
	})
}

// storedEntity bundles a parsed record with the ETag observed when it was
// read, for use in a subsequent conditional merge.
type storedEntity struct {
	record journal.Record
	etag   azcore.ETag
}

func (r *Repository) getEntity(ctx context.Context, partitionKey, rowKey string) (*storedEntity, error) {
	resp, err := r.client.GetEntity(ctx, partitionKey, rowKey, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, journal.NewRecordNotFound(partitionKey, rowKey)
		}
		return nil, mapStorageError(ctx, "get journal entity", err)
	}

	var e entity
	if err := json.Unmarshal(resp.Value, &e); err != nil {
		return nil, lockerrors.NewFatalStorage("unmarshal journal entity", err)
	}

	return &storedEntity{
		record: journal.Record{
			PartitionKey: partitionKey,
			RowKey:       rowKey,
			Resource:     e.Resource,
			Scope:        e.Scope,
			CreatedAt:    e.CreatedAt,
			ExpiresAt:    e.ExpiresAt,
			CompletedAt:  e.CompletedAt,
		},
		etag: resp.ETag,
	}, nil
}

func (r *Repository) mergeEntity(ctx context.Context, ent *storedEntity) error {
	body, err := json.Marshal(toEntity(&ent.record))
	if err != nil {
		return lockerrors.NewFatalStorage("marshal journal entity", err)
	}

	_, err = r.client.UpdateEntity(ctx, body, &aztables.UpdateEntityOptions{
		IfMatch:    &ent.etag,
		UpdateMode: aztables.UpdateModeMerge,
	})
	if err != nil {
		if isPreconditionFailed(err) {
			return journal.NewETagConflict(ent.record.PartitionKey, ent.record.RowKey)
		}
		return mapStorageError(ctx, "merge journal entity", err)
	}
	return nil
}

// retryOnConflict runs fn, retrying from scratch (so fn must re-read state)
// whenever it returns an ErrETagConflict, up to maxETagRetries times with a
// small exponential backoff. Cancellation is observed between attempts.
func (r *Repository) retryOnConflict(ctx context.Context, fn func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(20*time.Millisecond),
			backoff.WithMaxInterval(500*time.Millisecond),
		), maxETagRetries),
		ctx,
	)

	return backoff.Retry(func() error {
		if err := lockerrors.FromContext(ctx); err != nil {
			return backoff.Permanent(err)
		}

		err := fn()
		if err == nil {
			return nil
		}
		if journal.IsETagConflict(err) {
			if r.metrics != nil {
				r.metrics.RecordJournalRetry()
			}
			return err // retryable
		}
		return backoff.Permanent(err)
	}, policy)
}

func toEntity(rec *journal.Record) entity {
	return entity{
		PartitionKey: rec.PartitionKey,
		RowKey:       rec.RowKey,
		Resource:     rec.Resource,
		Scope:        rec.Scope,
		CreatedAt:    rec.CreatedAt,
		ExpiresAt:    rec.ExpiresAt,
		CompletedAt:  rec.CompletedAt,
	}
}

func escapeODataString(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'', '\'')
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

func isAlreadyExists(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusConflict
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}

func isPreconditionFailed(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusPreconditionFailed
}

func mapStorageError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return lockerrors.NewCancelled(ctx.Err())
	}
	return lockerrors.NewFatalStorage(op, err)
}

var _ journal.Repository = (*Repository)(nil)
