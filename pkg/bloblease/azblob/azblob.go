// Package azblob implements bloblease.Gatekeeper over Azure Blob Storage's
// server-side lease primitive.
package azblob

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	azsdk "github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/lease"

	"github.com/osavoskin/globallock/internal/telemetry"
	"github.com/osavoskin/globallock/pkg/bloblease"
	"github.com/osavoskin/globallock/pkg/lockerrors"
)

// Gatekeeper implements bloblease.Gatekeeper against a blob container.
type Gatekeeper struct {
	client        *azblob.Client
	containerName string

	mu             sync.Mutex
	containerReady bool
}

// New wraps client as a bloblease.Gatekeeper over containerName.
func New(client *azblob.Client, containerName string) *Gatekeeper {
	return &Gatekeeper{client: client, containerName: containerName}
}

// NewFromConnectionString builds a Gatekeeper from a storage account
// connection string.
func NewFromConnectionString(connectionString, containerName string) (*Gatekeeper, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, lockerrors.NewFatalStorage("create blob client", err)
	}
	return New(client, containerName), nil
}

// TryAcquireBlobLease implements bloblease.Gatekeeper.
func (g *Gatekeeper) TryAcquireBlobLease(ctx context.Context, resourceUID string) (bloblease.Gate, error) {
	_, span := telemetry.StartLockSpan(ctx, telemetry.SpanBlobAcquire, "", "", "", telemetry.Container(g.containerName))
	defer span.End()

	if err := lockerrors.FromContext(ctx); err != nil {
		return nil, err
	}

	if err := g.ensureContainer(ctx); err != nil {
		return nil, err
	}
	if err := g.ensureBlob(ctx, resourceUID); err != nil {
		return nil, err
	}

	leaseClient, err := lease.NewBlobClient(g.client.ServiceClient().NewContainerClient(g.containerName).NewBlobClient(resourceUID), nil)
	if err != nil {
		return nil, lockerrors.NewFatalStorage("create lease client", err)
	}

	resp, err := leaseClient.AcquireLease(ctx, bloblease.LeaseDuration, nil)
	if err != nil {
		if isLeaseAlreadyPresent(err) {
			return &gate{}, nil
		}
		return nil, mapStorageError(ctx, err)
	}

	gt := &gate{
		leaseClient: leaseClient,
		leaseID:     *resp.LeaseID,
		acquired:    true,
		expired:     make(chan struct{}),
	}
	gt.timer = time.AfterFunc(bloblease.LocalExpiry*time.Second, gt.fireExpired)
	return gt, nil
}

func (g *Gatekeeper) ensureContainer(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.containerReady {
		return nil
	}

	containerClient := g.client.ServiceClient().NewContainerClient(g.containerName)
	_, err := containerClient.Create(ctx, &container.CreateOptions{})
	if err != nil && !isAlreadyExists(err) {
		return mapStorageError(ctx, err)
	}
	g.containerReady = true
	return nil
}

func (g *Gatekeeper) ensureBlob(ctx context.Context, blobName string) error {
	_, err := g.client.UploadBuffer(ctx, g.containerName, blobName, []byte{}, &azblob.UploadBufferOptions{
		AccessConditions: &azblob.AccessConditions{
			ModifiedAccessConditions: &azblob.ModifiedAccessConditions{
				IfNoneMatch: ptrETag(azsdk.ETagAny),
			},
		},
	})
	if err != nil && !isAlreadyExists(err) {
		return mapStorageError(ctx, err)
	}
	return nil
}

func ptrETag(e azsdk.ETag) *azsdk.ETag { return &e }

type gate struct {
	leaseClient *lease.BlobClient
	leaseID     string

	mu          sync.Mutex
	acquired    bool
	released    bool
	expired     chan struct{}
	expiredOnce sync.Once
	timer       *time.Timer
}

func (g *gate) IsAcquired() bool {
	if g == nil || g.leaseClient == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.acquired && !g.released
}

func (g *gate) Expired() <-chan struct{} {
	if g == nil || g.expired == nil {
		return make(chan struct{})
	}
	return g.expired
}

func (g *gate) fireExpired() {
	g.expiredOnce.Do(func() { close(g.expired) })
}

// Release sends a best-effort release to the backend if currently
// acquired. "Not held any more" is swallowed; cancellation is surfaced.
func (g *gate) Release(ctx context.Context) error {
	if g == nil || g.leaseClient == nil {
		return nil
	}

	g.mu.Lock()
	alreadyReleased := g.released
	g.released = true
	g.mu.Unlock()
	if alreadyReleased {
		return nil
	}
	if g.timer != nil {
		g.timer.Stop()
	}

	_, err := g.leaseClient.ReleaseLease(ctx, nil)
	if err != nil {
		if ctx.Err() != nil {
			return lockerrors.NewCancelled(ctx.Err())
		}
		if isLeaseNotPresent(err) {
			return nil
		}
		return lockerrors.NewFatalStorage("release blob lease", err)
	}
	return nil
}

func isAlreadyExists(err error) bool {
	var respErr *azsdk.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusConflict
}

func isLeaseAlreadyPresent(err error) bool {
	var respErr *azsdk.ResponseError
	if !errors.As(err, &respErr) {
		return false
	}
	return respErr.StatusCode == http.StatusConflict || respErr.ErrorCode == string(bloberror.LeaseAlreadyPresent)
}

func isLeaseNotPresent(err error) bool {
	var respErr *azsdk.ResponseError
	if !errors.As(err, &respErr) {
		return false
	}
	return respErr.ErrorCode == string(bloberror.LeaseNotPresentWithLeaseOperation) ||
		respErr.ErrorCode == string(bloberror.LeaseIDMismatchWithLeaseOperation)
}

func mapStorageError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return lockerrors.NewCancelled(ctx.Err())
	}
	return lockerrors.NewFatalStorage("blob operation", err)
}

var (
	_ bloblease.Gatekeeper = (*Gatekeeper)(nil)
	_ bloblease.Gate       = (*gate)(nil)
)
