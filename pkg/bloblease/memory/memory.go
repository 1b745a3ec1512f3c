// Package memory implements bloblease.Gatekeeper over an in-process map,
// for unit tests and single-process development where no Azure Storage
// account is available.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/osavoskin/globallock/pkg/bloblease"
	"github.com/osavoskin/globallock/pkg/lockerrors"
)

// Gatekeeper implements bloblease.Gatekeeper using a mutex-guarded map of
// currently-held resourceUIDs.
type Gatekeeper struct {
	mu     sync.Mutex
	leased map[string]struct{}
}

// New creates an empty in-memory gatekeeper.
func New() *Gatekeeper {
	return &Gatekeeper{leased: make(map[string]struct{})}
}

// TryAcquireBlobLease implements bloblease.Gatekeeper.
func (g *Gatekeeper) TryAcquireBlobLease(ctx context.Context, resourceUID string) (bloblease.Gate, error) {
	if err := lockerrors.FromContext(ctx); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := g.leased[resourceUID]; held {
		return &gate{}, nil // IsAcquired == false: lease already present
	}

	g.leased[resourceUID] = struct{}{}
	gt := &gate{
		gatekeeper:  g,
		resourceUID: resourceUID,
		acquired:    true,
		expired:     make(chan struct{}),
	}
	gt.timer = time.AfterFunc(bloblease.LocalExpiry*time.Second, gt.fireExpired)
	return gt, nil
}

type gate struct {
	gatekeeper  *Gatekeeper
	resourceUID string
	mu          sync.Mutex
	acquired    bool
	released    bool
	expired     chan struct{}
	expiredOnce sync.Once
	timer       *time.Timer
}

func (g *gate) IsAcquired() bool {
	if g == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.acquired && !g.released
}

func (g *gate) Expired() <-chan struct{} {
	if g == nil || g.expired == nil {
		ch := make(chan struct{})
		return ch
	}
	return g.expired
}

func (g *gate) fireExpired() {
	g.expiredOnce.Do(func() { close(g.expired) })
}

func (g *gate) Release(ctx context.Context) error {
	if g == nil || !g.acquired {
		return nil
	}
	if err := lockerrors.FromContext(ctx); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.released {
		return nil
	}
	g.released = true
	if g.timer != nil {
		g.timer.Stop()
	}

	g.gatekeeper.mu.Lock()
	delete(g.gatekeeper.leased, g.resourceUID)
	g.gatekeeper.mu.Unlock()
	return nil
}

var (
	_ bloblease.Gatekeeper = (*Gatekeeper)(nil)
	_ bloblease.Gate       = (*gate)(nil)
)
