package globallock

import (
	"container/list"
	"context"
	"sync"

	"github.com/osavoskin/globallock/pkg/lockerrors"
	"github.com/osavoskin/globallock/pkg/lockid"
	"github.com/osavoskin/globallock/pkg/metrics"
)

// waiterRequest is one queued Wait call on a lease: a promise (done,
// resolved with err) that completes when the lease has been promoted or
// fails on the caller's cancellation.
type waiterRequest struct {
	lease *Lease
	ctx   context.Context
	done  chan struct{}
	err   error
	once  sync.Once
}

func (w *waiterRequest) complete(err error) {
	w.once.Do(func() {
		w.err = err
		close(w.done)
	})
}

// cancelled reports whether the request's own context has already fired.
// A cancelled-but-not-yet-dequeued request is skipped by TryAcquirePending
// rather than promoted.
func (w *waiterRequest) cancelled() bool {
	select {
	case <-w.ctx.Done():
		return true
	default:
		return false
	}
}

// waiterQueue implements component F: a per-resourceUID FIFO queue of
// pending requests, promoted by the ticker or by an out-of-band tick
// triggered on Release.
type waiterQueue struct {
	mu      sync.Mutex
	queues  map[string]*list.List // resourceUID -> *list.List of *waiterRequest
	metrics *metrics.Metrics
}

func newWaiterQueue(m *metrics.Metrics) *waiterQueue {
	return &waiterQueue{
		queues:  make(map[string]*list.List),
		metrics: m,
	}
}

// keys returns a snapshot of resourceUIDs with a non-empty queue, safe to
// range over after the lock is released.
func (q *waiterQueue) keys() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]string, 0, len(q.queues))
	for k := range q.queues {
		out = append(out, k)
	}
	return out
}

// enqueueAndWait appends lease to its resourceUID's queue and blocks until
// the request completes, the caller's ctx is cancelled, or the process
// shuts down.
func (q *waiterQueue) enqueueAndWait(ctx context.Context, lease *Lease) error {
	resourceUID := lockid.ResourceUID(lease.resource, lease.scope)
	req := &waiterRequest{lease: lease, ctx: ctx, done: make(chan struct{})}

	q.mu.Lock()
	queue, ok := q.queues[resourceUID]
	if !ok {
		queue = list.New()
		q.queues[resourceUID] = queue
	}
	queue.PushBack(req)
	depth := queue.Len()
	q.mu.Unlock()

	if q.metrics != nil {
		q.metrics.SetWaiterQueueDepth(resourceUID, depth)
	}

	lease.gl.scheduleTick()

	select {
	case <-req.done:
		return req.err
	case <-ctx.Done():
		// Leave the request in the queue: the next tick's
		// tryAcquirePending observes req.cancelled() and dequeues it.
		return ctx.Err()
	case <-lease.gl.done:
		return lockerrors.NewCancelled(context.Canceled)
	}
}

// tryAcquirePending is component F's TryAcquirePending, run under the
// per-key serialiser for resourceUID. If the queue is empty, the map entry
// is removed. Otherwise it peeks the head: a cancelled or already-acquired
// head is dequeued without running the protocol; a still-pending head runs
// runProtocol, and on success the promise is completed and the head
// dequeued.
func (q *waiterQueue) tryAcquirePending(ctx context.Context, gl *GlobalLock, resourceUID string) {
	q.mu.Lock()
	queue, ok := q.queues[resourceUID]
	if !ok || queue.Len() == 0 {
		delete(q.queues, resourceUID)
		q.mu.Unlock()
		return
	}
	front := queue.Front()
	req := front.Value.(*waiterRequest)
	q.mu.Unlock()

	if req.cancelled() || req.lease.IsAcquired() {
		q.dequeueFront(resourceUID, front)
		return
	}

	err := gl.runProtocol(req.ctx, req.lease)
	if err != nil {
		// A fatal or cancelled protocol run completes and dequeues this
		// request; the waiter should not be retried silently forever.
		q.dequeueFront(resourceUID, front)
		req.complete(err)
		return
	}

	if req.lease.IsAcquired() {
		q.dequeueFront(resourceUID, front)
		req.complete(nil)
	}
	// Otherwise still unavailable: leave queued for the next tick.
}

func (q *waiterQueue) dequeueFront(resourceUID string, elem *list.Element) {
	q.mu.Lock()
	defer q.mu.Unlock()

	queue, ok := q.queues[resourceUID]
	if !ok {
		return
	}
	queue.Remove(elem)
	depth := queue.Len()
	if queue.Len() == 0 {
		delete(q.queues, resourceUID)
	}
	if q.metrics != nil {
		q.metrics.SetWaiterQueueDepth(resourceUID, depth)
	}
}
