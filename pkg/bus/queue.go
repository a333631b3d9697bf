package bus

import (
	"context"
	"sync"
	"sync/atomic"
)

// DefaultQueueCapacity is used when a queue is built with a non-positive capacity.
const DefaultQueueCapacity = 5

// ArtifactQueue is a fixed-capacity FIFO between the ingest loop and a consumer.
//
// TryPush never blocks. When the queue is full the incoming artifact is rejected
// and the queued artifacts are left untouched.
type ArtifactQueue struct {
	items chan Artifact

	done      chan struct{}
	closeOnce sync.Once

	pushed   atomic.Uint64
	rejected atomic.Uint64
	popped   atomic.Uint64
}

// QueueStats is a point-in-time view of queue counters.
type QueueStats struct {
	Len      int    `json:"len"`
	Cap      int    `json:"cap"`
	Pushed   uint64 `json:"pushed"`
	Rejected uint64 `json:"rejected"`
	Popped   uint64 `json:"popped"`
}

func NewArtifactQueue(capacity int) *ArtifactQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}

	q := &ArtifactQueue{
		items: make(chan Artifact, capacity),
		done:  make(chan struct{}),
	}
	queueCapacity.Set(float64(capacity))
	return q
}

// TryPush enqueues the artifact and reports whether it was accepted.
func (q *ArtifactQueue) TryPush(artifact Artifact) bool {
	select {
	case <-q.done:
		q.reject()
		return false
	default:
	}

	select {
	case q.items <- artifact:
		q.pushed.Add(1)
		queueDepth.Set(float64(len(q.items)))
		return true
	default:
		q.reject()
		return false
	}
}

func (q *ArtifactQueue) reject() {
	q.rejected.Add(1)
	queueRejected.Inc()
}

// Pop waits for the next artifact. It returns false when ctx is done, or when
// the queue is closed and already drained.
func (q *ArtifactQueue) Pop(ctx context.Context) (Artifact, bool) {
	if ctx == nil {
		ctx = context.Background()
	}

	if artifact, ok := q.TryPop(); ok {
		return artifact, true
	}

	select {
	case <-ctx.Done():
		return Artifact{}, false
	case <-q.done:
		return q.TryPop()
	case artifact := <-q.items:
		q.popped.Add(1)
		queueDepth.Set(float64(len(q.items)))
		return artifact, true
	}
}

// TryPop returns the oldest artifact without waiting.
func (q *ArtifactQueue) TryPop() (Artifact, bool) {
	select {
	case artifact := <-q.items:
		q.popped.Add(1)
		queueDepth.Set(float64(len(q.items)))
		return artifact, true
	default:
		return Artifact{}, false
	}
}

func (q *ArtifactQueue) Len() int {
	return len(q.items)
}

func (q *ArtifactQueue) Cap() int {
	return cap(q.items)
}

func (q *ArtifactQueue) Stats() QueueStats {
	return QueueStats{
		Len:      len(q.items),
		Cap:      cap(q.items),
		Pushed:   q.pushed.Load(),
		Rejected: q.rejected.Load(),
		Popped:   q.popped.Load(),
	}
}

// Close stops accepting artifacts. Queued artifacts stay available to Pop.
func (q *ArtifactQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
}
