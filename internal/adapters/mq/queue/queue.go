// Package queue carries finished innings from sessions to the leaderboard
// workers through an in-memory bounded buffer.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/crease/internal/domain/model"
	"github.com/okian/crease/pkg/metrics"
)

const defaultCapacity = 10000

// Result is the payload flowing through the queue.
type Result = model.InningsResult

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a result without blocking. Returns ErrFull or ErrClosed
	// when the result was not accepted.
	Enqueue(ctx context.Context, r Result) error

	// Dequeue returns the receive side of the queue. It is closed after
	// Close once drained.
	Dequeue(ctx context.Context) <-chan Result

	// Len returns the number of queued results.
	Len(ctx context.Context) int

	// Close stops accepting results.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue with a buffered channel.
type InMemoryQueue struct {
	results  chan Result
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.results = make(chan Result, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return q
}

// Enqueue adds a result to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, r Result) error { //nolint:gocritic // hugeParam: passed by value into the channel
	start := time.Now()
	defer func() {
		metrics.RecordQueueProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return err
	}

	select {
	case q.results <- r:
		metrics.RecordQueueEnqueue()
		q.report()
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue returns the receive side of the queue.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Result {
	return q.results
}

// Len returns the number of queued results and refreshes the size gauges.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return q.report()
}

// Close stops accepting results. Already queued results can still be drained.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.results)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue) report() int {
	size := len(q.results)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}
