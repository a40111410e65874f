// Package queue holds region tasks waiting for a worker.
//
// The in-memory queue is a bounded channel. Producers wait for room with Push.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/jci/internal/domain/model"
	"github.com/okian/jci/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Task is one region scope to compute. Index is the scope's position in the
// run so results can be put back in input order.
type Task struct {
	Index int
	Scope model.RegionScope
}

// Queue provides blocking push and channel-based dequeue semantics.
type Queue interface {
	// Push adds a task, waiting for room until ctx is done.
	Push(ctx context.Context, t Task) error

	// Dequeue returns a channel that receives tasks until the queue is
	// closed and drained.
	Dequeue(ctx context.Context) <-chan Task

	// Close stops accepting tasks. Queued tasks are still delivered.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	tasks    chan Task
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.tasks = make(chan Task, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0, q.capacity)
	return q
}

// Push adds a task, blocking while the queue is full.
func (q *InMemoryQueue) Push(ctx context.Context, t Task) error { //nolint:gocritic // hugeParam: sent by value on the channel
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.reject("closed")
		return ErrClosed
	}
	select {
	case q.tasks <- t:
		q.accepted()
		return nil
	case <-ctx.Done():
		q.reject("context_cancelled")
		return fmt.Errorf("push task %d: %w", t.Index, ctx.Err())
	}
}

func (q *InMemoryQueue) accepted() {
	metrics.RecordQueueEnqueue()
	metrics.UpdateQueueSize(len(q.tasks), q.capacity)
}

func (q *InMemoryQueue) reject(reason string) {
	metrics.RecordQueueEnqueueError()
	metrics.RecordErrorByComponent("queue", reason)
}

// Dequeue returns a channel fed from the queue. Share one channel between
// consumers; every call starts its own forwarder.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Task {
	out := make(chan Task)
	go func() {
		defer close(out)
		for t := range q.tasks {
			select {
			case out <- t:
				metrics.RecordQueueDequeue()
				metrics.UpdateQueueSize(len(q.tasks), q.capacity)
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Close stops accepting tasks. Queued tasks are still delivered.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.tasks)
	q.closed = true
	return nil
}
