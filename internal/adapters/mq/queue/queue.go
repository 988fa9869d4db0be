// Package queue carries per-member calendar writes from the materializer to
// the write workers.
package queue

import (
	"context"
	"sync"

	"github.com/okian/rendezvous/internal/domain/model"
	"github.com/okian/rendezvous/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Result is a worker's answer for one Job.
type Result struct {
	Index   int
	Outcome model.MemberOutcome
}

// Job asks a worker to create Event on its owner's calendar and to send the
// outcome to the job's reply channel.
type Job struct {
	RequestID string
	// Index is the member's position in the request roster.
	Index int
	Event model.CalendarEvent

	ctx   context.Context //nolint:containedctx // jobs outlive the enqueue call and must carry cancellation
	reply chan<- Result
}

// NewJob builds a job bound to ctx. reply must have room for the result, the
// worker does not block on it.
func NewJob(ctx context.Context, requestID string, index int, ev model.CalendarEvent, reply chan<- Result) Job {
	return Job{RequestID: requestID, Index: index, Event: ev, ctx: ctx, reply: reply}
}

// Context returns the context of the request that created the job.
func (j Job) Context() context.Context {
	if j.ctx == nil {
		return context.Background()
	}
	return j.ctx
}

// Reply delivers the outcome for the job.
func (j Job) Reply(o model.MemberOutcome) {
	if j.reply != nil {
		j.reply <- Result{Index: j.Index, Outcome: o}
	}
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job. It returns ErrFull or ErrClosed when the job was
	// not accepted.
	Enqueue(ctx context.Context, j Job) error
	// Submit adds a job, waiting for space while the queue is full. It fails
	// only with ErrClosed or the context's error.
	Submit(ctx context.Context, j Job) error
	// Dequeue returns the channel workers read jobs from. It is closed once
	// the queue is closed and drained.
	Dequeue() <-chan Job
	// Len returns the current number of queued jobs.
	Len() int
	// Cap returns the queue capacity.
	Cap() int
	// Close stops accepting jobs. Queued jobs are still delivered.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int

	mu        sync.RWMutex
	closed    bool
	closing   chan struct{}
	closeOnce sync.Once
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		closing:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)

	metrics.UpdateWriteQueueCapacity(q.capacity)
	metrics.UpdateWriteQueueSize(0)
	return q
}

// Enqueue adds a job to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) error { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case q.jobs <- j:
		metrics.UpdateWriteQueueSize(len(q.jobs))
		return nil
	default:
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Submit adds a job, blocking until there is room, ctx is done, or the queue
// is closed.
func (q *InMemoryQueue) Submit(ctx context.Context, j Job) error { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case q.jobs <- j:
		metrics.UpdateWriteQueueSize(len(q.jobs))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closing:
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
}

// Dequeue returns the job channel.
func (q *InMemoryQueue) Dequeue() <-chan Job {
	return q.jobs
}

// Len returns the current number of queued jobs.
func (q *InMemoryQueue) Len() int {
	size := len(q.jobs)
	metrics.UpdateWriteQueueSize(size)
	return size
}

// Cap returns the queue capacity.
func (q *InMemoryQueue) Cap() int {
	return q.capacity
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	// Wake blocked submitters before taking the write lock they hold shared.
	q.closeOnce.Do(func() { close(q.closing) })

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}
