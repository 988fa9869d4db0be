// Package worker runs the per-member calendar writes queued by the materializer.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/rendezvous/internal/adapters/mq/queue"
	"github.com/okian/rendezvous/internal/domain/model"
	"github.com/okian/rendezvous/pkg/logger"
	"github.com/okian/rendezvous/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Writer creates one calendar event.
type Writer interface {
	CreateEvent(ctx context.Context, ev model.CalendarEvent) (string, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue() <-chan queue.Job
}

// Worker processes write jobs.
type Worker interface {
	// Run consumes jobs until the queue is closed and drained.
	Run(ctx context.Context)
}

// InMemoryWorker writes events for jobs read off a queue. Every job gets
// exactly one reply, including jobs whose request was cancelled.
type InMemoryWorker struct {
	queue  Queue
	writer Writer
	name   string

	done chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, writer Writer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:  q,
		writer: writer,
		name:   "worker",
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop. It returns once the queue channel is closed
// and every queued job has been answered.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)
	metrics.AddWorkerActive(1)
	defer metrics.AddWorkerActive(-1)

	for job := range w.queue.Dequeue() {
		w.process(ctx, job)
	}
}

// Done is closed when Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	out := model.MemberOutcome{Member: job.Event.Owner}

	jobCtx := job.Context()
	if err := jobCtx.Err(); err != nil {
		out.Err = ErrCancelled
		metrics.RecordMemberWrite("cancelled")
		job.Reply(out)
		return
	}

	id, err := w.writer.CreateEvent(jobCtx, job.Event)
	if err != nil {
		out.Err = fmt.Errorf("write failed for member %s: %w", job.Event.Owner, err)
		metrics.RecordMemberWrite("failed")
		metrics.RecordErrorByComponent("worker", "write_failed")
		w.logger.Warn(ctx, "member write failed",
			logger.String("request_id", job.RequestID),
			logger.String("member", string(job.Event.Owner)),
			logger.Error(err),
		)
		job.Reply(out)
		return
	}

	out.EventID = id
	metrics.RecordMemberWrite("succeeded")
	w.logger.Debug(ctx, "member event created",
		logger.String("request_id", job.RequestID),
		logger.String("member", string(job.Event.Owner)),
		logger.String("event_id", id),
	)
	job.Reply(out)
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers; values below one mean one.
func NewPool(workerCount int, q Queue, writer Writer) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(q, writer, WithName("worker-"+strconv.Itoa(i)))
	}
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Shutdown closes the queue and waits for workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
		}
	}
	return nil
}
