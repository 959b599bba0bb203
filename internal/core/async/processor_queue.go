package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/proposal-extractor/internal/common"
	"github.com/joseph-ayodele/proposal-extractor/internal/core"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// SourceProcessor is the part of core.Processor the workers call.
type SourceProcessor interface {
	Enqueued(ctx context.Context, source string) uuid.UUID
	Abandon(ctx context.Context, runID uuid.UUID, cause error)
	ProcessQueued(ctx context.Context, runID uuid.UUID, uri string) (*core.Report, error)
}

type ProcessorQueue struct {
	proc    SourceProcessor
	logger  *slog.Logger
	workers int
	timeout time.Duration
	limiter *rate.Limiter
	results chan<- JobResult

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithRatePerMinute caps how many documents start per minute across all
// workers. n <= 0 means unlimited.
func WithRatePerMinute(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
		}
	}
}

// WithResults delivers every finished job on ch. The caller must keep
// reading until Shutdown returns.
func WithResults(ch chan<- JobResult) Option {
	return func(q *ProcessorQueue) { q.results = ch }
}

func NewProcessorQueue(proc SourceProcessor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 2,
		timeout: 5 * time.Minute,
		limiter: rate.NewLimiter(rate.Inf, 1),
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.run(workerID, job)
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}

	var (
		rep *core.Report
		err error
	)
	if err = q.limiter.Wait(ctx); err == nil {
		rep, err = q.proc.ProcessQueued(ctx, job.RunID, job.Source)
	}

	if err != nil {
		q.logger.Error("processing failed", "worker_id", workerID, "source", job.Source, "run_id", job.RunID, "trace_id", job.TraceID, "error", err)
	} else {
		q.logger.Info("processed document successfully", "worker_id", workerID, "source", job.Source, "run_id", job.RunID, "trace_id", job.TraceID,
			"wait_ms", time.Since(job.SubmittedAt).Milliseconds())
	}
	if q.results != nil {
		q.results <- JobResult{Job: job, Report: rep, Err: err}
	}
}

// Enqueue records the job as QUEUED in the journal and hands it to a
// worker, blocking while the buffer is full.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "source", job.Source)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	if job.RunID == uuid.Nil {
		job.RunID = q.proc.Enqueued(ctx, job.Source)
	}

	select {
	case q.ch <- job:
		q.logger.Info("queued document for processing", "source", job.Source, "run_id", job.RunID)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "source", job.Source)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		q.logger.Warn("enqueue abandoned", "source", job.Source, "run_id", job.RunID, "error", ctx.Err())
		q.proc.Abandon(ctx, job.RunID, ctx.Err())
		return ctx.Err()
	}
}

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
