package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Handler processes one delivered job. Returning an error makes the
// delivery count as failed; the worker redelivers until maxAttempts.
type Handler func(ctx context.Context, job *Job) error

// backend is the queue surface the worker drives. *Queue implements it
// on Redis; tests substitute an in-memory fake.
type backend interface {
	dequeue(ctx context.Context, timeout time.Duration) (string, error)
	markActive(ctx context.Context, id string) (int, error)
	Job(ctx context.Context, id string) (*Job, error)
	complete(ctx context.Context, id string) error
	retry(ctx context.Context, id, reason string) error
	fail(ctx context.Context, id, reason string) error
	drop(ctx context.Context, id string) error
	RequeueStalled(ctx context.Context) (int, error)
}

// Worker consumes the queue with a bounded pool of goroutines.
// Delivery is at-least-once: a job leaves the active list only after its
// outcome is recorded, so handlers must tolerate redelivery.
type Worker struct {
	queue   backend
	handler Handler
	log     *slog.Logger

	concurrency int
	maxAttempts int
	timeout     time.Duration

	onCompleted func(job *Job)
	onFailed    func(job *Job, err error)

	wg sync.WaitGroup
}

type WorkerOption func(*Worker)

func WithConcurrency(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

func WithMaxAttempts(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.maxAttempts = n
		}
	}
}

func WithJobTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// WithCompletedListener observes successful jobs.
func WithCompletedListener(fn func(job *Job)) WorkerOption {
	return func(w *Worker) { w.onCompleted = fn }
}

// WithFailedListener observes every failed delivery, including the final one.
func WithFailedListener(fn func(job *Job, err error)) WorkerOption {
	return func(w *Worker) { w.onFailed = fn }
}

func NewWorker(q *Queue, handler Handler, logger *slog.Logger, opts ...WorkerOption) *Worker {
	w := newWorker(q, handler, logger, opts...)
	return w
}

func newWorker(q backend, handler Handler, logger *slog.Logger, opts ...WorkerOption) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Worker{
		queue:       q,
		handler:     handler,
		log:         logger,
		concurrency: 4,
		maxAttempts: 3,
		timeout:     3 * time.Minute,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Run blocks until ctx is cancelled and all in-flight jobs finish.
func (w *Worker) Run(ctx context.Context) {
	if moved, err := w.queue.RequeueStalled(ctx); err != nil {
		w.log.Error("worker.requeue_stalled_failed", "error", err)
	} else if moved > 0 {
		w.log.Info("worker.requeued_stalled", "count", moved)
	}

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go func(workerID int) {
			defer w.wg.Done()
			w.log.Info("worker.started", "worker_id", workerID)
			w.loop(ctx, workerID)
			w.log.Info("worker.stopped", "worker_id", workerID)
		}(i + 1)
	}
	w.wg.Wait()
}

func (w *Worker) loop(ctx context.Context, workerID int) {
	for {
		if ctx.Err() != nil {
			return
		}
		id, err := w.queue.dequeue(ctx, 5*time.Second)
		if errors.Is(err, errNoJob) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Error("worker.dequeue_failed", "worker_id", workerID, "error", err)
			time.Sleep(time.Second)
			continue
		}
		w.process(ctx, workerID, id)
	}
}

func (w *Worker) process(ctx context.Context, workerID int, id string) {
	attempts, err := w.queue.markActive(ctx, id)
	if err != nil {
		// The delivery still runs; the attempt bound falls back to the
		// counter already in the job hash below.
		w.log.Error("worker.mark_active_failed", "worker_id", workerID, "job_id", id, "error", err)
	}

	job, err := w.queue.Job(ctx, id)
	if err != nil {
		// The hash is gone or unreadable; drop the delivery rather than
		// spin on it forever.
		w.log.Error("worker.job_load_failed", "worker_id", workerID, "job_id", id, "error", err)
		if dropErr := w.queue.drop(ctx, id); dropErr != nil {
			w.log.Error("worker.drop_failed", "worker_id", workerID, "job_id", id, "error", dropErr)
		}
		return
	}
	if job.Attempts > attempts {
		attempts = job.Attempts
	}

	start := time.Now()
	jobCtx, cancel := context.WithTimeout(ctx, w.timeout)
	handlerErr := w.handler(jobCtx, job)
	cancel()

	if handlerErr == nil {
		if ackErr := w.queue.complete(ctx, id); ackErr != nil {
			// The job may be redelivered; the handler is idempotent.
			w.log.Error("worker.ack_failed", "worker_id", workerID, "job_id", id, "error", ackErr)
		}
		w.log.Info("worker.job_completed",
			"worker_id", workerID,
			"job_id", id,
			"record_id", job.Payload.RecordID,
			"attempt", attempts,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		if w.onCompleted != nil {
			w.onCompleted(job)
		}
		return
	}

	job.Error = handlerErr.Error()
	if attempts >= w.maxAttempts {
		if failErr := w.queue.fail(ctx, id, handlerErr.Error()); failErr != nil {
			w.log.Error("worker.fail_mark_failed", "worker_id", workerID, "job_id", id, "error", failErr)
		}
		w.log.Error("worker.job_failed",
			"worker_id", workerID,
			"job_id", id,
			"record_id", job.Payload.RecordID,
			"attempt", attempts,
			"error", handlerErr,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	} else {
		if retryErr := w.queue.retry(ctx, id, handlerErr.Error()); retryErr != nil {
			// The ID stays on the active list until the re-enqueue lands,
			// so RequeueStalled can recover it.
			w.log.Error("worker.requeue_failed", "worker_id", workerID, "job_id", id, "error", retryErr)
		}
		w.log.Warn("worker.job_retrying",
			"worker_id", workerID,
			"job_id", id,
			"record_id", job.Payload.RecordID,
			"attempt", attempts,
			"max_attempts", w.maxAttempts,
			"error", handlerErr,
		)
	}
	if w.onFailed != nil {
		w.onFailed(job, handlerErr)
	}
}
