package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/WessleyAI/holocron/engine/domain"
	"github.com/WessleyAI/holocron/pkg/metrics"
	"github.com/WessleyAI/holocron/pkg/natsutil"
)

// WorkerQueue is the durable consumer shared by all workers.
const WorkerQueue = "holocron-workers"

// ackGrace is added to the job timeout before an unacked submission is
// redelivered to another worker.
const ackGrace = 30 * time.Second

// Worker runs submitted jobs and records their outcome.
type Worker struct {
	store   *NATS
	gen     Generator
	timeout time.Duration
	metrics *metrics.Story
	logger  *slog.Logger
}

// NewWorker creates a Worker. A job running longer than timeout ends as
// TIMED_OUT.
func NewWorker(store *NATS, gen Generator, timeout time.Duration, m *metrics.Story, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Worker{store: store, gen: gen, timeout: timeout, metrics: m, logger: logger}
}

// Start consumes submissions from the durable work queue. A submission is
// acked only once its outcome is recorded, so a worker that stops mid-job
// leaves it for redelivery.
func (w *Worker) Start(ctx context.Context) (jetstream.ConsumeContext, error) {
	cons, err := w.store.consumer(ctx, w.timeout+ackGrace)
	if err != nil {
		return nil, err
	}
	return natsutil.Consume(cons, w.Handle)
}

// Handle runs one job to completion and records its outcome. Jobs that
// already reached a terminal state are skipped.
func (w *Worker) Handle(ctx context.Context, sub Submission) error {
	log := w.logger.With("id", sub.ID)
	if rec, err := w.store.get(ctx, sub.ID); err == nil && rec.Status != domain.ExecutionRunning {
		log.Info("jobs: already finished", "status", rec.Status)
		return nil
	}
	log.Info("jobs: running")
	w.metrics.JobRunning(1)
	defer w.metrics.JobRunning(-1)

	runCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	status := domain.ExecutionSucceeded
	var output json.RawMessage
	story, err := w.gen.Generate(runCtx, sub.Request)
	switch {
	case err == nil:
		output, err = json.Marshal(story)
		if err != nil {
			status = domain.ExecutionFailed
		}
	case errors.Is(err, context.DeadlineExceeded):
		status = domain.ExecutionTimedOut
	case errors.Is(err, context.Canceled):
		status = domain.ExecutionAborted
	default:
		status = domain.ExecutionFailed
	}

	if perr := w.store.finish(ctx, sub.ID, status, output, err); perr != nil {
		log.Error("jobs: record outcome", "err", perr)
		return perr
	}
	w.metrics.Jobs("run", status)
	if err != nil {
		log.Warn("jobs: failed", "status", status, "err", err)
		return nil
	}
	log.Info("jobs: done")
	return nil
}
