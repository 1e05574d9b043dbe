package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/WessleyAI/holocron/engine/domain"
	"github.com/WessleyAI/holocron/pkg/natsutil"
)

const (
	DefaultBucket  = "holocron-jobs"
	DefaultSubject = "holocron.jobs.story"
	DefaultStream  = "HOLOCRON_JOBS"
)

// record is what the job bucket stores per job id.
type record struct {
	Status    string          `json:"status"`
	Output    json.RawMessage `json:"output,omitempty"`
	Error     string          `json:"error,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NATSOptions configures the JetStream backend.
type NATSOptions struct {
	Bucket  string
	Subject string
	// Stream holds submissions until a worker acks them.
	Stream string
	// TTL expires job records. Zero keeps them.
	TTL time.Duration
}

// NATS keeps job state in a JetStream key-value bucket and queues
// submissions on a work-queue stream, so a job submitted while no worker
// is running waits for one.
type NATS struct {
	js      jetstream.JetStream
	kv      jetstream.KeyValue
	stream  jetstream.Stream
	subject string
	logger  *slog.Logger
}

// NewNATS creates or updates the job bucket and submission stream.
func NewNATS(ctx context.Context, nc *nats.Conn, opts NATSOptions, logger *slog.Logger) (*NATS, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Bucket == "" {
		opts.Bucket = DefaultBucket
	}
	if opts.Subject == "" {
		opts.Subject = DefaultSubject
	}
	if opts.Stream == "" {
		opts.Stream = DefaultStream
	}
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("jobs: jetstream: %w", err)
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  opts.Bucket,
		History: 1,
		TTL:     opts.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("jobs: bucket %s: %w", opts.Bucket, err)
	}
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      opts.Stream,
		Subjects:  []string{opts.Subject},
		Retention: jetstream.WorkQueuePolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("jobs: stream %s: %w", opts.Stream, err)
	}
	return &NATS{js: js, kv: kv, stream: stream, subject: opts.Subject, logger: logger}, nil
}

// Subject is where submissions are published.
func (n *NATS) Subject() string { return n.subject }

// Submit records the job as running and publishes it for a worker.
func (n *NATS) Submit(ctx context.Context, req domain.StoryRequest) (string, error) {
	id := uuid.NewString()
	if err := n.put(ctx, id, record{Status: domain.ExecutionRunning}); err != nil {
		return "", err
	}
	if err := natsutil.PublishStream(ctx, n.js, n.subject, Submission{ID: id, Request: req}); err != nil {
		return "", fmt.Errorf("jobs: publish: %w", err)
	}
	n.logger.Info("jobs: submitted", "id", id)
	return id, nil
}

// Status reads the job record.
func (n *NATS) Status(ctx context.Context, id string) (domain.Job, error) {
	rec, err := n.get(ctx, id)
	if err != nil {
		return domain.Job{}, err
	}
	return toJob(id, rec.Status, rec.Output), nil
}

func (n *NATS) get(ctx context.Context, id string) (record, error) {
	entry, err := n.kv.Get(ctx, id)
	if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrInvalidKey) {
		return record{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err != nil {
		return record{}, fmt.Errorf("jobs: get %s: %w", id, err)
	}
	var rec record
	if err := json.Unmarshal(entry.Value(), &rec); err != nil {
		return record{}, fmt.Errorf("jobs: decode %s: %w", id, err)
	}
	return rec, nil
}

// consumer creates or updates the durable consumer workers share.
func (n *NATS) consumer(ctx context.Context, ackWait time.Duration) (jetstream.Consumer, error) {
	cons, err := n.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:   WorkerQueue,
		AckPolicy: jetstream.AckExplicitPolicy,
		AckWait:   ackWait,
	})
	if err != nil {
		return nil, fmt.Errorf("jobs: consumer %s: %w", WorkerQueue, err)
	}
	return cons, nil
}

// finish stores the terminal state of a job.
func (n *NATS) finish(ctx context.Context, id, status string, output json.RawMessage, cause error) error {
	rec := record{Status: status, Output: output}
	if cause != nil {
		rec.Error = cause.Error()
	}
	return n.put(ctx, id, rec)
}

func (n *NATS) put(ctx context.Context, id string, rec record) error {
	rec.UpdatedAt = time.Now().UTC()
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := n.kv.Put(ctx, id, b); err != nil {
		return fmt.Errorf("jobs: put %s: %w", id, err)
	}
	return nil
}
