// Package ingest embeds documents and upserts them into an existing vector
// index in fixed-size batches.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/WessleyAI/holocron/engine/domain"
	"github.com/WessleyAI/holocron/engine/semantic"
	"github.com/WessleyAI/holocron/pkg/fn"
)

const (
	// EmbedBatchSize is the max documents per embedding request.
	EmbedBatchSize = 100
	// UpsertBatchSize is the max records per upsert call.
	UpsertBatchSize = 100
)

var (
	ErrIndexMissing      = errors.New("ingest: index does not exist")
	ErrDimensionMismatch = errors.New("ingest: embedding dimension mismatch")
	ErrEmbeddingCount    = errors.New("ingest: embedding count mismatch")
)

// Options tunes batching.
type Options struct {
	EmbedBatchSize  int
	UpsertBatchSize int
}

// Ingestor populates a vector index. It never creates the index.
type Ingestor struct {
	embed  Embedder
	store  Store
	opts   Options
	logger *slog.Logger
}

// New creates an Ingestor.
func New(embed Embedder, store Store, opts Options, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.EmbedBatchSize <= 0 {
		opts.EmbedBatchSize = EmbedBatchSize
	}
	if opts.UpsertBatchSize <= 0 {
		opts.UpsertBatchSize = UpsertBatchSize
	}
	return &Ingestor{embed: embed, store: store, opts: opts, logger: logger}
}

// Ingest checks the index exists, validates every document, then embeds and
// upserts them batch by batch. Records are keyed by the sanitized record
// id, so re-ingesting a document overwrites it.
func (in *Ingestor) Ingest(ctx context.Context, docs []domain.Document) (Report, error) {
	rep := Report{Documents: len(docs)}

	info, err := in.store.Info(ctx)
	if err != nil {
		return rep, fmt.Errorf("ingest: check index: %w", err)
	}
	if !info.Exists {
		return rep, fmt.Errorf("%w: %s", ErrIndexMissing, info.Name)
	}
	for _, d := range docs {
		if err := domain.ValidateDocument(d); err != nil {
			return rep, fmt.Errorf("ingest: %w", err)
		}
	}

	pipeline := fn.Then(
		fn.LoggedStage("embed", in.logger, fn.TracedStage("ingest.embed", in.embedStage(info.VectorSize))),
		fn.LoggedStage("store", in.logger, fn.TracedStage("ingest.store", in.storeStage())),
	)

	for i, batch := range fn.Chunk(docs, in.opts.EmbedBatchSize) {
		n, err := pipeline(ctx, batch).Unwrap()
		if err != nil {
			return rep, fmt.Errorf("ingest: batch %d: %w", i, err)
		}
		rep.Records += len(batch)
		rep.Batches += n
		in.logger.Info("ingest: batch stored", "batch", i, "records", rep.Records, "of", len(docs))
	}
	return rep, nil
}

func (in *Ingestor) embedStage(dims int) fn.Stage[[]domain.Document, embeddedBatch] {
	return func(ctx context.Context, docs []domain.Document) fn.Result[embeddedBatch] {
		texts := fn.Map(docs, func(d domain.Document) string { return d.Content })
		vectors, err := in.embed.EmbedBatch(ctx, texts)
		if err != nil {
			return fn.Err[embeddedBatch](fmt.Errorf("embed: %w", err))
		}
		if len(vectors) != len(docs) {
			return fn.Err[embeddedBatch](fmt.Errorf("%w: got %d for %d documents", ErrEmbeddingCount, len(vectors), len(docs)))
		}
		for i, v := range vectors {
			if dims > 0 && len(v) != dims {
				return fn.Err[embeddedBatch](fmt.Errorf("%w: %s has %d dimensions, index expects %d",
					ErrDimensionMismatch, docs[i].RecordID(), len(v), dims))
			}
		}
		return fn.Ok(embeddedBatch{docs: docs, vectors: vectors})
	}
}

// storeStage upserts one embedded batch and returns the number of upsert calls.
func (in *Ingestor) storeStage() fn.Stage[embeddedBatch, int] {
	return func(ctx context.Context, b embeddedBatch) fn.Result[int] {
		records := make([]semantic.VectorRecord, len(b.docs))
		for i, d := range b.docs {
			records[i] = semantic.VectorRecord{
				ID:        SanitizeID(d.RecordID()),
				Embedding: b.vectors[i],
				Payload:   d.Payload(),
			}
		}
		calls := 0
		for _, chunk := range fn.Chunk(records, in.opts.UpsertBatchSize) {
			if err := in.store.Upsert(ctx, chunk); err != nil {
				return fn.Err[int](fmt.Errorf("upsert: %w", err))
			}
			calls++
		}
		return fn.Ok(calls)
	}
}
