package ingest

import (
	"context"

	"github.com/WessleyAI/holocron/engine/domain"
	"github.com/WessleyAI/holocron/engine/semantic"
)

// Embedder turns a batch of texts into vectors, one per text, in order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Store is the vector index the ingestor writes to.
type Store interface {
	Info(ctx context.Context) (semantic.CollectionInfo, error)
	Upsert(ctx context.Context, records []semantic.VectorRecord) error
}

// Report summarizes one ingestion run.
type Report struct {
	Documents int `json:"documents"`
	Records   int `json:"records"`
	Batches   int `json:"batches"`
}

// embeddedBatch pairs documents with their vectors.
type embeddedBatch struct {
	docs    []domain.Document
	vectors [][]float32
}
