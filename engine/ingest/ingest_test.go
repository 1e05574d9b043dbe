package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/WessleyAI/holocron/engine/domain"
	"github.com/WessleyAI/holocron/engine/semantic"
)

// --- mocks ---

type mockEmbedder struct {
	dims  int
	calls [][]string
	err   error
	short bool
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.calls = append(m.calls, texts)
	if m.err != nil {
		return nil, m.err
	}
	n := len(texts)
	if m.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, m.dims)
		out[i][0] = float32(len(texts[i]))
	}
	return out, nil
}

// memStore keeps the latest record per id, like an upserting index.
type memStore struct {
	info    semantic.CollectionInfo
	infoErr error
	records map[string]semantic.VectorRecord
	calls   int
}

func newMemStore(dims int) *memStore {
	return &memStore{
		info:    semantic.CollectionInfo{Name: "sw-index", Exists: true, VectorSize: dims},
		records: map[string]semantic.VectorRecord{},
	}
}

func (m *memStore) Info(context.Context) (semantic.CollectionInfo, error) { return m.info, m.infoErr }

func (m *memStore) Upsert(_ context.Context, recs []semantic.VectorRecord) error {
	m.calls++
	for _, r := range recs {
		m.records[r.ID] = r
	}
	return nil
}

func entityDocs(n int) []domain.Document {
	docs := make([]domain.Document, n)
	for i := range docs {
		id := fmt.Sprint(i + 1)
		docs[i] = domain.Document{
			Content:  "Name: Entity " + id,
			Metadata: domain.Metadata{EntityType: domain.People, SourceID: id, Name: "Entity " + id},
		}
	}
	return docs
}

// --- tests ---

func TestIngest_Batches(t *testing.T) {
	emb := &mockEmbedder{dims: 3}
	store := newMemStore(3)
	ing := New(emb, store, Options{EmbedBatchSize: 2, UpsertBatchSize: 1}, nil)

	rep, err := ing.Ingest(context.Background(), entityDocs(5))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if rep.Documents != 5 || rep.Records != 5 || rep.Batches != 5 {
		t.Errorf("report = %+v", rep)
	}
	if len(emb.calls) != 3 || len(emb.calls[2]) != 1 {
		t.Errorf("embed calls = %d", len(emb.calls))
	}
	r, ok := store.records["people_3"]
	if !ok {
		t.Fatalf("missing people_3, have %d records", len(store.records))
	}
	if r.Payload["name"] != "Entity 3" || r.Payload["text"] != "Name: Entity 3" {
		t.Errorf("payload = %+v", r.Payload)
	}
}

func TestIngest_DefaultBatchSizes(t *testing.T) {
	emb := &mockEmbedder{dims: 2}
	store := newMemStore(2)
	rep, err := New(emb, store, Options{}, nil).Ingest(context.Background(), entityDocs(250))
	if err != nil {
		t.Fatal(err)
	}
	if len(emb.calls) != 3 || len(emb.calls[0]) != EmbedBatchSize {
		t.Errorf("embed calls = %d", len(emb.calls))
	}
	if store.calls != 3 || rep.Batches != 3 {
		t.Errorf("upsert calls = %d, report = %+v", store.calls, rep)
	}
}

func TestIngest_Idempotent(t *testing.T) {
	store := newMemStore(2)
	ing := New(&mockEmbedder{dims: 2}, store, Options{}, nil)
	docs := append(entityDocs(3), domain.Document{
		Content:  "Padmé was idealistic.",
		Metadata: domain.Metadata{Character: "Padmé Amidala", Section: domain.PersonalitySection, ChunkIndex: domain.ChunkIndex(0)},
	})
	for i := 0; i < 2; i++ {
		if _, err := ing.Ingest(context.Background(), docs); err != nil {
			t.Fatal(err)
		}
	}
	if len(store.records) != 4 {
		t.Fatalf("expected 4 records after re-ingestion, got %d", len(store.records))
	}
	if _, ok := store.records["Padme_Amidala_personality_0"]; !ok {
		t.Errorf("sanitized personality id missing: %v", store.records)
	}
}

func TestIngest_IndexMissing(t *testing.T) {
	emb := &mockEmbedder{dims: 2}
	store := newMemStore(2)
	store.info.Exists = false
	_, err := New(emb, store, Options{}, nil).Ingest(context.Background(), entityDocs(1))
	if !errors.Is(err, ErrIndexMissing) {
		t.Fatalf("expected ErrIndexMissing, got %v", err)
	}
	if len(emb.calls) != 0 || store.calls != 0 {
		t.Fatal("no work may happen before the index check")
	}
}

func TestIngest_InfoError(t *testing.T) {
	store := newMemStore(2)
	store.infoErr = errors.New("unavailable")
	if _, err := New(&mockEmbedder{}, store, Options{}, nil).Ingest(context.Background(), nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestIngest_EmptyContent(t *testing.T) {
	emb := &mockEmbedder{dims: 2}
	docs := entityDocs(2)
	docs[1].Content = "   "
	_, err := New(emb, newMemStore(2), Options{}, nil).Ingest(context.Background(), docs)
	if !errors.Is(err, domain.ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
	if len(emb.calls) != 0 {
		t.Fatal("validation must run before embedding")
	}
}

func TestIngest_DimensionMismatch(t *testing.T) {
	store := newMemStore(1536)
	_, err := New(&mockEmbedder{dims: 1024}, store, Options{}, nil).Ingest(context.Background(), entityDocs(1))
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if store.calls != 0 {
		t.Fatal("nothing may be stored on mismatch")
	}
}

func TestIngest_EmbedFailures(t *testing.T) {
	_, err := New(&mockEmbedder{err: errors.New("quota")}, newMemStore(2), Options{}, nil).Ingest(context.Background(), entityDocs(1))
	if err == nil {
		t.Fatal("expected embed error")
	}
	_, err = New(&mockEmbedder{dims: 2, short: true}, newMemStore(2), Options{}, nil).Ingest(context.Background(), entityDocs(2))
	if !errors.Is(err, ErrEmbeddingCount) {
		t.Fatalf("expected ErrEmbeddingCount, got %v", err)
	}
}

func TestSanitizeID(t *testing.T) {
	cases := map[string]string{
		"people_1":                    "people_1",
		"Padmé_Amidala_personality_0": "Padme_Amidala_personality_0",
		"Bail Prestor Organa":         "Bail_Prestor_Organa",
		"Düna ñ":                      "Duna_n",
		"Darth 維達":                    "Darth_",
	}
	for in, want := range cases {
		if got := SanitizeID(in); got != want {
			t.Errorf("SanitizeID(%q) = %q, want %q", in, got, want)
		}
	}
}
