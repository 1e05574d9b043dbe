package swapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/WessleyAI/holocron/engine/domain"
	"github.com/WessleyAI/holocron/pkg/fn"
)

const base = "https://swapi.dev/api"

func ref(t domain.EntityType, id string) string { return fmt.Sprintf("%s/%s/%s/", base, t, id) }

func fixtureEntities() []domain.Entity {
	return []domain.Entity{
		{ID: "1", Type: domain.People, Raw: map[string]any{
			"name":      "Luke Skywalker",
			"height":    "172",
			"homeworld": ref(domain.Planets, "1"),
			"starships": []any{ref(domain.Starships, "12")},
			"films":     []any{ref(domain.Films, "1")},
			"url":       ref(domain.People, "1"),
		}},
		{ID: "1", Type: domain.Planets, Raw: map[string]any{
			"name":      "Tatooine",
			"climate":   "arid",
			"residents": []any{ref(domain.People, "1")},
			"url":       ref(domain.Planets, "1"),
		}},
		{ID: "12", Type: domain.Starships, Raw: map[string]any{
			"name":   "X-wing",
			"MGLT":   "100",
			"pilots": []any{ref(domain.People, "1")},
			"url":    ref(domain.Starships, "12"),
		}},
		{ID: "1", Type: domain.Films, Raw: map[string]any{
			"title":      "A New Hope",
			"episode_id": float64(4),
			"characters": []any{ref(domain.People, "1")},
			"url":        ref(domain.Films, "1"),
		}},
	}
}

// --- Client ---

func newTestServer(t *testing.T, failFirst int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		if n <= failFirst {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.RequestURI() {
		case "/people/":
			fmt.Fprintf(w, `{"next":"%s/people/?page=2","results":[{"name":"Luke Skywalker","url":"%s/people/1/"}]}`, srv.URL, srv.URL)
		case "/people/?page=2":
			fmt.Fprintf(w, `{"next":null,"results":[{"name":"C-3PO","url":"%s/people/2/"},{"name":"nobody"}]}`, srv.URL)
		case "/films/":
			fmt.Fprintf(w, `{"next":null,"results":[{"title":"A New Hope","url":"%s/films/1/"}]}`, srv.URL)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func testClient(url string) *Client {
	return NewClient(Options{
		BaseURL:           url,
		RequestsPerSecond: 1000,
		Retry:             fn.RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 2 * time.Millisecond},
	}, nil)
}

func TestFetchAll_Paginates(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	ents, err := testClient(srv.URL).FetchAll(context.Background(), domain.People)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(ents) != 2 {
		t.Fatalf("expected 2 entities (item without url skipped), got %d", len(ents))
	}
	if ents[1].ID != "2" || DisplayName(ents[1].Raw) != "C-3PO" {
		t.Errorf("unexpected entity: %+v", ents[1])
	}
}

func TestFetchAll_RetriesServerErrors(t *testing.T) {
	srv, hits := newTestServer(t, 2)
	ents, err := testClient(srv.URL).FetchAll(context.Background(), domain.Films)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(ents) != 1 || hits.Load() != 3 {
		t.Fatalf("entities=%d hits=%d", len(ents), hits.Load())
	}
}

func TestFetchAll_NotFoundIsNotRetried(t *testing.T) {
	srv, hits := newTestServer(t, 0)
	_, err := testClient(srv.URL).FetchAll(context.Background(), domain.Vehicles)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected a single request, got %d", hits.Load())
	}
}

// --- Cache ---

type fakeFetcher struct {
	byType map[domain.EntityType][]domain.Entity
	err    error
}

func (f *fakeFetcher) FetchAll(_ context.Context, t domain.EntityType) ([]domain.Entity, error) {
	return f.byType[t], f.err
}

func TestBuildCache(t *testing.T) {
	f := &fakeFetcher{byType: map[domain.EntityType][]domain.Entity{}}
	for _, e := range fixtureEntities() {
		f.byType[e.Type] = append(f.byType[e.Type], e)
	}
	c, err := BuildCache(context.Background(), f)
	if err != nil {
		t.Fatal(err)
	}
	if e, ok := c.Lookup(domain.Films, "1"); !ok || e.Name != "A New Hope" {
		t.Errorf("title fallback failed: %+v", e)
	}
	if c.Len(domain.People) != 1 || c.Len(domain.Species) != 0 {
		t.Errorf("unexpected lengths")
	}

	f.err = errors.New("offline")
	if _, err := BuildCache(context.Background(), f, domain.People); err == nil {
		t.Fatal("expected error")
	}
}

func TestCacheEntities_NumericOrder(t *testing.T) {
	c := NewCache(
		domain.Entity{ID: "10", Type: domain.People, Raw: map[string]any{"name": "b"}},
		domain.Entity{ID: "9", Type: domain.People, Raw: map[string]any{"name": "a"}},
	)
	ents := c.Entities(domain.People)
	if ents[0].ID != "9" || ents[1].ID != "10" {
		t.Errorf("unexpected order: %v, %v", ents[0].ID, ents[1].ID)
	}
}

// --- Resolver ---

func TestResolve_ReplacesReferences(t *testing.T) {
	ents := fixtureEntities()
	r := Resolver{Cache: NewCache(ents...)}
	got, err := r.Resolve(ents[0])
	if err != nil {
		t.Fatal(err)
	}
	if got["homeworld"] != "Tatooine" {
		t.Errorf("homeworld = %v", got["homeworld"])
	}
	ships, ok := got["starships"].([]string)
	if !ok || len(ships) != 1 || ships[0] != "X-wing" {
		t.Errorf("starships = %#v", got["starships"])
	}
	if got["url"] != ref(domain.People, "1") {
		t.Errorf("url must pass through, got %v", got["url"])
	}
}

func TestResolve_MissingPolicies(t *testing.T) {
	luke := domain.Entity{ID: "1", Type: domain.People, Raw: map[string]any{
		"name":      "Luke Skywalker",
		"homeworld": ref(domain.Planets, "99"),
		"vehicles":  []any{ref(domain.Vehicles, "14"), ref(domain.Vehicles, "30")},
		"url":       ref(domain.People, "1"),
	}}
	cache := NewCache(luke, domain.Entity{ID: "14", Type: domain.Vehicles, Raw: map[string]any{"name": "Snowspeeder"}})

	_, err := Resolver{Cache: cache, Policy: MissingAbort}.Resolve(luke)
	var ue *UnresolvedError
	if !errors.As(err, &ue) || !errors.Is(err, domain.ErrUnresolvedReference) {
		t.Fatalf("expected UnresolvedError, got %v", err)
	}
	if ue.Entity != "people/1" {
		t.Errorf("unexpected entity in error: %+v", ue)
	}

	skipped, err := Resolver{Cache: cache, Policy: MissingSkip}.Resolve(luke)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := skipped["homeworld"]; ok {
		t.Error("scalar reference should be omitted under skip")
	}
	if v := skipped["vehicles"].([]string); len(v) != 1 || v[0] != "Snowspeeder" {
		t.Errorf("vehicles = %v", v)
	}

	placed, err := Resolver{Cache: cache, Policy: MissingPlaceholder}.Resolve(luke)
	if err != nil {
		t.Fatal(err)
	}
	if placed["homeworld"] != "unknown planet 99" {
		t.Errorf("homeworld = %v", placed["homeworld"])
	}
	if v := placed["vehicles"].([]string); len(v) != 2 || v[1] != "unknown vehicle 30" {
		t.Errorf("vehicles = %v", v)
	}
}

func TestParseMissingPolicy(t *testing.T) {
	for in, want := range map[string]MissingPolicy{"": MissingAbort, "Skip": MissingSkip, "placeholder": MissingPlaceholder} {
		got, err := ParseMissingPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseMissingPolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMissingPolicy("ignore"); !errors.Is(err, ErrUnknownPolicy) {
		t.Errorf("expected ErrUnknownPolicy, got %v", err)
	}
}

// --- Documents ---

func TestEntityDocument(t *testing.T) {
	ents := fixtureEntities()
	resolved, err := Resolver{Cache: NewCache(ents...)}.Resolve(ents[0])
	if err != nil {
		t.Fatal(err)
	}
	doc := EntityDocument(resolved, domain.People, "1")
	want := strings.Join([]string{
		"Films: [A New Hope]",
		"Height: 172",
		"Homeworld: Tatooine",
		"Name: Luke Skywalker",
		"Starships: [X-wing]",
	}, "\n")
	if doc.Content != want {
		t.Errorf("content:\n%s\nwant:\n%s", doc.Content, want)
	}
	if doc.Metadata.Name != "Luke Skywalker" || doc.Metadata.SourceURL != ref(domain.People, "1") {
		t.Errorf("metadata = %+v", doc.Metadata)
	}
	if strings.Contains(doc.Content, "Url:") {
		t.Error("self reference must not be rendered")
	}
}

func TestGenerateDocuments_RoundTrip(t *testing.T) {
	cache := NewCache(fixtureEntities()...)
	docs, err := GenerateDocuments(cache, Resolver{Cache: cache}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 4 {
		t.Fatalf("expected 4 documents, got %d", len(docs))
	}
	for _, d := range docs {
		parsed, err := domain.ParseDocument(d)
		if err != nil {
			t.Fatalf("ParseDocument(%s): %v", d.RecordID(), err)
		}
		if parsed.Type != d.Metadata.EntityType || parsed.ID != d.Metadata.SourceID || parsed.Name != d.Metadata.Name {
			t.Errorf("round trip mismatch: %+v vs %+v", parsed, d.Metadata)
		}
	}
	if docs[0].Metadata.EntityType != domain.People || docs[3].Metadata.EntityType != domain.Starships {
		t.Errorf("unexpected collection order")
	}
}

func TestGenerateDocuments_AbortsOnMissing(t *testing.T) {
	cache := NewCache(fixtureEntities()[0])
	_, err := GenerateDocuments(cache, Resolver{Cache: cache}, nil)
	if !errors.Is(err, domain.ErrUnresolvedReference) {
		t.Fatalf("expected unresolved reference, got %v", err)
	}
}

func TestRenderValue(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{float64(4), "4"},
		{1.5, "1.5"},
		{true, "true"},
		{[]any{"a", float64(2)}, "[a, 2]"},
		{[]any{}, "[]"},
	}
	for _, tc := range cases {
		if got := renderValue(tc.in); got != tc.want {
			t.Errorf("renderValue(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLinks(t *testing.T) {
	cache := NewCache(fixtureEntities()...)
	links := cache.Links()
	var sawHomeworld bool
	for _, l := range links {
		if l.FromType == domain.People && l.Field == "homeworld" && l.ToType == domain.Planets && l.ToID == "1" {
			sawHomeworld = true
		}
		if l.Field == "url" {
			t.Error("self reference must not be a link")
		}
	}
	if !sawHomeworld {
		t.Errorf("homeworld link missing: %+v", links)
	}
}

// --- Artifact ---

func TestArtifactRoundTrip(t *testing.T) {
	docs := []domain.Document{
		{Content: "Name: Padmé Amidala", Metadata: domain.Metadata{EntityType: domain.People, SourceID: "35", Name: "Padmé Amidala"}},
	}
	var buf bytes.Buffer
	if err := WriteDocuments(&buf, docs); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"page_content": "Name: Padmé Amidala"`) {
		t.Errorf("unexpected encoding: %s", buf.String())
	}

	path := filepath.Join(t.TempDir(), DefaultArtifact)
	if err := SaveDocuments(path, docs); err != nil {
		t.Fatal(err)
	}
	back, err := LoadDocuments(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(back) != 1 || back[0].Metadata.Name != "Padmé Amidala" || back[0].Metadata.ChunkIndex != nil {
		t.Errorf("unexpected documents: %+v", back)
	}

	if _, err := LoadDocuments(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
