// Package retrieve finds the indexed documents relevant to a story request.
package retrieve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/WessleyAI/holocron/engine/domain"
	"github.com/WessleyAI/holocron/engine/semantic"
	"github.com/WessleyAI/holocron/pkg/fn"
)

// Policy selects how queries are issued.
type Policy string

const (
	// PolicyCombined issues one query with every name joined by spaces.
	PolicyCombined Policy = "combined"
	// PolicyPerEntity issues one query per name, with a larger top-K for
	// characters than for planets and ships.
	PolicyPerEntity Policy = "per_entity"
)

var ErrUnknownPolicy = errors.New("retrieve: unknown policy")

// ParsePolicy parses a configured policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyCombined, nil
	case PolicyCombined, PolicyPerEntity:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// Embedder embeds a single query.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher runs a similarity search.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, topK int, minScore float32) ([]semantic.SearchResult, error)
}

// Options configures the Retriever.
type Options struct {
	Policy        Policy
	CombinedTopK  int
	CharacterTopK int
	PlanetTopK    int
	ShipTopK      int
	// MinScore drops hits below it. Zero disables the threshold.
	MinScore      float32
	Workers       int
	SearchTimeout time.Duration
}

// DefaultOptions returns the combined policy with its usual bounds.
func DefaultOptions() Options {
	return Options{
		Policy:        PolicyCombined,
		CombinedTopK:  6,
		CharacterTopK: 4,
		PlanetTopK:    2,
		ShipTopK:      2,
		Workers:       4,
		SearchTimeout: 10 * time.Second,
	}
}

// Retriever turns a story request into context documents.
type Retriever struct {
	embed  Embedder
	search Searcher
	opts   Options
	logger *slog.Logger
}

// New creates a Retriever. Zero-valued options fall back to DefaultOptions.
func New(embed Embedder, search Searcher, opts Options, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultOptions()
	if opts.Policy == "" {
		opts.Policy = def.Policy
	}
	if opts.CombinedTopK <= 0 {
		opts.CombinedTopK = def.CombinedTopK
	}
	if opts.CharacterTopK <= 0 {
		opts.CharacterTopK = def.CharacterTopK
	}
	if opts.PlanetTopK <= 0 {
		opts.PlanetTopK = def.PlanetTopK
	}
	if opts.ShipTopK <= 0 {
		opts.ShipTopK = def.ShipTopK
	}
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = def.SearchTimeout
	}
	return &Retriever{embed: embed, search: search, opts: opts, logger: logger}
}

// Policy returns the configured policy.
func (r *Retriever) Policy() Policy { return r.opts.Policy }

type query struct {
	text string
	topK int
}

// Retrieve runs the configured policy. Results keep query order and keep
// duplicates across queries. No documents at all is domain.ErrNoContext.
func (r *Retriever) Retrieve(ctx context.Context, req domain.StoryRequest) ([]domain.Document, error) {
	queries := r.plan(req)
	results := fn.ParMap(queries, r.opts.Workers, func(q query) fn.Result[[]domain.Document] {
		return r.run(ctx, q)
	})
	perQuery, err := fn.Collect(results).Unwrap()
	if err != nil {
		return nil, err
	}
	docs := fn.FlatMap(perQuery, func(d []domain.Document) []domain.Document { return d })
	r.logger.Info("retrieve: done", "policy", r.opts.Policy, "queries", len(queries), "documents", len(docs))
	if len(docs) == 0 {
		return nil, domain.ErrNoContext
	}
	return docs, nil
}

func (r *Retriever) plan(req domain.StoryRequest) []query {
	if r.opts.Policy != PolicyPerEntity {
		return []query{{text: strings.Join(req.Names(), " "), topK: r.opts.CombinedTopK}}
	}
	var qs []query
	for _, n := range req.Characters {
		qs = append(qs, query{text: n, topK: r.opts.CharacterTopK})
	}
	for _, n := range req.Planets {
		qs = append(qs, query{text: n, topK: r.opts.PlanetTopK})
	}
	for _, n := range req.Ships {
		qs = append(qs, query{text: n, topK: r.opts.ShipTopK})
	}
	return qs
}

func (r *Retriever) run(ctx context.Context, q query) fn.Result[[]domain.Document] {
	vec, err := r.embed.Embed(ctx, q.text)
	if err != nil {
		return fn.Err[[]domain.Document](fmt.Errorf("retrieve: embed query: %w", err))
	}
	sctx, cancel := context.WithTimeout(ctx, r.opts.SearchTimeout)
	defer cancel()
	hits, err := r.search.Search(sctx, vec, q.topK, r.opts.MinScore)
	if err != nil {
		return fn.Err[[]domain.Document](fmt.Errorf("retrieve: search: %w", err))
	}
	docs := make([]domain.Document, 0, len(hits))
	for _, h := range hits {
		if d := domain.DocumentFromPayload(h.Payload); d.Content != "" {
			docs = append(docs, d)
		}
	}
	return fn.Ok(docs)
}
