// Package rag runs the story pipeline: it validates a request, retrieves
// context, optionally enriches it with entity relations from the graph,
// and asks the composer for the narrative.
package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/WessleyAI/holocron/engine/domain"
	"github.com/WessleyAI/holocron/engine/graph"
	"github.com/WessleyAI/holocron/pkg/fn"
	"github.com/WessleyAI/holocron/pkg/metrics"
)

// Retriever finds context documents for a request.
type Retriever interface {
	Retrieve(ctx context.Context, req domain.StoryRequest) ([]domain.Document, error)
}

// Composer writes the narrative from context.
type Composer interface {
	Compose(ctx context.Context, docs []domain.Document, req domain.StoryRequest) (string, error)
}

// GraphEnricher optionally adds entity relations to the context.
type GraphEnricher interface {
	Related(ctx context.Context, names []string, limit int) ([]graph.Fact, error)
}

// Cache stores finished narratives. A miss is ("", false, nil).
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Options configures the pipeline.
type Options struct {
	UseGraph   bool
	GraphLimit int
	// CacheScope is mixed into cache keys so different profiles never share
	// narratives.
	CacheScope string
	Metrics    *metrics.Story
}

// DefaultOptions returns graph enrichment on with a small fact budget.
func DefaultOptions() Options {
	return Options{UseGraph: true, GraphLimit: 20}
}

// Service is the story pipeline.
type Service struct {
	retriever Retriever
	composer  Composer
	graph     GraphEnricher
	cache     Cache
	opts      Options
	logger    *slog.Logger
}

// New creates a Service. graphEnricher and cache may be nil.
func New(retriever Retriever, composer Composer, graphEnricher GraphEnricher, cache Cache, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.GraphLimit <= 0 {
		opts.GraphLimit = DefaultOptions().GraphLimit
	}
	return &Service{
		retriever: retriever,
		composer:  composer,
		graph:     graphEnricher,
		cache:     cache,
		opts:      opts,
		logger:    logger,
	}
}

type storyContext struct {
	req  domain.StoryRequest
	docs []domain.Document
}

// Generate validates req and produces its story. Validation failures are
// *domain.ValidationError and happen before any downstream call; an empty
// retrieval is domain.ErrNoContext.
func (s *Service) Generate(ctx context.Context, req domain.StoryRequest) (domain.Story, error) {
	start := time.Now()
	req, err := domain.ValidateStoryRequest(req)
	if err != nil {
		s.opts.Metrics.Outcome("invalid", start)
		return domain.Story{}, err
	}
	s.logger.Info("rag: story start", "characters", len(req.Characters), "planets", len(req.Planets), "ships", len(req.Ships))

	key := s.cacheKey(req)
	if text, ok := s.cached(ctx, key); ok {
		s.opts.Metrics.Outcome("ok", start)
		return domain.Story{Narrative: text}, nil
	}

	pipeline := fn.Then(
		fn.TracedStage("rag.retrieve", s.retrieveStage()),
		fn.TracedStage("rag.compose", s.composeStage()),
	)
	text, err := pipeline(ctx, req).Unwrap()
	if err != nil {
		outcome := "error"
		if errors.Is(err, domain.ErrNoContext) {
			outcome = "no_context"
		}
		s.opts.Metrics.Outcome(outcome, start)
		return domain.Story{}, err
	}

	s.store(ctx, key, text)
	s.opts.Metrics.Outcome("ok", start)
	s.logger.Info("rag: story done", "duration", time.Since(start), "chars", len(text))
	return domain.Story{Narrative: text}, nil
}

func (s *Service) retrieveStage() fn.Stage[domain.StoryRequest, storyContext] {
	return func(ctx context.Context, req domain.StoryRequest) fn.Result[storyContext] {
		docs, err := s.retriever.Retrieve(ctx, req)
		if err != nil {
			if errors.Is(err, domain.ErrNoContext) {
				return fn.Err[storyContext](err)
			}
			return fn.Err[storyContext](fmt.Errorf("rag: retrieve: %w", err))
		}
		s.opts.Metrics.Retrieved(len(docs))
		if s.opts.UseGraph && s.graph != nil {
			if d, ok := s.enrichWithGraph(ctx, req); ok {
				docs = append(docs, d)
			}
		}
		return fn.Ok(storyContext{req: req, docs: docs})
	}
}

func (s *Service) composeStage() fn.Stage[storyContext, string] {
	return func(ctx context.Context, sc storyContext) fn.Result[string] {
		text, err := s.composer.Compose(ctx, sc.docs, sc.req)
		if err != nil {
			return fn.Err[string](fmt.Errorf("rag: compose: %w", err))
		}
		return fn.Ok(text)
	}
}

// enrichWithGraph attempts to get graph context; failures are logged and skipped.
func (s *Service) enrichWithGraph(ctx context.Context, req domain.StoryRequest) (domain.Document, bool) {
	facts, err := s.graph.Related(ctx, req.Names(), s.opts.GraphLimit)
	if err != nil {
		s.opts.Metrics.GraphError()
		s.logger.Warn("rag: graph enrichment failed, continuing without", "err", err)
		return domain.Document{}, false
	}
	if len(facts) == 0 {
		return domain.Document{}, false
	}
	var b strings.Builder
	b.WriteString("Relações conhecidas entre os elementos:\n")
	for _, f := range facts {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	return domain.Document{Content: strings.TrimRight(b.String(), "\n")}, true
}

func (s *Service) cacheKey(req domain.StoryRequest) string {
	b, _ := json.Marshal(req)
	sum := sha256.Sum256(append([]byte(s.opts.CacheScope+"|"), b...))
	return "holocron:story:" + hex.EncodeToString(sum[:])
}

func (s *Service) cached(ctx context.Context, key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	text, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("rag: cache get failed", "err", err)
		return "", false
	}
	s.opts.Metrics.Cache(ok)
	return text, ok && text != ""
}

func (s *Service) store(ctx context.Context, key, text string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, text); err != nil {
		s.logger.Warn("rag: cache set failed", "err", err)
	}
}
