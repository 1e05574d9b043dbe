// Package bootstrap builds the story pipeline and its clients from config.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/nats-io/nats.go"

	"github.com/WessleyAI/holocron/engine/graph"
	"github.com/WessleyAI/holocron/engine/jobs"
	"github.com/WessleyAI/holocron/engine/narrative"
	"github.com/WessleyAI/holocron/engine/rag"
	"github.com/WessleyAI/holocron/engine/retrieve"
	"github.com/WessleyAI/holocron/engine/semantic"
	"github.com/WessleyAI/holocron/pkg/bedrock"
	"github.com/WessleyAI/holocron/pkg/config"
	"github.com/WessleyAI/holocron/pkg/metrics"
	"github.com/WessleyAI/holocron/pkg/ollama"
	"github.com/WessleyAI/holocron/pkg/openai"
	"github.com/WessleyAI/holocron/pkg/rediscache"
	"github.com/WessleyAI/holocron/pkg/resilience"
	"github.com/WessleyAI/holocron/pkg/secrets"
)

// OpenAIKey is the secret holding the OpenAI API key.
const OpenAIKey = "OPENAI_API_KEY"

// Embedder embeds queries and document batches.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type textGenerator interface {
	Generate(ctx context.Context, model, prompt string, maxTokens int, temperature float32) (string, error)
}

// AWSConfig loads the default AWS credential chain for the configured region.
func AWSConfig(ctx context.Context, cfg config.Config) (aws.Config, error) {
	ac, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("bootstrap: aws config: %w", err)
	}
	return ac, nil
}

// Secrets returns the configured secret provider, cached.
func Secrets(ctx context.Context, cfg config.Config) (secrets.Provider, error) {
	switch cfg.Secrets.Provider {
	case "aws":
		ac, err := AWSConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return secrets.NewCache(secrets.NewAWS(ac, cfg.Secrets.SecretID, cfg.Secrets.SSMParameter), 0), nil
	default:
		return secrets.Env{}, nil
	}
}

func openAIClient(ctx context.Context, cfg config.Config, sec secrets.Provider) (*openai.Client, error) {
	key, err := sec.Get(ctx, OpenAIKey)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: openai key: %w", err)
	}
	return openai.New(openai.Config{APIKey: key, BaseURL: cfg.OpenAI.BaseURL, EmbeddingModel: cfg.Embedding.Model}), nil
}

// NewEmbedder returns the configured embedding provider.
func NewEmbedder(ctx context.Context, cfg config.Config, sec secrets.Provider) (Embedder, error) {
	switch cfg.Embedding.Provider {
	case "bedrock":
		ac, err := AWSConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return bedrock.New(ac, bedrock.Options{EmbeddingModel: cfg.Embedding.Model}), nil
	case "ollama":
		return ollama.New(cfg.Ollama.URL, cfg.Embedding.Model), nil
	default:
		return openAIClient(ctx, cfg, sec)
	}
}

// NewGenerator returns the configured text generation provider behind a
// circuit breaker.
func NewGenerator(ctx context.Context, cfg config.Config, sec secrets.Provider, logger *slog.Logger) (narrative.Generator, error) {
	var gen textGenerator
	switch cfg.Generation.Provider {
	case "bedrock":
		ac, err := AWSConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		gen = bedrock.New(ac, bedrock.Options{})
	case "ollama":
		gen = ollama.New(cfg.Ollama.URL, cfg.Embedding.Model)
	default:
		c, err := openAIClient(ctx, cfg, sec)
		if err != nil {
			return nil, err
		}
		gen = c
	}
	b := resilience.NewBreaker(resilience.BreakerOpts{Name: "generation", Logger: logger})
	return guarded(gen, b), nil
}

func guarded(gen textGenerator, b *resilience.Breaker) narrative.Generator {
	return narrative.GeneratorFunc(func(ctx context.Context, p narrative.Prompt) (string, error) {
		return resilience.Do(b, ctx, func(ctx context.Context) (string, error) {
			return gen.Generate(ctx, p.Model, p.Text, p.MaxTokens, p.Temperature)
		})
	})
}

// Profile resolves the named profile and applies model, max token and
// temperature overrides when set. Without a model override the profile
// must belong to the configured generation provider.
func Profile(cfg config.Config) (narrative.Profile, error) {
	p, err := narrative.LookupProfile(cfg.Generation.Profile)
	if err != nil {
		return narrative.Profile{}, err
	}
	if cfg.Generation.Model != "" {
		p.Model = cfg.Generation.Model
	} else if p.Provider != cfg.Generation.Provider {
		return narrative.Profile{}, fmt.Errorf("%w: %q serves %s models, generation.provider is %q; set generation.model or a matching profile",
			narrative.ErrProfileMismatch, p.Name, p.Provider, cfg.Generation.Provider)
	}
	if cfg.Generation.MaxTokens > 0 {
		p.MaxTokens = cfg.Generation.MaxTokens
	}
	if t := cfg.Generation.Temperature; t != nil {
		p.Temperature = *t
	}
	return p, nil
}

// RetrievalOptions maps the retrieval settings.
func RetrievalOptions(cfg config.Config) (retrieve.Options, error) {
	policy, err := retrieve.ParsePolicy(cfg.Retrieval.Policy)
	if err != nil {
		return retrieve.Options{}, err
	}
	return retrieve.Options{
		Policy:        policy,
		CombinedTopK:  cfg.Retrieval.CombinedTopK,
		CharacterTopK: cfg.Retrieval.CharacterTopK,
		PlanetTopK:    cfg.Retrieval.PlanetTopK,
		ShipTopK:      cfg.Retrieval.ShipTopK,
		MinScore:      cfg.Retrieval.MinScore,
	}, nil
}

// App is the assembled online pipeline.
type App struct {
	Config   config.Config
	Store    *semantic.VectorStore
	Story    *rag.Service
	Registry *metrics.Registry
	Metrics  *metrics.Story

	closers []func() error
}

// NewApp connects every collaborator. Redis and Neo4j are optional: an
// empty address disables them and a failed connection is logged and skipped.
func NewApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Registry: metrics.New()}
	app.Metrics = metrics.NewStory(app.Registry)

	sec, err := Secrets(ctx, cfg)
	if err != nil {
		return nil, err
	}
	embed, err := NewEmbedder(ctx, cfg, sec)
	if err != nil {
		return nil, err
	}
	gen, err := NewGenerator(ctx, cfg, sec, logger)
	if err != nil {
		return nil, err
	}
	profile, err := Profile(cfg)
	if err != nil {
		return nil, err
	}
	composer, err := narrative.NewComposer(gen, profile, logger)
	if err != nil {
		return nil, err
	}
	ropts, err := RetrievalOptions(cfg)
	if err != nil {
		return nil, err
	}

	store, err := semantic.New(cfg.Qdrant.Addr, cfg.Qdrant.Collection)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: qdrant: %w", err)
	}
	app.Store = store
	app.closers = append(app.closers, store.Close)

	opts := rag.DefaultOptions()
	opts.CacheScope = profile.Name + "|" + profile.Model
	opts.Metrics = app.Metrics

	var enricher rag.GraphEnricher
	if cfg.Neo4j.URL != "" {
		g, err := graph.Connect(ctx, cfg.Neo4j.URL, cfg.Neo4j.User, cfg.Neo4j.Password)
		if err != nil {
			logger.Warn("bootstrap: graph enrichment disabled", "err", err)
		} else {
			enricher = g
			app.closers = append(app.closers, func() error { return g.Close(context.Background()) })
		}
	}
	opts.UseGraph = enricher != nil

	var cache rag.Cache
	if cfg.Redis.Addr != "" {
		c, err := rediscache.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.TTL)
		if err != nil {
			logger.Warn("bootstrap: narrative cache disabled", "err", err)
		} else {
			cache = c
			app.closers = append(app.closers, c.Close)
		}
	}

	retriever := retrieve.New(embed, store, ropts, logger)
	app.Story = rag.New(retriever, composer, enricher, cache, opts, logger)
	logger.Info("bootstrap: story pipeline ready",
		"profile", profile.Name, "model", profile.Model,
		"embedding", cfg.Embedding.Provider, "policy", ropts.Policy,
		"graph", enricher != nil, "cache", cache != nil)
	return app, nil
}

// Close releases every client in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// ConnectNATS connects to the job server.
func ConnectNATS(cfg config.Config, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(cfg.Jobs.NATSURL, nats.Name(name))
	if err != nil {
		return nil, fmt.Errorf("bootstrap: nats: %w", err)
	}
	return nc, nil
}

// NATSJobs opens the JetStream job bucket.
func NATSJobs(ctx context.Context, cfg config.Config, nc *nats.Conn, logger *slog.Logger) (*jobs.NATS, error) {
	return jobs.NewNATS(ctx, nc, jobs.NATSOptions{
		Bucket:  cfg.Jobs.Bucket,
		Subject: cfg.Jobs.Subject,
		TTL:     cfg.Jobs.TTL,
	}, logger)
}

// Orchestrator returns the configured async backend, or nil when async
// mode is off. The returned func releases its connection.
func Orchestrator(ctx context.Context, cfg config.Config, logger *slog.Logger) (jobs.Orchestrator, func(), error) {
	switch cfg.Jobs.Backend {
	case jobs.BackendNATS:
		nc, err := ConnectNATS(cfg, "holocron-api")
		if err != nil {
			return nil, nil, err
		}
		o, err := NATSJobs(ctx, cfg, nc, logger)
		if err != nil {
			nc.Close()
			return nil, nil, err
		}
		return o, nc.Close, nil
	case jobs.BackendStepFunctions:
		ac, err := AWSConfig(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return jobs.NewStepFunctions(ac, cfg.Jobs.StateMachineARN, logger), func() {}, nil
	case jobs.BackendNone, "":
		return nil, func() {}, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", jobs.ErrUnknownBackend, cfg.Jobs.Backend)
}
