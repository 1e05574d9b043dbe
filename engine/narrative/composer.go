// Package narrative turns retrieved context into a story prompt and asks a
// text generation model to write it.
package narrative

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/WessleyAI/holocron/engine/domain"
)

var (
	ErrEmptyNarrative  = errors.New("narrative: model returned empty text")
	ErrUnknownProfile  = errors.New("narrative: unknown profile")
	ErrProfileMismatch = errors.New("narrative: profile targets another provider")
)

// Prompt is a single generation request.
type Prompt struct {
	Text        string
	Model       string
	MaxTokens   int
	Temperature float32
}

// Generator calls a text generation model.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, p Prompt) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, p Prompt) (string, error) { return f(ctx, p) }

type promptData struct {
	Context    string
	Characters string
	Planets    string
	Ships      string
}

// Composer renders a Profile's template and sends it to a Generator.
type Composer struct {
	gen     Generator
	profile Profile
	tmpl    *template.Template
	logger  *slog.Logger
}

// NewComposer parses the profile template up front so a bad template fails
// at startup rather than on the first request.
func NewComposer(gen Generator, profile Profile, logger *slog.Logger) (*Composer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tmpl, err := profile.parse()
	if err != nil {
		return nil, err
	}
	return &Composer{gen: gen, profile: profile, tmpl: tmpl, logger: logger}, nil
}

// Profile returns the composer's profile.
func (c *Composer) Profile() Profile { return c.profile }

// Render builds the prompt text without calling the model.
func (c *Composer) Render(docs []domain.Document, req domain.StoryRequest) (string, error) {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, d.Content)
	}
	var buf bytes.Buffer
	err := c.tmpl.Execute(&buf, promptData{
		Context:    strings.Join(parts, "\n\n"),
		Characters: strings.Join(req.Characters, ", "),
		Planets:    strings.Join(req.Planets, ", "),
		Ships:      strings.Join(req.Ships, ", "),
	})
	if err != nil {
		return "", fmt.Errorf("narrative: render: %w", err)
	}
	return buf.String(), nil
}

// Compose renders the prompt, generates and returns the trimmed narrative.
// An empty narrative is an error, never a successful response.
func (c *Composer) Compose(ctx context.Context, docs []domain.Document, req domain.StoryRequest) (string, error) {
	text, err := c.Render(docs, req)
	if err != nil {
		return "", err
	}
	out, err := c.gen.Generate(ctx, Prompt{
		Text:        text,
		Model:       c.profile.Model,
		MaxTokens:   c.profile.MaxTokens,
		Temperature: c.profile.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("narrative: generate: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyNarrative
	}
	c.logger.Info("narrative composed", "profile", c.profile.Name, "context_docs", len(docs), "chars", len(out))
	return out, nil
}
