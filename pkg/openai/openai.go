// Package openai embeds text and generates completions through the OpenAI
// API or any compatible endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultEmbeddingModel matches the cl100k_base tokenizer used for chunking.
const DefaultEmbeddingModel = "text-embedding-ada-002"

var ErrNoChoices = errors.New("openai: response has no choices")

// Config configures the client.
type Config struct {
	APIKey         string
	BaseURL        string
	EmbeddingModel string
	Timeout        time.Duration
}

// Client wraps the go-openai client.
type Client struct {
	client     *openai.Client
	embedModel string
}

// New creates a Client. An empty BaseURL uses the public API.
func New(cfg Config) *Client {
	cc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		cc.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	cc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	return &Client{client: openai.NewClientWithConfig(cc), embedModel: cfg.EmbeddingModel}
}

// Embed embeds one text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in one request, returning vectors in input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.embedModel),
	})
	if err != nil {
		return nil, fmt.Errorf("openai: embed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai: embed: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float32, len(data))
	for i, d := range data {
		out[i] = d.Embedding
	}
	return out, nil
}

// Generate sends prompt as a single user message and returns the reply.
func (c *Client) Generate(ctx context.Context, model, prompt string, maxTokens int, temperature float32) (string, error) {
	// The request omits a zero temperature, which the API reads as 1.
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("openai: chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}
