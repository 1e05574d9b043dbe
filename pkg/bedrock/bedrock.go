// Package bedrock calls foundation models on AWS Bedrock: Cohere for
// embeddings and Anthropic text completion for generation.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/WessleyAI/holocron/pkg/fn"
)

const (
	DefaultEmbeddingModel = "cohere.embed-multilingual-v3"
	DefaultTextModel      = "anthropic.claude-v2"
	anthropicVersion      = "bedrock-2023-05-31"
	// cohereMaxTexts is the most texts one Cohere embed call accepts.
	cohereMaxTexts = 96
)

var ErrEmptyCompletion = errors.New("bedrock: empty completion")

// Invoker is the part of the bedrockruntime client this package uses.
type Invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Options configures models and sampling.
type Options struct {
	EmbeddingModel string
	TopP           float32
}

// Client invokes Bedrock models.
type Client struct {
	api  Invoker
	opts Options
}

// New creates a Client from an AWS config.
func New(cfg aws.Config, opts Options) *Client {
	return NewWithInvoker(bedrockruntime.NewFromConfig(cfg), opts)
}

// NewWithInvoker creates a Client on an existing Invoker.
func NewWithInvoker(api Invoker, opts Options) *Client {
	if opts.EmbeddingModel == "" {
		opts.EmbeddingModel = DefaultEmbeddingModel
	}
	if opts.TopP <= 0 {
		opts.TopP = 0.9
	}
	return &Client{api: api, opts: opts}
}

type cohereRequest struct {
	Texts     []string `json:"texts"`
	InputType string   `json:"input_type"`
	Truncate  string   `json:"truncate"`
}

type cohereResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

type completionRequest struct {
	Prompt            string   `json:"prompt"`
	MaxTokensToSample int      `json:"max_tokens_to_sample"`
	Temperature       float32  `json:"temperature"`
	TopP              float32  `json:"top_p"`
	StopSequences     []string `json:"stop_sequences,omitempty"`
	AnthropicVersion  string   `json:"anthropic_version"`
}

type completionResponse struct {
	Completion string `json:"completion"`
}

func (c *Client) invoke(ctx context.Context, model string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	resp, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", model, err)
	}
	return nil
}

// Embed embeds a search query.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := c.embed(ctx, []string{text}, "search_query")
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds documents for indexing, in input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, chunk := range fn.Chunk(texts, cohereMaxTexts) {
		vecs, err := c.embed(ctx, chunk, "search_document")
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (c *Client) embed(ctx context.Context, texts []string, inputType string) ([][]float32, error) {
	var resp cohereResponse
	req := cohereRequest{Texts: texts, InputType: inputType, Truncate: "END"}
	if err := c.invoke(ctx, c.opts.EmbeddingModel, req, &resp); err != nil {
		return nil, fmt.Errorf("bedrock: embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("bedrock: embed: got %d vectors for %d inputs", len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}

// CompletionPrompt frames prompt in the Human/Assistant turn format.
func CompletionPrompt(prompt string) string {
	return "\n\nHuman: " + prompt + "\n\nAssistant: "
}

// Generate runs a text completion and returns the trimmed completion.
func (c *Client) Generate(ctx context.Context, model, prompt string, maxTokens int, temperature float32) (string, error) {
	if model == "" {
		model = DefaultTextModel
	}
	var resp completionResponse
	req := completionRequest{
		Prompt:            CompletionPrompt(prompt),
		MaxTokensToSample: maxTokens,
		Temperature:       temperature,
		TopP:              c.opts.TopP,
		StopSequences:     []string{"\n\nHuman:"},
		AnthropicVersion:  anthropicVersion,
	}
	if err := c.invoke(ctx, model, req, &resp); err != nil {
		return "", fmt.Errorf("bedrock: generate: %w", err)
	}
	text := strings.TrimSpace(resp.Completion)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
