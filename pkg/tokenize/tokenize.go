// Package tokenize splits text into token-bounded chunks using the same
// BPE vocabulary as the embedding model.
package tokenize

import (
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// DefaultEncoding is the vocabulary of text-embedding-ada-002.
const DefaultEncoding = "cl100k_base"

// DefaultMaxTokens bounds each chunk.
const DefaultMaxTokens = 500

// ErrInvalidMaxTokens is returned for a non-positive chunk bound.
var ErrInvalidMaxTokens = errors.New("tokenize: max tokens must be positive")

// Encoder converts between text and token ids.
type Encoder interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

var loaderOnce sync.Once

type tiktokenEncoder struct{ tk *tiktoken.Tiktoken }

func (e tiktokenEncoder) Encode(text string) []int   { return e.tk.EncodeOrdinary(text) }
func (e tiktokenEncoder) Decode(tokens []int) string { return e.tk.Decode(tokens) }

// NewEncoder loads a BPE encoding by name from the embedded offline
// vocabulary, so no network access is needed at runtime.
func NewEncoder(encoding string) (Encoder, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	if encoding == "" {
		encoding = DefaultEncoding
	}
	tk, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("tokenize: load encoding %s: %w", encoding, err)
	}
	return tiktokenEncoder{tk: tk}, nil
}

// Splitter cuts text into chunks of at most MaxTokens tokens.
type Splitter struct {
	enc       Encoder
	maxTokens int
}

// New creates a Splitter backed by the named tiktoken encoding.
func New(encoding string, maxTokens int) (*Splitter, error) {
	enc, err := NewEncoder(encoding)
	if err != nil {
		return nil, err
	}
	return NewWithEncoder(enc, maxTokens)
}

// NewWithEncoder creates a Splitter over any Encoder.
func NewWithEncoder(enc Encoder, maxTokens int) (*Splitter, error) {
	if maxTokens <= 0 {
		return nil, ErrInvalidMaxTokens
	}
	return &Splitter{enc: enc, maxTokens: maxTokens}, nil
}

// MaxTokens returns the per-chunk bound.
func (s *Splitter) MaxTokens() int { return s.maxTokens }

// Count returns the number of tokens in text.
func (s *Splitter) Count(text string) int { return len(s.enc.Encode(text)) }

// Split encodes text once and decodes consecutive windows of at most
// MaxTokens. Windows end on a character boundary, so every chunk is valid
// UTF-8 whenever text is. Empty text yields no chunks.
func (s *Splitter) Split(text string) []string {
	tokens := s.enc.Encode(text)
	if len(tokens) == 0 {
		return nil
	}
	chunks := make([]string, 0, (len(tokens)+s.maxTokens-1)/s.maxTokens)
	for start := 0; start < len(tokens); {
		chunk, end := s.window(tokens, start)
		chunks = append(chunks, chunk)
		start = end
	}
	return chunks
}

// window decodes the longest run of at most MaxTokens tokens from start
// that does not split a multi-byte character. A byte-level token carries a
// single byte, so a boundary is at most utf8.UTFMax tokens away. Only when
// one character needs more tokens than MaxTokens does the window grow past
// the bound.
func (s *Splitter) window(tokens []int, start int) (string, int) {
	limit := min(start+s.maxTokens, len(tokens))
	for end := limit; end > start && end > limit-utf8.UTFMax; end-- {
		if chunk := s.enc.Decode(tokens[start:end]); utf8.ValidString(chunk) {
			return chunk, end
		}
	}
	for end := limit + 1; end <= min(limit+utf8.UTFMax, len(tokens)); end++ {
		if chunk := s.enc.Decode(tokens[start:end]); utf8.ValidString(chunk) {
			return chunk, end
		}
	}
	return s.enc.Decode(tokens[start:limit]), limit
}
