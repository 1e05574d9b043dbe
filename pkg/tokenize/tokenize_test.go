package tokenize

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"unicode/utf8"
)

// wordEncoder maps each whitespace-preserving word to one token id.
type wordEncoder struct {
	vocab []string
	ids   map[string]int
}

func newWordEncoder() *wordEncoder { return &wordEncoder{ids: map[string]int{}} }

func (w *wordEncoder) Encode(text string) []int {
	var out []int
	for _, piece := range strings.SplitAfter(text, " ") {
		if piece == "" {
			continue
		}
		id, ok := w.ids[piece]
		if !ok {
			id = len(w.vocab)
			w.vocab = append(w.vocab, piece)
			w.ids[piece] = id
		}
		out = append(out, id)
	}
	return out
}

func (w *wordEncoder) Decode(tokens []int) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(w.vocab[t])
	}
	return b.String()
}

func TestNewWithEncoder_InvalidMax(t *testing.T) {
	if _, err := NewWithEncoder(newWordEncoder(), 0); !errors.Is(err, ErrInvalidMaxTokens) {
		t.Fatalf("expected ErrInvalidMaxTokens, got %v", err)
	}
}

func TestSplit_RoundTripAndBound(t *testing.T) {
	enc := newWordEncoder()
	s, err := NewWithEncoder(enc, 4)
	if err != nil {
		t.Fatal(err)
	}
	text := "Luke was impulsive and eager but also deeply loyal to his friends and to the Rebellion"
	chunks := s.Split(text)
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d: %q", len(chunks), chunks)
	}
	for i, c := range chunks {
		if n := s.Count(c); n > 4 {
			t.Errorf("chunk %d has %d tokens", i, n)
		}
	}
	joined := strings.Join(chunks, "")
	if !slices.Equal(enc.Encode(joined), enc.Encode(text)) {
		t.Fatalf("token round trip failed: %q", joined)
	}
}

func TestSplit_Empty(t *testing.T) {
	s, _ := NewWithEncoder(newWordEncoder(), 10)
	if got := s.Split(""); got != nil {
		t.Fatalf("expected nil, got %q", got)
	}
}

func TestSplit_Tiktoken(t *testing.T) {
	s, err := New(DefaultEncoding, 5)
	if err != nil {
		t.Fatalf("load encoding: %v", err)
	}
	text := "Anakin Skywalker's fear of loss drove him toward the dark side. Padme Amidala believed in him."
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := s.Count(c); n > s.MaxTokens() {
			t.Errorf("chunk %d: %d tokens > %d", i, n, s.MaxTokens())
		}
	}
	if strings.Join(chunks, "") != text {
		t.Fatalf("decoded chunks do not reassemble the input")
	}
}

func TestSplit_KeepsCharactersWhole(t *testing.T) {
	cases := []struct {
		name string
		max  int
		text string
	}{
		{"emoji on the boundary", 500, strings.Repeat(" a", 499) + "🌟"},
		{"one token per chunk", 1, "Ahsoka Tano 🌟 Ōmura"},
		{"accents", 3, "Padmé Amidala e Bail Organa lideraram o Senado de Naboo à Alderaan"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := New(DefaultEncoding, tc.max)
			if err != nil {
				t.Fatalf("load encoding: %v", err)
			}
			chunks := s.Split(tc.text)
			for i, c := range chunks {
				if !utf8.ValidString(c) {
					t.Errorf("chunk %d is not valid UTF-8: %q", i, c)
				}
			}
			if strings.Join(chunks, "") != tc.text {
				t.Fatalf("decoded chunks do not reassemble the input: %q", chunks)
			}
		})
	}
}

func TestSplit_BoundaryChunkStaysWithinBound(t *testing.T) {
	s, err := New(DefaultEncoding, 500)
	if err != nil {
		t.Fatalf("load encoding: %v", err)
	}
	text := strings.Repeat(" a", 499) + "🌟"
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected the emoji in its own chunk, got %d chunks", len(chunks))
	}
	if chunks[0] != strings.Repeat(" a", 499) {
		t.Errorf("first chunk should stop before the emoji, ends with %q", chunks[0][len(chunks[0])-4:])
	}
	for i, c := range chunks {
		if n := s.Count(c); n > s.MaxTokens() {
			t.Errorf("chunk %d: %d tokens > %d", i, n, s.MaxTokens())
		}
	}
}
