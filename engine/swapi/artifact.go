package swapi

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/WessleyAI/holocron/engine/domain"
)

// DefaultArtifact is the file written between preprocessing and ingestion.
const DefaultArtifact = "processed_docs.json"

// WriteDocuments encodes docs as an indented JSON array.
func WriteDocuments(w io.Writer, docs []domain.Document) error {
	if docs == nil {
		docs = []domain.Document{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(docs)
}

// ReadDocuments decodes a JSON array written by WriteDocuments.
func ReadDocuments(r io.Reader) ([]domain.Document, error) {
	var docs []domain.Document
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return nil, fmt.Errorf("swapi: decode documents: %w", err)
	}
	return docs, nil
}

// SaveDocuments writes docs to path.
func SaveDocuments(path string, docs []domain.Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("swapi: save documents: %w", err)
	}
	if err := WriteDocuments(f, docs); err != nil {
		f.Close()
		return fmt.Errorf("swapi: save documents: %w", err)
	}
	return f.Close()
}

// LoadDocuments reads the artifact at path.
func LoadDocuments(path string) ([]domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("swapi: load documents: %w", err)
	}
	defer f.Close()
	return ReadDocuments(f)
}
