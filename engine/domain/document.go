package domain

import (
	"strconv"
	"strings"
)

// PersonalitySection labels chunks scraped from the wiki personality section.
const PersonalitySection = "Personality and traits"

// Metadata describes where a Document came from. Catalog documents set the
// entity fields; personality chunks set Character, Section and ChunkIndex.
type Metadata struct {
	EntityType EntityType `json:"entity_type,omitempty"`
	SourceID   string     `json:"swapi_id,omitempty"`
	Name       string     `json:"name,omitempty"`
	SourceURL  string     `json:"source_url,omitempty"`
	Character  string     `json:"character,omitempty"`
	Section    string     `json:"section,omitempty"`
	ChunkIndex *int       `json:"chunk_index,omitempty"`
}

// Document is the unit that gets embedded and indexed.
type Document struct {
	Content  string   `json:"page_content"`
	Metadata Metadata `json:"metadata"`
}

// IsPersonality reports whether d is a scraped personality chunk.
func (d Document) IsPersonality() bool {
	return d.Metadata.Character != "" && d.Metadata.ChunkIndex != nil
}

// RecordID derives the raw (unsanitized) vector record identifier.
func (d Document) RecordID() string {
	if d.IsPersonality() {
		return strings.ReplaceAll(d.Metadata.Character, " ", "_") + "_personality_" + strconv.Itoa(*d.Metadata.ChunkIndex)
	}
	return string(d.Metadata.EntityType) + "_" + d.Metadata.SourceID
}

// Payload flattens the metadata and content for storage next to the vector.
func (d Document) Payload() map[string]any {
	p := map[string]any{"text": d.Content}
	m := d.Metadata
	setIf := func(k, v string) {
		if v != "" {
			p[k] = v
		}
	}
	setIf("entity_type", string(m.EntityType))
	setIf("swapi_id", m.SourceID)
	setIf("name", m.Name)
	setIf("source_url", m.SourceURL)
	setIf("character", m.Character)
	setIf("section", m.Section)
	if m.ChunkIndex != nil {
		p["chunk_index"] = *m.ChunkIndex
	}
	return p
}

// DocumentFromPayload rebuilds a Document from a stored payload.
func DocumentFromPayload(p map[string]any) Document {
	str := func(k string) string {
		if v, ok := p[k].(string); ok {
			return v
		}
		return ""
	}
	d := Document{
		Content: str("text"),
		Metadata: Metadata{
			EntityType: EntityType(str("entity_type")),
			SourceID:   str("swapi_id"),
			Name:       str("name"),
			SourceURL:  str("source_url"),
			Character:  str("character"),
			Section:    str("section"),
		},
	}
	switch v := p["chunk_index"].(type) {
	case int:
		d.Metadata.ChunkIndex = &v
	case int64:
		i := int(v)
		d.Metadata.ChunkIndex = &i
	case float64:
		i := int(v)
		d.Metadata.ChunkIndex = &i
	}
	return d
}

// ChunkIndex returns a pointer to i, for building personality metadata.
func ChunkIndex(i int) *int { return &i }

// ValidateDocument enforces the non-empty content invariant.
func ValidateDocument(d Document) error {
	if strings.TrimSpace(d.Content) == "" {
		return NewValidationError("page_content", d.RecordID(), ErrEmptyContent)
	}
	return nil
}

// HumanizeField turns a catalog key like "birth_year" into "Birth Year".
func HumanizeField(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// ParseContentFields splits "Field Name: value" lines back into a map keyed
// by the humanized field name. Lines without a separator are ignored.
func ParseContentFields(content string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		k, v, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = v
	}
	return out
}

// ParsedDocument is what can be recovered from a catalog document.
type ParsedDocument struct {
	Type EntityType
	ID   string
	Name string
}

// ParseDocument recovers the entity type, id and name of a catalog
// document. Type and id come from the self reference, the name from the
// rendered "Name" or "Title" line.
func ParseDocument(d Document) (ParsedDocument, error) {
	t, id, ok := ParseReference(d.Metadata.SourceURL)
	if !ok {
		return ParsedDocument{}, NewValidationError("source_url", d.Metadata.SourceURL, ErrInvalidField)
	}
	fields := ParseContentFields(d.Content)
	name, ok := fields["Name"]
	if !ok {
		name = fields["Title"]
	}
	return ParsedDocument{Type: t, ID: id, Name: name}, nil
}
