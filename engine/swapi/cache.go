package swapi

import (
	"context"
	"fmt"
	"sort"

	"github.com/WessleyAI/holocron/engine/domain"
)

// Fetcher retrieves every entity of one collection.
type Fetcher interface {
	FetchAll(ctx context.Context, t domain.EntityType) ([]domain.Entity, error)
}

// Entry is one cached entity.
type Entry struct {
	Name string
	Data map[string]any
}

// Cache is an immutable lookup of every catalog entity by type and id.
// It is built once per preprocessing run and shared by reference.
type Cache struct {
	entries map[domain.EntityType]map[string]Entry
}

// BuildCache fetches each collection and indexes it. With no types given
// all collections are fetched.
func BuildCache(ctx context.Context, f Fetcher, types ...domain.EntityType) (*Cache, error) {
	if len(types) == 0 {
		types = domain.EntityTypes
	}
	c := &Cache{entries: make(map[domain.EntityType]map[string]Entry, len(types))}
	for _, t := range types {
		ents, err := f.FetchAll(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("swapi: build cache: %w", err)
		}
		byID := make(map[string]Entry, len(ents))
		for _, e := range ents {
			byID[e.ID] = Entry{Name: DisplayName(e.Raw), Data: e.Raw}
		}
		c.entries[t] = byID
	}
	return c, nil
}

// NewCache builds a Cache from already fetched entities.
func NewCache(entities ...domain.Entity) *Cache {
	c := &Cache{entries: make(map[domain.EntityType]map[string]Entry)}
	for _, e := range entities {
		if c.entries[e.Type] == nil {
			c.entries[e.Type] = make(map[string]Entry)
		}
		c.entries[e.Type][e.ID] = Entry{Name: DisplayName(e.Raw), Data: e.Raw}
	}
	return c
}

// Lookup returns the entry for a type and id.
func (c *Cache) Lookup(t domain.EntityType, id string) (Entry, bool) {
	e, ok := c.entries[t][id]
	return e, ok
}

// Len returns the number of entities of type t.
func (c *Cache) Len(t domain.EntityType) int { return len(c.entries[t]) }

// Entities returns the entities of type t ordered by numeric id.
func (c *Cache) Entities(t domain.EntityType) []domain.Entity {
	byID := c.entries[t]
	out := make([]domain.Entity, 0, len(byID))
	for id, e := range byID {
		out = append(out, domain.Entity{ID: id, Type: t, Raw: e.Data})
	}
	sort.Slice(out, func(i, j int) bool { return idLess(out[i].ID, out[j].ID) })
	return out
}

func idLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// DisplayName prefers "name" and falls back to "title".
func DisplayName(raw map[string]any) string {
	if n, ok := raw["name"].(string); ok && n != "" {
		return n
	}
	if t, ok := raw["title"].(string); ok {
		return t
	}
	return ""
}
