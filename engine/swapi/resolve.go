package swapi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/WessleyAI/holocron/engine/domain"
)

// MissingPolicy decides what happens to a cross reference whose target is
// not in the cache.
type MissingPolicy int

const (
	// MissingAbort fails resolution with an *UnresolvedError.
	MissingAbort MissingPolicy = iota
	// MissingSkip drops the reference: list fields lose the element and
	// scalar fields are omitted.
	MissingSkip
	// MissingPlaceholder substitutes "unknown <type> <id>".
	MissingPlaceholder
)

func (p MissingPolicy) String() string {
	switch p {
	case MissingAbort:
		return "abort"
	case MissingSkip:
		return "skip"
	case MissingPlaceholder:
		return "placeholder"
	default:
		return "unknown"
	}
}

// ErrUnknownPolicy is returned by ParseMissingPolicy.
var ErrUnknownPolicy = errors.New("swapi: unknown missing reference policy")

// ParseMissingPolicy parses "abort", "skip" or "placeholder".
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return MissingAbort, nil
	case "skip":
		return MissingSkip, nil
	case "placeholder":
		return MissingPlaceholder, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// UnresolvedError reports a cross reference with no cache entry.
type UnresolvedError struct {
	Entity string
	Field  string
	Target string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("swapi: %s field %q: %s: %s", e.Entity, e.Field, domain.ErrUnresolvedReference, e.Target)
}

func (e *UnresolvedError) Unwrap() error { return domain.ErrUnresolvedReference }

// Resolver replaces cross references with display names.
type Resolver struct {
	Cache  *Cache
	Policy MissingPolicy
}

// Resolve returns a copy of the entity's fields with every reference string
// (or list of reference strings) replaced by the referenced display name.
// The "url" self reference passes through unchanged.
func (r Resolver) Resolve(e domain.Entity) (map[string]any, error) {
	out := make(map[string]any, len(e.Raw))
	for k, v := range e.Raw {
		if k == "url" {
			out[k] = v
			continue
		}
		switch tv := v.(type) {
		case string:
			name, keep, err := r.resolveOne(e, k, tv)
			if err != nil {
				return nil, err
			}
			if keep {
				out[k] = name
			}
		case []any:
			resolved, err := r.resolveList(e, k, tv)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		default:
			out[k] = v
		}
	}
	return out, nil
}

func (r Resolver) resolveList(e domain.Entity, field string, items []any) (any, error) {
	if !allReferences(items) {
		return items, nil
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		name, keep, err := r.resolveOne(e, field, item.(string))
		if err != nil {
			return nil, err
		}
		if keep {
			names = append(names, name)
		}
	}
	return names, nil
}

// resolveOne returns the value to store and whether to keep it.
func (r Resolver) resolveOne(e domain.Entity, field, value string) (string, bool, error) {
	t, id, ok := domain.ParseReference(value)
	if !ok {
		return value, true, nil
	}
	if entry, found := r.Cache.Lookup(t, id); found {
		return entry.Name, true, nil
	}
	switch r.Policy {
	case MissingSkip:
		return "", false, nil
	case MissingPlaceholder:
		return fmt.Sprintf("unknown %s %s", t.Kind(), id), true, nil
	default:
		return "", false, &UnresolvedError{
			Entity: domain.ReferenceKey(e.Type, e.ID),
			Field:  field,
			Target: domain.ReferenceKey(t, id),
		}
	}
}

func allReferences(items []any) bool {
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return false
		}
		if _, _, ok := domain.ParseReference(s); !ok {
			return false
		}
	}
	return true
}

// Link is one cross reference between two cached entities.
type Link struct {
	FromType domain.EntityType
	FromID   string
	Field    string
	ToType   domain.EntityType
	ToID     string
}

// Links lists every cross reference whose target is present in the cache,
// in deterministic order.
func (c *Cache) Links() []Link {
	var out []Link
	for _, t := range domain.EntityTypes {
		for _, e := range c.Entities(t) {
			for _, field := range sortedKeys(e.Raw) {
				if field == "url" {
					continue
				}
				for _, ref := range referenceStrings(e.Raw[field]) {
					tt, id, ok := domain.ParseReference(ref)
					if !ok {
						continue
					}
					if _, found := c.Lookup(tt, id); !found {
						continue
					}
					out = append(out, Link{FromType: t, FromID: e.ID, Field: field, ToType: tt, ToID: id})
				}
			}
		}
	}
	return out
}

func referenceStrings(v any) []string {
	switch tv := v.(type) {
	case string:
		return []string{tv}
	case []any:
		out := make([]string, 0, len(tv))
		for _, item := range tv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
