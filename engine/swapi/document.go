package swapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/WessleyAI/holocron/engine/domain"
)

// EntityDocument flattens a resolved entity into "Field Name: value" lines,
// one per field except the self reference, in sorted key order.
func EntityDocument(resolved map[string]any, t domain.EntityType, id string) domain.Document {
	keys := sortedKeys(resolved)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "url" {
			continue
		}
		lines = append(lines, domain.HumanizeField(k)+": "+renderValue(resolved[k]))
	}
	self, _ := resolved["url"].(string)
	return domain.Document{
		Content: strings.Join(lines, "\n"),
		Metadata: domain.Metadata{
			EntityType: t,
			SourceID:   id,
			Name:       DisplayName(resolved),
			SourceURL:  self,
		},
	}
}

// GenerateDocuments resolves and renders every cached entity, collection by
// collection. Resolution errors abort the run unless the resolver's policy
// absorbs them.
func GenerateDocuments(cache *Cache, r Resolver, logger *slog.Logger) ([]domain.Document, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var docs []domain.Document
	for _, t := range domain.EntityTypes {
		ents := cache.Entities(t)
		for _, e := range ents {
			resolved, err := r.Resolve(e)
			if err != nil {
				return nil, err
			}
			docs = append(docs, EntityDocument(resolved, t, e.ID))
		}
		if len(ents) > 0 {
			logger.Info("swapi: documents generated", "type", t, "count", len(ents))
		}
	}
	return docs, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func renderValue(v any) string {
	switch tv := v.(type) {
	case nil:
		return ""
	case string:
		return tv
	case float64:
		return strconv.FormatFloat(tv, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(tv)
	case []string:
		return "[" + strings.Join(tv, ", ") + "]"
	case []any:
		parts := make([]string, len(tv))
		for i, item := range tv {
			parts[i] = renderValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		b, err := json.Marshal(tv)
		if err != nil {
			return fmt.Sprint(tv)
		}
		return string(b)
	default:
		return fmt.Sprint(tv)
	}
}
