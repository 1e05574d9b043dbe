// Package domain holds the core types shared by the preprocessing,
// ingestion and story generation pipelines.
package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// EntityType names a canonical catalog collection. Values match the SWAPI
// endpoint names so they can be used directly in URLs and record ids.
type EntityType string

const (
	People    EntityType = "people"
	Planets   EntityType = "planets"
	Films     EntityType = "films"
	Species   EntityType = "species"
	Vehicles  EntityType = "vehicles"
	Starships EntityType = "starships"
)

// EntityTypes lists every collection in preprocessing order.
var EntityTypes = []EntityType{People, Planets, Films, Species, Vehicles, Starships}

// Kind returns the singular display kind (character, planet, ...).
func (t EntityType) Kind() string {
	switch t {
	case People:
		return "character"
	case Planets:
		return "planet"
	case Films:
		return "film"
	case Species:
		return "species"
	case Vehicles:
		return "vehicle"
	case Starships:
		return "starship"
	default:
		return "unknown"
	}
}

// Valid reports whether t is one of the known collections.
func (t EntityType) Valid() bool {
	for _, et := range EntityTypes {
		if et == t {
			return true
		}
	}
	return false
}

// ParseEntityType converts a collection name into an EntityType.
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", NewValidationError("entity_type", s, ErrInvalidEntityType)
	}
	return t, nil
}

// Entity is one catalog record during a preprocessing run.
type Entity struct {
	ID       string
	Type     EntityType
	Raw      map[string]any
	Resolved map[string]any
}

// ParseReference extracts the collection and id from a catalog self or
// cross reference such as https://swapi.dev/api/people/1/.
func ParseReference(ref string) (EntityType, string, bool) {
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		return "", "", false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return "", "", false
	}
	id := parts[len(parts)-1]
	t := EntityType(parts[len(parts)-2])
	if id == "" || !t.Valid() {
		return "", "", false
	}
	return t, id, true
}

// ReferenceKey is the "<type>/<id>" form used in log lines and errors.
func ReferenceKey(t EntityType, id string) string {
	return fmt.Sprintf("%s/%s", t, id)
}
