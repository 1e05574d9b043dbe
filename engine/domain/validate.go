package domain

import (
	"encoding/json"
	"strings"
)

// Story request field names as they appear on the wire.
const (
	FieldCharacters = "personagens"
	FieldPlanets    = "planetas"
	FieldShips      = "naves"
)

var storyFields = []string{FieldCharacters, FieldPlanets, FieldShips}

// StoryRequest asks for a story featuring the given names.
type StoryRequest struct {
	Characters []string `json:"personagens"`
	Planets    []string `json:"planetas"`
	Ships      []string `json:"naves"`
}

// Names returns every requested name in character, planet, ship order.
func (r StoryRequest) Names() []string {
	out := make([]string, 0, len(r.Characters)+len(r.Planets)+len(r.Ships))
	out = append(out, r.Characters...)
	out = append(out, r.Planets...)
	return append(out, r.Ships...)
}

// Story is the generated narrative.
type Story struct {
	Narrative string `json:"narrativa"`
}

// DecodeStoryRequest validates a decoded JSON object field by field, so a
// missing field is reported differently from one that is present but not a
// non-empty list of names.
func DecodeStoryRequest(body map[string]json.RawMessage) (StoryRequest, error) {
	lists := make(map[string][]string, len(storyFields))
	for _, f := range storyFields {
		raw, ok := body[f]
		if !ok {
			return StoryRequest{}, NewValidationError(f, "", ErrMissingField)
		}
		var names []string
		if err := json.Unmarshal(raw, &names); err != nil {
			return StoryRequest{}, NewValidationError(f, string(raw), ErrInvalidField)
		}
		names, err := cleanNames(f, names)
		if err != nil {
			return StoryRequest{}, err
		}
		lists[f] = names
	}
	return StoryRequest{
		Characters: lists[FieldCharacters],
		Planets:    lists[FieldPlanets],
		Ships:      lists[FieldShips],
	}, nil
}

// ValidateStoryRequest applies the same rules to an already typed request
// and returns it with names trimmed.
func ValidateStoryRequest(r StoryRequest) (StoryRequest, error) {
	var err error
	if r.Characters, err = cleanNames(FieldCharacters, r.Characters); err != nil {
		return StoryRequest{}, err
	}
	if r.Planets, err = cleanNames(FieldPlanets, r.Planets); err != nil {
		return StoryRequest{}, err
	}
	if r.Ships, err = cleanNames(FieldShips, r.Ships); err != nil {
		return StoryRequest{}, err
	}
	return r, nil
}

func cleanNames(field string, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, NewValidationError(field, "[]", ErrInvalidField)
	}
	out := make([]string, len(names))
	for i, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return nil, NewValidationError(field, names[i], ErrInvalidField)
		}
		out[i] = n
	}
	return out, nil
}

// SplitNames parses a comma separated form value into names, dropping blanks.
func SplitNames(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
