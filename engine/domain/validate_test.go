package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func decodeBody(t *testing.T, body string) map[string]json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		t.Fatalf("bad fixture %q: %v", body, err)
	}
	return m
}

func TestDecodeStoryRequest_Valid(t *testing.T) {
	body := decodeBody(t, `{"personagens":[" Luke Skywalker "],"planetas":["Tatooine"],"naves":["X-Wing","Millennium Falcon"]}`)
	req, err := DecodeStoryRequest(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Characters[0] != "Luke Skywalker" {
		t.Errorf("expected trimmed name, got %q", req.Characters[0])
	}
	if len(req.Ships) != 2 {
		t.Errorf("expected 2 ships, got %d", len(req.Ships))
	}
	names := req.Names()
	if len(names) != 4 || names[1] != "Tatooine" {
		t.Errorf("unexpected names order: %v", names)
	}
}

func TestDecodeStoryRequest_Errors(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		field   string
		wantErr error
		message string
	}{
		{"missing characters", `{"planetas":["Tatooine"],"naves":["X-Wing"]}`, FieldCharacters, ErrMissingField, "Campo 'personagens' é obrigatório."},
		{"missing ships", `{"personagens":["Leia"],"planetas":["Alderaan"]}`, FieldShips, ErrMissingField, "Campo 'naves' é obrigatório."},
		{"empty planets", `{"personagens":["Luke"],"planetas":[],"naves":["X-Wing"]}`, FieldPlanets, ErrInvalidField, "'planetas' deve ser uma lista com ao menos 1 item."},
		{"null planets", `{"personagens":["Luke"],"planetas":null,"naves":["X-Wing"]}`, FieldPlanets, ErrInvalidField, "'planetas' deve ser uma lista com ao menos 1 item."},
		{"string instead of list", `{"personagens":"Luke","planetas":["Hoth"],"naves":["X-Wing"]}`, FieldCharacters, ErrInvalidField, "'personagens' deve ser uma lista com ao menos 1 item."},
		{"blank name", `{"personagens":["Luke"],"planetas":["Hoth"],"naves":["  "]}`, FieldShips, ErrInvalidField, "'naves' deve ser uma lista com ao menos 1 item."},
		{"numbers", `{"personagens":[1],"planetas":["Hoth"],"naves":["X-Wing"]}`, FieldCharacters, ErrInvalidField, "'personagens' deve ser uma lista com ao menos 1 item."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeStoryRequest(decodeBody(t, tc.body))
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if ve.Field != tc.field {
				t.Errorf("field = %q, want %q", ve.Field, tc.field)
			}
			if ve.Message() != tc.message {
				t.Errorf("message = %q, want %q", ve.Message(), tc.message)
			}
		})
	}
}

func TestValidateStoryRequest(t *testing.T) {
	_, err := ValidateStoryRequest(StoryRequest{Characters: []string{"Han"}, Planets: []string{"Bespin"}})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != FieldShips {
		t.Fatalf("expected naves validation error, got %v", err)
	}
	req, err := ValidateStoryRequest(StoryRequest{
		Characters: []string{"Han "},
		Planets:    []string{"Bespin"},
		Ships:      []string{"Millennium Falcon"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Characters[0] != "Han" {
		t.Errorf("expected trimmed, got %q", req.Characters[0])
	}
}

func TestSplitNames(t *testing.T) {
	got := SplitNames(" Luke Skywalker, Leia Organa ,, ")
	if len(got) != 2 || got[0] != "Luke Skywalker" || got[1] != "Leia Organa" {
		t.Errorf("unexpected split: %#v", got)
	}
	if SplitNames("  ") != nil {
		t.Error("expected nil for blank input")
	}
}

func TestMapExecutionStatus(t *testing.T) {
	cases := map[string]JobStatus{
		"RUNNING":   StatusProcessing,
		"SUCCEEDED": StatusCompleted,
		"FAILED":    StatusError,
		"TIMED_OUT": StatusTimeout,
		"ABORTED":   StatusCancelled,
		"PENDING":   StatusUnknown,
		"":          StatusUnknown,
		"running":   StatusUnknown,
	}
	for native, want := range cases {
		if got := MapExecutionStatus(native); got != want {
			t.Errorf("MapExecutionStatus(%q) = %q, want %q", native, got, want)
		}
	}
}

func TestJob_ResultNullWhenPending(t *testing.T) {
	b, err := json.Marshal(Job{ID: "abc", Status: StatusProcessing})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"pedido_id":"abc","status":"processando","resultado":null}`
	if string(b) != want {
		t.Errorf("got %s, want %s", b, want)
	}
}
