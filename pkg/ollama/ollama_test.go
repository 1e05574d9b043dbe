package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEmbedBatch(t *testing.T) {
	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req embedReq
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "nomic-embed-text" {
			t.Errorf("model = %q", req.Model)
		}
		prompts = append(prompts, req.Prompt)
		json.NewEncoder(w).Encode(embedResp{Embedding: []float64{float64(len(req.Prompt)), 0.5}})
	}))
	defer srv.Close()

	vecs, err := New(srv.URL, "nomic-embed-text").EmbedBatch(context.Background(), []string{"Luke", "Tatooine"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 2 || vecs[0][0] != 4 || vecs[1][0] != 8 {
		t.Errorf("unexpected vectors %v", vecs)
	}
	if len(prompts) != 2 || prompts[1] != "Tatooine" {
		t.Errorf("unexpected prompts %v", prompts)
	}
}

func TestEmbed_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	if _, err := New(srv.URL, "m").EmbedBatch(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateReq
		json.NewDecoder(r.Body).Decode(&req)
		if r.URL.Path != "/api/generate" || req.Stream || req.Model != "llama3" {
			t.Errorf("unexpected request %s %+v", r.URL.Path, req)
		}
		if req.Options["num_predict"] != float64(300) {
			t.Errorf("unexpected options %v", req.Options)
		}
		w.Write([]byte(`{"response":"Era uma vez","done":true}`))
	}))
	defer srv.Close()

	out, err := New(srv.URL, "m").Generate(context.Background(), "llama3", "prompt", 300, 0.7)
	if err != nil {
		t.Fatal(err)
	}
	if out != "Era uma vez" {
		t.Errorf("got %q", out)
	}
}

func TestNew_DefaultURL(t *testing.T) {
	if c := New("", "m"); c.baseURL != DefaultURL {
		t.Errorf("baseURL = %q", c.baseURL)
	}
}
