package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/WessleyAI/holocron/engine/domain"
	"github.com/WessleyAI/holocron/engine/jobs"
	"github.com/WessleyAI/holocron/pkg/metrics"
)

// Response messages.
const (
	msgBadBody      = "Body inválido. Deve ser JSON."
	msgNoContext    = "Nenhuma entidade encontrada na base canônica."
	msgNotFound     = "Rota não encontrada"
	msgJobNotFound  = "Pedido não encontrado"
	msgStatusFailed = "Erro ao verificar status"
	msgSubmitFailed = "Erro interno do servidor"
)

type storyGenerator interface {
	Generate(ctx context.Context, req domain.StoryRequest) (domain.Story, error)
}

type server struct {
	story   storyGenerator
	jobs    jobs.Orchestrator
	metrics *metrics.Story
	logger  *slog.Logger
}

// newServer wires the handlers. A nil orchestrator serves stories
// synchronously.
func newServer(story storyGenerator, orch jobs.Orchestrator, m *metrics.Story, logger *slog.Logger) *server {
	if logger == nil {
		logger = slog.Default()
	}
	return &server{story: story, jobs: orch, metrics: m, logger: logger}
}

func (s *server) routes(metricsHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}
	if s.jobs != nil {
		mux.HandleFunc("POST /historia", s.handleSubmit)
		mux.HandleFunc("GET /historia/{id}", s.handleStatus)
	} else {
		mux.HandleFunc("POST /historia", s.handleStory)
	}
	mux.HandleFunc("GET /{$}", s.handleForm)
	mux.HandleFunc("POST /gerar", s.handleGenerate)
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"erro": msgNotFound})
	})
	return mux
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errorBody(msg string) map[string]string { return map[string]string{"error": msg} }

// decodeRequest reads and validates a story request. On failure it has
// already written the 400 response.
func decodeRequest(w http.ResponseWriter, r *http.Request) (domain.StoryRequest, bool) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body == nil {
		writeJSON(w, http.StatusBadRequest, errorBody(msgBadBody))
		return domain.StoryRequest{}, false
	}
	req, err := domain.DecodeStoryRequest(body)
	if err != nil {
		var ve *domain.ValidationError
		msg := err.Error()
		if errors.As(err, &ve) {
			msg = ve.Message()
		}
		writeJSON(w, http.StatusBadRequest, errorBody(msg))
		return domain.StoryRequest{}, false
	}
	return req, true
}

func (s *server) handleStory(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	story, err := s.story.Generate(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, story)
	case errors.Is(err, domain.ErrNoContext):
		writeJSON(w, http.StatusBadRequest, errorBody(msgNoContext))
	default:
		s.logger.Error("story generation failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
	}
}

func (s *server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	id, err := s.jobs.Submit(r.Context(), req)
	if err != nil {
		s.metrics.Jobs("submit", "error")
		s.logger.Error("job submit failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"erro": msgSubmitFailed})
		return
	}
	s.metrics.Jobs("submit", "ok")
	writeJSON(w, http.StatusAccepted, map[string]string{
		"pedido_id": id,
		"status":    string(domain.StatusProcessing),
	})
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, err := s.jobs.Status(r.Context(), id)
	switch {
	case err == nil:
		s.metrics.Jobs("status", "ok")
		writeJSON(w, http.StatusOK, job)
	case errors.Is(err, jobs.ErrJobNotFound):
		s.metrics.Jobs("status", "not_found")
		writeJSON(w, http.StatusNotFound, map[string]string{"erro": msgJobNotFound})
	default:
		s.metrics.Jobs("status", "error")
		s.logger.Error("job status failed", "id", id, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"erro": msgStatusFailed})
	}
}
