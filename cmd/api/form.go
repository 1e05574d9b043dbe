package main

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/WessleyAI/holocron/engine/domain"
)

var pages = template.Must(template.New("form").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
  <meta charset="UTF-8"/>
  <title>Star Wars Narrativa</title>
</head>
<body>
  <h1>Gerador de Histórias Star Wars</h1>
  <form action="/gerar" method="post">
    <label>Personagens (separados por vírgula):</label><br/>
    <input type="text" name="personagens" value="Luke Skywalker, Leia Organa"/><br/><br/>
    <label>Planetas (separados por vírgula):</label><br/>
    <input type="text" name="planetas" value="Tatooine"/><br/><br/>
    <label>Naves (separadas por vírgula):</label><br/>
    <input type="text" name="naves" value="X-Wing"/><br/><br/>
    <button type="submit">Gerar História</button>
  </form>
</body>
</html>
`))

func init() {
	template.Must(pages.New("result").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
  <meta charset="UTF-8"/>
  <title>História Gerada</title>
</head>
<body>
{{- if .Error}}
  <h2>Erro {{.Status}}</h2>
  <pre>{{.Error}}</pre>
{{- else}}
  <h2>História Gerada:</h2>
  <pre>{{.Narrative}}</pre>
{{- end}}
  <p><a href="/">Voltar</a></p>
</body>
</html>
`))
}

type resultPage struct {
	Status    int
	Narrative string
	Error     string
}

func (s *server) handleForm(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, "form", nil)
}

// handleGenerate runs the pipeline in-process for the form, whatever the
// async setting of the JSON API.
func (s *server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, "result", resultPage{Status: http.StatusBadRequest, Error: err.Error()})
		return
	}
	req := domain.StoryRequest{
		Characters: domain.SplitNames(r.PostForm.Get(domain.FieldCharacters)),
		Planets:    domain.SplitNames(r.PostForm.Get(domain.FieldPlanets)),
		Ships:      domain.SplitNames(r.PostForm.Get(domain.FieldShips)),
	}
	if _, err := domain.ValidateStoryRequest(req); err != nil {
		msg := err.Error()
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			msg = ve.Message()
		}
		s.render(w, http.StatusBadRequest, "result", resultPage{Status: http.StatusBadRequest, Error: msg})
		return
	}

	story, err := s.story.Generate(r.Context(), req)
	switch {
	case err == nil:
		s.render(w, http.StatusOK, "result", resultPage{Status: http.StatusOK, Narrative: story.Narrative})
	case errors.Is(err, domain.ErrNoContext):
		s.render(w, http.StatusBadRequest, "result", resultPage{Status: http.StatusBadRequest, Error: msgNoContext})
	default:
		s.logger.Error("form story generation failed", "err", err)
		s.render(w, http.StatusInternalServerError, "result", resultPage{Status: http.StatusInternalServerError, Error: err.Error()})
	}
}

func (s *server) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("render page", "page", name, "err", err)
	}
}
