package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/billlzzz10/unicornxos/internal/agent"
	"github.com/billlzzz10/unicornxos/internal/domain"
)

// JobRequest is the body of POST /api/job
type JobRequest struct {
	TaskName any    `json:"taskName"`
	Payload  any    `json:"payload"`
	App      string `json:"app"`
}

// submitJob accepts a job without running it
func (s *Server) submitJob(w http.ResponseWriter, r *http.Request) {
	var req JobRequest
	if err := decodeJSON(w, r, &req); err != nil || !truthy(req.TaskName) || !truthy(req.Payload) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"msg": "Invalid request: taskName and payload are required",
		})
		return
	}

	app := req.App
	if app == "" {
		app = DefaultApp
	}
	s.Logger.Info("job accepted", "task", req.TaskName, "user", s.UserID)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"message": "Job accepted.",
		"job": map[string]any{
			"taskName": req.TaskName,
			"payload":  req.Payload,
			"metadata": map[string]string{"userId": s.UserID, "app": app},
		},
	})
}

// truthy follows the loose truthiness job clients expect: null, false,
// 0 and "" are missing, everything else (including {} and []) is present
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	}
	return true
}

func (s *Server) generatePrompt(w http.ResponseWriter, r *http.Request) {
	var p agent.PromptParams
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if s.Prompter == nil {
		s.fail(w, r, agent.ErrNotConfigured)
		return
	}

	text, err := s.Prompter.Generate(r.Context(), p)
	if err != nil {
		s.Logger.Error("prompt generation failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) forecast(w http.ResponseWriter, r *http.Request) {
	var p agent.ForecastPayload
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if p.UserID == "" {
		p.UserID = s.UserID
	}
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.Forecaster == nil {
		s.fail(w, r, agent.ErrNotConfigured)
		return
	}

	res, err := s.Forecaster.Forecast(r.Context(), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ChatRequest is the body of POST /api/chat. The notes named in
// ContextNoteIDs are attached to the last user message.
type ChatRequest struct {
	Personality    string              `json:"personality"`
	Messages       []agent.ChatMessage `json:"messages"`
	ContextNoteIDs []string            `json:"contextNoteIds"`
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages are required")
		return
	}
	if s.Writer == nil {
		s.fail(w, r, agent.ErrNotConfigured)
		return
	}

	ctx := r.Context()
	notes := make([]domain.Note, 0, len(req.ContextNoteIDs))
	for _, id := range req.ContextNoteIDs {
		n, err := s.Store.GetNote(ctx, id)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		notes = append(notes, *n)
	}

	reply, err := s.Writer.Chat(ctx, req.Personality, agent.WithNoteContext(req.Messages, notes))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

// NoteFromMessageRequest is the body of POST /api/chat/note. With Save
// the note is stored; otherwise only the structured draft is returned.
type NoteFromMessageRequest struct {
	Message   string  `json:"message"`
	Save      bool    `json:"save"`
	ProjectID *string `json:"projectId"`
}

func (s *Server) noteFromMessage(w http.ResponseWriter, r *http.Request) {
	var req NoteFromMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if s.Writer == nil {
		s.fail(w, r, agent.ErrNotConfigured)
		return
	}

	ctx := r.Context()
	draft, err := s.Writer.DraftNote(ctx, req.Message)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !req.Save {
		writeJSON(w, http.StatusOK, draft)
		return
	}

	n := draft.Note()
	n.ProjectID = req.ProjectID
	created, err := s.Store.CreateNote(ctx, n)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) listPersonalities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"personalities": agent.Personalities()})
}

func (s *Server) categorizeNote(w http.ResponseWriter, r *http.Request) {
	n, err := s.Store.GetNote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if s.Writer == nil {
		s.fail(w, r, agent.ErrNotConfigured)
		return
	}

	c, err := s.Writer.Categorize(r.Context(), *n)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// compile-time checks that the concrete agents fit the handlers
var (
	_ Writer     = (*agent.Writer)(nil)
	_ Prompter   = (*agent.PromptGenerator)(nil)
	_ Forecaster = (*agent.ForecastClient)(nil)
)
