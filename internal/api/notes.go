package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/billlzzz10/unicornxos/internal/domain"
	"github.com/billlzzz10/unicornxos/internal/markdown"
	"github.com/billlzzz10/unicornxos/internal/prefs"
)

// NoteInput is the body of note create and update requests. Nil fields
// keep their stored value on update.
type NoteInput struct {
	Title     *string            `json:"title"`
	Content   *string            `json:"content"`
	Category  *string            `json:"category"`
	Status    *domain.NoteStatus `json:"status"`
	ProjectID *string            `json:"projectId"`
}

func (in NoteInput) apply(n *domain.Note) {
	if in.Title != nil {
		n.Title = *in.Title
	}
	if in.Content != nil {
		n.Content = *in.Content
	}
	if in.Category != nil {
		n.Category = *in.Category
	}
	if in.Status != nil {
		n.Status = *in.Status
	}
	if in.ProjectID != nil {
		n.ProjectID = in.ProjectID
	}
}

func (s *Server) listNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ctx := r.Context()

	if text := q.Get("q"); text != "" {
		notes, err := s.Store.SearchNotes(ctx, text)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"notes": notes})
		return
	}

	f := domain.NoteFilter{
		Category:  q.Get("category"),
		Status:    domain.NoteStatus(q.Get("status")),
		ProjectID: q.Get("projectId"),
	}
	var err error
	if f.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	if f.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	notes, err := s.Store.ListNotes(ctx, f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": notes})
}

func (s *Server) createNote(w http.ResponseWriter, r *http.Request) {
	var in NoteInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var n domain.Note
	in.apply(&n)
	created, err := s.Store.CreateNote(r.Context(), n)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	// the new-note draft is done with once the note exists
	key := prefs.DraftKey("")
	s.Autosave.Cancel(key)
	s.Prefs.DiscardDraft(r.Context(), key)

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getNote(w http.ResponseWriter, r *http.Request) {
	n, err := s.Store.GetNote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) updateNote(w http.ResponseWriter, r *http.Request) {
	var in NoteInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctx := r.Context()

	n, err := s.Store.GetNote(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	in.apply(n)
	updated, err := s.Store.UpdateNote(ctx, *n)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	key := prefs.DraftKey(updated.ID)
	s.Autosave.Cancel(key)
	s.Prefs.DiscardDraft(ctx, key)

	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, err := s.Store.GetNote(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Store.DeleteNote(ctx, n.ID); err != nil {
		s.fail(w, r, err)
		return
	}
	s.Autosave.Cancel(prefs.DraftKey(n.ID))
	s.Prefs.DiscardDraft(ctx, prefs.DraftKey(n.ID))
	w.WriteHeader(http.StatusNoContent)
}

// --- Markdown tools ---

type contentRequest struct {
	Content string `json:"content"`
}

func (s *Server) noteTOC(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	toc, content := markdown.GenerateTOC(req.Content)
	writeJSON(w, http.StatusOK, map[string]any{
		"toc":      toc,
		"content":  content,
		"full":     markdown.WithTOC(req.Content),
		"headings": markdown.Headings(req.Content),
	})
}

func (s *Server) correctNote(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	corrected := markdown.Correct(req.Content)
	writeJSON(w, http.StatusOK, map[string]any{
		"content":        corrected,
		"characterCount": markdown.CharacterCount(corrected),
	})
}

func (s *Server) sanitizeHTML(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HTML string `json:"html"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	out := markdown.SanitizeHTML(req.HTML)
	writeJSON(w, http.StatusOK, map[string]string{
		"html": out,
		"text": markdown.PlainText(out),
	})
}

// --- Tasks ---

// TaskInput is the body of task create and update requests
type TaskInput struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Completed   *bool            `json:"completed"`
	Priority    *domain.Priority `json:"priority"`
	DueDate     *time.Time       `json:"dueDate"`
	ProjectID   *string          `json:"projectId"`
}

func (in TaskInput) apply(t *domain.Task) {
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Completed != nil {
		t.Completed = *in.Completed
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.DueDate != nil {
		t.DueDate = in.DueDate
	}
	if in.ProjectID != nil {
		t.ProjectID = in.ProjectID
	}
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.Store.ListTasks(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var in TaskInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var t domain.Task
	in.apply(&t)
	created, err := s.Store.CreateTask(r.Context(), t)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	var in TaskInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctx := r.Context()

	t, err := s.Store.GetTask(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	in.apply(t)
	updated, err := s.Store.UpdateTask(ctx, *t)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) toggleTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.Store.ToggleTask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.DeleteTask(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Drafts ---

// draftKey maps the {key} URL parameter to a prefs key; "new" is the
// draft of a note that has not been saved yet
func draftKey(r *http.Request) string {
	k := chi.URLParam(r, "key")
	if k == "new" {
		k = ""
	}
	return prefs.DraftKey(k)
}

func (s *Server) getDraft(w http.ResponseWriter, r *http.Request) {
	key := draftKey(r)
	s.Autosave.Flush(r.Context(), key)

	d, ok := s.Prefs.Draft(r.Context(), key)
	if !ok {
		writeError(w, http.StatusNotFound, "no draft")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// putDraft schedules an autosave; ?flush=1 writes it immediately
func (s *Server) putDraft(w http.ResponseWriter, r *http.Request) {
	var d domain.Draft
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	key := draftKey(r)
	s.Autosave.Touch(key, d)

	if flush, _ := strconv.ParseBool(r.URL.Query().Get("flush")); flush {
		s.Autosave.Flush(r.Context(), key)
		writeJSON(w, http.StatusOK, map[string]any{"key": key, "saved": true})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"key": key, "saved": false})
}

func (s *Server) deleteDraft(w http.ResponseWriter, r *http.Request) {
	key := draftKey(r)
	s.Autosave.Cancel(key)
	s.Prefs.DiscardDraft(r.Context(), key)
	w.WriteHeader(http.StatusNoContent)
}

// intParam parses an optional non-negative integer query value
func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
