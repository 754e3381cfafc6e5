package api

import (
	"net/http"

	"github.com/billlzzz10/unicornxos/internal/dashboard"
	"github.com/billlzzz10/unicornxos/internal/pomodoro"
	"github.com/billlzzz10/unicornxos/internal/prefs"
)

func (s *Server) getTheme(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]prefs.Theme{"theme": s.Prefs.Theme(r.Context())})
}

func (s *Server) putTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Theme prefs.Theme `json:"theme"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.Prefs.SetTheme(r.Context(), req.Theme); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]prefs.Theme{"theme": req.Theme})
}

func (s *Server) getPomodoroSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Pomodoro.Settings(r.Context()))
}

func (s *Server) putPomodoroSettings(w http.ResponseWriter, r *http.Request) {
	var st pomodoro.Settings
	if err := decodeJSON(w, r, &st); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.Pomodoro.SetSettings(r.Context(), st); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) pomodoroToday(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"today": s.Pomodoro.Today(r.Context())})
}

func (s *Server) completePomodoro(w http.ResponseWriter, r *http.Request) {
	today, next := s.Pomodoro.Complete(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"today": today, "next": next})
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	sum, err := dashboard.Build(r.Context(), s.Store, s.Pomodoro, s.Now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
