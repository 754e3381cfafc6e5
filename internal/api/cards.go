package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/billlzzz10/unicornxos/internal/cards"
)

type cardAction int

const (
	actionRun cardAction = iota
	actionDryRun
	actionApply
	actionReject
)

func (s *Server) listCards(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"cards": s.Board.View()})
}

func (s *Server) getCard(w http.ResponseWriter, r *http.Request) {
	v, ok := s.Board.ViewOf(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "card not found")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) upsertCard(w http.ResponseWriter, r *http.Request) {
	var p cards.Patch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := s.Board.Publish(r.Context(), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v, _ := s.Board.ViewOf(id)
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) deleteCard(w http.ResponseWriter, r *http.Request) {
	if err := s.Board.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setCardField(w http.ResponseWriter, r *http.Request) {
	id, field := chi.URLParam(r, "id"), chi.URLParam(r, "field")

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	value, err := cards.DecodeField(field, raw)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Board.SetField(r.Context(), id, field, value); err != nil {
		s.fail(w, r, err)
		return
	}

	// setting a field on a missing card is a no-op
	v, ok := s.Board.ViewOf(id)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) toggleExpand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "expanded": s.Board.ToggleExpand(id)})
}

// RunRequest optionally overrides the command a run executes
type RunRequest struct {
	CLI string `json:"cli"`
}

func (s *Server) cardAction(a cardAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		ctx := r.Context()

		var err error
		switch a {
		case actionRun, actionDryRun:
			var req RunRequest
			if r.ContentLength != 0 {
				if derr := decodeJSON(w, r, &req); derr != nil && derr != io.EOF {
					writeError(w, http.StatusBadRequest, "invalid request body")
					return
				}
			}
			err = s.Board.RunCLI(ctx, id, req.CLI, a == actionDryRun)
		case actionApply:
			err = s.Board.Apply(ctx, id)
		case actionReject:
			err = s.Board.Reject(ctx, id)
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}

		v, _ := s.Board.ViewOf(id)
		writeJSON(w, http.StatusOK, v)
	}
}

func (s *Server) listAudit(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"entries": s.Board.Audit()})
}

func (s *Server) clearAudit(w http.ResponseWriter, r *http.Request) {
	s.Board.ClearAudit()
	w.WriteHeader(http.StatusNoContent)
}

// StreamEvent is one message on the card stream
type StreamEvent struct {
	Type string      `json:"type"`
	Card *cards.Card `json:"card,omitempty"`
	ID   string      `json:"id,omitempty"`
}

const streamWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamCards pushes every card on connect, then live upserts and deletes
func (s *Server) streamCards(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// callbacks for one subscription run on a single goroutine, so this is
	// the connection's only writer
	send := func(ev StreamEvent) {
		if ctx.Err() != nil {
			return
		}
		conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := conn.WriteJSON(ev); err != nil {
			s.Logger.Debug("card stream write failed", "err", err)
			cancel()
		}
	}

	unsubscribe := s.Board.Subscribe(
		func(c cards.Card) { send(StreamEvent{Type: "upsert", Card: &c}) },
		func(id string) { send(StreamEvent{Type: "delete", ID: id}) },
	)
	defer unsubscribe()

	// drain client frames until it goes away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	<-ctx.Done()
}

