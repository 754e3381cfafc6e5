package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/billlzzz10/unicornxos/internal/agent"
	"github.com/billlzzz10/unicornxos/internal/autosave"
	"github.com/billlzzz10/unicornxos/internal/board"
	"github.com/billlzzz10/unicornxos/internal/cards"
	"github.com/billlzzz10/unicornxos/internal/domain"
	"github.com/billlzzz10/unicornxos/internal/pomodoro"
	"github.com/billlzzz10/unicornxos/internal/prefs"
	"github.com/billlzzz10/unicornxos/internal/store"
)

// DefaultApp names the application in job metadata
const DefaultApp = "UnicornXOS"

// Writer is the chat and categorization agent
type Writer interface {
	Chat(ctx context.Context, personality string, history []agent.ChatMessage) (string, error)
	Categorize(ctx context.Context, n domain.Note) (*agent.Categorization, error)
	DraftNote(ctx context.Context, message string) (*agent.NoteFromMessage, error)
}

// Prompter generates writing prompts
type Prompter interface {
	Generate(ctx context.Context, p agent.PromptParams) (string, error)
}

// Forecaster calls the forecasting agent
type Forecaster interface {
	Forecast(ctx context.Context, p agent.ForecastPayload) (*agent.ForecastResult, error)
}

// Deps are the collaborators the API serves. Agents may be nil, in which
// case their routes answer 503.
type Deps struct {
	Store    *store.Store
	Board    *board.Board
	Prefs    *prefs.Prefs
	Autosave *autosave.Saver
	Pomodoro *pomodoro.Tracker

	Writer     Writer
	Prompter   Prompter
	Forecaster Forecaster

	// AuthToken, when set, is the only token accepted. Otherwise the
	// token stored by the last /auth/callback is.
	AuthToken string
	UserID    string
	Logger    *slog.Logger
	Now       func() time.Time
}

// Server handles HTTP requests for the writer's suite
type Server struct {
	Deps
	addr   string
	router chi.Router
}

// New creates a new API server
func New(d Deps, addr string) *Server {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.UserID == "" {
		d.UserID = "demo"
	}
	s := &Server{Deps: d, addr: addr, router: chi.NewRouter()}
	s.routes()
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(withCORS)

	r.Get("/health", s.health)
	r.Get("/login", s.login)
	r.Get("/auth/callback", s.authCallback)
	r.Post("/auth/logout", s.logout)

	r.With(s.requireAuth).Get("/", s.home)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Post("/job", s.submitJob)
		r.Post("/prompt", s.generatePrompt)
		r.Post("/forecast", s.forecast)
		r.Post("/chat", s.chat)
		r.Post("/chat/note", s.noteFromMessage)
		r.Get("/personalities", s.listPersonalities)

		r.Route("/cards", func(r chi.Router) {
			r.Get("/", s.listCards)
			r.Post("/", s.upsertCard)
			r.Get("/stream", s.streamCards)
			r.Get("/{id}", s.getCard)
			r.Delete("/{id}", s.deleteCard)
			r.Patch("/{id}/fields/{field}", s.setCardField)
			r.Post("/{id}/expand", s.toggleExpand)
			r.Post("/{id}/run", s.cardAction(actionRun))
			r.Post("/{id}/dry-run", s.cardAction(actionDryRun))
			r.Post("/{id}/apply", s.cardAction(actionApply))
			r.Post("/{id}/reject", s.cardAction(actionReject))
		})

		r.Get("/audit", s.listAudit)
		r.Delete("/audit", s.clearAudit)

		r.Route("/notes", func(r chi.Router) {
			r.Get("/", s.listNotes)
			r.Post("/", s.createNote)
			r.Post("/toc", s.noteTOC)
			r.Post("/correct", s.correctNote)
			r.Post("/sanitize", s.sanitizeHTML)
			r.Get("/{id}", s.getNote)
			r.Put("/{id}", s.updateNote)
			r.Delete("/{id}", s.deleteNote)
			r.Post("/{id}/categorize", s.categorizeNote)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.listTasks)
			r.Post("/", s.createTask)
			r.Put("/{id}", s.updateTask)
			r.Delete("/{id}", s.deleteTask)
			r.Post("/{id}/toggle", s.toggleTask)
		})

		r.Route("/projects", s.projects().routes(s))
		r.Route("/dictionary", s.dictionary().routes(s))
		r.Route("/plot-points", s.plotPoints().routes(s))
		r.Route("/world-elements", s.worldElements().routes(s))

		r.Get("/drafts/{key}", s.getDraft)
		r.Put("/drafts/{key}", s.putDraft)
		r.Delete("/drafts/{key}", s.deleteDraft)

		r.Get("/prefs/theme", s.getTheme)
		r.Put("/prefs/theme", s.putTheme)
		r.Get("/prefs/pomodoro", s.getPomodoroSettings)
		r.Put("/prefs/pomodoro", s.putPomodoroSettings)
		r.Get("/pomodoro/today", s.pomodoroToday)
		r.Post("/pomodoro/complete", s.completePomodoro)

		r.Get("/dashboard", s.dashboard)

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusNotFound, "not found")
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusFound)
	})
}

// Run starts the HTTP server and shuts it down when ctx is done
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.Logger.Info("starting server", "addr", s.addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// withCORS adds CORS headers for frontend development
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"app":   DefaultApp,
		"user":  s.UserID,
		"theme": s.Prefs.Theme(r.Context()),
	})
}

// fail maps an error to a status code and writes it
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var ue *agent.UpstreamError
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, board.ErrCardNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInvalid),
		errors.Is(err, store.ErrAmbiguousID),
		errors.Is(err, cards.ErrUnknownField),
		errors.Is(err, cards.ErrFieldType),
		errors.Is(err, cards.ErrImmutableField),
		errors.Is(err, prefs.ErrInvalidTheme),
		errors.Is(err, pomodoro.ErrInvalidSettings),
		errors.Is(err, agent.ErrUnknownPersonality):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, board.ErrCLIFailed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, agent.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &ue):
		s.Logger.Error("upstream agent failed", "service", ue.Service, "status", ue.Status, "path", r.URL.Path)
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.Logger.Error("request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func isAPIPath(p string) bool {
	return p == "/api" || strings.HasPrefix(p, "/api/")
}
