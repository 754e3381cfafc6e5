package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/billlzzz10/unicornxos/internal/agent"
	"github.com/billlzzz10/unicornxos/internal/autosave"
	"github.com/billlzzz10/unicornxos/internal/board"
	"github.com/billlzzz10/unicornxos/internal/cards"
	"github.com/billlzzz10/unicornxos/internal/domain"
	"github.com/billlzzz10/unicornxos/internal/pomodoro"
	"github.com/billlzzz10/unicornxos/internal/prefs"
	"github.com/billlzzz10/unicornxos/internal/store"
)

const testToken = "secret-token"

// --- Helpers ---

type fakePrompter struct {
	text string
	err  error
}

func (f fakePrompter) Generate(ctx context.Context, p agent.PromptParams) (string, error) {
	return f.text, f.err
}

type fakeForecaster struct{ err error }

func (f fakeForecaster) Forecast(ctx context.Context, p agent.ForecastPayload) (*agent.ForecastResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &agent.ForecastResult{Summary: "on track for " + p.UserID}, nil
}

type fakeWriter struct{}

func (fakeWriter) Chat(ctx context.Context, personality string, history []agent.ChatMessage) (string, error) {
	if personality == "nobody" {
		return "", agent.ErrUnknownPersonality
	}
	return "echo: " + history[len(history)-1].Content, nil
}

func (fakeWriter) Categorize(ctx context.Context, n domain.Note) (*agent.Categorization, error) {
	return &agent.Categorization{Category: "idea", Confidence: 0.8}, nil
}

func (fakeWriter) DraftNote(ctx context.Context, message string) (*agent.NoteFromMessage, error) {
	return &agent.NoteFromMessage{Title: "From chat", Category: "plot", Content: message, Tags: []string{}}, nil
}

func newTestServer(t *testing.T, mod func(*Deps)) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	p := prefs.New(st, logger)
	saver := autosave.New(p, time.Hour, logger)
	t.Cleanup(saver.Close)

	d := Deps{
		Store:     st,
		Board:     board.New(board.Config{Outcome: board.Always(true), Logger: logger}),
		Prefs:     p,
		Autosave:  saver,
		Pomodoro:  pomodoro.NewTracker(p),
		AuthToken: testToken,
		Logger:    logger,
	}
	if mod != nil {
		mod(&d)
	}
	return New(d, ":0")
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

// --- Auth ---

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestUnauthenticatedRequests(t *testing.T) {
	s := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/notes", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("api status = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/?tab=notes", nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("page status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login?next=%2F%3Ftab%3Dnotes" {
		t.Errorf("Location = %q", loc)
	}
}

func TestUnknownPageRedirectsHome(t *testing.T) {
	s := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/nowhere", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Errorf("status = %d, Location = %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = do(t, s, "GET", "/api/nowhere", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("api status = %d, want 404", rec.Code)
	}
}

func TestAuthCallback(t *testing.T) {
	s := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/auth/callback?token=wrong", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/auth/callback?token="+testToken+"&next=%2Fnotes", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/notes" {
		t.Fatalf("status = %d, Location = %q", rec.Code, rec.Header().Get("Location"))
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != authCookie || cookies[0].Value != testToken {
		t.Fatalf("cookies = %+v", cookies)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("home with cookie status = %d", rec.Code)
	}
}

func TestAuthCallbackIssuesSessionToken(t *testing.T) {
	s := newTestServer(t, func(d *Deps) { d.AuthToken = "" })

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/auth/callback?next=//evil.example", nil))
	if rec.Header().Get("Location") != "/" {
		t.Errorf("Location = %q, want /", rec.Header().Get("Location"))
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value == "" {
		t.Fatalf("cookies = %+v", cookies)
	}

	req := httptest.NewRequest("GET", "/api/tasks", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status with issued token = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/auth/logout", nil))
	req = httptest.NewRequest("GET", "/api/tasks", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status after logout = %d", rec.Code)
	}
}

// --- Jobs and agents ---

func TestSubmitJob(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"valid", map[string]any{"taskName": "render", "payload": map[string]any{}}, http.StatusAccepted},
		{"missing payload", map[string]any{"taskName": "render"}, http.StatusBadRequest},
		{"empty task", map[string]any{"taskName": "", "payload": 1}, http.StatusBadRequest},
		{"zero payload", map[string]any{"taskName": "x", "payload": 0}, http.StatusBadRequest},
		{"malformed", "{", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, "POST", "/api/job", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	rec := do(t, s, "POST", "/api/job", map[string]any{"taskName": "render", "payload": []int{1}})
	got := decode[struct {
		Message string `json:"message"`
		Job     struct {
			TaskName string            `json:"taskName"`
			Metadata map[string]string `json:"metadata"`
		} `json:"job"`
	}](t, rec)
	if got.Message != "Job accepted." || got.Job.TaskName != "render" {
		t.Errorf("response = %+v", got)
	}
	if got.Job.Metadata["userId"] != "demo" || got.Job.Metadata["app"] != DefaultApp {
		t.Errorf("metadata = %v", got.Job.Metadata)
	}

	rec = do(t, s, "POST", "/api/job", map[string]any{})
	if msg := decode[map[string]string](t, rec)["msg"]; msg != "Invalid request: taskName and payload are required" {
		t.Errorf("msg = %q", msg)
	}
}

func TestAgentsNotConfigured(t *testing.T) {
	s := newTestServer(t, nil)

	paths := map[string]any{
		"/api/prompt":   map[string]any{},
		"/api/chat":     map[string]any{"messages": []map[string]string{{"role": "user", "content": "hi"}}},
		"/api/forecast": map[string]any{"forecastType": "task_completion"},
	}
	for path, body := range paths {
		if rec := do(t, s, "POST", path, body); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d, want 503", path, rec.Code)
		}
	}
}

func TestPrompt(t *testing.T) {
	s := newTestServer(t, func(d *Deps) { d.Prompter = fakePrompter{text: "A lighthouse keeper"} })
	rec := do(t, s, "POST", "/api/prompt", map[string]any{"seed": 7, "gender": "any"})
	if rec.Code != http.StatusOK || decode[map[string]string](t, rec)["text"] != "A lighthouse keeper" {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body)
	}

	s = newTestServer(t, func(d *Deps) { d.Prompter = fakePrompter{err: errors.New("boom")} })
	rec = do(t, s, "POST", "/api/prompt", nil)
	if rec.Code != http.StatusInternalServerError || decode[map[string]string](t, rec)["error"] != "boom" {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body)
	}
}

func TestForecast(t *testing.T) {
	s := newTestServer(t, func(d *Deps) { d.Forecaster = fakeForecaster{} })

	rec := do(t, s, "POST", "/api/forecast", map[string]any{"forecastType": "weather"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid type status = %d", rec.Code)
	}

	rec = do(t, s, "POST", "/api/forecast", map[string]any{"forecastType": "project_timeline"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if got := decode[agent.ForecastResult](t, rec); got.Summary != "on track for demo" {
		t.Errorf("summary = %q", got.Summary)
	}

	upstream := &agent.UpstreamError{Service: "forecast", Status: 500, Err: errors.New("down")}
	s = newTestServer(t, func(d *Deps) { d.Forecaster = fakeForecaster{err: upstream} })
	rec = do(t, s, "POST", "/api/forecast", map[string]any{"forecastType": "project_timeline"})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("upstream failure status = %d, want 502", rec.Code)
	}
}

func TestChatAndCategorize(t *testing.T) {
	s := newTestServer(t, func(d *Deps) { d.Writer = fakeWriter{} })

	rec := do(t, s, "POST", "/api/chat", map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "hello"}},
	})
	if rec.Code != http.StatusOK || decode[map[string]string](t, rec)["reply"] != "echo: hello" {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body)
	}

	rec = do(t, s, "POST", "/api/chat", map[string]any{
		"personality": "nobody",
		"messages":    []map[string]string{{"role": "user", "content": "hello"}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown personality status = %d", rec.Code)
	}

	if rec := do(t, s, "POST", "/api/chat", map[string]any{}); rec.Code != http.StatusBadRequest {
		t.Errorf("empty chat status = %d", rec.Code)
	}

	note := decode[domain.Note](t, do(t, s, "POST", "/api/notes", map[string]any{"content": "a dragon"}))
	rec = do(t, s, "POST", "/api/notes/"+note.ID+"/categorize", nil)
	if rec.Code != http.StatusOK || decode[agent.Categorization](t, rec).Category != "idea" {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body)
	}

	rec = do(t, s, "GET", "/api/personalities", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "creative-writer") {
		t.Errorf("personalities = %s", rec.Body)
	}
}

func TestChatWithContextNotes(t *testing.T) {
	s := newTestServer(t, func(d *Deps) { d.Writer = fakeWriter{} })
	note := decode[domain.Note](t, do(t, s, "POST", "/api/notes", map[string]any{"title": "Mira", "content": "a smuggler"}))

	rec := do(t, s, "POST", "/api/chat", map[string]any{
		"messages":       []map[string]string{{"role": "user", "content": "give her a rival"}},
		"contextNoteIds": []string{note.ID},
	})
	reply := decode[map[string]string](t, rec)["reply"]
	if rec.Code != http.StatusOK || !strings.Contains(reply, "### Mira\na smuggler") || !strings.HasSuffix(reply, "give her a rival") {
		t.Errorf("status = %d, reply = %q", rec.Code, reply)
	}

	rec = do(t, s, "POST", "/api/chat", map[string]any{
		"messages":       []map[string]string{{"role": "user", "content": "hi"}},
		"contextNoteIds": []string{"missing"},
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing context note status = %d", rec.Code)
	}
}

func TestNoteFromMessage(t *testing.T) {
	s := newTestServer(t, func(d *Deps) { d.Writer = fakeWriter{} })

	rec := do(t, s, "POST", "/api/chat/note", map[string]any{"message": "The bridge collapses."})
	if rec.Code != http.StatusOK || decode[agent.NoteFromMessage](t, rec).Title != "From chat" {
		t.Errorf("draft status = %d, body = %s", rec.Code, rec.Body)
	}
	if n := len(decode[map[string][]domain.Note](t, do(t, s, "GET", "/api/notes", nil))["notes"]); n != 0 {
		t.Errorf("draft stored %d notes", n)
	}

	rec = do(t, s, "POST", "/api/chat/note", map[string]any{"message": "The bridge collapses.", "save": true, "projectId": "p1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("save status = %d, body = %s", rec.Code, rec.Body)
	}
	n := decode[domain.Note](t, rec)
	if n.Title != "From chat" || n.Category != "plot" || n.ProjectID == nil || *n.ProjectID != "p1" {
		t.Errorf("saved note = %+v", n)
	}

	if rec := do(t, s, "POST", "/api/chat/note", map[string]any{"message": " "}); rec.Code != http.StatusBadRequest {
		t.Errorf("empty message status = %d", rec.Code)
	}
}

// --- Projects and lore ---

func TestProjectsCRUD(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, "POST", "/api/projects", map[string]any{"name": "Ashval"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body)
	}
	p := decode[domain.Project](t, rec)

	rec = do(t, s, "PUT", "/api/projects/"+p.ID, map[string]any{"description": "a saga"})
	got := decode[domain.Project](t, rec)
	if rec.Code != http.StatusOK || got.Name != "Ashval" || got.Description != "a saga" || got.ID != p.ID {
		t.Errorf("update = %d %+v", rec.Code, got)
	}

	rec = do(t, s, "PUT", "/api/projects/"+p.ID, map[string]any{"id": "hijack", "name": ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank name status = %d", rec.Code)
	}

	if n := len(decode[map[string][]domain.Project](t, do(t, s, "GET", "/api/projects", nil))["projects"]); n != 1 {
		t.Errorf("projects = %d", n)
	}
	if rec := do(t, s, "DELETE", "/api/projects/"+p.ID, nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec := do(t, s, "GET", "/api/projects/"+p.ID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", rec.Code)
	}
}

func TestDictionaryRoutes(t *testing.T) {
	s := newTestServer(t, nil)

	for _, term := range []string{"zephyr", "Aether", "mist"} {
		if rec := do(t, s, "POST", "/api/dictionary", map[string]any{"term": term, "definition": "wind of " + term, "projectId": "p1"}); rec.Code != http.StatusCreated {
			t.Fatalf("create %s status = %d, body = %s", term, rec.Code, rec.Body)
		}
	}
	if rec := do(t, s, "POST", "/api/dictionary", map[string]any{"definition": "no term"}); rec.Code != http.StatusBadRequest {
		t.Errorf("termless status = %d", rec.Code)
	}

	entries := decode[map[string][]domain.DictionaryEntry](t, do(t, s, "GET", "/api/dictionary?projectId=p1", nil))["entries"]
	if len(entries) != 3 || entries[0].Term != "Aether" || entries[2].Term != "zephyr" {
		t.Fatalf("entries = %+v", entries)
	}

	found := decode[map[string][]domain.DictionaryEntry](t, do(t, s, "GET", "/api/dictionary?q=MIST", nil))["entries"]
	if len(found) != 1 || found[0].Term != "mist" {
		t.Errorf("search = %+v", found)
	}

	rec := do(t, s, "PUT", "/api/dictionary/"+found[0].ID, map[string]any{"category": "weather"})
	if got := decode[domain.DictionaryEntry](t, rec); got.Term != "mist" || got.Category != "weather" {
		t.Errorf("update = %+v", got)
	}
}

func TestPlotPointsAndWorldElements(t *testing.T) {
	s := newTestServer(t, nil)

	a := decode[domain.PlotPoint](t, do(t, s, "POST", "/api/plot-points", map[string]any{"title": "Opening"}))
	b := decode[domain.PlotPoint](t, do(t, s, "POST", "/api/plot-points", map[string]any{"title": "Climax"}))
	if a.Order != 0 || b.Order != 1 || a.Status != domain.PlotPlanned {
		t.Errorf("plot points = %+v, %+v", a, b)
	}

	rec := do(t, s, "PUT", "/api/plot-points/"+a.ID, map[string]any{"status": "completed"})
	if got := decode[domain.PlotPoint](t, rec); got.Status != domain.PlotCompleted || got.Title != "Opening" {
		t.Errorf("update = %+v", got)
	}
	if rec := do(t, s, "PUT", "/api/plot-points/"+a.ID, map[string]any{"status": "abandoned"}); rec.Code != http.StatusBadRequest {
		t.Errorf("bad status code = %d", rec.Code)
	}

	rec = do(t, s, "POST", "/api/world-elements", map[string]any{"name": "Ashval Keep", "type": "location"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("world element status = %d, body = %s", rec.Code, rec.Body)
	}
	el := decode[domain.WorldElement](t, rec)
	if rec := do(t, s, "DELETE", "/api/world-elements/"+el.ID, nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if n := len(decode[map[string][]domain.WorldElement](t, do(t, s, "GET", "/api/world-elements", nil))["worldElements"]); n != 0 {
		t.Errorf("world elements after delete = %d", n)
	}

	sum := decode[struct {
		Stats []struct {
			Label string `json:"label"`
			Value int    `json:"value"`
		} `json:"stats"`
	}](t, do(t, s, "GET", "/api/dashboard", nil))
	var plots int
	for _, st := range sum.Stats {
		if st.Label == "Plots" {
			plots = st.Value
		}
	}
	if plots != 1 {
		t.Errorf("dashboard plots = %d, want 1", plots)
	}
}

// --- Cards ---

func TestCardLifecycle(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, "POST", "/api/cards", map[string]any{"title": "Outline", "changeDelta": map[string]int{"adds": 2}})
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert status = %d, body = %s", rec.Code, rec.Body)
	}
	card := decode[board.CardView](t, rec)
	if card.ID == "" || card.Title != "Outline" {
		t.Fatalf("card = %+v", card)
	}

	rec = do(t, s, "PATCH", "/api/cards/"+card.ID+"/fields/riskRating", `"High"`)
	if rec.Code != http.StatusOK || decode[board.CardView](t, rec).RiskRating != cards.RiskHigh {
		t.Errorf("patch status = %d, body = %s", rec.Code, rec.Body)
	}
	if rec := do(t, s, "PATCH", "/api/cards/"+card.ID+"/fields/bogus", `1`); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown field status = %d", rec.Code)
	}
	if rec := do(t, s, "PATCH", "/api/cards/"+card.ID+"/fields/confidence", `"high"`); rec.Code != http.StatusBadRequest {
		t.Errorf("wrong type status = %d", rec.Code)
	}

	rec = do(t, s, "POST", "/api/cards/"+card.ID+"/expand", nil)
	if !decode[map[string]any](t, rec)["expanded"].(bool) {
		t.Errorf("expand body = %s", rec.Body)
	}

	if rec := do(t, s, "POST", "/api/cards/"+card.ID+"/apply", nil); rec.Code != http.StatusOK {
		t.Errorf("apply status = %d", rec.Code)
	}
	if rec := do(t, s, "POST", "/api/cards/"+card.ID+"/run", map[string]string{"cli": "aictl ls"}); rec.Code != http.StatusOK {
		t.Errorf("run status = %d", rec.Code)
	}

	entries := decode[struct {
		Entries []struct {
			Action  string `json:"action"`
			Details string `json:"details"`
		} `json:"entries"`
	}](t, do(t, s, "GET", "/api/audit", nil)).Entries
	if len(entries) != 2 || entries[0].Details != "adds=2 mod=0 del=0" || entries[1].Details != "aictl ls" {
		t.Errorf("audit = %+v", entries)
	}

	if rec := do(t, s, "DELETE", "/api/audit", nil); rec.Code != http.StatusNoContent {
		t.Errorf("clear audit status = %d", rec.Code)
	}

	if rec := do(t, s, "DELETE", "/api/cards/"+card.ID, nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec := do(t, s, "GET", "/api/cards/"+card.ID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", rec.Code)
	}
	if rec := do(t, s, "POST", "/api/cards/"+card.ID+"/reject", nil); rec.Code != http.StatusNotFound {
		t.Errorf("reject missing status = %d", rec.Code)
	}
}

func TestCardRunFailure(t *testing.T) {
	s := newTestServer(t, func(d *Deps) {
		d.Board = board.New(board.Config{Outcome: board.Always(false), Logger: d.Logger})
	})
	card := decode[board.CardView](t, do(t, s, "POST", "/api/cards", map[string]any{}))

	rec := do(t, s, "POST", "/api/cards/"+card.ID+"/dry-run", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}

	got := decode[board.CardView](t, do(t, s, "GET", "/api/cards/"+card.ID, nil))
	if got.Error != board.CLIErrorMessage {
		t.Errorf("card error = %q", got.Error)
	}
}

func TestCardStream(t *testing.T) {
	s := newTestServer(t, nil)
	if err := s.Board.Seed(context.Background()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/cards/stream?token=" + testToken
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var ev StreamEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read replay: %v", err)
	}
	if ev.Type != "upsert" || ev.Card == nil || ev.Card.ID != board.SeedID {
		t.Fatalf("replay event = %+v", ev)
	}

	if err := s.Board.Delete(context.Background(), board.SeedID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read delete: %v", err)
	}
	if ev.Type != "delete" || ev.ID != board.SeedID {
		t.Errorf("delete event = %+v", ev)
	}
}

// --- Notes, tasks and drafts ---

func TestNotesCRUD(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, "POST", "/api/notes", map[string]any{"content": "Chapter one", "category": "plot"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body)
	}
	n := decode[domain.Note](t, rec)
	if n.Title != domain.DefaultNoteTitle || n.CharacterCount != 11 {
		t.Errorf("note = %+v", n)
	}

	if rec := do(t, s, "POST", "/api/notes", map[string]any{"category": "spaceships"}); rec.Code != http.StatusBadRequest {
		t.Errorf("bad category status = %d", rec.Code)
	}

	rec = do(t, s, "PUT", "/api/notes/"+n.ID[:8], map[string]any{"title": "Opening"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body)
	}
	if got := decode[domain.Note](t, rec); got.Title != "Opening" || got.Content != "Chapter one" {
		t.Errorf("updated = %+v", got)
	}

	list := decode[struct {
		Notes []domain.Note `json:"notes"`
	}](t, do(t, s, "GET", "/api/notes?category=plot", nil)).Notes
	if len(list) != 1 {
		t.Errorf("filtered list len = %d", len(list))
	}
	found := decode[struct {
		Notes []domain.Note `json:"notes"`
	}](t, do(t, s, "GET", "/api/notes?q=chapter", nil)).Notes
	if len(found) != 1 {
		t.Errorf("search len = %d", len(found))
	}
	if rec := do(t, s, "GET", "/api/notes?limit=-1", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", rec.Code)
	}

	if rec := do(t, s, "DELETE", "/api/notes/"+n.ID, nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec := do(t, s, "GET", "/api/notes/"+n.ID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", rec.Code)
	}
}

func TestMarkdownTools(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, "POST", "/api/notes/toc", map[string]string{"content": "# Intro\n## Cast"})
	got := decode[map[string]any](t, rec)
	if got["toc"] != "- [Intro](#intro)\n  - [Cast](#cast)" {
		t.Errorf("toc = %q", got["toc"])
	}

	rec = do(t, s, "POST", "/api/notes/correct", map[string]string{"content": "* one\n+ two  \n"})
	if c := decode[map[string]any](t, rec)["content"]; c != "- one\n- two\n" {
		t.Errorf("corrected = %q", c)
	}

	rec = do(t, s, "POST", "/api/notes/sanitize", map[string]string{"html": `<p onclick="x()">hi</p><script>bad()</script>`})
	out := decode[map[string]string](t, rec)
	if strings.Contains(out["html"], "script") || strings.Contains(out["html"], "onclick") || out["text"] != "hi" {
		t.Errorf("sanitized = %v", out)
	}
}

func TestTasks(t *testing.T) {
	s := newTestServer(t, nil)

	if rec := do(t, s, "POST", "/api/tasks", map[string]any{}); rec.Code != http.StatusBadRequest {
		t.Errorf("untitled task status = %d", rec.Code)
	}

	rec := do(t, s, "POST", "/api/tasks", map[string]any{"title": "Edit chapter 2"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body)
	}
	task := decode[domain.Task](t, rec)
	if task.Priority != domain.PriorityMedium {
		t.Errorf("priority = %q", task.Priority)
	}

	rec = do(t, s, "POST", "/api/tasks/"+task.ID+"/toggle", nil)
	if !decode[domain.Task](t, rec).Completed {
		t.Errorf("toggle body = %s", rec.Body)
	}

	rec = do(t, s, "PUT", "/api/tasks/"+task.ID, map[string]any{"priority": "high"})
	if got := decode[domain.Task](t, rec); got.Priority != domain.PriorityHigh || !got.Completed {
		t.Errorf("updated = %+v", got)
	}

	if rec := do(t, s, "DELETE", "/api/tasks/"+task.ID, nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
}

func TestDrafts(t *testing.T) {
	s := newTestServer(t, nil)

	if rec := do(t, s, "GET", "/api/drafts/new", nil); rec.Code != http.StatusNotFound {
		t.Errorf("empty draft status = %d", rec.Code)
	}

	rec := do(t, s, "PUT", "/api/drafts/new", map[string]string{"title": "Idea", "content": "dragons"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("put status = %d", rec.Code)
	}
	if !s.Autosave.Pending(prefs.KeyNewNoteDraft) {
		t.Error("draft not pending")
	}

	// reading flushes the pending draft
	rec = do(t, s, "GET", "/api/drafts/new", nil)
	if rec.Code != http.StatusOK || decode[domain.Draft](t, rec).Content != "dragons" {
		t.Errorf("get status = %d, body = %s", rec.Code, rec.Body)
	}

	rec = do(t, s, "PUT", "/api/drafts/n1?flush=1", map[string]string{"content": "v2"})
	if rec.Code != http.StatusOK {
		t.Errorf("flush status = %d", rec.Code)
	}
	if d, ok := s.Prefs.Draft(context.Background(), prefs.DraftKey("n1")); !ok || d.Content != "v2" {
		t.Errorf("stored draft = %+v, %v", d, ok)
	}

	if rec := do(t, s, "DELETE", "/api/drafts/n1", nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if _, ok := s.Prefs.Draft(context.Background(), prefs.DraftKey("n1")); ok {
		t.Error("draft still stored after delete")
	}

	// saving the note discards the new-note draft
	do(t, s, "POST", "/api/notes", map[string]string{"content": "dragons"})
	if _, ok := s.Prefs.Draft(context.Background(), prefs.KeyNewNoteDraft); ok {
		t.Error("new-note draft kept after create")
	}
}

// --- Preferences ---

func TestTheme(t *testing.T) {
	s := newTestServer(t, nil)

	if got := decode[map[string]string](t, do(t, s, "GET", "/api/prefs/theme", nil))["theme"]; got != "light" {
		t.Errorf("default theme = %q", got)
	}
	if rec := do(t, s, "PUT", "/api/prefs/theme", map[string]string{"theme": "neon"}); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid theme status = %d", rec.Code)
	}
	do(t, s, "PUT", "/api/prefs/theme", map[string]string{"theme": "dark"})
	if got := decode[map[string]string](t, do(t, s, "GET", "/api/prefs/theme", nil))["theme"]; got != "dark" {
		t.Errorf("theme = %q", got)
	}
}

func TestPomodoro(t *testing.T) {
	s := newTestServer(t, nil)

	if got := decode[pomodoro.Settings](t, do(t, s, "GET", "/api/prefs/pomodoro", nil)); got != pomodoro.DefaultSettings {
		t.Errorf("default settings = %+v", got)
	}
	bad := pomodoro.Settings{WorkMinutes: 0, ShortBreakMinutes: 5, LongBreakMinutes: 15, PomodorosPerCycle: 4}
	if rec := do(t, s, "PUT", "/api/prefs/pomodoro", bad); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid settings status = %d", rec.Code)
	}
	custom := pomodoro.Settings{WorkMinutes: 50, ShortBreakMinutes: 10, LongBreakMinutes: 30, PomodorosPerCycle: 1}
	if rec := do(t, s, "PUT", "/api/prefs/pomodoro", custom); rec.Code != http.StatusOK {
		t.Errorf("put settings status = %d", rec.Code)
	}

	got := decode[struct {
		Today int           `json:"today"`
		Next  pomodoro.Kind `json:"next"`
	}](t, do(t, s, "POST", "/api/pomodoro/complete", nil))
	if got.Today != 1 || got.Next != pomodoro.LongBreak {
		t.Errorf("complete = %+v", got)
	}
	if n := decode[map[string]int](t, do(t, s, "GET", "/api/pomodoro/today", nil))["today"]; n != 1 {
		t.Errorf("today = %d", n)
	}
}

func TestDashboard(t *testing.T) {
	s := newTestServer(t, nil)
	do(t, s, "POST", "/api/notes", map[string]string{"content": "12345"})

	rec := do(t, s, "GET", "/api/dashboard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), `"stats"`) || !strings.Contains(rec.Body.String(), `"quests"`) {
		t.Errorf("body = %s", rec.Body)
	}
	recent := decode[struct {
		RecentNotes []domain.Note `json:"recentNotes"`
	}](t, rec).RecentNotes
	if len(recent) != 1 || recent[0].Content != "12345" {
		t.Errorf("recent notes = %+v", recent)
	}
}
