package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/billlzzz10/unicornxos/internal/domain"
	"github.com/billlzzz10/unicornxos/internal/store"
)

// Persisted keys
const (
	KeyAuthenticated    = "isAuthenticated"
	KeyAuthToken        = "auth_token"
	KeyTheme            = "theme"
	KeyPomodoroSettings = "pomodoro_settings"
	KeyPomodoroSessions = "pomodoro_sessions"
	KeyNewNoteDraft     = "autosave_new_note"

	noteDraftPrefix = "autosave_note_"
)

// Theme is the UI colour scheme
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ErrInvalidTheme is returned by SetTheme for unknown themes
var ErrInvalidTheme = errors.New("theme must be light or dark")

// DraftKey returns the autosave key for a note; an empty id is the new
// note draft
func DraftKey(noteID string) string {
	if noteID == "" {
		return KeyNewNoteDraft
	}
	return noteDraftPrefix + noteID
}

// KV is the key/value storage the preferences live in
type KV interface {
	GetValue(ctx context.Context, key string) (string, error)
	SetValue(ctx context.Context, key, value string) error
	DeleteValue(ctx context.Context, key string) error
}

// Prefs reads and writes the persisted state layout. Storage failures are
// logged and read as "no value"; they never reach the caller.
type Prefs struct {
	kv  KV
	log *slog.Logger
	now func() time.Time
}

// New creates Prefs over kv
func New(kv KV, logger *slog.Logger) *Prefs {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prefs{kv: kv, log: logger, now: time.Now}
}

// WithClock returns a copy of p using now for calendar-day decisions
func (p *Prefs) WithClock(now func() time.Time) *Prefs {
	cp := *p
	cp.now = now
	return &cp
}

func (p *Prefs) get(ctx context.Context, key string) (string, bool) {
	v, err := p.kv.GetValue(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return "", false
	}
	if err != nil {
		p.log.Warn("read preference", "key", key, "err", err)
		return "", false
	}
	return v, true
}

func (p *Prefs) set(ctx context.Context, key, value string) {
	if err := p.kv.SetValue(ctx, key, value); err != nil {
		p.log.Warn("write preference", "key", key, "err", err)
	}
}

func (p *Prefs) del(ctx context.Context, key string) {
	if err := p.kv.DeleteValue(ctx, key); err != nil {
		p.log.Warn("delete preference", "key", key, "err", err)
	}
}

func (p *Prefs) getJSON(ctx context.Context, key string, dst any) bool {
	raw, ok := p.get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		p.log.Warn("decode preference", "key", key, "err", err)
		return false
	}
	return true
}

func (p *Prefs) setJSON(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		p.log.Warn("encode preference", "key", key, "err", err)
		return
	}
	p.set(ctx, key, string(b))
}

// --- Auth ---

// AuthToken returns the stored session token
func (p *Prefs) AuthToken(ctx context.Context) (string, bool) {
	if v, _ := p.get(ctx, KeyAuthenticated); v != "true" {
		return "", false
	}
	return p.get(ctx, KeyAuthToken)
}

// SetAuthToken records a signed-in session
func (p *Prefs) SetAuthToken(ctx context.Context, token string) {
	p.set(ctx, KeyAuthToken, token)
	p.set(ctx, KeyAuthenticated, "true")
}

// ClearAuth signs out
func (p *Prefs) ClearAuth(ctx context.Context) {
	p.del(ctx, KeyAuthToken)
	p.del(ctx, KeyAuthenticated)
}

// --- Theme ---

// Theme returns the stored theme, light when unset
func (p *Prefs) Theme(ctx context.Context) Theme {
	if v, ok := p.get(ctx, KeyTheme); ok && (Theme(v) == ThemeLight || Theme(v) == ThemeDark) {
		return Theme(v)
	}
	return ThemeLight
}

func (p *Prefs) SetTheme(ctx context.Context, t Theme) error {
	if t != ThemeLight && t != ThemeDark {
		return ErrInvalidTheme
	}
	p.set(ctx, KeyTheme, string(t))
	return nil
}

// --- Pomodoro ---

// PomodoroSettings decodes the stored settings into dst and reports
// whether there were any
func (p *Prefs) PomodoroSettings(ctx context.Context, dst any) bool {
	return p.getJSON(ctx, KeyPomodoroSettings, dst)
}

// SetPomodoroSettings stores v as JSON
func (p *Prefs) SetPomodoroSettings(ctx context.Context, v any) {
	p.setJSON(ctx, KeyPomodoroSettings, v)
}

// sessionDay is the stored pomodoro counter for one calendar day
type sessionDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

func (p *Prefs) today() string {
	return p.now().Format(time.DateOnly)
}

// PomodorosToday returns the number of work sessions completed today
func (p *Prefs) PomodorosToday(ctx context.Context) int {
	var d sessionDay
	if !p.getJSON(ctx, KeyPomodoroSessions, &d) || d.Date != p.today() {
		return 0
	}
	return d.Count
}

// RecordPomodoro increments today's counter, starting over on a new day,
// and returns the new count
func (p *Prefs) RecordPomodoro(ctx context.Context) int {
	n := p.PomodorosToday(ctx) + 1
	p.setJSON(ctx, KeyPomodoroSessions, sessionDay{Date: p.today(), Count: n})
	return n
}

// --- Drafts ---

// Draft returns the autosaved draft stored under key
func (p *Prefs) Draft(ctx context.Context, key string) (domain.Draft, bool) {
	var d domain.Draft
	if !p.getJSON(ctx, key, &d) {
		return domain.Draft{}, false
	}
	return d, true
}

// SaveDraft stores d under key
func (p *Prefs) SaveDraft(ctx context.Context, key string, d domain.Draft) {
	p.setJSON(ctx, key, d)
}

// DiscardDraft removes the draft stored under key
func (p *Prefs) DiscardDraft(ctx context.Context, key string) {
	p.del(ctx, key)
}
