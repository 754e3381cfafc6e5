package pomodoro

import (
	"context"
	"errors"
	"time"
)

// Kind of session
type Kind string

const (
	Work       Kind = "work"
	ShortBreak Kind = "shortBreak"
	LongBreak  Kind = "longBreak"
)

// Settings configure the timer
type Settings struct {
	WorkMinutes       int `json:"workMinutes"`
	ShortBreakMinutes int `json:"shortBreakMinutes"`
	LongBreakMinutes  int `json:"longBreakMinutes"`
	PomodorosPerCycle int `json:"pomodorosPerCycle"`
}

// DefaultSettings is the classic 25/5/15 cycle of four
var DefaultSettings = Settings{
	WorkMinutes:       25,
	ShortBreakMinutes: 5,
	LongBreakMinutes:  15,
	PomodorosPerCycle: 4,
}

var ErrInvalidSettings = errors.New("pomodoro durations and cycle length must be positive")

// Validate checks every field is positive
func (s Settings) Validate() error {
	if s.WorkMinutes <= 0 || s.ShortBreakMinutes <= 0 || s.LongBreakMinutes <= 0 || s.PomodorosPerCycle <= 0 {
		return ErrInvalidSettings
	}
	return nil
}

// Duration returns the length of a session of kind k
func (s Settings) Duration(k Kind) time.Duration {
	switch k {
	case ShortBreak:
		return time.Duration(s.ShortBreakMinutes) * time.Minute
	case LongBreak:
		return time.Duration(s.LongBreakMinutes) * time.Minute
	default:
		return time.Duration(s.WorkMinutes) * time.Minute
	}
}

// Next returns the session that follows one of kind k, given the number
// of work sessions completed so far including k. Every Nth work session
// is followed by a long break.
func (s Settings) Next(k Kind, completed int) Kind {
	if k != Work {
		return Work
	}
	if s.PomodorosPerCycle > 0 && completed > 0 && completed%s.PomodorosPerCycle == 0 {
		return LongBreak
	}
	return ShortBreak
}

// Store is where settings and the daily counter persist
type Store interface {
	PomodoroSettings(ctx context.Context, dst any) bool
	SetPomodoroSettings(ctx context.Context, v any)
	PomodorosToday(ctx context.Context) int
	RecordPomodoro(ctx context.Context) int
}

// Tracker keeps the timer settings and counts finished work sessions
type Tracker struct {
	store Store
}

func NewTracker(s Store) *Tracker {
	return &Tracker{store: s}
}

// Settings returns the stored settings, DefaultSettings when unset or invalid
func (t *Tracker) Settings(ctx context.Context) Settings {
	s := DefaultSettings
	if !t.store.PomodoroSettings(ctx, &s) || s.Validate() != nil {
		return DefaultSettings
	}
	return s
}

func (t *Tracker) SetSettings(ctx context.Context, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	t.store.SetPomodoroSettings(ctx, s)
	return nil
}

// Complete records a finished work session and returns today's count
// with the session that comes next
func (t *Tracker) Complete(ctx context.Context) (today int, next Kind) {
	today = t.store.RecordPomodoro(ctx)
	return today, t.Settings(ctx).Next(Work, today)
}

func (t *Tracker) Today(ctx context.Context) int {
	return t.store.PomodorosToday(ctx)
}
