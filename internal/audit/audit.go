package audit

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Common action labels. Action is free-form; these are the ones the
// card feed records.
const (
	ActionRunCLI = "RUN_CLI"
	ActionDryRun = "DRY_RUN"
	ActionApply  = "APPLY"
	ActionReject = "REJECT"
)

// Entry is an immutable record of one user or system action on a card
type Entry struct {
	ID      string `json:"id"`
	Time    string `json:"time"`
	UserID  string `json:"userId"`
	Action  string `json:"action"`
	CardID  string `json:"cardId"`
	Details string `json:"details,omitempty"`
}

// Log is the session's append-only audit trail
type Log struct {
	mu      sync.Mutex
	entries []Entry
	entropy io.Reader
	now     func() time.Time
	lastMS  uint64 // id timestamp of the newest entry
}

// New creates an empty Log. Ids are ULIDs drawn from a monotonic source
// and their timestamps never go backwards, so they sort in append order
// even within one millisecond or when the clock steps back.
func New() *Log {
	return NewWithClock(time.Now)
}

func NewWithClock(now func() time.Time) *Log {
	return &Log{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     now,
	}
}

// Log appends e with a fresh id and the current time. Any ID or Time
// set by the caller is replaced.
func (l *Log) Log(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.now().UTC()
	l.lastMS = max(l.lastMS, ulid.Timestamp(t))
	e.ID = ulid.MustNew(l.lastMS, l.entropy).String()
	e.Time = t.Format(time.RFC3339Nano)
	l.entries = append(l.entries, e)
}

// Clear empties the log
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// Entries returns a copy of the log in append order
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
