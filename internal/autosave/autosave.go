package autosave

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/billlzzz10/unicornxos/internal/domain"
)

// DefaultDelay is how long a draft must stay unchanged before it is saved
const DefaultDelay = 1500 * time.Millisecond

// Sink persists a draft
type Sink interface {
	SaveDraft(ctx context.Context, key string, d domain.Draft)
}

type pending struct {
	timer *time.Timer
	draft domain.Draft
}

// Saver debounces draft writes per key: each Touch restarts the key's
// timer and only the last draft is written when it fires
type Saver struct {
	mu      sync.Mutex
	delay   time.Duration
	sink    Sink
	pending map[string]*pending
	closed  bool
	writing sync.WaitGroup // in-flight SaveDraft calls
	log     *slog.Logger
}

// New creates a Saver writing to sink after delay of inactivity
func New(sink Sink, delay time.Duration, logger *slog.Logger) *Saver {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Saver{
		delay:   delay,
		sink:    sink,
		pending: make(map[string]*pending),
		log:     logger,
	}
}

// Touch schedules d to be saved under key, replacing any pending draft
func (s *Saver) Touch(key string, d domain.Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if p, ok := s.pending[key]; ok {
		p.timer.Stop()
	}
	p := &pending{draft: d}
	p.timer = time.AfterFunc(s.delay, func() { s.fire(key, p) })
	s.pending[key] = p
}

func (s *Saver) fire(key string, p *pending) {
	s.mu.Lock()
	// a newer Touch, Cancel or Close got here first
	if s.closed || s.pending[key] != p {
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	s.writing.Add(1)
	s.mu.Unlock()
	defer s.writing.Done()

	s.sink.SaveDraft(context.Background(), key, p.draft)
	s.log.Debug("draft autosaved", "key", key)
}

// Cancel drops the pending draft for key without saving it
func (s *Saver) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pending[key]; ok {
		p.timer.Stop()
		delete(s.pending, key)
	}
}

// Flush saves the pending draft for key now. It reports whether there
// was one.
func (s *Saver) Flush(ctx context.Context, key string) bool {
	s.mu.Lock()
	p, ok := s.pending[key]
	if ok {
		p.timer.Stop()
		delete(s.pending, key)
		s.writing.Add(1)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	defer s.writing.Done()
	s.sink.SaveDraft(ctx, key, p.draft)
	return true
}

// Pending reports whether key has an unsaved draft
func (s *Saver) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[key]
	return ok
}

// Close stops every timer and waits for writes already under way;
// nothing is written once it returns and later Touch calls are ignored
func (s *Saver) Close() {
	s.mu.Lock()
	s.closed = true
	for key, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, key)
	}
	s.mu.Unlock()

	s.writing.Wait()
}
