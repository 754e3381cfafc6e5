package cards

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store owns every Card record, keyed by id
type Store struct {
	mu    sync.RWMutex
	cards map[string]Card
	order []string
	used  map[string]struct{}

	newID func() string
	now   func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithIDFunc replaces the uuid generator used for cards without an id
func WithIDFunc(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithClock replaces time.Now for the default template timestamp
func WithClock(fn func() time.Time) Option {
	return func(s *Store) { s.now = fn }
}

// NewStore creates an empty Store
func NewStore(opts ...Option) *Store {
	s := &Store{
		cards: make(map[string]Card),
		used:  make(map[string]struct{}),
		newID: func() string { return uuid.New().String() },
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upsert merges p into the card it names, creating it when needed,
// and returns the resolved id. Layers apply in order: default template,
// existing record, supplied fields. A supplied id is used exactly as
// given; only a missing one is generated.
func (s *Store) Upsert(p Patch) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id string
	if p.ID != nil {
		id = *p.ID
	} else {
		id = s.freshIDLocked()
	}

	base, ok := s.cards[id]
	if !ok {
		base = Default(id, s.now())
		s.order = append(s.order, id)
	}
	merged := merge(base, p)
	merged.ID = id

	s.cards[id] = merged
	s.used[id] = struct{}{}
	return id
}

// Remove deletes the card if present
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cards[id]; !ok {
		return
	}
	delete(s.cards, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// SetField overwrites one field of an existing card. A missing card is a
// no-op; the field name and value type are still checked.
func (s *Store) SetField(id, field string, value any) error {
	fspec, ok := fields[field]
	if !ok {
		return unknownField(field)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cards[id]
	if !ok {
		return nil
	}
	c = c.Clone()
	if err := fspec.set(&c, value); err != nil {
		return err
	}
	s.cards[id] = c
	return nil
}

// Get returns a copy of the card stored at id
func (s *Store) Get(id string) (Card, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cards[id]
	if !ok {
		return Card{}, false
	}
	return c.Clone(), true
}

// List returns copies of every card in insertion order
func (s *Store) List() []Card {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Card, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.cards[id].Clone())
	}
	return out
}

// IDs returns the stored ids in insertion order
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cards)
}

// freshIDLocked never hands out an id used earlier in the session,
// including ids whose cards have since been removed
func (s *Store) freshIDLocked() string {
	for {
		id := s.newID()
		if _, taken := s.used[id]; !taken && id != "" {
			return id
		}
	}
}
