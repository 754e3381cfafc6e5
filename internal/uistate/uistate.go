package uistate

import "sync"

// State holds transient per-card UI state: expansion flags and error
// messages. Ids are weak references; entries for removed cards are kept
// and ignored.
type State struct {
	mu       sync.RWMutex
	expanded map[string]bool
	errors   map[string]string
}

func New() *State {
	return &State{
		expanded: make(map[string]bool),
		errors:   make(map[string]string),
	}
}

// ToggleExpand flips the expansion flag for id (absent counts as
// collapsed) and returns the new value
func (s *State) ToggleExpand(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expanded[id] = !s.expanded[id]
	return s.expanded[id]
}

func (s *State) Expanded(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expanded[id]
}

// SetError records msg for id. An empty msg clears it.
func (s *State) SetError(id, msg string) {
	if msg == "" {
		s.ClearError(id)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors[id] = msg
}

func (s *State) ClearError(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.errors, id)
}

// Error returns the message recorded for id, if any
func (s *State) Error(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.errors[id]
	return msg, ok
}
