package bus

import (
	"log/slog"
	"sync"
)

// Handler receives an event payload
type Handler[T any] func(T)

// Handle identifies one registration, returned by On and accepted by Off
type Handle struct {
	event string
	id    uint64
}

type registration[T any] struct {
	id uint64
	fn Handler[T]
}

// Bus is a typed, in-process publish/subscribe primitive.
// Handlers for an event run synchronously on the emitting goroutine,
// in registration order.
type Bus[T any] struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string][]registration[T]
	log      *slog.Logger
}

// New creates an empty Bus. A nil logger falls back to slog.Default.
func New[T any](logger *slog.Logger) *Bus[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus[T]{
		handlers: make(map[string][]registration[T]),
		log:      logger,
	}
}

// On registers h for event
func (b *Bus[T]) On(event string, h Handler[T]) Handle {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.handlers[event] = append(b.handlers[event], registration[T]{id: b.nextID, fn: h})
	return Handle{event: event, id: b.nextID}
}

// Off removes the registration behind h. Unknown handles are ignored.
func (b *Bus[T]) Off(h Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	regs := b.handlers[h.event]
	for i, r := range regs {
		if r.id != h.id {
			continue
		}
		// copy so an in-flight Emit keeps iterating its own snapshot
		next := make([]registration[T], 0, len(regs)-1)
		next = append(next, regs[:i]...)
		next = append(next, regs[i+1:]...)
		if len(next) == 0 {
			delete(b.handlers, h.event)
		} else {
			b.handlers[h.event] = next
		}
		return
	}
}

// Emit invokes every handler currently registered for event.
// A panicking handler is logged and does not stop the others.
func (b *Bus[T]) Emit(event string, payload T) {
	b.mu.RLock()
	regs := b.handlers[event]
	b.mu.RUnlock()

	for _, r := range regs {
		b.invoke(event, r, payload)
	}
}

// Count returns the number of handlers registered for event
func (b *Bus[T]) Count(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[event])
}

func (b *Bus[T]) invoke(event string, r registration[T], payload T) {
	defer func() {
		if rec := recover(); rec != nil {
			b.log.Error("bus handler panicked", "event", event, "handler", r.id, "panic", rec)
		}
	}()
	r.fn(payload)
}
