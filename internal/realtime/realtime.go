package realtime

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/billlzzz10/unicornxos/internal/bus"
	"github.com/billlzzz10/unicornxos/internal/cards"
)

// Bus event names
const (
	EventUpsert = "cards:upsert"
	EventDelete = "cards:delete"
)

// Event is the payload carried on the bus. Card is set for upserts,
// ID for deletes.
type Event struct {
	Card cards.Card
	ID   string
}

// Feed is the push-channel contract the card board is written against.
// Mock satisfies it in-process; a network-backed client could too.
type Feed interface {
	SubscribeCards(onUpsert func(cards.Card), onDelete func(id string)) (unsubscribe func())
	UpsertCard(ctx context.Context, c cards.Card) error
	DeleteCard(ctx context.Context, id string) error
}

type held struct {
	card cards.Card
	seq  uint64
}

// Mock simulates a realtime backend with an in-memory map of the latest
// card states and an event bus. Its map is independent of any cards.Store.
type Mock struct {
	mu  sync.Mutex
	mem map[string]held
	seq uint64

	bus *bus.Bus[Event]
	log *slog.Logger
}

// NewMock creates an empty Mock
func NewMock(logger *slog.Logger) *Mock {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mock{
		mem: make(map[string]held),
		bus: bus.New[Event](logger),
		log: logger,
	}
}

// SubscribeCards registers onUpsert and onDelete for live events and
// replays every card held right now to onUpsert. Callbacks never run on
// the caller's goroutine: each subscriber gets its own delivery goroutine
// that sees the replay first, then live events in publish order.
// The returned func unsubscribes and may be called any number of times.
func (m *Mock) SubscribeCards(onUpsert func(cards.Card), onDelete func(id string)) func() {
	sub := newSubscriber(onUpsert, onDelete, m.log)

	m.mu.Lock()
	for _, c := range m.snapshotLocked() {
		sub.push(delivery{card: c})
	}
	hu := m.bus.On(EventUpsert, func(e Event) { sub.push(delivery{card: e.Card}) })
	hd := m.bus.On(EventDelete, func(e Event) { sub.push(delivery{id: e.ID, deleted: true}) })
	m.mu.Unlock()

	go sub.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.bus.Off(hu)
			m.bus.Off(hd)
			sub.close()
		})
	}
}

// UpsertCard stores c and broadcasts it to every subscriber
func (m *Mock) UpsertCard(ctx context.Context, c cards.Card) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c = c.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()

	seq := m.seq + 1
	if prev, ok := m.mem[c.ID]; ok {
		seq = prev.seq
	} else {
		m.seq = seq
	}
	m.mem[c.ID] = held{card: c, seq: seq}
	m.bus.Emit(EventUpsert, Event{Card: c})
	return nil
}

// DeleteCard drops id and broadcasts the deletion
func (m *Mock) DeleteCard(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.mem, id)
	m.bus.Emit(EventDelete, Event{ID: id})
	return nil
}

// Len returns the number of cards held
func (m *Mock) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.mem)
}

// snapshotLocked returns held cards in first-publish order
func (m *Mock) snapshotLocked() []cards.Card {
	hs := make([]held, 0, len(m.mem))
	for _, h := range m.mem {
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i].seq < hs[j].seq })

	out := make([]cards.Card, len(hs))
	for i, h := range hs {
		out[i] = h.card
	}
	return out
}

type delivery struct {
	card    cards.Card
	id      string
	deleted bool
}

// subscriber is an unbounded FIFO drained by one goroutine, so publishers
// never block on a slow callback
type subscriber struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []delivery
	closed bool

	onUpsert func(cards.Card)
	onDelete func(string)
	log      *slog.Logger
}

func newSubscriber(onUpsert func(cards.Card), onDelete func(string), logger *slog.Logger) *subscriber {
	s := &subscriber{onUpsert: onUpsert, onDelete: onDelete, log: logger}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *subscriber) push(d delivery) {
	if !d.deleted {
		d.card = d.card.Clone()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue = append(s.queue, d)
	s.cond.Signal()
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.queue = nil
	s.cond.Broadcast()
}

func (s *subscriber) run() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed {
			s.mu.Unlock()
			return
		}
		d := s.queue[0]
		s.queue[0] = delivery{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.deliver(d)
	}
}

func (s *subscriber) deliver(d delivery) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("realtime subscriber panicked", "card", d.card.ID, "id", d.id, "panic", rec)
		}
	}()
	switch {
	case d.deleted && s.onDelete != nil:
		s.onDelete(d.id)
	case !d.deleted && s.onUpsert != nil:
		s.onUpsert(d.card)
	}
}
