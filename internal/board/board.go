package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/billlzzz10/unicornxos/internal/audit"
	"github.com/billlzzz10/unicornxos/internal/cards"
	"github.com/billlzzz10/unicornxos/internal/realtime"
	"github.com/billlzzz10/unicornxos/internal/uistate"
)

var (
	ErrCardNotFound = errors.New("card not found")
	ErrCLIFailed    = errors.New("cli run failed")
)

// CLIErrorMessage is the card error recorded when a CLI run fails
const CLIErrorMessage = "CLI error: invalid range"

// Outcome decides whether a simulated CLI run succeeds
type Outcome func() bool

// RandomOutcome succeeds with probability p
func RandomOutcome(p float64) Outcome {
	return func() bool { return rand.Float64() < p }
}

// Always returns a fixed outcome, for tests and demos
func Always(ok bool) Outcome {
	return func() bool { return ok }
}

// Config wires a Board to its collaborators. Nil fields get in-memory
// defaults.
type Config struct {
	Cards   *cards.Store
	UI      *uistate.State
	Audit   *audit.Log
	Feed    realtime.Feed
	Outcome Outcome
	UserID  string
	Logger  *slog.Logger
}

// Board is the card feed controller: it keeps the entity store in sync
// with the realtime feed and records user actions in the audit log
type Board struct {
	cards   *cards.Store
	ui      *uistate.State
	audit   *audit.Log
	feed    realtime.Feed
	outcome Outcome
	userID  string
	log     *slog.Logger
}

// New creates a Board
func New(cfg Config) *Board {
	b := &Board{
		cards:   cfg.Cards,
		ui:      cfg.UI,
		audit:   cfg.Audit,
		feed:    cfg.Feed,
		outcome: cfg.Outcome,
		userID:  cfg.UserID,
		log:     cfg.Logger,
	}
	if b.log == nil {
		b.log = slog.Default()
	}
	if b.cards == nil {
		b.cards = cards.NewStore()
	}
	if b.ui == nil {
		b.ui = uistate.New()
	}
	if b.audit == nil {
		b.audit = audit.New()
	}
	if b.feed == nil {
		b.feed = realtime.NewMock(b.log)
	}
	if b.outcome == nil {
		b.outcome = RandomOutcome(0.9)
	}
	if b.userID == "" {
		b.userID = "demo"
	}
	return b
}

// Start subscribes the entity store to the feed. Remote upserts land in
// the store as full records, remote deletes remove the card. The
// returned func stops the subscription.
func (b *Board) Start() (stop func()) {
	return b.feed.SubscribeCards(
		func(c cards.Card) {
			b.cards.Upsert(cards.PatchOf(c))
		},
		func(id string) {
			b.log.Debug("card deleted", "card", id)
			b.cards.Remove(id)
		},
	)
}

// Subscribe exposes the feed's subscription to other consumers such as
// push transports
func (b *Board) Subscribe(onUpsert func(cards.Card), onDelete func(string)) (unsubscribe func()) {
	return b.feed.SubscribeCards(onUpsert, onDelete)
}

// Seed publishes the demo card
func (b *Board) Seed(ctx context.Context) error {
	if err := b.feed.UpsertCard(ctx, SeedCard()); err != nil {
		return fmt.Errorf("seed card: %w", err)
	}
	return nil
}

// Publish upserts p into the store and pushes the merged card to the feed.
// A cancelled ctx leaves both untouched; once the store has changed the
// feed write is not cancellable, so the two never diverge.
func (b *Board) Publish(ctx context.Context, p cards.Patch) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := b.cards.Upsert(p)
	c, ok := b.cards.Get(id)
	if !ok {
		// removed by a concurrent delete between the two calls
		return id, ErrCardNotFound
	}
	if err := b.feed.UpsertCard(context.WithoutCancel(ctx), c); err != nil {
		return id, fmt.Errorf("publish card: %w", err)
	}
	return id, nil
}

// Delete removes a card locally and on the feed
func (b *Board) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.cards.Remove(id)
	if err := b.feed.DeleteCard(context.WithoutCancel(ctx), id); err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return nil
}

// SetField overwrites one field and republishes the card. Missing cards
// are a no-op.
func (b *Board) SetField(ctx context.Context, id, field string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.cards.SetField(id, field, value); err != nil {
		return err
	}
	c, ok := b.cards.Get(id)
	if !ok {
		return nil
	}
	if err := b.feed.UpsertCard(context.WithoutCancel(ctx), c); err != nil {
		return fmt.Errorf("publish card: %w", err)
	}
	return nil
}

// RunCLI simulates running cli against the card. An empty cli runs the
// card's own snippet. The attempt is always audited; a failed run sets
// the card error and returns ErrCLIFailed, a successful one clears it.
func (b *Board) RunCLI(ctx context.Context, id, cli string, dry bool) error {
	c, ok := b.cards.Get(id)
	if !ok {
		return ErrCardNotFound
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if cli == "" {
		cli = c.CLISnippet
	}

	action := audit.ActionRunCLI
	if dry {
		action = audit.ActionDryRun
	}
	b.audit.Log(audit.Entry{UserID: b.userID, Action: action, CardID: id, Details: cli})

	if !b.outcome() {
		b.ui.SetError(id, CLIErrorMessage)
		b.log.Warn("cli run failed", "card", id, "dry", dry)
		return ErrCLIFailed
	}
	b.ui.ClearError(id)
	return nil
}

// Apply records that the card's change set was accepted
func (b *Board) Apply(ctx context.Context, id string) error {
	c, ok := b.cards.Get(id)
	if !ok {
		return ErrCardNotFound
	}
	d := c.ChangeDelta
	b.audit.Log(audit.Entry{
		UserID:  b.userID,
		Action:  audit.ActionApply,
		CardID:  id,
		Details: fmt.Sprintf("adds=%d mod=%d del=%d", d.Adds, d.Modifies, d.Deletes),
	})
	return nil
}

// Reject records that the card was dismissed
func (b *Board) Reject(ctx context.Context, id string) error {
	if _, ok := b.cards.Get(id); !ok {
		return ErrCardNotFound
	}
	b.audit.Log(audit.Entry{UserID: b.userID, Action: audit.ActionReject, CardID: id})
	return nil
}

func (b *Board) ToggleExpand(id string) bool {
	return b.ui.ToggleExpand(id)
}

// Error returns the card-scoped error message, if any
func (b *Board) Error(id string) (string, bool) {
	return b.ui.Error(id)
}

func (b *Board) Card(id string) (cards.Card, bool) {
	return b.cards.Get(id)
}

func (b *Board) Audit() []audit.Entry {
	return b.audit.Entries()
}

func (b *Board) ClearAudit() {
	b.audit.Clear()
}

// CardView is a card together with its UI state
type CardView struct {
	cards.Card
	Expanded bool   `json:"expanded"`
	Error    string `json:"error,omitempty"`
}

// View returns every card with its UI state, in store order
func (b *Board) View() []CardView {
	list := b.cards.List()
	out := make([]CardView, len(list))
	for i, c := range list {
		msg, _ := b.ui.Error(c.ID)
		out[i] = CardView{Card: c, Expanded: b.ui.Expanded(c.ID), Error: msg}
	}
	return out
}

// ViewOf returns one card with its UI state
func (b *Board) ViewOf(id string) (CardView, bool) {
	c, ok := b.cards.Get(id)
	if !ok {
		return CardView{}, false
	}
	msg, _ := b.ui.Error(id)
	return CardView{Card: c, Expanded: b.ui.Expanded(id), Error: msg}, true
}
