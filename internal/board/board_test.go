package board

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/billlzzz10/unicornxos/internal/audit"
	"github.com/billlzzz10/unicornxos/internal/cards"
)

// --- Helpers ---

func newTestBoard(ok bool) *Board {
	return New(Config{
		Outcome: Always(ok),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func strp(s string) *string { return &s }

// --- Feed sync ---

func TestSeedReachesStoreThroughFeed(t *testing.T) {
	b := newTestBoard(true)
	stop := b.Start()
	defer stop()

	if err := b.Seed(context.Background()); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	eventually(t, "seed card in store", func() bool {
		_, ok := b.Card(SeedID)
		return ok
	})
	c, _ := b.Card(SeedID)
	if c.Title != "BTC Breakout" || c.Confidence != 92 || c.RiskRating != cards.RiskMedium {
		t.Errorf("seed card = %+v", c)
	}
}

func TestStartReplaysCardsPublishedEarlier(t *testing.T) {
	b := newTestBoard(true)
	if err := b.Seed(context.Background()); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	stop := b.Start()
	defer stop()

	eventually(t, "replayed card", func() bool {
		_, ok := b.Card(SeedID)
		return ok
	})
}

func TestPublishAndDelete(t *testing.T) {
	b := newTestBoard(true)
	stop := b.Start()
	defer stop()
	ctx := context.Background()

	id, err := b.Publish(ctx, cards.Patch{Title: strp("Draft outline")})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if c, ok := b.Card(id); !ok || c.Title != "Draft outline" {
		t.Fatalf("card after publish = %+v, %v", c, ok)
	}

	if err := b.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	eventually(t, "card removed", func() bool {
		_, ok := b.Card(id)
		return !ok
	})
}

func TestSetFieldRepublishes(t *testing.T) {
	b := newTestBoard(true)
	ctx := context.Background()
	id, _ := b.Publish(ctx, cards.Patch{})

	got := make(chan cards.Card, 8)
	unsub := b.Subscribe(func(c cards.Card) { got <- c }, nil)
	defer unsub()
	<-got // replay

	if err := b.SetField(ctx, id, cards.FieldRiskRating, cards.RiskHigh); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	select {
	case c := <-got:
		if c.RiskRating != cards.RiskHigh {
			t.Errorf("pushed risk = %q", c.RiskRating)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("SetField did not republish")
	}

	if err := b.SetField(ctx, "missing", cards.FieldRiskRating, cards.RiskHigh); err != nil {
		t.Errorf("SetField on missing card: %v", err)
	}
}

func TestCancelledContextLeavesStoreAndFeedInSync(t *testing.T) {
	b := newTestBoard(true)
	id, err := b.Publish(context.Background(), cards.Patch{Title: strp("A")})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := b.SetField(ctx, id, cards.FieldTitle, "X"); !errors.Is(err, context.Canceled) {
		t.Errorf("SetField err = %v, want context.Canceled", err)
	}
	if err := b.Delete(ctx, id); !errors.Is(err, context.Canceled) {
		t.Errorf("Delete err = %v, want context.Canceled", err)
	}
	if _, err := b.Publish(ctx, cards.Patch{Title: strp("B")}); !errors.Is(err, context.Canceled) {
		t.Errorf("Publish err = %v, want context.Canceled", err)
	}

	c, ok := b.Card(id)
	if !ok || c.Title != "A" {
		t.Fatalf("store card = %+v, %v", c, ok)
	}
	if n := len(b.View()); n != 1 {
		t.Errorf("store holds %d cards, want 1", n)
	}

	got := make(chan cards.Card, 8)
	unsub := b.Subscribe(func(c cards.Card) { got <- c }, nil)
	defer unsub()
	select {
	case c := <-got:
		if c.ID != id || c.Title != "A" {
			t.Errorf("feed replay = %+v", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no replay")
	}
	select {
	case c := <-got:
		t.Errorf("unexpected extra card %+v", c)
	case <-time.After(50 * time.Millisecond):
	}
}

// --- Actions ---

func TestRunCLISuccessClearsError(t *testing.T) {
	b := newTestBoard(true)
	ctx := context.Background()
	id, _ := b.Publish(ctx, cards.Patch{})
	b.ui.SetError(id, "stale")

	if err := b.RunCLI(ctx, id, "", false); err != nil {
		t.Fatalf("RunCLI: %v", err)
	}

	if v, _ := b.ViewOf(id); v.Error != "" {
		t.Errorf("error not cleared: %q", v.Error)
	}
	entries := b.Audit()
	if len(entries) != 1 {
		t.Fatalf("audit len = %d", len(entries))
	}
	e := entries[0]
	if e.Action != audit.ActionRunCLI || e.CardID != id || e.UserID != "demo" || e.Details != "echo hello" {
		t.Errorf("audit entry = %+v", e)
	}
}

func TestRunCLIFailureSetsCardError(t *testing.T) {
	b := newTestBoard(false)
	ctx := context.Background()
	id, _ := b.Publish(ctx, cards.Patch{})

	err := b.RunCLI(ctx, id, "aictl render --range=bad", true)
	if !errors.Is(err, ErrCLIFailed) {
		t.Fatalf("err = %v, want ErrCLIFailed", err)
	}

	v, _ := b.ViewOf(id)
	if v.Error != CLIErrorMessage {
		t.Errorf("card error = %q", v.Error)
	}
	e := b.Audit()[0]
	if e.Action != audit.ActionDryRun || e.Details != "aictl render --range=bad" {
		t.Errorf("audit entry = %+v", e)
	}
}

func TestApplyAndReject(t *testing.T) {
	b := newTestBoard(true)
	ctx := context.Background()
	id, _ := b.Publish(ctx, cards.Patch{ChangeDelta: &cards.ChangeDelta{Adds: 5, Modifies: 2}})

	if err := b.Apply(ctx, id); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := b.Reject(ctx, id); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	entries := b.Audit()
	if len(entries) != 2 {
		t.Fatalf("audit len = %d", len(entries))
	}
	if entries[0].Action != audit.ActionApply || entries[0].Details != "adds=5 mod=2 del=0" {
		t.Errorf("apply entry = %+v", entries[0])
	}
	if entries[1].Action != audit.ActionReject || entries[1].Details != "" {
		t.Errorf("reject entry = %+v", entries[1])
	}
}

func TestActionsOnMissingCard(t *testing.T) {
	b := newTestBoard(true)
	ctx := context.Background()

	checks := map[string]error{
		"run":    b.RunCLI(ctx, "nope", "", false),
		"apply":  b.Apply(ctx, "nope"),
		"reject": b.Reject(ctx, "nope"),
	}
	for name, err := range checks {
		if !errors.Is(err, ErrCardNotFound) {
			t.Errorf("%s: err = %v, want ErrCardNotFound", name, err)
		}
	}
	if n := len(b.Audit()); n != 0 {
		t.Errorf("audit len = %d, want 0", n)
	}
}

func TestViewCarriesUIState(t *testing.T) {
	b := newTestBoard(true)
	ctx := context.Background()
	a, _ := b.Publish(ctx, cards.Patch{Title: strp("a")})
	b.Publish(ctx, cards.Patch{Title: strp("b")})

	b.ToggleExpand(a)
	view := b.View()
	if len(view) != 2 {
		t.Fatalf("len = %d", len(view))
	}
	if !view[0].Expanded || view[1].Expanded {
		t.Errorf("expanded = %v, %v", view[0].Expanded, view[1].Expanded)
	}
}

func TestClearAudit(t *testing.T) {
	b := newTestBoard(true)
	ctx := context.Background()
	id, _ := b.Publish(ctx, cards.Patch{})
	b.Reject(ctx, id)
	b.Reject(ctx, id)

	b.ClearAudit()
	b.Apply(ctx, id)

	if n := len(b.Audit()); n != 1 {
		t.Errorf("audit len = %d, want 1", n)
	}
}
