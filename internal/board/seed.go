package board

import (
	"time"

	"github.com/billlzzz10/unicornxos/internal/cards"
)

// SeedID is the id of the demo card published by Seed
const SeedID = "card-1"

// SeedCard returns the demo card shown on an empty board
func SeedCard() cards.Card {
	ttl := 15
	return cards.Card{
		ID:            SeedID,
		Title:         "BTC Breakout",
		IntentSummary: "show_timeseries: BTC/USD price, 15d",
		TLDR:          "Broke through $75k on high volume; base trend still up",
		Signal:        cards.Signal{Type: "breakout", Text: "Breakout"},
		Confidence:    92,
		Provenance: cards.Provenance{
			Source:         "data: ExchangeX @2025-09-25T12:00Z",
			Model:          "intent-v1.3",
			TTLMinutes:     &ttl,
			GeneratedAtISO: time.Now().UTC().Format(time.RFC3339Nano),
		},
		Audit:       cards.AuditRef{EventID: "evt_a1", CausalID: "cau_x1"},
		CLISnippet:  "aictl request-render --intent=show_timeseries --entity=BTC --metric=price --range=15d",
		MermaidCode: "graph TD; A[Start]-->B{Price > 75k?}; B--Yes-->C[Volume High]; C--Yes-->D[Breakout]; B--No-->E[Monitor];",
		RiskRating:  cards.RiskMedium,
		Impact:      cards.Impact{Bear: "-5%", Base: "+12%", Bull: "+25%"},
		Cost:        cards.Cost{Latency: "150ms", Tokens: 250, Calls: 1},
		PolicyCheck: cards.PolicyCheck{Status: cards.PolicyPassed, Details: "ok"},

		Explainability:      "3-sigma vs 30D avg",
		ConfidenceBreakdown: cards.ConfidenceBreakdown{Intent: 98, DataFreshness: 95, Model: 89},
		ChangeDelta:         cards.ChangeDelta{Adds: 5, Modifies: 2, Deletes: 0},
		UndoPlan:            "undo 30s",
		Tags:                []string{"btc", "price"},
	}
}
