package cards

import (
	"slices"
	"time"
)

// Risk is the closed set of card risk ratings
type Risk string

const (
	RiskLow    Risk = "Low"
	RiskMedium Risk = "Medium"
	RiskHigh   Risk = "High"
)

// Policy check statuses
const (
	PolicyPassed = "Passed"
	PolicyFailed = "Failed"
)

// Signal classifies what kind of suggestion a card carries
type Signal struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Provenance records where a card came from
type Provenance struct {
	Source         string `json:"source"`
	Model          string `json:"model"`
	TTLMinutes     *int   `json:"ttlMinutes,omitempty"`
	GeneratedAtISO string `json:"generatedAtISO,omitempty"`
}

// AuditRef holds free-form correlation keys, not enforced references
type AuditRef struct {
	EventID  string `json:"eventId"`
	CausalID string `json:"causalId"`
}

// Impact holds the three scenario projections
type Impact struct {
	Bear string `json:"bear"`
	Base string `json:"base"`
	Bull string `json:"bull"`
}

// Cost estimates what producing the card took
type Cost struct {
	Latency string `json:"latency"`
	Tokens  int    `json:"tokens"`
	Calls   int    `json:"calls"`
}

type PolicyCheck struct {
	Status  string `json:"status"`
	Details string `json:"details"`
}

type ConfidenceBreakdown struct {
	Intent        float64 `json:"intent"`
	DataFreshness float64 `json:"dataFreshness"`
	Model         float64 `json:"model"`
}

type ChangeDelta struct {
	Adds     int `json:"adds"`
	Modifies int `json:"modifies"`
	Deletes  int `json:"deletes"`
}

// Card is one AI-suggested or user-authored unit of content in the feed.
// Every field is populated once a card has been stored.
type Card struct {
	ID                  string              `json:"id"`
	Title               string              `json:"title"`
	IntentSummary       string              `json:"intentSummary"`
	TLDR                string              `json:"tldr"`
	Signal              Signal              `json:"signal"`
	Confidence          float64             `json:"confidence"`
	Provenance          Provenance          `json:"provenance"`
	Audit               AuditRef            `json:"audit"`
	CLISnippet          string              `json:"cliSnippet"`
	MermaidCode         string              `json:"mermaidCode"`
	RiskRating          Risk                `json:"riskRating"`
	Impact              Impact              `json:"impact"`
	Cost                Cost                `json:"cost"`
	PolicyCheck         PolicyCheck         `json:"policyCheck"`
	Explainability      string              `json:"explainability"`
	ConfidenceBreakdown ConfidenceBreakdown `json:"confidenceBreakdown"`
	ChangeDelta         ChangeDelta         `json:"changeDelta"`
	UndoPlan            string              `json:"undoPlan"`
	Tags                []string            `json:"tags,omitempty"`
}

// Patch is the input form of a Card: nil fields are left to the
// existing record or the default template.
type Patch struct {
	ID                  *string              `json:"id,omitempty"`
	Title               *string              `json:"title,omitempty"`
	IntentSummary       *string              `json:"intentSummary,omitempty"`
	TLDR                *string              `json:"tldr,omitempty"`
	Signal              *Signal              `json:"signal,omitempty"`
	Confidence          *float64             `json:"confidence,omitempty"`
	Provenance          *Provenance          `json:"provenance,omitempty"`
	Audit               *AuditRef            `json:"audit,omitempty"`
	CLISnippet          *string              `json:"cliSnippet,omitempty"`
	MermaidCode         *string              `json:"mermaidCode,omitempty"`
	RiskRating          *Risk                `json:"riskRating,omitempty"`
	Impact              *Impact              `json:"impact,omitempty"`
	Cost                *Cost                `json:"cost,omitempty"`
	PolicyCheck         *PolicyCheck         `json:"policyCheck,omitempty"`
	Explainability      *string              `json:"explainability,omitempty"`
	ConfidenceBreakdown *ConfidenceBreakdown `json:"confidenceBreakdown,omitempty"`
	ChangeDelta         *ChangeDelta         `json:"changeDelta,omitempty"`
	UndoPlan            *string              `json:"undoPlan,omitempty"`
	Tags                []string             `json:"tags,omitempty"`
}

// Default returns the template every new card starts from
func Default(id string, now time.Time) Card {
	ttl := 15
	return Card{
		ID:            id,
		Title:         "Untitled",
		IntentSummary: "",
		TLDR:          "",
		Signal:        Signal{Type: "info", Text: "Info"},
		Confidence:    0,
		Provenance: Provenance{
			Source:         "local",
			Model:          "mock",
			TTLMinutes:     &ttl,
			GeneratedAtISO: now.UTC().Format(time.RFC3339Nano),
		},
		Audit:               AuditRef{EventID: "evt_" + id, CausalID: "cau_" + id},
		CLISnippet:          "echo hello",
		MermaidCode:         "graph TD; A-->B;",
		RiskRating:          RiskLow,
		Impact:              Impact{Bear: "0%", Base: "0%", Bull: "0%"},
		Cost:                Cost{Latency: "0ms"},
		PolicyCheck:         PolicyCheck{Status: PolicyPassed, Details: "mock"},
		Explainability:      "mock",
		ConfidenceBreakdown: ConfidenceBreakdown{Intent: 100, DataFreshness: 100, Model: 100},
		UndoPlan:            "undo — 30s",
	}
}

// PatchOf turns a full card into a patch that supplies every field
func PatchOf(c Card) Patch {
	c = c.Clone()
	return Patch{
		ID:                  &c.ID,
		Title:               &c.Title,
		IntentSummary:       &c.IntentSummary,
		TLDR:                &c.TLDR,
		Signal:              &c.Signal,
		Confidence:          &c.Confidence,
		Provenance:          &c.Provenance,
		Audit:               &c.Audit,
		CLISnippet:          &c.CLISnippet,
		MermaidCode:         &c.MermaidCode,
		RiskRating:          &c.RiskRating,
		Impact:              &c.Impact,
		Cost:                &c.Cost,
		PolicyCheck:         &c.PolicyCheck,
		Explainability:      &c.Explainability,
		ConfidenceBreakdown: &c.ConfidenceBreakdown,
		ChangeDelta:         &c.ChangeDelta,
		UndoPlan:            &c.UndoPlan,
		Tags:                c.Tags,
	}
}

// Clone returns a copy that shares no slices or pointers with c
func (c Card) Clone() Card {
	if c.Tags != nil {
		c.Tags = slices.Clone(c.Tags)
	}
	if c.Provenance.TTLMinutes != nil {
		ttl := *c.Provenance.TTLMinutes
		c.Provenance.TTLMinutes = &ttl
	}
	return c
}

// merge overlays every field p supplies onto base. Nested objects are
// replaced whole, never merged key by key.
func merge(base Card, p Patch) Card {
	out := base.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.IntentSummary != nil {
		out.IntentSummary = *p.IntentSummary
	}
	if p.TLDR != nil {
		out.TLDR = *p.TLDR
	}
	if p.Signal != nil {
		out.Signal = *p.Signal
	}
	if p.Confidence != nil {
		out.Confidence = *p.Confidence
	}
	if p.Provenance != nil {
		out.Provenance = *p.Provenance
		if p.Provenance.TTLMinutes != nil {
			ttl := *p.Provenance.TTLMinutes
			out.Provenance.TTLMinutes = &ttl
		}
	}
	if p.Audit != nil {
		out.Audit = *p.Audit
	}
	if p.CLISnippet != nil {
		out.CLISnippet = *p.CLISnippet
	}
	if p.MermaidCode != nil {
		out.MermaidCode = *p.MermaidCode
	}
	if p.RiskRating != nil {
		out.RiskRating = *p.RiskRating
	}
	if p.Impact != nil {
		out.Impact = *p.Impact
	}
	if p.Cost != nil {
		out.Cost = *p.Cost
	}
	if p.PolicyCheck != nil {
		out.PolicyCheck = *p.PolicyCheck
	}
	if p.Explainability != nil {
		out.Explainability = *p.Explainability
	}
	if p.ConfidenceBreakdown != nil {
		out.ConfidenceBreakdown = *p.ConfidenceBreakdown
	}
	if p.ChangeDelta != nil {
		out.ChangeDelta = *p.ChangeDelta
	}
	if p.UndoPlan != nil {
		out.UndoPlan = *p.UndoPlan
	}
	if p.Tags != nil {
		out.Tags = slices.Clone(p.Tags)
	}
	return out
}
