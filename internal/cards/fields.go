package cards

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrUnknownField is returned for a field name a Card does not have
	ErrUnknownField = errors.New("unknown card field")
	// ErrFieldType is returned when a value does not fit the field
	ErrFieldType = errors.New("wrong value type for card field")
	// ErrImmutableField is returned when trying to set the id
	ErrImmutableField = errors.New("card field is immutable")
)

// Field names accepted by SetField, matching the JSON keys of Card
const (
	FieldTitle               = "title"
	FieldIntentSummary       = "intentSummary"
	FieldTLDR                = "tldr"
	FieldSignal              = "signal"
	FieldConfidence          = "confidence"
	FieldProvenance          = "provenance"
	FieldAudit               = "audit"
	FieldCLISnippet          = "cliSnippet"
	FieldMermaidCode         = "mermaidCode"
	FieldRiskRating          = "riskRating"
	FieldImpact              = "impact"
	FieldCost                = "cost"
	FieldPolicyCheck         = "policyCheck"
	FieldExplainability      = "explainability"
	FieldConfidenceBreakdown = "confidenceBreakdown"
	FieldChangeDelta         = "changeDelta"
	FieldUndoPlan            = "undoPlan"
	FieldTags                = "tags"
)

type fieldSpec struct {
	set    func(c *Card, v any) error
	decode func(raw []byte) (any, error)
}

var fields = map[string]fieldSpec{
	FieldTitle:               typed(func(c *Card) *string { return &c.Title }),
	FieldIntentSummary:       typed(func(c *Card) *string { return &c.IntentSummary }),
	FieldTLDR:                typed(func(c *Card) *string { return &c.TLDR }),
	FieldSignal:              typed(func(c *Card) *Signal { return &c.Signal }),
	FieldConfidence:          number(func(c *Card) *float64 { return &c.Confidence }),
	FieldProvenance:          typed(func(c *Card) *Provenance { return &c.Provenance }),
	FieldAudit:               typed(func(c *Card) *AuditRef { return &c.Audit }),
	FieldCLISnippet:          typed(func(c *Card) *string { return &c.CLISnippet }),
	FieldMermaidCode:         typed(func(c *Card) *string { return &c.MermaidCode }),
	FieldRiskRating:          risk(),
	FieldImpact:              typed(func(c *Card) *Impact { return &c.Impact }),
	FieldCost:                typed(func(c *Card) *Cost { return &c.Cost }),
	FieldPolicyCheck:         typed(func(c *Card) *PolicyCheck { return &c.PolicyCheck }),
	FieldExplainability:      typed(func(c *Card) *string { return &c.Explainability }),
	FieldConfidenceBreakdown: typed(func(c *Card) *ConfidenceBreakdown { return &c.ConfidenceBreakdown }),
	FieldChangeDelta:         typed(func(c *Card) *ChangeDelta { return &c.ChangeDelta }),
	FieldUndoPlan:            typed(func(c *Card) *string { return &c.UndoPlan }),
	FieldTags:                typed(func(c *Card) *[]string { return &c.Tags }),
}

// Fields lists the settable field names in sorted order
func Fields() []string {
	out := make([]string, 0, len(fields))
	for name := range fields {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DecodeField unmarshals raw JSON into the Go type of the named field,
// ready to pass to SetField
func DecodeField(field string, raw []byte) (any, error) {
	fspec, ok := fields[field]
	if !ok {
		return nil, unknownField(field)
	}
	v, err := fspec.decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFieldType, field, err)
	}
	return v, nil
}

func unknownField(field string) error {
	if field == "id" {
		return fmt.Errorf("%w: id", ErrImmutableField)
	}
	return fmt.Errorf("%w: %q", ErrUnknownField, field)
}

func typed[V any](ptr func(*Card) *V) fieldSpec {
	return fieldSpec{
		set: func(c *Card, v any) error {
			x, ok := v.(V)
			if !ok {
				var zero V
				return fmt.Errorf("%w: want %T, got %T", ErrFieldType, zero, v)
			}
			*ptr(c) = x
			return nil
		},
		decode: func(raw []byte) (any, error) {
			var x V
			if err := json.Unmarshal(raw, &x); err != nil {
				return nil, err
			}
			return x, nil
		},
	}
}

func number(ptr func(*Card) *float64) fieldSpec {
	fspec := typed(ptr)
	fspec.set = func(c *Card, v any) error {
		switch n := v.(type) {
		case float64:
			*ptr(c) = n
		case float32:
			*ptr(c) = float64(n)
		case int:
			*ptr(c) = float64(n)
		case int64:
			*ptr(c) = float64(n)
		default:
			return fmt.Errorf("%w: want number, got %T", ErrFieldType, v)
		}
		return nil
	}
	return fspec
}

// risk accepts a Risk or a plain string; the value itself is not validated
func risk() fieldSpec {
	fspec := typed(func(c *Card) *Risk { return &c.RiskRating })
	fspec.set = func(c *Card, v any) error {
		switch r := v.(type) {
		case Risk:
			c.RiskRating = r
		case string:
			c.RiskRating = Risk(r)
		default:
			return fmt.Errorf("%w: want risk rating, got %T", ErrFieldType, v)
		}
		return nil
	}
	return fspec
}
