// Package reasoning talks to the external reasoning collaborator: it
// assembles the guidance request and validates the collaborator's JSON
// proposal at the boundary before any internal logic touches it.
package reasoning

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/tailor/pkg/models"
)

// Proposal is the validated, normalized form of the collaborator's output.
type Proposal struct {
	Blocks           []models.BlockSelection
	Confidence       models.Confidence
	UserJourney      models.UserJourney
	SelectedProducts []string
	Reasoning        string
}

// rawProposal mirrors the duck-typed payload the collaborator emits.
// Confidence is deferred to raw JSON because legacy callers send a single
// number instead of the {intent, productMatch} pair.
type rawProposal struct {
	SelectedBlocks   []rawBlock         `json:"selectedBlocks"`
	Confidence       json.RawMessage    `json:"confidence"`
	UserJourney      models.UserJourney `json:"userJourney"`
	SelectedProducts []string           `json:"selectedProducts"`
	Reasoning        json.RawMessage    `json:"reasoning"`
}

type rawBlock struct {
	Type            string `json:"type"`
	Priority        int    `json:"priority"`
	Rationale       string `json:"rationale"`
	ContentGuidance string `json:"contentGuidance"`
}

// Parse validates and normalizes an untrusted collaborator payload.
// Any failure means the entire result is discarded by the caller in favor
// of the static fallback: partial trust in unvalidated structured output
// is unsafe.
func Parse(payload []byte, correlationID string) (*Proposal, error) {
	var raw rawProposal
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal reasoning payload: %w", err)
	}
	if len(raw.SelectedBlocks) == 0 {
		return nil, fmt.Errorf("reasoning payload has no selectedBlocks")
	}

	confidence, err := parseConfidence(raw.Confidence)
	if err != nil {
		return nil, err
	}

	proposal := &Proposal{
		Confidence:       confidence,
		UserJourney:      raw.UserJourney,
		SelectedProducts: raw.SelectedProducts,
		Reasoning:        parseReasoning(raw.Reasoning),
	}

	for _, rb := range raw.SelectedBlocks {
		blockType, ok := models.NormalizeBlockType(rb.Type)
		if !ok {
			log.Warn().
				Str("correlationId", correlationID).
				Str("blockType", rb.Type).
				Msg("Dropping unrecognized block type from reasoning proposal")
			continue
		}
		proposal.Blocks = append(proposal.Blocks, models.BlockSelection{
			Type:            blockType,
			Priority:        rb.Priority,
			Rationale:       rb.Rationale,
			ContentGuidance: rb.ContentGuidance,
		})
	}
	if len(proposal.Blocks) == 0 {
		return nil, fmt.Errorf("no recognizable blocks in reasoning proposal")
	}

	return proposal, nil
}

// parseConfidence accepts the {intent, productMatch} pair or the legacy
// single number, which maps to {intent: n, productMatch: 0.5}. Values are
// clamped into [0,1] at this boundary.
func parseConfidence(raw json.RawMessage) (models.Confidence, error) {
	if len(raw) == 0 {
		return models.Confidence{}, fmt.Errorf("reasoning payload missing confidence")
	}

	var pair struct {
		Intent       float64 `json:"intent"`
		ProductMatch float64 `json:"productMatch"`
	}
	if err := json.Unmarshal(raw, &pair); err == nil {
		return models.Confidence{
			Intent:       models.Clamp01(pair.Intent),
			ProductMatch: models.Clamp01(pair.ProductMatch),
		}, nil
	}

	var legacy float64
	if err := json.Unmarshal(raw, &legacy); err == nil {
		return models.Confidence{
			Intent:       models.Clamp01(legacy),
			ProductMatch: 0.5,
		}, nil
	}

	return models.Confidence{}, fmt.Errorf("unparsable confidence field")
}

// parseReasoning tolerates both a prose string and a structured object.
func parseReasoning(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if summary, ok := obj["summary"].(string); ok {
			return summary
		}
	}
	return ""
}
