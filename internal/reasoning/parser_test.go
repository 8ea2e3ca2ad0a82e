package reasoning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/tailor/pkg/models"
)

func TestParse_ValidProposal(t *testing.T) {
	payload := []byte(`{
		"selectedBlocks": [
			{"type": "hero", "priority": 1, "rationale": "welcome"},
			{"type": "comparison-table", "priority": 2, "contentGuidance": "X5 against X4"}
		],
		"confidence": {"intent": 0.85, "productMatch": 0.6},
		"userJourney": {"stage": "deciding", "nextAction": "compare"},
		"selectedProducts": ["X5", "X4"],
		"reasoning": "visitor is comparing two models"
	}`)

	p, err := Parse(payload, "corr-1")
	require.NoError(t, err)

	require.Len(t, p.Blocks, 2)
	assert.Equal(t, models.BlockHero, p.Blocks[0].Type)
	assert.Equal(t, "welcome", p.Blocks[0].Rationale)
	assert.Equal(t, models.BlockComparisonTable, p.Blocks[1].Type)
	assert.Equal(t, "X5 against X4", p.Blocks[1].ContentGuidance)

	assert.InDelta(t, 0.85, p.Confidence.Intent, 1e-9)
	assert.InDelta(t, 0.6, p.Confidence.ProductMatch, 1e-9)
	assert.Equal(t, "deciding", p.UserJourney.Stage)
	assert.Equal(t, []string{"X5", "X4"}, p.SelectedProducts)
	assert.Equal(t, "visitor is comparing two models", p.Reasoning)
}

// Legacy callers send a single confidence number; it maps to the pair with
// a neutral product match.
func TestParse_LegacyConfidenceNumber(t *testing.T) {
	payload := []byte(`{
		"selectedBlocks": [{"type": "hero"}],
		"confidence": 0.8
	}`)

	p, err := Parse(payload, "corr-2")
	require.NoError(t, err)
	assert.InDelta(t, 0.8, p.Confidence.Intent, 1e-9)
	assert.InDelta(t, 0.5, p.Confidence.ProductMatch, 1e-9)
}

func TestParse_ConfidenceClamped(t *testing.T) {
	payload := []byte(`{
		"selectedBlocks": [{"type": "hero"}],
		"confidence": {"intent": 1.8, "productMatch": -0.3}
	}`)

	p, err := Parse(payload, "corr-3")
	require.NoError(t, err)
	assert.Equal(t, 1.0, p.Confidence.Intent)
	assert.Equal(t, 0.0, p.Confidence.ProductMatch)
}

// Unrecognized block names are dropped individually; the proposal survives
// as long as at least one block normalizes.
func TestParse_DropsUnrecognizedBlocks(t *testing.T) {
	payload := []byte(`{
		"selectedBlocks": [
			{"type": "mega-banner"},
			{"type": "followup"},
			{"type": "quiz"}
		],
		"confidence": {"intent": 0.7, "productMatch": 0.7}
	}`)

	p, err := Parse(payload, "corr-4")
	require.NoError(t, err)
	require.Len(t, p.Blocks, 2)
	assert.Equal(t, models.BlockFollowUp, p.Blocks[0].Type)
	assert.Equal(t, models.BlockDiscoveryQuiz, p.Blocks[1].Type)
}

func TestParse_ReasoningObjectSummary(t *testing.T) {
	payload := []byte(`{
		"selectedBlocks": [{"type": "hero"}],
		"confidence": 0.7,
		"reasoning": {"summary": "short version", "steps": ["a", "b"]}
	}`)

	p, err := Parse(payload, "corr-5")
	require.NoError(t, err)
	assert.Equal(t, "short version", p.Reasoning)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"malformed_json", `{"selectedBlocks": [`},
		{"no_blocks", `{"selectedBlocks": [], "confidence": 0.8}`},
		{"missing_confidence", `{"selectedBlocks": [{"type": "hero"}]}`},
		{"unparsable_confidence", `{"selectedBlocks": [{"type": "hero"}], "confidence": "high"}`},
		{"all_blocks_unrecognized", `{"selectedBlocks": [{"type": "mega-banner"}], "confidence": 0.8}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.payload), "corr-err")
			assert.Error(t, err)
		})
	}
}
