package orchestrator

import "github.com/thebtf/tailor/pkg/models"

// Fallback confidence is deliberately conservative: enough intent to serve
// a page, too little product match to permit single-product blocks.
var fallbackConfidence = models.Confidence{Intent: 0.6, ProductMatch: 0.4}

// fallbackBlocks are the static per-intent-type block lists served when
// the reasoning proposal is unrecoverable. The orchestrator never returns
// an empty result.
var fallbackBlocks = map[string][]models.BlockType{
	"support": {
		models.BlockSupportTriage,
		models.BlockFAQ,
		models.BlockFollowUp,
	},
	"comparison": {
		models.BlockHero,
		models.BlockComparisonTable,
		models.BlockProductCards,
		models.BlockFollowUp,
	},
	"use_case": {
		models.BlockHero,
		models.BlockRecipeGallery,
		models.BlockFeatureHighlights,
		models.BlockFollowUp,
	},
	"gift": {
		models.BlockHero,
		models.BlockProductCards,
		models.BlockTestimonials,
		models.BlockFollowUp,
	},
}

// defaultFallback serves unknown intent types.
var defaultFallback = []models.BlockType{
	models.BlockHero,
	models.BlockProductCards,
	models.BlockDiscoveryQuiz,
	models.BlockFollowUp,
}

// fallbackResult builds the static fallback for an intent type.
func fallbackResult(intentType string) *models.ReasoningResult {
	blocks, ok := fallbackBlocks[intentType]
	if !ok {
		blocks = defaultFallback
	}

	selections := make([]models.BlockSelection, 0, len(blocks))
	for i, b := range blocks {
		selections = append(selections, models.BlockSelection{
			Type:      b,
			Priority:  i + 1,
			Rationale: "static fallback",
		})
	}

	return &models.ReasoningResult{
		SelectedBlocks: selections,
		Confidence:     fallbackConfidence,
		UserJourney:    models.UserJourney{Stage: "unknown"},
		Fallback:       true,
		Actions: []models.GatingAction{
			{Action: "fallback", Reason: "reasoning proposal unavailable, intent=" + intentType},
		},
	}
}
