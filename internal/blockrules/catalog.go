// Package blockrules evaluates the declarative block constraint catalog:
// it maps a query (plus optional classified intent) to the merged set of
// required, excluded and enhanced content blocks with sequencing hints.
package blockrules

import (
	"regexp"

	"github.com/thebtf/tailor/pkg/models"
)

// matchAll is the always-on trigger used by the two catch-all rules.
var matchAll = regexp.MustCompile(`(?s).*`)

// DefaultCatalog is the static block rule catalog. Trigger patterns are
// compiled at init, so a syntactically invalid pattern is a build-time
// defect rather than a runtime error. The two always-on rules carry the
// lowest priorities: default_followup guarantees a trailing follow-up
// block and default_hero supplies a hero unless a higher-priority rule
// (such as medical_accessibility) excludes it.
var DefaultCatalog = []models.BlockRule{
	{
		ID:       "support",
		Name:     "support",
		Category: "support",
		Priority: 100,
		Triggers: []models.TriggerCondition{
			{
				Kind:    models.TriggerKeyword,
				Pattern: regexp.MustCompile(`(?i)warranty|broken|leak|repair|refund|return|not working|stopped working|troubleshoot`),
			},
			{Kind: models.TriggerIntent, IntentType: "support"},
		},
		Requires: []models.BlockType{models.BlockSupportTriage, models.BlockFAQ},
		Excludes: []models.BlockType{
			models.BlockProductRecommendation,
			models.BlockBestPick,
			models.BlockProductCards,
			models.BlockComparisonTable,
		},
		SequenceHints: []models.SequenceHint{
			{Block: models.BlockSupportTriage, Position: models.PositionEarly},
			{Block: models.BlockFAQ, Position: models.PositionMiddle},
		},
		ContentGuidance: "Lead with the fastest path to resolving the problem; no selling.",
	},
	{
		ID:       "medical_accessibility",
		Name:     "medical_accessibility",
		Category: "empathy",
		Priority: 90,
		Triggers: []models.TriggerCondition{
			{
				Kind:    models.TriggerKeyword,
				Pattern: regexp.MustCompile(`(?i)arthritis|tremor|disability|accessib|weak grip|easy to hold|one hand`),
			},
		},
		Requires: []models.BlockType{models.BlockEmpathyHero},
		Excludes: []models.BlockType{models.BlockHero},
		Enhances: []models.BlockType{models.BlockTestimonials},
		SequenceHints: []models.SequenceHint{
			{Block: models.BlockEmpathyHero, Position: models.PositionEarly},
		},
		ContentGuidance: "Address the accessibility need directly and respectfully before any product talk.",
	},
	{
		ID:       "comparison",
		Name:     "comparison",
		Category: "decision",
		Priority: 70,
		Triggers: []models.TriggerCondition{
			{
				Kind:    models.TriggerKeyword,
				Pattern: regexp.MustCompile(`(?i)\bvs\.?\b|versus|\bcompare\b|difference between`),
			},
			{Kind: models.TriggerEntity, EntityKind: "products", MinCount: 2},
		},
		Requires: []models.BlockType{models.BlockBestPick, models.BlockComparisonTable},
		Enhances: []models.BlockType{models.BlockFeatureHighlights},
		SequenceHints: []models.SequenceHint{
			{Block: models.BlockBestPick, Position: models.PositionEarly},
			{Block: models.BlockComparisonTable, After: models.BlockBestPick},
		},
		ContentGuidance: "State a clear winner up front, then justify with the side-by-side table.",
	},
	{
		ID:       "recommendation_query",
		Name:     "recommendation_query",
		Category: "decision",
		Priority: 65,
		Triggers: []models.TriggerCondition{
			{
				Kind:    models.TriggerKeyword,
				Pattern: regexp.MustCompile(`(?i)\bbest\b|recommend|which (one|should)|top rated`),
				NegativePatterns: []*regexp.Regexp{
					regexp.MustCompile(`(?i)warranty|repair|broken`),
				},
			},
		},
		Requires: []models.BlockType{models.BlockBestPick},
		Enhances: []models.BlockType{models.BlockProductCards, models.BlockTestimonials},
		SequenceHints: []models.SequenceHint{
			{Block: models.BlockBestPick, Position: models.PositionEarly},
		},
		ContentGuidance: "Commit to one recommendation; alternatives are secondary.",
	},
	{
		ID:       "gift",
		Name:     "gift",
		Category: "occasion",
		Priority: 60,
		Triggers: []models.TriggerCondition{
			{
				Kind:    models.TriggerKeyword,
				Pattern: regexp.MustCompile(`(?i)\bgift\b|present for|registry|anniversary|wedding`),
			},
		},
		Requires: []models.BlockType{models.BlockProductCards},
		Enhances: []models.BlockType{models.BlockTestimonials, models.BlockBuyingGuide},
		SequenceHints: []models.SequenceHint{
			{Block: models.BlockProductCards, Position: models.PositionMiddle},
		},
		ContentGuidance: "Frame around the recipient, not the buyer; mention gift wrapping and returns.",
	},
	{
		ID:       "budget",
		Name:     "budget",
		Category: "price",
		Priority: 55,
		Triggers: []models.TriggerCondition{
			{
				Kind:    models.TriggerKeyword,
				Pattern: regexp.MustCompile(`(?i)cheap|budget|affordable|under \$?\d+|\bdeal\b|\bsale\b`),
			},
		},
		Requires: []models.BlockType{models.BlockProductCards},
		Enhances: []models.BlockType{models.BlockComparisonTable},
		SequenceHints: []models.SequenceHint{
			{Block: models.BlockProductCards, Position: models.PositionMiddle},
		},
		ContentGuidance: "Lead with value for money; show the price prominently.",
	},
	{
		ID:       "use_case_recipes",
		Name:     "use_case_recipes",
		Category: "use_case",
		Priority: 50,
		Triggers: []models.TriggerCondition{
			{
				Kind:    models.TriggerKeyword,
				Pattern: regexp.MustCompile(`(?i)recipe|smoothie|\bsoup\b|baby food|meal prep|nut butter`),
			},
			{Kind: models.TriggerIntent, IntentType: "use_case"},
			{Kind: models.TriggerEntity, EntityKind: "useCases", MinCount: 1},
		},
		Requires: []models.BlockType{models.BlockRecipeGallery},
		Enhances: []models.BlockType{models.BlockFeatureHighlights},
		SequenceHints: []models.SequenceHint{
			{Block: models.BlockRecipeGallery, Position: models.PositionMiddle},
		},
		ContentGuidance: "Show what the visitor can make before what they should buy.",
	},
	{
		ID:       "default_followup",
		Name:     "default_followup",
		Category: "catch_all",
		Priority: 2,
		Triggers: []models.TriggerCondition{
			{Kind: models.TriggerKeyword, Pattern: matchAll},
		},
		Requires: []models.BlockType{models.BlockFollowUp},
		SequenceHints: []models.SequenceHint{
			{Block: models.BlockFollowUp, Position: models.PositionLate},
		},
	},
	{
		ID:       "default_hero",
		Name:     "default_hero",
		Category: "catch_all",
		Priority: 1,
		Triggers: []models.TriggerCondition{
			{Kind: models.TriggerKeyword, Pattern: matchAll},
		},
		Requires: []models.BlockType{models.BlockHero},
		SequenceHints: []models.SequenceHint{
			{Block: models.BlockHero, Position: models.PositionEarly},
		},
	},
}
