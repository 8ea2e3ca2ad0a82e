package blockrules

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/thebtf/tailor/pkg/models"
)

// EngineSuite covers trigger matching and the set-algebra merge.
type EngineSuite struct {
	suite.Suite
	engine *Engine
}

func (s *EngineSuite) SetupTest() {
	s.engine = NewEngine(nil)
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

// TestComparisonQuery: "X5 vs X4" must require both decision blocks, with
// the table sequenced after the pick.
func (s *EngineSuite) TestComparisonQuery() {
	merged := s.engine.Evaluate("X5 vs X4", nil)

	s.True(merged.Required[models.BlockBestPick])
	s.True(merged.Required[models.BlockComparisonTable])
	s.True(merged.Enhanced[models.BlockFeatureHighlights])
	s.Contains(merged.TriggeredRules, "comparison")

	blocks := BuildBlockList(merged)
	s.Less(indexOf(blocks, models.BlockBestPick), indexOf(blocks, models.BlockComparisonTable))
}

// TestSupportQuery: a problem query suppresses every selling block and
// outranks everything else.
func (s *EngineSuite) TestSupportQuery() {
	merged := s.engine.Evaluate("my blender is leaking, what's the warranty", nil)

	s.True(merged.Required[models.BlockSupportTriage])
	s.True(merged.Required[models.BlockFAQ])
	for _, b := range []models.BlockType{
		models.BlockProductRecommendation,
		models.BlockBestPick,
		models.BlockProductCards,
		models.BlockComparisonTable,
	} {
		s.True(merged.Excluded[b], "expected %s excluded", b)
	}
	// Highest priority merges first.
	s.Equal("support", merged.TriggeredRules[0])
}

// TestNegativePatternVeto: "best warranty" reads like a recommendation
// query but the warranty veto keeps the recommendation rule silent.
func (s *EngineSuite) TestNegativePatternVeto() {
	merged := s.engine.Evaluate("which blender has the best warranty", nil)

	s.NotContains(merged.TriggeredRules, "recommendation_query")
	s.Contains(merged.TriggeredRules, "support")
	// Support's exclusion wins regardless.
	s.True(merged.Excluded[models.BlockBestPick])
	s.False(merged.Required[models.BlockBestPick])
}

// TestSetInvariants: required, excluded and enhanced are pairwise disjoint
// after the merge, for any query.
func (s *EngineSuite) TestSetInvariants() {
	queries := []string{
		"X5 vs X4",
		"best blender for smoothies under $100",
		"my blender is broken, need warranty repair",
		"gift for my mom who loves baby food recipes",
		"compare the best budget blender deals",
		"hello",
	}
	for _, q := range queries {
		merged := s.engine.Evaluate(q, nil)
		for b := range merged.Required {
			s.False(merged.Excluded[b], "query %q: %s both required and excluded", q, b)
			s.False(merged.Enhanced[b], "query %q: %s both required and enhanced", q, b)
		}
		for b := range merged.Enhanced {
			s.False(merged.Excluded[b], "query %q: %s both enhanced and excluded", q, b)
		}
	}
}

// TestCatchAllRules: even a contentless query gets the hero and follow-up.
func (s *EngineSuite) TestCatchAllRules() {
	merged := s.engine.Evaluate("hello", nil)
	s.True(merged.Required[models.BlockHero])
	s.True(merged.Required[models.BlockFollowUp])
	s.Contains(merged.TriggeredRules, "default_hero")
	s.Contains(merged.TriggeredRules, "default_followup")
}

// TestMedicalAccessibility: the empathy rule swaps the hero variant.
func (s *EngineSuite) TestMedicalAccessibility() {
	merged := s.engine.Evaluate("easy to hold blender for arthritis", nil)

	s.True(merged.Required[models.BlockEmpathyHero])
	s.True(merged.Excluded[models.BlockHero])
	s.False(merged.Required[models.BlockHero], "default hero loses to the exclusion")
	s.True(merged.Enhanced[models.BlockTestimonials])
}

// TestIntentTrigger: a classified intent triggers without keyword match.
func (s *EngineSuite) TestIntentTrigger() {
	merged := s.engine.Evaluate("hi there", &models.IntentContext{IntentType: "support"})
	s.Contains(merged.TriggeredRules, "support")
	s.True(merged.Required[models.BlockSupportTriage])
}

// TestEntityTrigger: two product entities read as a comparison.
func (s *EngineSuite) TestEntityTrigger() {
	merged := s.engine.Evaluate("help me decide", &models.IntentContext{
		IntentType: "unknown",
		Entities:   &models.IntentEntities{Products: []string{"X5", "X4"}},
	})
	s.Contains(merged.TriggeredRules, "comparison")
	s.True(merged.Required[models.BlockBestPick])
}

// TestHintsFilteredToSurvivors: hints for merged-away blocks are dropped.
func (s *EngineSuite) TestHintsFilteredToSurvivors() {
	merged := s.engine.Evaluate("my blender is leaking, what's the warranty", nil)
	for _, h := range merged.SequenceHints {
		s.True(merged.Required[h.Block] || merged.Enhanced[h.Block],
			"hint for %s survived without its block", h.Block)
	}
}

// TestReplaceSwapsCatalog: evaluation uses the swapped-in catalog.
func (s *EngineSuite) TestReplaceSwapsCatalog() {
	s.Equal(len(DefaultCatalog), s.engine.RuleCount())

	s.engine.Replace(DefaultCatalog[:2])
	s.Equal(2, s.engine.RuleCount())

	// Only support and medical_accessibility remain; catch-alls are gone.
	merged := s.engine.Evaluate("hello", nil)
	s.Empty(merged.TriggeredRules)
	s.False(merged.Required[models.BlockHero])
}

func indexOf(blocks []models.BlockType, b models.BlockType) int {
	for i, x := range blocks {
		if x == b {
			return i
		}
	}
	return -1
}
