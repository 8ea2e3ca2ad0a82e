// Package profile maintains the per-session behavioral profile and its
// confidence score by re-evaluating a fixed inference rule catalog over
// the accumulated signal log.
package profile

import (
	"strings"

	"github.com/thebtf/tailor/pkg/models"
)

// EvalContext is what a rule condition sees: the full signal log and the
// profile as mutated by earlier rules in the same pass. Rules that read
// profile state depend on catalog declaration order.
type EvalContext struct {
	Signals []*models.Signal
	Profile *models.Profile
}

// CountCategory counts signals with the given category.
func (c *EvalContext) CountCategory(cat models.SignalCategory) int {
	n := 0
	for _, s := range c.Signals {
		if s.Category == cat {
			n++
		}
	}
	return n
}

// CountMentions counts signals whose text mentions the substring
// (case-insensitive, across label and common context fields).
func (c *EvalContext) CountMentions(substr string) int {
	n := 0
	for _, s := range c.Signals {
		if strings.Contains(signalText(s), substr) {
			n++
		}
	}
	return n
}

// HasSearchMention reports whether any search signal mentions the substring.
func (c *EvalContext) HasSearchMention(substr string) bool {
	for _, s := range c.Signals {
		if s.Type == models.SignalSearch && strings.Contains(signalText(s), substr) {
			return true
		}
	}
	return false
}

func signalText(s *models.Signal) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(s.Label))
	for _, key := range []string{"url", "title", "text", "query", "category"} {
		if v, ok := s.Data[key].(string); ok {
			b.WriteByte(' ')
			b.WriteString(strings.ToLower(v))
		}
	}
	return b.String()
}

// InferenceRule is one declarative inference: a condition over the signal
// log plus an effect on the profile, with a fixed confidence contribution.
type InferenceRule struct {
	Name       string
	Confidence float64
	When       func(*EvalContext) bool
	Apply      func(*models.Profile)
}

// Rules is the fixed inference catalog. Declaration order is load-bearing:
// rules are evaluated top to bottom within a pass and later rules may read
// profile state written by earlier ones (see gift_buyer_compare). Keep it
// a declared slice, never a map.
var Rules = []InferenceRule{
	{
		Name:       "new_parent",
		Confidence: 0.15,
		When: func(c *EvalContext) bool {
			return c.CountMentions("baby") >= 2
		},
		Apply: func(p *models.Profile) {
			p.AddSegment("new_parent")
			p.SetScalar(models.AttrLifeStage, "young_family")
		},
	},
	{
		Name:       "baby_food_use_case",
		Confidence: 0.10,
		When: func(c *EvalContext) bool {
			return c.CountMentions("baby") >= 1 &&
				(c.CountCategory(models.CategoryRecipeView) >= 1 || c.HasSearchMention("baby"))
		},
		Apply: func(p *models.Profile) {
			p.AddUseCase("baby_food")
		},
	},
	{
		Name:       "gift_buyer",
		Confidence: 0.15,
		When: func(c *EvalContext) bool {
			return c.CountCategory(models.CategoryGiftIntent) >= 2 || c.HasSearchMention("gift")
		},
		Apply: func(p *models.Profile) {
			p.AddSegment("gift_buyer")
			p.SetScalar(models.AttrShoppingFor, "someone_else")
		},
	},
	{
		// Reads the gift_buyer conclusion written earlier in the same pass.
		Name:       "gift_buyer_compare",
		Confidence: 0.10,
		When: func(c *EvalContext) bool {
			return c.Profile.HasSegment("gift_buyer") &&
				c.CountCategory(models.CategoryComparison) >= 1
		},
		Apply: func(p *models.Profile) {
			p.AddSegment("gift_buyer_compare")
			p.SetScalar(models.AttrDecisionStyle, "comparison_shopper")
		},
	},
	{
		Name:       "price_sensitive",
		Confidence: 0.12,
		When: func(c *EvalContext) bool {
			return c.CountCategory(models.CategoryPriceCheck) >= 2
		},
		Apply: func(p *models.Profile) {
			p.SetScalar(models.AttrPriceSensitivity, "budget_conscious")
		},
	},
	{
		Name:       "premium_leaning",
		Confidence: 0.10,
		When: func(c *EvalContext) bool {
			return c.CountMentions("premium") >= 2 || c.CountMentions("professional") >= 2
		},
		Apply: func(p *models.Profile) {
			p.SetScalar(models.AttrPriceSensitivity, "premium_leaning")
		},
	},
	{
		Name:       "researcher_style",
		Confidence: 0.12,
		When: func(c *EvalContext) bool {
			total := c.CountCategory(models.CategoryComparison) +
				c.CountCategory(models.CategorySpecsView) +
				c.CountCategory(models.CategoryReviewsView)
			return total >= 3
		},
		Apply: func(p *models.Profile) {
			p.SetScalar(models.AttrDecisionStyle, "researcher")
		},
	},
	{
		Name:       "ready_to_buy",
		Confidence: 0.20,
		When: func(c *EvalContext) bool {
			return c.CountCategory(models.CategoryCartAction) >= 1
		},
		Apply: func(p *models.Profile) {
			p.SetScalar(models.AttrPurchaseReadiness, "high")
		},
	},
	{
		Name:       "replacement_buyer",
		Confidence: 0.10,
		When: func(c *EvalContext) bool {
			return c.CountCategory(models.CategorySupport) >= 1 &&
				c.CountCategory(models.CategoryProductView) >= 1
		},
		Apply: func(p *models.Profile) {
			p.SetScalar(models.AttrShoppingFor, "replacement")
			p.SetScalar(models.AttrOccasion, "replacement")
		},
	},
	{
		Name:       "smoothie_use_case",
		Confidence: 0.08,
		When: func(c *EvalContext) bool {
			return c.CountMentions("smoothie") >= 1
		},
		Apply: func(p *models.Profile) {
			p.AddUseCase("smoothies")
		},
	},
	{
		Name:       "meal_prep_use_case",
		Confidence: 0.08,
		When: func(c *EvalContext) bool {
			return c.CountMentions("meal prep") >= 1
		},
		Apply: func(p *models.Profile) {
			p.AddUseCase("meal_prep")
		},
	},
	{
		Name:       "returning_visitor_brand",
		Confidence: 0.08,
		When: func(c *EvalContext) bool {
			return c.CountCategory(models.CategoryCampaignArrive) >= 1 && len(c.Signals) >= 5
		},
		Apply: func(p *models.Profile) {
			p.SetScalar(models.AttrBrandRelationship, "returning")
		},
	},
}
