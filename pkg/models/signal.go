// Package models contains domain models for tailor.
package models

// SignalType identifies the kind of raw interaction an event described.
type SignalType string

const (
	SignalPageView      SignalType = "page_view"
	SignalClick         SignalType = "click"
	SignalSearch        SignalType = "search"
	SignalScroll        SignalType = "scroll"
	SignalReferrer      SignalType = "referrer"
	SignalVideoComplete SignalType = "video_complete"
	SignalGeneric       SignalType = "generic"
)

// SignalCategory is the behavioral category assigned by the classifier.
type SignalCategory string

const (
	CategoryProductView    SignalCategory = "product_view"
	CategoryComparison     SignalCategory = "comparison"
	CategoryRecipeView     SignalCategory = "recipe_view"
	CategoryPriceCheck     SignalCategory = "price_check"
	CategorySupport        SignalCategory = "support"
	CategoryGiftIntent     SignalCategory = "gift_intent"
	CategoryCartAction     SignalCategory = "cart_action"
	CategorySpecsView      SignalCategory = "specs_view"
	CategoryReviewsView    SignalCategory = "reviews_view"
	CategorySearchQuery    SignalCategory = "search_query"
	CategoryVideoEngage    SignalCategory = "video_engagement"
	CategoryDeepScroll     SignalCategory = "deep_scroll"
	CategoryCampaignArrive SignalCategory = "campaign_arrival"
	CategoryBrowsing       SignalCategory = "browsing"
)

// Weight tiers. A signal's weight is one of these four values at creation
// and is never recomputed afterwards, with the single exception of dwell
// re-weighting on page views (see Signal.ApplyDwell).
const (
	WeightLow      = 0.05
	WeightMedium   = 0.10
	WeightHigh     = 0.15
	WeightVeryHigh = 0.20
)

// WeightLabel names a weight tier for logs and persisted payloads.
func WeightLabel(w float64) string {
	switch {
	case w >= WeightVeryHigh:
		return "very_high"
	case w >= WeightHigh:
		return "high"
	case w >= WeightMedium:
		return "medium"
	default:
		return "low"
	}
}

// DwellBoost is one step of the dwell-time re-weighting table.
type DwellBoost struct {
	MinSeconds int
	Boost      float64
}

// DwellBoosts maps dwell thresholds to absolute boosts over a page-view
// signal's original base weight. Crossing a later threshold replaces the
// earlier boost; boosts are never added together.
var DwellBoosts = []DwellBoost{
	{MinSeconds: 30, Boost: 0.02},
	{MinSeconds: 60, Boost: 0.05},
	{MinSeconds: 120, Boost: 0.08},
	{MinSeconds: 300, Boost: 0.10},
}

// Signal is a single classified unit of observed user behavior.
// Immutable once created, except for the dwell re-weighting of page views.
type Signal struct {
	ID               string                 `json:"id"`
	Type             SignalType             `json:"type"`
	Category         SignalCategory         `json:"category"`
	Label            string                 `json:"label"`
	Weight           float64                `json:"weight"`
	BaseWeight       float64                `json:"base_weight"`
	WeightLabel      string                 `json:"weight_label"`
	TimestampEpoch   int64                  `json:"timestamp"`
	Data             map[string]interface{} `json:"data,omitempty"`
	Product          string                 `json:"product,omitempty"`
	ComparedProducts []string               `json:"compared_products,omitempty"`
}

// ApplyDwell revises a page-view signal's weight for the given dwell time.
// The boost is an absolute amount over the original base weight, so
// re-applying a later threshold replaces the previous boost. Returns true
// if the weight changed.
func (s *Signal) ApplyDwell(dwellSeconds int) bool {
	if s.Type != SignalPageView {
		return false
	}
	boost := 0.0
	for _, b := range DwellBoosts {
		if dwellSeconds >= b.MinSeconds {
			boost = b.Boost
		}
	}
	next := s.BaseWeight + boost
	if next == s.Weight {
		return false
	}
	s.Weight = next
	s.WeightLabel = WeightLabel(next)
	return true
}
