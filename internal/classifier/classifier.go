// Package classifier turns raw interaction events into typed signals.
package classifier

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/tailor/pkg/models"
)

// RawEvent is a raw interaction event from the event-capture collaborator.
type RawEvent struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// patternClassifier is one entry of the ordered classification table.
// The table order is the implicit priority: the first matching entry wins
// and there is no fallthrough.
type patternClassifier struct {
	pattern  *regexp.Regexp
	category models.SignalCategory
	label    string
	weight   float64
}

// pageViewClassifiers classify page views by URL and title text.
var pageViewClassifiers = []patternClassifier{
	{regexp.MustCompile(`(?i)/compare|versus|\bvs\b`), models.CategoryComparison, "comparison_page_view", models.WeightHigh},
	{regexp.MustCompile(`(?i)/recipes?/|recipe`), models.CategoryRecipeView, "recipe_page_view", models.WeightMedium},
	{regexp.MustCompile(`(?i)/support|/warranty|/help|troubleshoot`), models.CategorySupport, "support_page_view", models.WeightHigh},
	{regexp.MustCompile(`(?i)/gifts?/|gift guide`), models.CategoryGiftIntent, "gift_page_view", models.WeightMedium},
	{regexp.MustCompile(`(?i)/specs|specification|tech specs`), models.CategorySpecsView, "specs_page_view", models.WeightMedium},
	{regexp.MustCompile(`(?i)/reviews?|ratings`), models.CategoryReviewsView, "reviews_page_view", models.WeightMedium},
	{regexp.MustCompile(`(?i)/sale|/deals?|clearance|discount`), models.CategoryPriceCheck, "price_page_view", models.WeightMedium},
	{regexp.MustCompile(`(?i)/products?/|/shop/`), models.CategoryProductView, "product_page_view", models.WeightMedium},
	{regexp.MustCompile(`(?i)/cart|/checkout`), models.CategoryCartAction, "cart_page_view", models.WeightVeryHigh},
}

// clickClassifiers classify clicks by element text, href and class.
var clickClassifiers = []patternClassifier{
	{regexp.MustCompile(`(?i)add to cart|buy now|checkout`), models.CategoryCartAction, "cart_click", models.WeightVeryHigh},
	{regexp.MustCompile(`(?i)compare|vs\.?\s`), models.CategoryComparison, "comparison_click", models.WeightHigh},
	{regexp.MustCompile(`(?i)price|sale|deal|coupon`), models.CategoryPriceCheck, "price_click", models.WeightMedium},
	{regexp.MustCompile(`(?i)warranty|support|repair|contact us`), models.CategorySupport, "support_click", models.WeightHigh},
	{regexp.MustCompile(`(?i)gift|registry`), models.CategoryGiftIntent, "gift_click", models.WeightMedium},
	{regexp.MustCompile(`(?i)spec|dimension|wattage`), models.CategorySpecsView, "specs_click", models.WeightMedium},
	{regexp.MustCompile(`(?i)review|rating|stars`), models.CategoryReviewsView, "reviews_click", models.WeightMedium},
	{regexp.MustCompile(`(?i)recipe`), models.CategoryRecipeView, "recipe_click", models.WeightMedium},
}

// productIDPattern recognizes product model identifiers like "X5" or "Pro750".
var productIDPattern = regexp.MustCompile(`\b([A-Z][A-Za-z]*\d{1,4})\b`)

// Classify turns a raw event into a typed Signal. Pure: all side effects
// (sending, storing) belong to the messaging collaborator. Unknown event
// types produce a generic low-weight signal so no event is ever lost.
func Classify(event RawEvent) *models.Signal {
	return classify(event, false)
}

func classify(event RawEvent, nested bool) *models.Signal {
	now := time.Now()
	sig := &models.Signal{
		ID:             newSignalID(now),
		Type:           models.SignalType(event.Type),
		TimestampEpoch: now.UnixMilli(),
		Data:           StripEmpty(event.Data),
	}

	switch models.SignalType(event.Type) {
	case models.SignalPageView:
		classifyPageView(sig, event)
	case models.SignalClick:
		classifyClick(sig, event, nested)
	case models.SignalSearch:
		classifySearch(sig, event)
	case models.SignalScroll:
		sig.Category = models.CategoryDeepScroll
		sig.Label = "deep_scroll"
		setWeight(sig, models.WeightLow)
	case models.SignalReferrer:
		sig.Category = models.CategoryCampaignArrive
		sig.Label = "referrer_" + stringField(event.Data, "domain")
		setWeight(sig, models.WeightLow)
	case models.SignalVideoComplete:
		sig.Category = models.CategoryVideoEngage
		sig.Label = "video_complete"
		setWeight(sig, models.WeightHigh)
	default:
		log.Debug().Str("type", event.Type).Msg("Unknown event type, classifying as generic")
		sig.Type = models.SignalGeneric
		sig.Category = models.CategoryBrowsing
		sig.Label = "generic_" + event.Type
		setWeight(sig, models.WeightLow)
	}

	attachProducts(sig, event)
	return sig
}

// classifyPageView runs the ordered page-view table over URL and title.
func classifyPageView(sig *models.Signal, event RawEvent) {
	text := concatFields(event.Data, "url", "title")
	for _, c := range pageViewClassifiers {
		if c.pattern.MatchString(text) {
			sig.Category = c.category
			sig.Label = c.label
			setWeight(sig, c.weight)
			return
		}
	}
	sig.Category = models.CategoryBrowsing
	sig.Label = "page_view"
	setWeight(sig, models.WeightLow)
}

// classifyClick runs the ordered click table over element text, href and
// class. A click with no classifier match but a navigable href is
// classified by its destination as a synthetic page view, yielding a
// nav_to_<category> label at low weight. The recursion is one level deep.
func classifyClick(sig *models.Signal, event RawEvent, nested bool) {
	text := concatFields(event.Data, "text", "href", "class")
	for _, c := range clickClassifiers {
		if c.pattern.MatchString(text) {
			sig.Category = c.category
			sig.Label = c.label
			setWeight(sig, c.weight)
			return
		}
	}

	href := stringField(event.Data, "href")
	if !nested && href != "" && !strings.HasPrefix(href, "#") {
		dest := classify(RawEvent{
			Type: string(models.SignalPageView),
			Data: map[string]interface{}{"url": href},
		}, true)
		if dest.Category != models.CategoryBrowsing {
			sig.Category = dest.Category
			sig.Label = "nav_to_" + string(dest.Category)
			setWeight(sig, models.WeightLow)
			return
		}
	}

	sig.Category = models.CategoryBrowsing
	sig.Label = "click"
	setWeight(sig, models.WeightLow)
}

// classifySearch always forces VERY_HIGH weight: search intent is the
// single strongest behavioral signal regardless of any other classifier.
func classifySearch(sig *models.Signal, event RawEvent) {
	sig.Category = models.CategorySearchQuery
	query := stringField(event.Data, "query")
	sig.Label = "search"
	if query != "" {
		sig.Label = "search_" + strings.ToLower(strings.Join(strings.Fields(query), "_"))
	}
	setWeight(sig, models.WeightVeryHigh)
}

// attachProducts extracts product identifiers from the event context.
func attachProducts(sig *models.Signal, event RawEvent) {
	if p := stringField(event.Data, "product"); p != "" {
		sig.Product = p
	}
	text := concatFields(event.Data, "url", "title", "text", "query")
	matches := productIDPattern.FindAllString(text, -1)
	if len(matches) >= 2 {
		seen := make(map[string]bool, len(matches))
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				sig.ComparedProducts = append(sig.ComparedProducts, m)
			}
		}
		if sig.Product == "" && len(sig.ComparedProducts) > 0 {
			sig.Product = sig.ComparedProducts[0]
		}
	} else if len(matches) == 1 && sig.Product == "" {
		sig.Product = matches[0]
	}
}

func setWeight(sig *models.Signal, w float64) {
	sig.Weight = w
	sig.BaseWeight = w
	sig.WeightLabel = models.WeightLabel(w)
}

// newSignalID builds a monotonically-distinguishable id: millisecond
// timestamp plus a random suffix so collisions never overwrite prior
// signals in storage.
func newSignalID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}

// StripEmpty recursively removes nil and empty-string values from a
// context map to reduce persisted payload size. Zero, false and populated
// nested maps are kept; nested maps that strip to empty are dropped.
func StripEmpty(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return nil
	}
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			if val == "" {
				continue
			}
			out[k] = val
		case map[string]interface{}:
			stripped := StripEmpty(val)
			if len(stripped) == 0 {
				continue
			}
			out[k] = stripped
		default:
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func stringField(data map[string]interface{}, key string) string {
	if data == nil {
		return ""
	}
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func concatFields(data map[string]interface{}, keys ...string) string {
	var b strings.Builder
	for _, k := range keys {
		if v := stringField(data, k); v != "" {
			b.WriteString(v)
			b.WriteByte(' ')
		}
	}
	return b.String()
}
