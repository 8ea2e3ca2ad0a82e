// Package orchestrator merges the rule engine's constraints with the
// reasoning collaborator's proposal under dual confidence gating, and is
// the only component with write access to the final block list.
package orchestrator

import (
	"regexp"

	"github.com/thebtf/tailor/pkg/models"
)

// Confidence floors. External signals may not drag intent confidence
// below intentFloor; explicit comparison or recommendation queries raise
// the product-match floor so explicit user intent is never fully
// suppressed by weak passive browsing signals.
const (
	intentFloor              = 0.5
	productMatchFloor        = 0.4
	productMatchFloorExplict = 0.55
)

// Gating thresholds over the reconciled productMatch confidence.
const (
	singleProductThreshold = 0.70
	bestPickThreshold      = 0.50
	discoveryThreshold     = 0.35
)

var (
	comparisonQueryPattern = regexp.MustCompile(`(?i)\bvs\.?\b|versus|\bcompare\b|difference between`)
	superlativePattern     = regexp.MustCompile(`(?i)\bbest\b|recommend|top rated|which (one|should)|should i (buy|get)`)
	productModelPattern    = regexp.MustCompile(`\b[A-Z][A-Za-z]*\d{1,4}\b`)
)

// isExplicitProductQuery reports whether the query carries explicit
// comparison or recommendation intent: comparison keywords, at least two
// recognized product-model identifiers, or superlative language.
func isExplicitProductQuery(query string) bool {
	if comparisonQueryPattern.MatchString(query) {
		return true
	}
	if superlativePattern.MatchString(query) {
		return true
	}
	return len(productModelPattern.FindAllString(query, -1)) >= 2
}

// reconcileConfidence combines the reasoning call's own estimate with the
// minimum of the available external confidence signals. The reasoning
// call's uncertainty can lower the result; external signals can only pull
// it down to the floor.
func reconcileConfidence(query string, proposal models.Confidence, external []float64) models.Confidence {
	ext := minAvailable(external)

	pmFloor := productMatchFloor
	if isExplicitProductQuery(query) {
		pmFloor = productMatchFloorExplict
	}

	return models.Confidence{
		Intent:       models.Clamp01(minf(proposal.Intent, maxf(ext, intentFloor))),
		ProductMatch: models.Clamp01(minf(proposal.ProductMatch, maxf(ext, pmFloor))),
	}
}

// minAvailable takes the minimum of the present (non-zero) external
// confidence signals. An absent signal is skipped rather than treated as
// zero; with none present the external confidence defaults to 0.5.
func minAvailable(values []float64) float64 {
	min, found := 1.0, false
	for _, v := range values {
		if v <= 0 {
			continue
		}
		v = models.Clamp01(v)
		if v < min {
			min = v
		}
		found = true
	}
	if !found {
		return 0.5
	}
	return min
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
