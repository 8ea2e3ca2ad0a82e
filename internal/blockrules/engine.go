package blockrules

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/tailor/pkg/models"
)

// Engine evaluates the block rule catalog against queries. The catalog is
// swapped atomically on reload, so evaluation never observes a partial
// catalog.
type Engine struct {
	mu    sync.RWMutex
	rules []models.BlockRule
}

// NewEngine creates an engine over the given catalog. With no catalog the
// default one is used.
func NewEngine(rules []models.BlockRule) *Engine {
	if rules == nil {
		rules = DefaultCatalog
	}
	return &Engine{rules: rules}
}

// Replace atomically swaps the catalog (used by the reload watcher).
func (e *Engine) Replace(rules []models.BlockRule) {
	e.mu.Lock()
	e.rules = rules
	e.mu.Unlock()
	log.Info().Int("rules", len(rules)).Msg("Block rule catalog replaced")
}

// RuleCount returns the current catalog size.
func (e *Engine) RuleCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules)
}

// Evaluate runs every rule's trigger conditions against the query and
// optional intent context, then merges all triggered rules' requirements
// with set-algebra precedence: excluded wins over required and enhanced,
// required wins over enhanced.
func (e *Engine) Evaluate(query string, intent *models.IntentContext) *models.MergedBlockRequirements {
	e.mu.RLock()
	rules := e.rules
	e.mu.RUnlock()

	var triggered []*models.BlockRule
	for i := range rules {
		if ruleTriggers(&rules[i], query, intent) {
			triggered = append(triggered, &rules[i])
		}
	}

	// Priority-ordered merge: highest priority first.
	sort.SliceStable(triggered, func(i, j int) bool {
		return triggered[i].Priority > triggered[j].Priority
	})

	merged := models.NewMergedBlockRequirements()
	for _, rule := range triggered {
		merged.TriggeredRules = append(merged.TriggeredRules, rule.Name)
		for _, b := range rule.Requires {
			merged.Required[b] = true
		}
		for _, b := range rule.Excludes {
			merged.Excluded[b] = true
		}
		for _, b := range rule.Enhances {
			merged.Enhanced[b] = true
		}
		merged.SequenceHints = append(merged.SequenceHints, rule.SequenceHints...)
		if rule.ContentGuidance != "" {
			merged.ContentGuidance = append(merged.ContentGuidance, rule.Name+": "+rule.ContentGuidance)
		}
	}

	// Exclusion precedence, then requirement precedence.
	for b := range merged.Excluded {
		delete(merged.Required, b)
		delete(merged.Enhanced, b)
	}
	for b := range merged.Required {
		delete(merged.Enhanced, b)
	}

	// Keep only hints whose block survived the merge.
	surviving := merged.SequenceHints[:0]
	for _, h := range merged.SequenceHints {
		if merged.Required[h.Block] || merged.Enhanced[h.Block] {
			surviving = append(surviving, h)
		}
	}
	merged.SequenceHints = surviving

	log.Debug().
		Strs("triggeredRules", merged.TriggeredRules).
		Int("required", len(merged.Required)).
		Int("excluded", len(merged.Excluded)).
		Msg("Block rules evaluated")

	return merged
}

// ruleTriggers applies OR semantics across a rule's conditions.
func ruleTriggers(rule *models.BlockRule, query string, intent *models.IntentContext) bool {
	for i := range rule.Triggers {
		if conditionMatches(&rule.Triggers[i], query, intent) {
			return true
		}
	}
	return false
}

// conditionMatches evaluates one trigger condition. Negative patterns are
// vetoes checked before positive matching: any negative match forces a
// non-trigger regardless of the positive pattern.
func conditionMatches(cond *models.TriggerCondition, query string, intent *models.IntentContext) bool {
	switch cond.Kind {
	case models.TriggerKeyword:
		if cond.Pattern == nil {
			return false
		}
		for _, neg := range cond.NegativePatterns {
			if neg.MatchString(query) {
				return false
			}
		}
		return cond.Pattern.MatchString(query)
	case models.TriggerIntent:
		return intent != nil && intent.IntentType == cond.IntentType
	case models.TriggerEntity:
		if intent == nil {
			return false
		}
		return len(intent.Entities.Collection(cond.EntityKind)) >= cond.MinCount
	}
	return false
}
