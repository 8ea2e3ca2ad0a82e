package orchestrator

import (
	"github.com/rs/zerolog/log"

	"github.com/thebtf/tailor/internal/blockrules"
	"github.com/thebtf/tailor/internal/metrics"
	"github.com/thebtf/tailor/internal/reasoning"
	"github.com/thebtf/tailor/pkg/models"
)

// Inputs is everything finalize needs for one decision.
type Inputs struct {
	Query        string
	Intent       *models.IntentContext
	Requirements *models.MergedBlockRequirements

	// Proposal is nil when the reasoning call failed or its payload was
	// discarded at the parse boundary.
	Proposal *reasoning.Proposal

	// External confidence signals. Zero means absent, not zero confidence.
	SignalConfidence  float64
	ProfileConfidence float64
}

// Finalize produces the final ordered, gated block list. The pipeline is
// confidence reconciliation, threshold enforcement, rule enforcement, then
// structural invariants; every substitution is recorded as an ordered
// audit action, never silently dropped.
func Finalize(in Inputs) *models.ReasoningResult {
	if in.Requirements == nil {
		in.Requirements = models.NewMergedBlockRequirements()
	}

	if in.Proposal == nil {
		intentType := ""
		if in.Intent != nil {
			intentType = in.Intent.IntentType
		}
		log.Warn().Str("query", in.Query).Str("intent", intentType).Msg("Reasoning proposal unavailable, serving static fallback")
		metrics.RecordDecision(true)
		metrics.RecordFallback(intentType)
		return fallbackResult(intentType)
	}

	state := &finalizeState{
		blocks:       append([]models.BlockSelection(nil), in.Proposal.Blocks...),
		requirements: in.Requirements,
	}

	var intentClassifierConf float64
	if in.Intent != nil {
		intentClassifierConf = in.Intent.Confidence
	}
	confidence := reconcileConfidence(in.Query, in.Proposal.Confidence, []float64{
		intentClassifierConf,
		in.SignalConfidence,
		in.ProfileConfidence,
	})

	state.enforceThresholds(confidence)
	state.enforceRules(confidence)
	state.enforceStructure()
	state.renumber()

	metrics.RecordDecision(false)
	for _, a := range state.actions {
		metrics.RecordGatingAction(a.Action)
	}

	return &models.ReasoningResult{
		SelectedBlocks:   state.blocks,
		Confidence:       confidence,
		UserJourney:      in.Proposal.UserJourney,
		SelectedProducts: in.Proposal.SelectedProducts,
		Reasoning:        in.Proposal.Reasoning,
		Actions:          state.actions,
	}
}

// finalizeState carries the in-progress block list through the pipeline.
type finalizeState struct {
	blocks       []models.BlockSelection
	requirements *models.MergedBlockRequirements
	actions      []models.GatingAction
}

func (s *finalizeState) record(action string, block models.BlockType, reason string) {
	s.actions = append(s.actions, models.GatingAction{Action: action, Block: block, Reason: reason})
}

// enforceThresholds applies the confidence bands over productMatch (and
// the joint low-confidence discovery band).
func (s *finalizeState) enforceThresholds(c models.Confidence) {
	if c.ProductMatch < singleProductThreshold {
		if s.removeAll(models.BlockProductRecommendation) {
			s.record("remove", models.BlockProductRecommendation, "productMatch below 0.70")
		}
		if c.ProductMatch >= discoveryThreshold {
			anchor := s.indexAfterFirstHeroLike()
			for _, b := range []models.BlockType{models.BlockComparisonTable, models.BlockProductCards} {
				if s.index(b) == -1 {
					s.insertAt(anchor, models.BlockSelection{
						Type:      b,
						Rationale: "substituted for single-product recommendation",
					})
					s.record("insert", b, "comparison substitution under 0.70")
					anchor++
				}
			}
		}
	}

	if c.ProductMatch < bestPickThreshold {
		if s.removeAll(models.BlockBestPick) {
			s.record("remove", models.BlockBestPick, "productMatch below 0.50")
		}
	}

	if c.Intent < discoveryThreshold && c.ProductMatch < discoveryThreshold && !s.hasDiscovery() {
		s.insertAt(s.indexAfterFirstHeroLike(), models.BlockSelection{
			Type:      models.BlockDiscoveryQuiz,
			Rationale: "low confidence on both intent and product match",
		})
		s.record("insert", models.BlockDiscoveryQuiz, "both confidences below 0.35")
	}
}

// enforceRules removes every rule-excluded block, then inserts every
// rule-required block that the proposal is missing, placed per its
// sequence hint. A required block the active confidence band forbids is
// withheld rather than inserted: rule requirements never undo gating.
func (s *finalizeState) enforceRules(c models.Confidence) {
	for _, b := range models.AllBlockTypes {
		if s.requirements.Excluded[b] && s.removeAll(b) {
			s.record("remove", b, "excluded by rules")
		}
	}

	hints := make(map[models.BlockType]*models.SequenceHint, len(s.requirements.SequenceHints))
	for i := range s.requirements.SequenceHints {
		h := &s.requirements.SequenceHints[i]
		if _, ok := hints[h.Block]; !ok {
			hints[h.Block] = h
		}
	}

	// Walk required blocks in hint order so an after:X insert can find X
	// already in place.
	for _, b := range blockrules.BuildBlockList(s.requirements) {
		if !s.requirements.Required[b] || s.index(b) != -1 {
			continue
		}
		if reason, forbidden := bandForbids(b, c); forbidden {
			s.record("withhold", b, reason)
			continue
		}
		sel := models.BlockSelection{Type: b, Rationale: "required by rules"}
		s.insertAt(s.requiredInsertIndex(b, hints[b]), sel)
		s.record("insert", b, "required by rules")
	}
}

// bandForbids reports whether the confidence bands forbid a block from
// appearing at all, so rule enforcement cannot reintroduce what threshold
// enforcement removed.
func bandForbids(b models.BlockType, c models.Confidence) (string, bool) {
	switch b {
	case models.BlockProductRecommendation:
		if c.ProductMatch < singleProductThreshold {
			return "required block withheld, productMatch below 0.70", true
		}
	case models.BlockBestPick:
		if c.ProductMatch < bestPickThreshold {
			return "required block withheld, productMatch below 0.50", true
		}
	}
	return "", false
}

// requiredInsertIndex picks the insertion point for a missing required
// block: early goes right after any hero-like block or to the front, late
// right before the trailing follow-up, after:X right after X if present
// (else the tail), anything else just before the trailing follow-up if
// one exists, else after the hero.
func (s *finalizeState) requiredInsertIndex(block models.BlockType, hint *models.SequenceHint) int {
	if hint != nil {
		if hint.After != "" {
			if i := s.index(hint.After); i != -1 {
				return i + 1
			}
			return len(s.blocks)
		}
		switch hint.Position {
		case models.PositionEarly:
			return s.indexAfterFirstHeroLike()
		case models.PositionLate:
			return s.beforeTrailingFollowUp()
		}
	}
	if s.hasTrailingFollowUp() {
		return s.beforeTrailingFollowUp()
	}
	return s.indexAfterFirstHeroLike()
}

// enforceStructure applies the structural invariants: no two hero-like
// blocks adjacent (neutral content-break between them) and exactly one
// trailing follow-up.
func (s *finalizeState) enforceStructure() {
	// Exactly one follow-up, kept at the tail. Extras from the proposal
	// are dropped as audited actions.
	followUps := 0
	kept := s.blocks[:0]
	var followUp *models.BlockSelection
	for i := range s.blocks {
		if s.blocks[i].Type == models.BlockFollowUp {
			followUps++
			if followUp == nil {
				cp := s.blocks[i]
				followUp = &cp
			}
			continue
		}
		kept = append(kept, s.blocks[i])
	}
	s.blocks = kept
	if followUps > 1 {
		s.record("dedupe", models.BlockFollowUp, "multiple follow-up blocks collapsed to one")
	}

	var out []models.BlockSelection
	for _, b := range s.blocks {
		if len(out) > 0 && models.IsHeroLike(out[len(out)-1].Type) && models.IsHeroLike(b.Type) {
			out = append(out, models.BlockSelection{
				Type:      models.BlockContentBreak,
				Rationale: "separator between hero-style blocks",
			})
			s.record("insert", models.BlockContentBreak, "adjacent hero-style blocks")
		}
		out = append(out, b)
	}

	if followUp == nil {
		followUp = &models.BlockSelection{Type: models.BlockFollowUp, Rationale: "trailing follow-up"}
		s.record("insert", models.BlockFollowUp, "trailing follow-up missing")
	}
	s.blocks = append(out, *followUp)
}

// renumber assigns dense 1-based priorities after all edits.
func (s *finalizeState) renumber() {
	for i := range s.blocks {
		s.blocks[i].Priority = i + 1
	}
}

func (s *finalizeState) index(b models.BlockType) int {
	for i := range s.blocks {
		if s.blocks[i].Type == b {
			return i
		}
	}
	return -1
}

func (s *finalizeState) removeAll(b models.BlockType) bool {
	removed := false
	kept := s.blocks[:0]
	for i := range s.blocks {
		if s.blocks[i].Type == b {
			removed = true
			continue
		}
		kept = append(kept, s.blocks[i])
	}
	s.blocks = kept
	return removed
}

func (s *finalizeState) insertAt(i int, sel models.BlockSelection) {
	if i < 0 {
		i = 0
	}
	if i > len(s.blocks) {
		i = len(s.blocks)
	}
	s.blocks = append(s.blocks, models.BlockSelection{})
	copy(s.blocks[i+1:], s.blocks[i:])
	s.blocks[i] = sel
}

// indexAfterFirstHeroLike returns the slot right after the first
// hero-style block, or the front when none exists.
func (s *finalizeState) indexAfterFirstHeroLike() int {
	for i := range s.blocks {
		if models.IsHeroLike(s.blocks[i].Type) {
			return i + 1
		}
	}
	return 0
}

func (s *finalizeState) hasTrailingFollowUp() bool {
	n := len(s.blocks)
	return n > 0 && s.blocks[n-1].Type == models.BlockFollowUp
}

func (s *finalizeState) beforeTrailingFollowUp() int {
	if s.hasTrailingFollowUp() {
		return len(s.blocks) - 1
	}
	return len(s.blocks)
}

func (s *finalizeState) hasDiscovery() bool {
	for i := range s.blocks {
		if models.IsDiscovery(s.blocks[i].Type) {
			return true
		}
	}
	return false
}
