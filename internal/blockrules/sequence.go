package blockrules

import (
	"sort"

	"github.com/thebtf/tailor/pkg/models"
)

// BuildBlockList turns merged requirements into an ordered, deduplicated
// block list: required union enhanced, ordered by sequence hints. Explicit
// after/before constraints override the coarse early/middle/late score for
// any pair where both named blocks are present. The result is structurally
// normalized (see NormalizeStructure).
func BuildBlockList(req *models.MergedBlockRequirements) []models.BlockType {
	blocks := make([]models.BlockType, 0, len(req.Required)+len(req.Enhanced))
	for _, b := range models.AllBlockTypes {
		if req.Required[b] || req.Enhanced[b] {
			blocks = append(blocks, b)
		}
	}

	hints := hintIndex(req.SequenceHints)

	sort.SliceStable(blocks, func(i, j int) bool {
		a, b := blocks[i], blocks[j]
		ha, hb := hints[a], hints[b]

		// Explicit pair constraints take precedence over coarse scores.
		// An "after" constraint inverts the normal comparison for the pair.
		if ha != nil {
			if ha.After == b {
				return false
			}
			if ha.Before == b {
				return true
			}
		}
		if hb != nil {
			if hb.After == a {
				return true
			}
			if hb.Before == a {
				return false
			}
		}

		return hintScore(ha) < hintScore(hb)
	})

	return NormalizeStructure(blocks)
}

// hintIndex keeps the first hint per block: the hint list arrives in
// priority-merge order, so higher-priority rules win conflicting hints.
func hintIndex(hints []models.SequenceHint) map[models.BlockType]*models.SequenceHint {
	idx := make(map[models.BlockType]*models.SequenceHint, len(hints))
	for i := range hints {
		h := &hints[i]
		if _, exists := idx[h.Block]; !exists {
			idx[h.Block] = h
		}
	}
	return idx
}

func hintScore(h *models.SequenceHint) int {
	if h == nil {
		return 0
	}
	return models.PositionScore(h.Position)
}

// NormalizeStructure enforces the structural invariants shared by the rule
// engine and the orchestrator: no two hero-like blocks adjacent (a neutral
// content-break is inserted between any such pair) and exactly one
// follow-up block at the tail.
func NormalizeStructure(blocks []models.BlockType) []models.BlockType {
	// Exactly one follow-up, at the tail.
	withoutFollowUp := make([]models.BlockType, 0, len(blocks)+1)
	for _, b := range blocks {
		if b == models.BlockFollowUp {
			continue
		}
		withoutFollowUp = append(withoutFollowUp, b)
	}

	out := make([]models.BlockType, 0, len(withoutFollowUp)+2)
	for _, b := range withoutFollowUp {
		if len(out) > 0 && models.IsHeroLike(out[len(out)-1]) && models.IsHeroLike(b) {
			out = append(out, models.BlockContentBreak)
		}
		out = append(out, b)
	}
	return append(out, models.BlockFollowUp)
}
