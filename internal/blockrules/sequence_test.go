package blockrules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thebtf/tailor/pkg/models"
)

func TestBuildBlockList_CoarsePositions(t *testing.T) {
	req := models.NewMergedBlockRequirements()
	req.Required[models.BlockHero] = true
	req.Required[models.BlockFAQ] = true
	req.Required[models.BlockRecipeGallery] = true
	req.SequenceHints = []models.SequenceHint{
		{Block: models.BlockHero, Position: models.PositionEarly},
		{Block: models.BlockFAQ, Position: models.PositionLate},
		{Block: models.BlockRecipeGallery, Position: models.PositionMiddle},
	}

	blocks := BuildBlockList(req)

	assert.Equal(t, models.BlockHero, blocks[0])
	assert.Less(t, indexOf(blocks, models.BlockRecipeGallery), indexOf(blocks, models.BlockFAQ))
	assert.Equal(t, models.BlockFollowUp, blocks[len(blocks)-1])
}

func TestBuildBlockList_AfterConstraintOverridesCoarse(t *testing.T) {
	req := models.NewMergedBlockRequirements()
	req.Required[models.BlockBestPick] = true
	req.Required[models.BlockComparisonTable] = true
	req.SequenceHints = []models.SequenceHint{
		{Block: models.BlockBestPick, Position: models.PositionEarly},
		// Without the pair constraint the table's neutral score would not
		// guarantee it lands after the pick.
		{Block: models.BlockComparisonTable, After: models.BlockBestPick},
	}

	blocks := BuildBlockList(req)
	assert.Less(t, indexOf(blocks, models.BlockBestPick), indexOf(blocks, models.BlockComparisonTable))
}

func TestBuildBlockList_FirstHintWins(t *testing.T) {
	req := models.NewMergedBlockRequirements()
	req.Required[models.BlockProductCards] = true
	req.Required[models.BlockTestimonials] = true
	// Hints arrive in priority-merge order; the early hint outranks late.
	req.SequenceHints = []models.SequenceHint{
		{Block: models.BlockProductCards, Position: models.PositionEarly},
		{Block: models.BlockProductCards, Position: models.PositionLate},
		{Block: models.BlockTestimonials, Position: models.PositionMiddle},
	}

	blocks := BuildBlockList(req)
	assert.Less(t, indexOf(blocks, models.BlockProductCards), indexOf(blocks, models.BlockTestimonials))
}

func TestNormalizeStructure_ContentBreakBetweenHeroes(t *testing.T) {
	out := NormalizeStructure([]models.BlockType{
		models.BlockHero,
		models.BlockBestPick,
		models.BlockFAQ,
	})

	assert.Equal(t, []models.BlockType{
		models.BlockHero,
		models.BlockContentBreak,
		models.BlockBestPick,
		models.BlockFAQ,
		models.BlockFollowUp,
	}, out)
}

func TestNormalizeStructure_SingleTrailingFollowUp(t *testing.T) {
	out := NormalizeStructure([]models.BlockType{
		models.BlockFollowUp,
		models.BlockHero,
		models.BlockFollowUp,
	})

	assert.Equal(t, []models.BlockType{models.BlockHero, models.BlockFollowUp}, out)
}

func TestNormalizeStructure_EmptyInput(t *testing.T) {
	out := NormalizeStructure(nil)
	assert.Equal(t, []models.BlockType{models.BlockFollowUp}, out)
}

func TestNormalizeStructure_NoAdjacentHeroesInvariant(t *testing.T) {
	out := NormalizeStructure([]models.BlockType{
		models.BlockHero,
		models.BlockEmpathyHero,
		models.BlockProductRecommendation,
		models.BlockBestPick,
	})

	for i := 1; i < len(out); i++ {
		assert.False(t, models.IsHeroLike(out[i-1]) && models.IsHeroLike(out[i]),
			"adjacent hero-like blocks at %d", i)
	}
	assert.Equal(t, models.BlockFollowUp, out[len(out)-1])
}
