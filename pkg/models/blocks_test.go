package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeBlockType(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected BlockType
		ok       bool
	}{
		{"canonical_name", "hero", BlockHero, true},
		{"canonical_compound", "comparison-table", BlockComparisonTable, true},
		{"alias_followup", "followup", BlockFollowUp, true},
		{"alias_underscore", "follow_up", BlockFollowUp, true},
		{"alias_recommendation", "recommendation", BlockProductRecommendation, true},
		{"alias_comparison", "comparison", BlockComparisonTable, true},
		{"alias_quiz", "quiz", BlockDiscoveryQuiz, true},
		{"unknown_name", "mega-banner", "", false},
		{"empty_name", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeBlockType(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestIsHeroLike(t *testing.T) {
	assert.True(t, IsHeroLike(BlockHero))
	assert.True(t, IsHeroLike(BlockEmpathyHero))
	assert.True(t, IsHeroLike(BlockProductRecommendation))
	assert.True(t, IsHeroLike(BlockBestPick))
	assert.False(t, IsHeroLike(BlockFAQ))
	assert.False(t, IsHeroLike(BlockContentBreak))
}

func TestPositionScore(t *testing.T) {
	assert.Equal(t, -10, PositionScore(PositionEarly))
	assert.Equal(t, 0, PositionScore(PositionMiddle))
	assert.Equal(t, 0, PositionScore(HintPosition("")))
	assert.Equal(t, 10, PositionScore(PositionLate))
}

func TestIntentEntities_Collection(t *testing.T) {
	e := &IntentEntities{
		Products: []string{"X5", "X4"},
		UseCases: []string{"smoothies"},
	}
	assert.Equal(t, []string{"X5", "X4"}, e.Collection("products"))
	assert.Equal(t, []string{"smoothies"}, e.Collection("useCases"))
	assert.Nil(t, e.Collection("features"))
	assert.Nil(t, e.Collection("bogus"))

	var nilEntities *IntentEntities
	assert.Nil(t, nilEntities.Collection("products"))
}
