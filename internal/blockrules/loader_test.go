package blockrules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/tailor/pkg/models"
)

func writeOverlay(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func findRule(rules []models.BlockRule, id string) *models.BlockRule {
	for i := range rules {
		if rules[i].ID == id {
			return &rules[i]
		}
	}
	return nil
}

func TestLoadCatalog_AppendsNewRule(t *testing.T) {
	path := writeOverlay(t, `
rules:
  - id: seasonal_sale
    category: price
    priority: 58
    triggers:
      - kind: keyword
        pattern: "(?i)black friday|cyber monday"
    requires: [product-cards]
    enhances: [comparison-table]
    sequence_hints:
      - block: product-cards
        position: middle
    content_guidance: "Lead with the limited-time price."
`)

	rules, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Len(t, rules, len(DefaultCatalog)+1)

	rule := findRule(rules, "seasonal_sale")
	require.NotNil(t, rule)
	assert.Equal(t, "seasonal_sale", rule.Name, "name defaults to id")
	assert.Equal(t, 58, rule.Priority)
	assert.Equal(t, []models.BlockType{models.BlockProductCards}, rule.Requires)
	assert.True(t, rule.Triggers[0].Pattern.MatchString("Black Friday deals"))
}

func TestLoadCatalog_ReplacesExistingRuleInPlace(t *testing.T) {
	path := writeOverlay(t, `
rules:
  - id: gift
    name: gift_v2
    category: occasion
    priority: 62
    triggers:
      - kind: keyword
        pattern: "(?i)gift|birthday"
    requires: [product-cards, buying-guide]
`)

	rules, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Len(t, rules, len(DefaultCatalog))

	rule := findRule(rules, "gift")
	require.NotNil(t, rule)
	assert.Equal(t, "gift_v2", rule.Name)
	assert.Equal(t, 62, rule.Priority)

	// The replacement keeps the default rule's slot in the catalog.
	for i := range DefaultCatalog {
		if DefaultCatalog[i].ID == "gift" {
			assert.Equal(t, "gift", rules[i].ID)
		}
	}
}

func TestLoadCatalog_AliasBlockNames(t *testing.T) {
	path := writeOverlay(t, `
rules:
  - id: alias_rule
    priority: 10
    triggers:
      - kind: keyword
        pattern: "(?i)anything"
    requires: [followup, recommendation]
`)

	rules, err := LoadCatalog(path)
	require.NoError(t, err)
	rule := findRule(rules, "alias_rule")
	require.NotNil(t, rule)
	assert.Equal(t, []models.BlockType{models.BlockFollowUp, models.BlockProductRecommendation}, rule.Requires)
}

func TestLoadCatalog_RejectsWholeFileOnError(t *testing.T) {
	tests := []struct {
		name    string
		overlay string
	}{
		{
			"invalid_regex",
			`
rules:
  - id: ok_rule
    priority: 5
    triggers:
      - kind: keyword
        pattern: "(?i)fine"
    requires: [hero]
  - id: bad_rule
    priority: 5
    triggers:
      - kind: keyword
        pattern: "([unclosed"
    requires: [hero]
`,
		},
		{
			"unknown_block",
			`
rules:
  - id: bad_block
    priority: 5
    triggers:
      - kind: keyword
        pattern: "(?i)fine"
    requires: [mega-banner]
`,
		},
		{
			"missing_id",
			`
rules:
  - priority: 5
    triggers:
      - kind: keyword
        pattern: "(?i)fine"
`,
		},
		{
			"no_triggers",
			`
rules:
  - id: silent
    priority: 5
    requires: [hero]
`,
		},
		{
			"unknown_trigger_kind",
			`
rules:
  - id: strange
    priority: 5
    triggers:
      - kind: telepathy
`,
		},
		{
			"entity_without_min_count",
			`
rules:
  - id: entities
    priority: 5
    triggers:
      - kind: entity
        entity: products
`,
		},
		{"not_yaml", "rules: ["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeOverlay(t, tt.overlay)
			_, err := LoadCatalog(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
