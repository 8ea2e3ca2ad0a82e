package models

import "regexp"

// BlockType is a named content unit that can appear on a generated page.
// The enumeration is closed: anything the reasoning collaborator emits is
// normalized through NormalizeBlockType before internal logic touches it.
type BlockType string

const (
	BlockHero                  BlockType = "hero"
	BlockEmpathyHero           BlockType = "empathy-hero"
	BlockProductRecommendation BlockType = "product-recommendation"
	BlockBestPick              BlockType = "best-pick"
	BlockComparisonTable       BlockType = "comparison-table"
	BlockProductCards          BlockType = "product-cards"
	BlockDiscoveryQuiz         BlockType = "discovery-quiz"
	BlockBuyingGuide           BlockType = "buying-guide"
	BlockFeatureHighlights     BlockType = "feature-highlights"
	BlockRecipeGallery         BlockType = "recipe-gallery"
	BlockTestimonials          BlockType = "testimonials"
	BlockSupportTriage         BlockType = "support-triage"
	BlockFAQ                   BlockType = "faq"
	BlockContentBreak          BlockType = "content-break"
	BlockFollowUp              BlockType = "follow-up"
)

// AllBlockTypes is the closed enumeration of recognized block names.
var AllBlockTypes = []BlockType{
	BlockHero,
	BlockEmpathyHero,
	BlockProductRecommendation,
	BlockBestPick,
	BlockComparisonTable,
	BlockProductCards,
	BlockDiscoveryQuiz,
	BlockBuyingGuide,
	BlockFeatureHighlights,
	BlockRecipeGallery,
	BlockTestimonials,
	BlockSupportTriage,
	BlockFAQ,
	BlockContentBreak,
	BlockFollowUp,
}

var validBlockTypes = func() map[BlockType]bool {
	m := make(map[BlockType]bool, len(AllBlockTypes))
	for _, b := range AllBlockTypes {
		m[b] = true
	}
	return m
}()

// blockAliases maps common variants emitted by the reasoning collaborator
// onto the closed enumeration.
var blockAliases = map[string]BlockType{
	"hero-block":     BlockHero,
	"hero_banner":    BlockHero,
	"recommendation": BlockProductRecommendation,
	"product-rec":    BlockProductRecommendation,
	"comparison":     BlockComparisonTable,
	"compare-table":  BlockComparisonTable,
	"products":       BlockProductCards,
	"product-grid":   BlockProductCards,
	"quiz":           BlockDiscoveryQuiz,
	"followup":       BlockFollowUp,
	"follow_up":      BlockFollowUp,
	"support":        BlockSupportTriage,
	"faqs":           BlockFAQ,
	"reviews":        BlockTestimonials,
}

// NormalizeBlockType maps an arbitrary block name onto the closed
// enumeration. Returns false when the name cannot be mapped.
func NormalizeBlockType(name string) (BlockType, bool) {
	bt := BlockType(name)
	if validBlockTypes[bt] {
		return bt, true
	}
	if mapped, ok := blockAliases[name]; ok {
		return mapped, true
	}
	return "", false
}

// heroLikeBlocks are blocks that visually dominate the page. No two of
// these may end up adjacent in the final order.
var heroLikeBlocks = map[BlockType]bool{
	BlockHero:                  true,
	BlockEmpathyHero:           true,
	BlockProductRecommendation: true,
	BlockBestPick:              true,
}

// IsHeroLike reports whether a block belongs to the hero-style set.
func IsHeroLike(b BlockType) bool { return heroLikeBlocks[b] }

// discoveryBlocks are blocks that help an undecided visitor explore.
var discoveryBlocks = map[BlockType]bool{
	BlockDiscoveryQuiz: true,
	BlockBuyingGuide:   true,
}

// IsDiscovery reports whether a block is discovery-oriented.
func IsDiscovery(b BlockType) bool { return discoveryBlocks[b] }

// HintPosition is the coarse position of a sequence hint.
type HintPosition string

const (
	PositionEarly  HintPosition = "early"
	PositionMiddle HintPosition = "middle"
	PositionLate   HintPosition = "late"
)

// PositionScore maps a coarse position to its sort score.
func PositionScore(p HintPosition) int {
	switch p {
	case PositionEarly:
		return -10
	case PositionLate:
		return 10
	default:
		return 0
	}
}

// SequenceHint is a coarse or relative ordering constraint for a block.
// Explicit After/Before constraints take precedence over the coarse
// position whenever both named blocks are present.
type SequenceHint struct {
	Block    BlockType    `json:"block" yaml:"block"`
	Position HintPosition `json:"position,omitempty" yaml:"position,omitempty"`
	After    BlockType    `json:"after,omitempty" yaml:"after,omitempty"`
	Before   BlockType    `json:"before,omitempty" yaml:"before,omitempty"`
}

// TriggerKind identifies how a trigger condition matches.
type TriggerKind string

const (
	TriggerKeyword TriggerKind = "keyword"
	TriggerIntent  TriggerKind = "intent"
	TriggerEntity  TriggerKind = "entity"
)

// TriggerCondition is one condition of a block rule. Keyword conditions
// test a case-insensitive pattern against the query after checking
// negative-pattern vetoes: if any negative pattern matches, the condition
// cannot trigger regardless of the positive match.
type TriggerCondition struct {
	Kind TriggerKind

	// Keyword matching
	Pattern          *regexp.Regexp
	NegativePatterns []*regexp.Regexp

	// Intent equality
	IntentType string

	// Entity minimum count
	EntityKind string
	MinCount   int
}

// BlockRule is a declarative trigger-to-constraint mapping. Static, never
// mutated at runtime. A rule triggers when any of its conditions matches.
type BlockRule struct {
	ID              string
	Name            string
	Category        string
	Triggers        []TriggerCondition
	Requires        []BlockType
	Excludes        []BlockType
	Enhances        []BlockType
	SequenceHints   []SequenceHint
	ContentGuidance string
	Priority        int
}

// IntentContext carries the classified intent accompanying a query.
type IntentContext struct {
	IntentType string          `json:"intentType"`
	Confidence float64         `json:"confidence,omitempty"`
	Entities   *IntentEntities `json:"entities,omitempty"`
}

// IntentEntities are named entity collections extracted from a query.
type IntentEntities struct {
	Products    []string `json:"products,omitempty"`
	UseCases    []string `json:"useCases,omitempty"`
	Features    []string `json:"features,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
}

// Collection returns the named entity collection, nil if absent.
func (e *IntentEntities) Collection(kind string) []string {
	if e == nil {
		return nil
	}
	switch kind {
	case "products":
		return e.Products
	case "useCases":
		return e.UseCases
	case "features":
		return e.Features
	case "ingredients":
		return e.Ingredients
	}
	return nil
}

// MergedBlockRequirements is the set-algebra result of all triggered block
// rules for one query. Excluded always wins over required and enhanced;
// required wins over enhanced.
type MergedBlockRequirements struct {
	Required        map[BlockType]bool `json:"required"`
	Excluded        map[BlockType]bool `json:"excluded"`
	Enhanced        map[BlockType]bool `json:"enhanced"`
	SequenceHints   []SequenceHint     `json:"sequenceHints"`
	ContentGuidance []string           `json:"contentGuidance"`
	TriggeredRules  []string           `json:"triggeredRules"`
}

// NewMergedBlockRequirements returns an empty requirements set.
func NewMergedBlockRequirements() *MergedBlockRequirements {
	return &MergedBlockRequirements{
		Required: make(map[BlockType]bool),
		Excluded: make(map[BlockType]bool),
		Enhanced: make(map[BlockType]bool),
	}
}

// BlockSelection is one entry of the final ordered block list.
// Priority is 1-based and dense after finalization.
type BlockSelection struct {
	Type            BlockType `json:"type"`
	Priority        int       `json:"priority"`
	Rationale       string    `json:"rationale,omitempty"`
	ContentGuidance string    `json:"contentGuidance,omitempty"`
}

// Confidence is the dual confidence pair: intent ("do we understand the
// request") and product match ("is one product clearly best").
type Confidence struct {
	Intent       float64 `json:"intent"`
	ProductMatch float64 `json:"productMatch"`
}

// GatingAction is one audited substitution the orchestrator applied.
type GatingAction struct {
	Action string    `json:"action"`
	Block  BlockType `json:"block,omitempty"`
	Reason string    `json:"reason"`
}

// UserJourney summarizes what the reasoning collaborator believes about
// where the visitor is in their decision process.
type UserJourney struct {
	Stage      string `json:"stage,omitempty"`
	NextAction string `json:"nextAction,omitempty"`
}

// ReasoningResult is the orchestrator's final output: the ordered gated
// block list with reconciled confidences and the audit trail of actions.
type ReasoningResult struct {
	SelectedBlocks   []BlockSelection `json:"selectedBlocks"`
	Confidence       Confidence       `json:"confidence"`
	UserJourney      UserJourney      `json:"userJourney"`
	SelectedProducts []string         `json:"selectedProducts,omitempty"`
	Reasoning        string           `json:"reasoning,omitempty"`
	Actions          []GatingAction   `json:"actions,omitempty"`
	Fallback         bool             `json:"fallback,omitempty"`
}
