package blockrules

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/thebtf/tailor/pkg/models"
)

// ruleFile is the YAML overlay document shape.
type ruleFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	ID              string        `yaml:"id"`
	Name            string        `yaml:"name"`
	Category        string        `yaml:"category"`
	Priority        int           `yaml:"priority"`
	Triggers        []triggerSpec `yaml:"triggers"`
	Requires        []string      `yaml:"requires"`
	Excludes        []string      `yaml:"excludes"`
	Enhances        []string      `yaml:"enhances"`
	SequenceHints   []hintSpec    `yaml:"sequence_hints"`
	ContentGuidance string        `yaml:"content_guidance"`
}

type triggerSpec struct {
	Kind             string   `yaml:"kind"`
	Pattern          string   `yaml:"pattern"`
	NegativePatterns []string `yaml:"negative_patterns"`
	IntentType       string   `yaml:"intent_type"`
	Entity           string   `yaml:"entity"`
	MinCount         int      `yaml:"min_count"`
}

type hintSpec struct {
	Block    string `yaml:"block"`
	Position string `yaml:"position"`
	After    string `yaml:"after"`
	Before   string `yaml:"before"`
}

// LoadCatalog reads a YAML overlay file and merges it over the default
// catalog: an overlay rule with an existing id replaces the default rule,
// otherwise it is appended. All patterns must compile and all block names
// must belong to the closed enumeration; a bad overlay is rejected as a
// whole so a half-validated catalog never goes live.
func LoadCatalog(path string) ([]models.BlockRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule overlay: %w", err)
	}

	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rule overlay: %w", err)
	}

	overlay := make(map[string]models.BlockRule, len(file.Rules))
	var order []string
	for i := range file.Rules {
		rule, err := buildRule(&file.Rules[i])
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", file.Rules[i].ID, err)
		}
		overlay[rule.ID] = rule
		order = append(order, rule.ID)
	}

	merged := make([]models.BlockRule, 0, len(DefaultCatalog)+len(overlay))
	replaced := make(map[string]bool, len(overlay))
	for _, rule := range DefaultCatalog {
		if override, ok := overlay[rule.ID]; ok {
			merged = append(merged, override)
			replaced[rule.ID] = true
		} else {
			merged = append(merged, rule)
		}
	}
	for _, id := range order {
		if !replaced[id] {
			merged = append(merged, overlay[id])
		}
	}
	return merged, nil
}

func buildRule(spec *ruleSpec) (models.BlockRule, error) {
	if spec.ID == "" {
		return models.BlockRule{}, fmt.Errorf("missing id")
	}
	name := spec.Name
	if name == "" {
		name = spec.ID
	}

	rule := models.BlockRule{
		ID:              spec.ID,
		Name:            name,
		Category:        spec.Category,
		Priority:        spec.Priority,
		ContentGuidance: spec.ContentGuidance,
	}

	for i := range spec.Triggers {
		cond, err := buildTrigger(&spec.Triggers[i])
		if err != nil {
			return models.BlockRule{}, err
		}
		rule.Triggers = append(rule.Triggers, cond)
	}
	if len(rule.Triggers) == 0 {
		return models.BlockRule{}, fmt.Errorf("no triggers")
	}

	var err error
	if rule.Requires, err = parseBlocks(spec.Requires); err != nil {
		return models.BlockRule{}, err
	}
	if rule.Excludes, err = parseBlocks(spec.Excludes); err != nil {
		return models.BlockRule{}, err
	}
	if rule.Enhances, err = parseBlocks(spec.Enhances); err != nil {
		return models.BlockRule{}, err
	}

	for _, h := range spec.SequenceHints {
		block, ok := models.NormalizeBlockType(h.Block)
		if !ok {
			return models.BlockRule{}, fmt.Errorf("unknown hint block %q", h.Block)
		}
		hint := models.SequenceHint{Block: block, Position: models.HintPosition(h.Position)}
		if h.After != "" {
			if hint.After, ok = models.NormalizeBlockType(h.After); !ok {
				return models.BlockRule{}, fmt.Errorf("unknown after block %q", h.After)
			}
		}
		if h.Before != "" {
			if hint.Before, ok = models.NormalizeBlockType(h.Before); !ok {
				return models.BlockRule{}, fmt.Errorf("unknown before block %q", h.Before)
			}
		}
		rule.SequenceHints = append(rule.SequenceHints, hint)
	}

	return rule, nil
}

func buildTrigger(spec *triggerSpec) (models.TriggerCondition, error) {
	switch models.TriggerKind(spec.Kind) {
	case models.TriggerKeyword:
		pattern, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return models.TriggerCondition{}, fmt.Errorf("compile pattern %q: %w", spec.Pattern, err)
		}
		cond := models.TriggerCondition{Kind: models.TriggerKeyword, Pattern: pattern}
		for _, neg := range spec.NegativePatterns {
			compiled, err := regexp.Compile(neg)
			if err != nil {
				return models.TriggerCondition{}, fmt.Errorf("compile negative pattern %q: %w", neg, err)
			}
			cond.NegativePatterns = append(cond.NegativePatterns, compiled)
		}
		return cond, nil
	case models.TriggerIntent:
		if spec.IntentType == "" {
			return models.TriggerCondition{}, fmt.Errorf("intent trigger missing intent_type")
		}
		return models.TriggerCondition{Kind: models.TriggerIntent, IntentType: spec.IntentType}, nil
	case models.TriggerEntity:
		if spec.Entity == "" || spec.MinCount < 1 {
			return models.TriggerCondition{}, fmt.Errorf("entity trigger needs entity and min_count >= 1")
		}
		return models.TriggerCondition{Kind: models.TriggerEntity, EntityKind: spec.Entity, MinCount: spec.MinCount}, nil
	}
	return models.TriggerCondition{}, fmt.Errorf("unknown trigger kind %q", spec.Kind)
}

func parseBlocks(names []string) ([]models.BlockType, error) {
	var blocks []models.BlockType
	for _, n := range names {
		b, ok := models.NormalizeBlockType(n)
		if !ok {
			return nil, fmt.Errorf("unknown block %q", n)
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}
