package rules

import (
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLRule is one entry of a rules file
type YAMLRule struct {
	ID        string   `yaml:"id"`
	Keywords  []string `yaml:"keywords"`
	Pattern   string   `yaml:"pattern"`
	Any       bool     `yaml:"any"`
	Responses []string `yaml:"responses"`
}

// YAMLRules represents the structure of rules.yaml
type YAMLRules struct {
	Rules []YAMLRule `yaml:"rules"`
}

// Parse decodes a rules document and builds the rule set
func Parse(data []byte, rnd *rand.Rand) (*RuleSet, error) {
	var doc YAMLRules
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing rules YAML: %w", err)
	}

	rules := make([]Rule, 0, len(doc.Rules))
	for i, yr := range doc.Rules {
		trigger, err := yr.trigger()
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, yr.ID, err)
		}
		rules = append(rules, Rule{ID: yr.ID, Trigger: trigger, Templates: yr.Responses})
	}
	return NewRuleSet(rules, rnd)
}

// LoadFile loads a rules file from disk
func LoadFile(path string, rnd *rand.Rand) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading rules file: %w", err)
	}
	return Parse(data, rnd)
}

func (yr YAMLRule) trigger() (Pattern, error) {
	set := 0
	if len(yr.Keywords) > 0 {
		set++
	}
	if yr.Pattern != "" {
		set++
	}
	if yr.Any {
		set++
	}
	if set != 1 {
		return Pattern{}, fmt.Errorf("exactly one of keywords, pattern or any must be set")
	}

	switch {
	case yr.Any:
		return Any(), nil
	case yr.Pattern != "":
		return Regex(yr.Pattern)
	default:
		return Keywords(yr.Keywords...), nil
	}
}
