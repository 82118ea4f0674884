package memory

import (
	"slices"
	"strings"

	"terbot/internal/rules"
)

// OverrideRule personalizes a reply from remembered facts, or records a new one.
// Rules are data: adding a new fact type means adding an entry, not code.
type OverrideRule struct {
	ID string
	// Trigger fires the rule on the raw input. Leave Kind empty to rely on OnRules only.
	Trigger rules.Pattern
	// OnRules fires the rule when the pattern matcher selected one of these rule ids
	OnRules []string
	// Set stores capture group SetGroup (1-based, default 1) under this key
	Set      string
	SetGroup int
	// Require names a fact that must be known; otherwise Missing is used,
	// and when Missing is empty the rule does not fire.
	Require  string
	Template string
	Missing  string
}

// Override is the personalized reply that replaces a rule-matched response
type Override struct {
	RuleID   string
	Reply    string
	Remember map[string]string
}

// Overrides is an ordered list of override rules; the first one that fires wins
type Overrides []OverrideRule

// DefaultOverrides remembers the user's name and greets them by it
func DefaultOverrides() Overrides {
	return Overrides{
		{
			ID:       "remember-name",
			Trigger:  rules.MustRegex(rules.NamePattern),
			Set:      "name",
			Template: "Nice to meet you, %1! I'll remember that.",
		},
		{
			ID:       "recall-name",
			Trigger:  rules.MustRegex(`what(?:'s| is) my name|do you (?:know|remember) my name`),
			Require:  "name",
			Template: "Your name is {name}.",
			Missing:  `I don't know your name yet. Tell me by saying "my name is ...".`,
		},
		{
			ID:       "greet-known",
			OnRules:  []string{"greeting", "greeting-short"},
			Require:  "name",
			Template: "Hello again, {name}! What can I do for you?",
		},
	}
}

// Evaluate checks the overrides against input and the pattern match result.
// It reads facts from mem but never writes them; writes come back in Override.Remember.
func (o Overrides) Evaluate(input string, match rules.Match, mem Reader) (Override, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Override{}, false
	}

	for _, rule := range o {
		groups, fired := rule.fires(input, match)
		if !fired {
			continue
		}

		facts := mem.Facts()
		if facts == nil {
			facts = map[string]string{}
		}

		if rule.Require != "" {
			if _, known := facts[normalizeKey(rule.Require)]; !known {
				if rule.Missing == "" {
					continue
				}
				return Override{RuleID: rule.ID, Reply: rules.Expand(rule.Missing, groups, facts)}, true
			}
		}

		out := Override{RuleID: rule.ID}
		if rule.Set != "" {
			value := rule.captured(groups)
			if value == "" {
				continue
			}
			out.Remember = map[string]string{normalizeKey(rule.Set): value}
			facts[normalizeKey(rule.Set)] = value
		}

		out.Reply = rules.Expand(rule.Template, groups, facts)
		return out, true
	}
	return Override{}, false
}

func (r OverrideRule) fires(input string, match rules.Match) ([]string, bool) {
	if r.Trigger.Kind != "" {
		if groups, ok := r.Trigger.Find(input); ok {
			return groups, true
		}
	}
	if len(r.OnRules) > 0 && slices.Contains(r.OnRules, match.RuleID) {
		return match.Groups, true
	}
	return nil, false
}

func (r OverrideRule) captured(groups []string) string {
	idx := r.SetGroup
	if idx <= 0 {
		idx = 1
	}
	if idx > len(groups) {
		return ""
	}
	return strings.TrimRight(strings.TrimSpace(groups[idx-1]), ".,!?;:")
}
