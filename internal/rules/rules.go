package rules

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
)

// ErrNoCatchAll is returned when a rule set does not end with a catch-all rule
var ErrNoCatchAll = errors.New("rule set must end with a catch-all rule")

// PatternKind tells how a trigger is evaluated
type PatternKind string

const (
	PatternKeywords PatternKind = "keywords"
	PatternRegex    PatternKind = "regex"
	PatternAny      PatternKind = "any"
)

// Pattern is the matching condition of a rule
type Pattern struct {
	Kind     PatternKind
	Keywords []string
	Regex    *regexp.Regexp
}

// Keywords builds a case-insensitive substring trigger
func Keywords(words ...string) Pattern {
	lowered := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			lowered = append(lowered, w)
		}
	}
	return Pattern{Kind: PatternKeywords, Keywords: lowered}
}

// Regex compiles a case-insensitive search trigger
func Regex(expr string) (Pattern, error) {
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("invalid trigger pattern %q: %w", expr, err)
	}
	return Pattern{Kind: PatternRegex, Regex: re}, nil
}

// MustRegex is Regex for built-in tables
func MustRegex(expr string) Pattern {
	p, err := Regex(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// Any matches every input, including the empty one
func Any() Pattern {
	return Pattern{Kind: PatternAny}
}

// Find reports whether input satisfies the pattern and returns the captured groups.
// Regex triggers use search semantics: the pattern may match any substring.
func (p Pattern) Find(input string) ([]string, bool) {
	switch p.Kind {
	case PatternAny:
		return nil, true
	case PatternKeywords:
		lowered := strings.ToLower(input)
		for _, k := range p.Keywords {
			if strings.Contains(lowered, k) {
				return nil, true
			}
		}
		return nil, false
	case PatternRegex:
		if p.Regex == nil {
			return nil, false
		}
		m := p.Regex.FindStringSubmatch(input)
		if m == nil {
			return nil, false
		}
		groups := make([]string, 0, len(m)-1)
		for _, g := range m[1:] {
			groups = append(groups, strings.TrimSpace(g))
		}
		return groups, true
	}
	return nil, false
}

// Rule maps a trigger to a set of response templates
type Rule struct {
	ID        string
	Trigger   Pattern
	Templates []string
}

// Match is the result of evaluating a rule set against an input
type Match struct {
	RuleID string
	Groups []string
	Rule   *Rule
}

// CatchAll reports whether only the final catch-all rule matched
func (m Match) CatchAll() bool {
	return m.Rule != nil && m.Rule.Trigger.Kind == PatternAny
}

// RuleSet is an ordered list of rules; the first matching rule wins
type RuleSet struct {
	rules []Rule

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRuleSet validates the ordering invariant and takes ownership of rnd.
// A nil rnd falls back to a time-seeded source.
func NewRuleSet(rules []Rule, rnd *rand.Rand) (*RuleSet, error) {
	if len(rules) == 0 || rules[len(rules)-1].Trigger.Kind != PatternAny {
		return nil, ErrNoCatchAll
	}
	seen := make(map[string]bool, len(rules))
	for i, r := range rules {
		if r.ID == "" {
			return nil, fmt.Errorf("rule %d has no id", i)
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("duplicate rule id %q", r.ID)
		}
		seen[r.ID] = true
		if len(r.Templates) == 0 {
			return nil, fmt.Errorf("rule %q has no response templates", r.ID)
		}
		if r.Trigger.Kind == PatternAny && i != len(rules)-1 {
			return nil, fmt.Errorf("catch-all rule %q must be last", r.ID)
		}
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(rand.Int63()))
	}
	return &RuleSet{rules: rules, rnd: rnd}, nil
}

// Match returns the first rule matching input. Empty input only hits the catch-all.
func (s *RuleSet) Match(input string) (Match, bool) {
	input = strings.TrimSpace(input)
	for i := range s.rules {
		r := &s.rules[i]
		if input == "" && r.Trigger.Kind != PatternAny {
			continue
		}
		if groups, ok := r.Trigger.Find(input); ok {
			return Match{RuleID: r.ID, Groups: groups, Rule: r}, true
		}
	}
	return Match{}, false
}

// Pick selects one of the matched rule's templates uniformly at random
func (s *RuleSet) Pick(m Match) string {
	if m.Rule == nil || len(m.Rule.Templates) == 0 {
		return ""
	}
	s.mu.Lock()
	i := s.rnd.Intn(len(m.Rule.Templates))
	s.mu.Unlock()
	return m.Rule.Templates[i]
}

// Respond matches input and renders one of the winning rule's templates
// with the captured groups and the given facts
func (s *RuleSet) Respond(input string, facts map[string]string) (string, Match, bool) {
	m, ok := s.Match(input)
	if !ok {
		return "", Match{}, false
	}
	return Expand(s.Pick(m), m.Groups, facts), m, true
}
