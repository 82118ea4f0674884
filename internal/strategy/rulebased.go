package strategy

import (
	"context"
	"errors"

	"terbot/internal/conversation"
	"terbot/internal/memory"
	"terbot/internal/rules"
)

var errNoRule = errors.New("no rule matched")

// RuleBased answers from the pattern rule table and personalizes with memory overrides
type RuleBased struct {
	rules     *rules.RuleSet
	overrides memory.Overrides
}

// NewRuleBased creates the rule-based strategy
func NewRuleBased(rs *rules.RuleSet, overrides memory.Overrides) *RuleBased {
	return &RuleBased{rules: rs, overrides: overrides}
}

func (r *RuleBased) Kind() Kind { return KindRules }

func (r *RuleBased) Respond(_ context.Context, input string, _ conversation.View, mem memory.Reader) Reply {
	return guarded(func() Reply {
		text, m, ok := r.rules.Respond(input, mem.Facts())
		if !ok {
			return failed(ErrBackend, errNoRule)
		}

		if o, fired := r.overrides.Evaluate(input, m, mem); fired {
			return Reply{Text: o.Reply, Remember: o.Remember, Source: SourceOverride, RuleID: o.RuleID}
		}

		return Reply{Text: text, Source: SourceRule, RuleID: m.RuleID, Generic: m.CatchAll()}
	})
}
