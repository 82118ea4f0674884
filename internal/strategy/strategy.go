package strategy

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"terbot/internal/conversation"
	"terbot/internal/llm"
	"terbot/internal/memory"
	"terbot/internal/rules"
)

var (
	// ErrBackend marks a reply produced after the generation backend failed
	ErrBackend = errors.New("response backend failed")
	// ErrEmptyReply marks a reply produced after the backend returned no usable text
	ErrEmptyReply = errors.New("response backend returned empty text")
	// ErrTimeout marks a reply produced after generation was aborted by its deadline
	ErrTimeout = errors.New("response generation timed out")
)

// Kind names a response strategy variant
type Kind string

const (
	KindRules      Kind = "rules"
	KindGenerative Kind = "generative"
)

// Source tells which path produced a reply
type Source string

const (
	SourceRule      Source = "rule"
	SourceOverride  Source = "override"
	SourceGenerated Source = "generated"
	SourceGuard     Source = "guard"
	SourceFallback  Source = "fallback"
	SourceFarewell  Source = "farewell"
)

// Reply is the explicit result of one strategy call.
// Text is never empty. Failure is nil on success; otherwise it wraps one of
// ErrBackend, ErrEmptyReply or ErrTimeout and Text holds the user-facing fallback.
type Reply struct {
	Text     string
	Remember map[string]string
	Source   Source
	RuleID   string
	// Generic marks a stock reply that does not address the input,
	// such as a catch-all rule or a clarifying question
	Generic  bool
	Failure  error
}

// Strategy produces a candidate reply for one user input.
// Implementations never mutate history or memory.
type Strategy interface {
	Kind() Kind
	Respond(ctx context.Context, input string, history conversation.View, mem memory.Reader) Reply
}

const apology = "Sorry, something went wrong on my side. Let's start over."

func failed(kind error, cause error) Reply {
	err := kind
	if cause != nil {
		err = fmt.Errorf("%w: %w", kind, cause)
	}
	return Reply{Text: apology, Source: SourceFallback, Failure: err}
}

// guarded converts a panic inside respond into an ErrBackend reply
func guarded(respond func() Reply) (reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			reply = failed(ErrBackend, fmt.Errorf("panic: %v", r))
		}
	}()
	reply = respond()
	if reply.Text == "" {
		reply = failed(ErrEmptyReply, nil)
	}
	return reply
}

// Deps carries what the strategy variants are built from
type Deps struct {
	Rules      *rules.RuleSet
	Overrides  memory.Overrides
	Generator  llm.Generator
	Generative GenerativeConfig
	Rand       *rand.Rand
}

// New constructs the strategy variant named by kind
func New(kind Kind, d Deps) (Strategy, error) {
	switch kind {
	case KindRules:
		if d.Rules == nil {
			return nil, fmt.Errorf("rule-based strategy requires a rule set")
		}
		return NewRuleBased(d.Rules, d.Overrides), nil
	case KindGenerative:
		if d.Generator == nil {
			return nil, fmt.Errorf("generative strategy requires a generator")
		}
		return NewGenerative(d.Generator, d.Generative, d.Overrides, d.Rand), nil
	}
	return nil, fmt.Errorf("unknown strategy %q", kind)
}
