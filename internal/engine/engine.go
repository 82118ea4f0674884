package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"terbot/internal/conversation"
	"terbot/internal/memory"
	"terbot/internal/strategy"
)

// ErrTerminated is returned by Step once the conversation has ended
var ErrTerminated = errors.New("conversation terminated")

// State is the turn engine's position in the conversation
type State int

const (
	StateIdle State = iota
	StateAwaitingInput
	StateProcessing
	StateReplied
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingInput:
		return "awaiting_input"
	case StateProcessing:
		return "processing"
	case StateReplied:
		return "replied"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

// FarewellMode selects who writes the goodbye message
type FarewellMode string

const (
	// FarewellFixed always answers an exit phrase with Config.Farewell
	FarewellFixed FarewellMode = "fixed"
	// FarewellStrategy lets the response strategy answer the exit phrase,
	// falling back to Config.Farewell when it fails or gives a generic reply
	FarewellStrategy FarewellMode = "strategy"
)

// DefaultExitPhrases end the conversation
var DefaultExitPhrases = []string{"exit", "quit", "bye", "goodbye"}

// Config holds the engine's fixed texts and limits
type Config struct {
	BotName           string
	Greeting          string
	Farewell          string
	InterruptFarewell string
	FarewellMode      FarewellMode
	ExitPhrases       []string
	// DisplayTurns bounds Transcript
	DisplayTurns int
	// Recap shows the Transcript when the conversation ends
	Recap bool
}

// DefaultConfig returns the stock TerBot texts
func DefaultConfig() Config {
	return Config{
		BotName:           "TerBot",
		Greeting:          "Hello, I'm TerBot. Type 'exit' or 'quit' to end the chat.",
		Farewell:          "Goodbye! Wishing you a productive day.",
		InterruptFarewell: "Goodbye! Shutting down gracefully.",
		FarewellMode:      FarewellFixed,
		ExitPhrases:       DefaultExitPhrases,
		DisplayTurns:      6,
	}
}

// Observer receives per-turn measurements
type Observer interface {
	ObserveTurn(outcome string, elapsed time.Duration)
	ObserveFallback(reason string)
	ObserveFacts(n int)
}

// Outcome is the result of processing one input line
type Outcome struct {
	Reply  string
	Source strategy.Source
	RuleID string
	// Failure is the strategy failure that triggered recovery, if any
	Failure    error
	Skipped    bool
	Terminated bool
	Elapsed    time.Duration
}

// Engine runs the conversation state machine. It exclusively owns the
// history buffer and the memory store.
type Engine struct {
	strategy  strategy.Strategy
	history   *conversation.History
	memory    *memory.Store
	persister memory.Persister
	observer  Observer
	logger    zerolog.Logger
	cfg       Config
	exits     map[string]struct{}
	state     State
}

// Option customizes an Engine
type Option func(*Engine)

func WithHistory(h *conversation.History) Option {
	return func(e *Engine) { e.history = h }
}

func WithMemory(m *memory.Store) Option {
	return func(e *Engine) { e.memory = m }
}

func WithPersister(p memory.Persister) Option {
	return func(e *Engine) { e.persister = p }
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine around an explicitly constructed strategy
func New(s strategy.Strategy, cfg Config, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.BotName == "" {
		cfg.BotName = def.BotName
	}
	if cfg.Greeting == "" {
		cfg.Greeting = def.Greeting
	}
	if cfg.Farewell == "" {
		cfg.Farewell = def.Farewell
	}
	if cfg.InterruptFarewell == "" {
		cfg.InterruptFarewell = def.InterruptFarewell
	}
	if cfg.FarewellMode == "" {
		cfg.FarewellMode = def.FarewellMode
	}
	if len(cfg.ExitPhrases) == 0 {
		cfg.ExitPhrases = def.ExitPhrases
	}
	if cfg.DisplayTurns <= 0 {
		cfg.DisplayTurns = def.DisplayTurns
	}

	e := &Engine{
		strategy:  s,
		cfg:       cfg,
		logger:    zerolog.Nop(),
		persister: memory.NopPersister{},
		exits:     make(map[string]struct{}, len(cfg.ExitPhrases)),
		state:     StateIdle,
	}
	for _, p := range cfg.ExitPhrases {
		e.exits[normalizeExit(p)] = struct{}{}
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.history == nil {
		e.history = conversation.NewHistory(6)
	}
	if e.memory == nil {
		e.memory = memory.NewStore(nil)
	}
	return e
}

func (e *Engine) State() State { return e.state }

// Memory exposes the facts for read-only inspection
func (e *Engine) Memory() memory.Reader { return e.memory }

// Transcript returns the most recent turns for display
func (e *Engine) Transcript() []conversation.Turn {
	return e.history.Window(e.cfg.DisplayTurns)
}

// IsExit reports whether input is one of the exit phrases
func (e *Engine) IsExit(input string) bool {
	_, ok := e.exits[normalizeExit(input)]
	return ok
}

// LoadMemory restores remembered facts from the persister.
// A load failure is logged and the conversation starts with what is already in memory.
func (e *Engine) LoadMemory(ctx context.Context) {
	facts, err := e.persister.Load(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Failed to load memory, starting empty")
		return
	}
	e.memory.Apply(facts)
	e.logger.Debug().Int("facts", e.memory.Len()).Msg("Memory loaded")
}

// Step processes one input line
func (e *Engine) Step(ctx context.Context, input string) (Outcome, error) {
	if e.state == StateTerminated {
		return Outcome{}, ErrTerminated
	}

	text := strings.TrimSpace(input)
	if text == "" {
		return Outcome{Skipped: true}, nil
	}

	start := time.Now()
	e.state = StateProcessing
	snap := e.history.Snapshot()
	e.history.Append(conversation.User, text)

	var out Outcome
	if e.IsExit(text) {
		out = e.farewell(ctx, text)
	} else {
		out = e.respond(ctx, text, snap)
	}
	out.Elapsed = time.Since(start)
	e.observe(out)

	if out.Terminated {
		e.state = StateTerminated
	} else {
		e.state = StateIdle
	}

	e.logger.Debug().
		Str("source", string(out.Source)).
		Str("rule_id", out.RuleID).
		Int("history", e.history.Len()).
		Dur("elapsed", out.Elapsed).
		Msg("Turn processed")
	return out, nil
}

// Interrupt ends the conversation outside a turn, e.g. on a signal or closed input
func (e *Engine) Interrupt(ctx context.Context) (Outcome, error) {
	if e.state == StateTerminated {
		return Outcome{}, ErrTerminated
	}
	e.state = StateTerminated
	e.persist(ctx)
	out := Outcome{Reply: e.cfg.InterruptFarewell, Source: strategy.SourceFarewell, Terminated: true}
	e.observe(out)
	e.logger.Info().Msg("Conversation interrupted")
	return out, nil
}

func (e *Engine) respond(ctx context.Context, text string, snap conversation.Snapshot) Outcome {
	reply := e.strategy.Respond(ctx, text, e.history, e.memory)
	e.state = StateReplied

	out := Outcome{Reply: reply.Text, Source: reply.Source, RuleID: reply.RuleID, Failure: reply.Failure}
	switch {
	case reply.Failure == nil:
		e.history.Append(conversation.Bot, reply.Text)
		e.memory.Apply(reply.Remember)
		e.persist(ctx)
	case errors.Is(reply.Failure, strategy.ErrTimeout):
		// aborted turn leaves no trace
		e.history.Restore(snap)
		e.logger.Warn().Err(reply.Failure).Msg("Generation timed out, turn discarded")
	default:
		e.history.Reset()
		e.logger.Error().Err(reply.Failure).Msg("Response failed, conversation reset")
	}
	return out
}

func (e *Engine) farewell(ctx context.Context, text string) Outcome {
	out := Outcome{Reply: e.cfg.Farewell, Source: strategy.SourceFarewell, Terminated: true}

	if e.cfg.FarewellMode == FarewellStrategy {
		reply := e.strategy.Respond(ctx, text, e.history, e.memory)
		switch {
		case reply.Failure != nil:
			e.logger.Warn().Err(reply.Failure).Msg("Strategy farewell failed, using fixed farewell")
		case reply.Generic:
			e.logger.Debug().Str("rule_id", reply.RuleID).Msg("Strategy gave no farewell, using fixed farewell")
		default:
			out.Reply = reply.Text
			out.RuleID = reply.RuleID
		}
	}

	e.state = StateReplied
	e.history.Append(conversation.Bot, out.Reply)
	e.persist(ctx)
	return out
}

// persist writes the memory snapshot; the storage resource is held only for this call
func (e *Engine) persist(ctx context.Context) {
	if e.observer != nil {
		e.observer.ObserveFacts(e.memory.Len())
	}
	if err := e.persister.Save(ctx, e.memory.Facts()); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to save memory")
	}
}

func (e *Engine) observe(out Outcome) {
	if e.observer == nil {
		return
	}
	e.observer.ObserveTurn(outcomeLabel(out), out.Elapsed)
	if reason := fallbackReason(out); reason != "" {
		e.observer.ObserveFallback(reason)
	}
}

func outcomeLabel(out Outcome) string {
	switch {
	case out.Terminated:
		return "farewell"
	case errors.Is(out.Failure, strategy.ErrTimeout):
		return "rollback"
	case out.Failure != nil:
		return "reset"
	}
	return "reply"
}

func fallbackReason(out Outcome) string {
	switch {
	case errors.Is(out.Failure, strategy.ErrTimeout):
		return "timeout"
	case errors.Is(out.Failure, strategy.ErrEmptyReply):
		return "empty"
	case errors.Is(out.Failure, strategy.ErrBackend):
		return "backend"
	case out.Source == strategy.SourceGuard:
		return "echo"
	}
	return ""
}

func normalizeExit(s string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(s)), ".!?,;: ")
}
