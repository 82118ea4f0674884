package strategy

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"terbot/internal/conversation"
	"terbot/internal/llm"
	"terbot/internal/memory"
	"terbot/internal/rules"
)

// DefaultClarifyingQuestions replace degenerate generations
var DefaultClarifyingQuestions = []string{
	"Sure, could you clarify that a bit?",
	"I hear you. Can you give me a bit more detail?",
	"Alright. What specifically would you like me to do?",
}

// GenerativeConfig holds the fixed generation settings
type GenerativeConfig struct {
	Persona string
	BotName string
	// ContextTurns bounds how many history turns are fed to the backend
	ContextTurns int
	// MaxReplyChars trims long generations at a word boundary
	MaxReplyChars int
	// EchoProbeWords is how many leading persona words identify an echo
	EchoProbeWords int
	// Timeout aborts a generation; zero means no deadline
	Timeout time.Duration
	// IncludeFacts adds remembered facts to the context
	IncludeFacts bool
	Options      llm.Options
	Fallbacks    []string
}

// Generative conditions a language model on the persona and recent turns
type Generative struct {
	gen       llm.Generator
	cfg       GenerativeConfig
	overrides memory.Overrides

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerative creates the generative strategy
func NewGenerative(gen llm.Generator, cfg GenerativeConfig, overrides memory.Overrides, rnd *rand.Rand) *Generative {
	if cfg.BotName == "" {
		cfg.BotName = "TerBot"
	}
	if cfg.ContextTurns <= 0 {
		cfg.ContextTurns = 6
	}
	if cfg.MaxReplyChars <= 0 {
		cfg.MaxReplyChars = 500
	}
	if cfg.EchoProbeWords <= 0 {
		cfg.EchoProbeWords = 3
	}
	if len(cfg.Fallbacks) == 0 {
		cfg.Fallbacks = DefaultClarifyingQuestions
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generative{gen: gen, cfg: cfg, overrides: overrides, rnd: rnd}
}

func (g *Generative) Kind() Kind { return KindGenerative }

func (g *Generative) Respond(ctx context.Context, input string, history conversation.View, mem memory.Reader) Reply {
	return guarded(func() Reply {
		if o, fired := g.overrides.Evaluate(input, rules.Match{}, mem); fired {
			return Reply{Text: o.Reply, Remember: o.Remember, Source: SourceOverride, RuleID: o.RuleID}
		}

		contextText := g.BuildContext(input, history, mem)

		genCtx := ctx
		if g.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			genCtx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
			defer cancel()
		}

		raw, err := g.gen.Generate(genCtx, contextText, g.cfg.Options)
		if err != nil {
			switch {
			case errors.Is(genCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
				return failed(ErrTimeout, err)
			case errors.Is(err, llm.ErrEmptyOutput):
				return failed(ErrEmptyReply, err)
			default:
				return failed(ErrBackend, err)
			}
		}

		candidate := ExtractReply(raw, contextText, g.cfg.BotName, g.cfg.MaxReplyChars)
		if candidate == "" {
			return failed(ErrEmptyReply, nil)
		}
		if IsEcho(candidate, g.cfg.Persona, g.cfg.EchoProbeWords) {
			return Reply{Text: g.clarify(), Source: SourceGuard, Generic: true}
		}
		return Reply{Text: candidate, Source: SourceGenerated}
	})
}

// BuildContext assembles persona, remembered facts, recent turns and the bot cue
func (g *Generative) BuildContext(input string, history conversation.View, mem memory.Reader) string {
	var b strings.Builder
	if p := strings.TrimSpace(g.cfg.Persona); p != "" {
		b.WriteString(p)
		b.WriteString("\n")
	}
	if g.cfg.IncludeFacts && mem != nil {
		if facts := memory.Summarize(mem.Facts()); facts != "" {
			b.WriteString(facts)
			b.WriteString("\n")
		}
	}

	if history != nil {
		if turns := history.ContextString(g.cfg.ContextTurns, g.cfg.BotName); turns != "" {
			b.WriteString(turns)
			b.WriteString("\n")
		}
	}
	if !endsWithInput(history, input) {
		b.WriteString("User: ")
		b.WriteString(strings.TrimSpace(input))
		b.WriteString("\n")
	}

	b.WriteString(g.cfg.BotName)
	b.WriteString(":")
	return b.String()
}

func (g *Generative) clarify() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cfg.Fallbacks[g.rnd.Intn(len(g.cfg.Fallbacks))]
}

func endsWithInput(history conversation.View, input string) bool {
	if history == nil {
		return false
	}
	last := history.Window(1)
	return len(last) == 1 && last[0].Speaker == conversation.User && last[0].Text == strings.TrimSpace(input)
}
