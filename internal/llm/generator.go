package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// ErrEmptyOutput is returned when a backend answers with no text
var ErrEmptyOutput = errors.New("backend returned empty text")

// Options are the sampling parameters sent with every generation.
// MaxNewTokens, Temperature and TopP go out as per-call options; TopK and
// the seed have no common eino option and are set when the provider's
// client is built, see IgnoredOptions.
type Options struct {
	MaxNewTokens int     `validate:"gt=0"`
	Temperature  float64 `validate:"gte=0,lte=2"`
	TopK         int     `validate:"gte=0"`
	TopP         float64 `validate:"gt=0,lte=1"`
	DoSample     bool
}

// Effective returns the options actually applied: without sampling the
// backend is asked for greedy decoding so the output is deterministic.
func (o Options) Effective() Options {
	if !o.DoSample {
		o.Temperature = 0
		o.TopK = 1
		o.TopP = 1
	}
	return o
}

// Generator is the text-generation capability consumed by the generative strategy
type Generator interface {
	Generate(ctx context.Context, contextText string, opts Options) (string, error)
}

// GeneratorFunc adapts a function to Generator
type GeneratorFunc func(ctx context.Context, contextText string, opts Options) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, contextText string, opts Options) (string, error) {
	return f(ctx, contextText, opts)
}

const continuationInstruction = "Continue the following dialogue. Reply only with the next line of the bot, without a speaker label."

// ChatModelGenerator drives any eino chat model with a flat dialogue context
type ChatModelGenerator struct {
	model    model.BaseChatModel
	template prompt.ChatTemplate
}

// NewChatModelGenerator wraps an eino chat model
func NewChatModelGenerator(m model.BaseChatModel) *ChatModelGenerator {
	return &ChatModelGenerator{
		model: m,
		template: prompt.FromMessages(schema.FString,
			schema.SystemMessage(continuationInstruction),
			schema.UserMessage("{context}"),
		),
	}
}

// Generate formats the context into chat messages and returns the model's reply text
func (g *ChatModelGenerator) Generate(ctx context.Context, contextText string, opts Options) (string, error) {
	messages, err := g.template.Format(ctx, map[string]any{"context": contextText})
	if err != nil {
		return "", fmt.Errorf("error formatting prompt: %w", err)
	}

	eff := opts.Effective()
	callOpts := []model.Option{
		model.WithMaxTokens(eff.MaxNewTokens),
		model.WithTemperature(float32(eff.Temperature)),
		model.WithTopP(float32(eff.TopP)),
	}

	out, err := g.model.Generate(ctx, messages, callOpts...)
	if err != nil {
		return "", fmt.Errorf("error generating response: %w", err)
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return "", ErrEmptyOutput
	}
	return out.Content, nil
}
