package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/ollama/ollama/api"
)

// ErrUnknownProvider is returned for a provider name the factory does not know
var ErrUnknownProvider = errors.New("unknown generation provider")

const (
	ProviderOllama   = "ollama"
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderArk      = "ark"
)

// ProviderConfig selects and configures the generation backend
type ProviderConfig struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	Seed     int
	Options  Options
}

// NewChatModel builds the eino chat model for the configured provider
func NewChatModel(ctx context.Context, cfg ProviderConfig) (model.BaseChatModel, error) {
	provider := strings.ToLower(cfg.Provider)
	switch provider {
	case ProviderOpenAI, ProviderDeepSeek, ProviderArk:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%s provider requires an API key", provider)
		}
	}

	var (
		m   model.BaseChatModel
		err error
	)
	switch provider {
	case ProviderOllama:
		m, err = ollama.NewChatModel(ctx, ollamaConfig(cfg))
	case ProviderOpenAI:
		m, err = openai.NewChatModel(ctx, openaiConfig(cfg))
	case ProviderDeepSeek:
		m, err = deepseek.NewChatModel(ctx, deepseekConfig(cfg))
	case ProviderArk:
		m, err = ark.NewChatModel(ctx, arkConfig(cfg))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("error creating %s chat model: %w", provider, err)
	}
	return m, nil
}

// IgnoredOptions names the configured sampling settings the provider's
// client has no field for. They are dropped, not sent.
func IgnoredOptions(cfg ProviderConfig) []string {
	switch strings.ToLower(cfg.Provider) {
	case ProviderDeepSeek, ProviderArk:
		var ignored []string
		if cfg.Options.Effective().TopK > 0 {
			ignored = append(ignored, "top_k")
		}
		if cfg.Seed != 0 {
			ignored = append(ignored, "seed")
		}
		return ignored
	}
	return nil
}

func ollamaConfig(cfg ProviderConfig) *ollama.ChatModelConfig {
	eff := cfg.Options.Effective()
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &ollama.ChatModelConfig{
		BaseURL: baseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
		Options: &api.Options{
			NumPredict:  eff.MaxNewTokens,
			Temperature: float32(eff.Temperature),
			TopK:        eff.TopK,
			TopP:        float32(eff.TopP),
			Seed:        cfg.Seed,
		},
	}
}

// openaiConfig sends top_k as an extra request field; OpenAI ignores it,
// compatible servers such as OpenRouter and vLLM apply it
func openaiConfig(cfg ProviderConfig) *openai.ChatModelConfig {
	eff := cfg.Options.Effective()
	maxTokens := eff.MaxNewTokens
	temperature := float32(eff.Temperature)
	topP := float32(eff.TopP)

	c := &openai.ChatModelConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Timeout:     cfg.Timeout,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
		TopP:        &topP,
	}
	if cfg.Seed != 0 {
		seed := cfg.Seed
		c.Seed = &seed
	}
	if eff.TopK > 0 {
		c.ExtraFields = map[string]any{"top_k": eff.TopK}
	}
	return c
}

func deepseekConfig(cfg ProviderConfig) *deepseek.ChatModelConfig {
	eff := cfg.Options.Effective()
	return &deepseek.ChatModelConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Timeout:     cfg.Timeout,
		MaxTokens:   eff.MaxNewTokens,
		Temperature: float32(eff.Temperature),
		TopP:        float32(eff.TopP),
	}
}

func arkConfig(cfg ProviderConfig) *ark.ChatModelConfig {
	eff := cfg.Options.Effective()
	maxTokens := eff.MaxNewTokens
	temperature := float32(eff.Temperature)
	topP := float32(eff.TopP)

	c := &ark.ChatModelConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
		TopP:        &topP,
	}
	if cfg.Timeout > 0 {
		timeout := cfg.Timeout
		c.Timeout = &timeout
	}
	return c
}

// NewGenerator builds a Generator backed by the configured provider
func NewGenerator(ctx context.Context, cfg ProviderConfig) (Generator, error) {
	m, err := NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewChatModelGenerator(m), nil
}
