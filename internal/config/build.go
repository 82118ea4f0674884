package config

import (
	"terbot/internal/engine"
	"terbot/internal/llm"
	"terbot/internal/strategy"
)

// BuildLLMOptions creates the sampling options from the configuration
func (c *Config) BuildLLMOptions() llm.Options {
	return llm.Options{
		MaxNewTokens: c.MaxNewTokens,
		Temperature:  c.Temperature,
		TopK:         c.TopK,
		TopP:         c.TopP,
		DoSample:     c.DoSample,
	}
}

// BuildProviderConfig creates the backend selection for llm.NewGenerator
func (c *Config) BuildProviderConfig() llm.ProviderConfig {
	return llm.ProviderConfig{
		Provider: c.Provider,
		Model:    c.Model,
		BaseURL:  c.BaseURL,
		APIKey:   c.APIKey,
		Timeout:  c.GenerationTimeout,
		Seed:     int(c.Seed),
		Options:  c.BuildLLMOptions(),
	}
}

// BuildGenerativeConfig creates the generative strategy settings.
// The backend sees the last ContextExchanges exchanges, two turns each.
func (c *Config) BuildGenerativeConfig() strategy.GenerativeConfig {
	g := strategy.GenerativeConfig{
		Persona:       c.Persona,
		BotName:       c.BotName,
		ContextTurns:  c.ContextExchanges * 2,
		MaxReplyChars: c.MaxReplyChars,
		Timeout:       c.GenerationTimeout,
		IncludeFacts:  true,
		Options:       c.BuildLLMOptions(),
	}
	if c.Profile != nil {
		g.Fallbacks = c.Profile.ClarifyingQuestions
	}
	return g
}

// BuildEngineConfig creates the turn engine settings
func (c *Config) BuildEngineConfig() engine.Config {
	e := engine.Config{
		BotName:      c.BotName,
		FarewellMode: engine.FarewellMode(c.FarewellMode),
		DisplayTurns: c.DisplayTurns,
		Recap:        c.Recap,
	}
	if p := c.Profile; p != nil {
		e.Greeting = p.Greeting
		e.Farewell = p.Farewell
		e.InterruptFarewell = p.InterruptFarewell
		e.ExitPhrases = p.ExitPhrases
	}
	if e.Greeting == "" && c.BotName != engine.DefaultConfig().BotName {
		e.Greeting = "Hello, I'm " + c.BotName + ". Type 'exit' or 'quit' to end the chat."
	}
	return e
}
