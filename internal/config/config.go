package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"terbot/internal/logger"
)

// EnvPrefix namespaces every setting, e.g. TERBOT_STRATEGY
const EnvPrefix = "TERBOT"

// DefaultPersona conditions the generative backend
const DefaultPersona = "You are TerBot: a polite, encouraging, slightly witty CLI assistant. " +
	"You are formal but relaxed, humble when appropriate, helpful, and concise. " +
	"Keep replies short-to-moderate length unless the user asks for detail."

// Config is the process configuration, read from the environment.
// Unprefixed names such as LOG_LEVEL are accepted as well.
type Config struct {
	logger.Config

	Strategy     string `envconfig:"STRATEGY" default:"rules" validate:"oneof=rules generative"`
	BotName      string `envconfig:"BOT_NAME" default:"TerBot" validate:"required"`
	Persona      string `envconfig:"PERSONA"`
	ProfileFile  string `envconfig:"PROFILE_FILE"`
	RulesFile    string `envconfig:"RULES_FILE"`
	FarewellMode string `envconfig:"FAREWELL_MODE" default:"fixed" validate:"oneof=fixed strategy"`
	Seed         int64  `envconfig:"SEED"`

	MaxHistoryTurns  int           `envconfig:"MAX_HISTORY_TURNS" default:"6" validate:"min=1"`
	ContextExchanges int           `envconfig:"CONTEXT_EXCHANGES" default:"3" validate:"min=1"`
	DisplayTurns     int           `envconfig:"DISPLAY_TURNS" default:"6" validate:"min=1"`
	Recap            bool          `envconfig:"RECAP" default:"false"`
	TypingSpeed      time.Duration `envconfig:"TYPING_SPEED" default:"10ms"`

	Provider          string        `envconfig:"PROVIDER" default:"ollama" validate:"oneof=ollama openai deepseek ark"`
	Model             string        `envconfig:"MODEL" default:"llama3.2"`
	BaseURL           string        `envconfig:"BASE_URL" validate:"omitempty,url"`
	APIKey            string        `envconfig:"API_KEY"`
	MaxNewTokens      int           `envconfig:"MAX_NEW_TOKENS" default:"150" validate:"gt=0"`
	Temperature       float64       `envconfig:"TEMPERATURE" default:"0.8" validate:"gte=0,lte=2"`
	TopK              int           `envconfig:"TOP_K" default:"50" validate:"gte=0"`
	TopP              float64       `envconfig:"TOP_P" default:"0.95" validate:"gt=0,lte=1"`
	DoSample          bool          `envconfig:"DO_SAMPLE" default:"true"`
	GenerationTimeout time.Duration `envconfig:"GENERATION_TIMEOUT" default:"30s"`
	MaxRetries        int           `envconfig:"MAX_RETRIES" default:"2" validate:"gte=0"`
	MaxReplyChars     int           `envconfig:"MAX_REPLY_CHARS" default:"500" validate:"gt=0"`

	MemoryBackend string        `envconfig:"MEMORY_BACKEND" default:"file" validate:"oneof=none file redis"`
	MemoryFile    string        `envconfig:"MEMORY_FILE" default:"data/memory.json"`
	RedisURL      string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	MemoryProfile string        `envconfig:"MEMORY_PROFILE" default:"default" validate:"required"`
	MemoryTTL     time.Duration `envconfig:"MEMORY_TTL" default:"720h"`

	MetricsAddr string `envconfig:"METRICS_ADDR" validate:"omitempty,hostname_port"`

	// Profile carries the texts read from ProfileFile
	Profile *Profile `ignored:"true"`
}

// Load reads optional .env files, then the environment, then the profile file.
// Missing .env files are not an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error loading %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("error processing environment configuration: %w", err)
	}
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Finalize loads the profile file, fills derived defaults and validates.
// Call it again after overriding fields, e.g. from command-line flags.
func (c *Config) Finalize() error {
	if c.ProfileFile != "" {
		p, err := LoadProfile(c.ProfileFile)
		if err != nil {
			return err
		}
		c.Profile = p
		if p.BotName != "" {
			c.BotName = p.BotName
		}
		if p.Persona != "" {
			c.Persona = p.Persona
		}
		if p.FarewellMode != "" {
			c.FarewellMode = p.FarewellMode
		}
	}
	if strings.TrimSpace(c.Persona) == "" {
		c.Persona = strings.ReplaceAll(DefaultPersona, "TerBot", c.BotName)
	}
	return c.Validate()
}

// Validate checks field constraints and cross-field requirements
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Strategy == "generative" && c.Provider != "ollama" && c.APIKey == "" {
		return fmt.Errorf("invalid configuration: provider %s requires %s_API_KEY", c.Provider, EnvPrefix)
	}
	if c.MemoryBackend == "file" && c.MemoryFile == "" {
		return fmt.Errorf("invalid configuration: file memory backend requires %s_MEMORY_FILE", EnvPrefix)
	}
	return nil
}
