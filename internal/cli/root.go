// Package cli provides the terbot command.
package cli

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"terbot/internal/config"
	"terbot/internal/conversation"
	"terbot/internal/engine"
	"terbot/internal/llm"
	"terbot/internal/logger"
	"terbot/internal/memory"
	"terbot/internal/metrics"
	"terbot/internal/render"
	"terbot/internal/rules"
	"terbot/internal/strategy"
)

const rootLongDesc string = `TerBot is a polite, slightly witty terminal chat companion.

It answers from a pattern rule table by default, or from a language model
backend with --strategy generative. It remembers facts you tell it, such as
your name, across runs.

Type 'exit', 'quit', 'bye' or 'goodbye' to end the chat.

Examples:
  terbot
  terbot --rules configs/rules.yaml --seed 42
  terbot --strategy generative --provider ollama --model llama3.2
  terbot --memory-file ~/.terbot/memory.json --metrics-addr localhost:9464`

const rootShortDesc string = "TerBot - terminal dialogue agent"

type chatCommander struct {
	envFile      string
	strategy     string
	rulesFile    string
	profileFile  string
	provider     string
	model        string
	memoryFile   string
	metricsAddr  string
	farewellMode string
	typingSpeed  time.Duration
	seed         int64
	recap        bool
	debug        bool
}

// NewRootCmd creates the terbot command
func NewRootCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:           "terbot",
		Short:         rootShortDesc,
		Long:          rootLongDesc,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cmder.loadConfig(cmd)
			if err != nil {
				return err
			}
			return cmder.run(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cmder.envFile, "env-file", ".env", "Optional dotenv file to load before the environment")
	cmd.Flags().StringVarP(&cmder.strategy, "strategy", "s", "rules", "Response strategy: rules or generative")
	cmd.Flags().StringVarP(&cmder.rulesFile, "rules", "r", "", "YAML rule table replacing the built-in rules")
	cmd.Flags().StringVar(&cmder.profileFile, "profile", "", "YAML bot profile (name, persona, greeting, farewell)")
	cmd.Flags().StringVarP(&cmder.provider, "provider", "p", "ollama", "Generation backend: ollama, openai, deepseek or ark")
	cmd.Flags().StringVarP(&cmder.model, "model", "m", "llama3.2", "Model name for the generation backend")
	cmd.Flags().StringVar(&cmder.memoryFile, "memory-file", "", "File that keeps remembered facts between runs")
	cmd.Flags().StringVar(&cmder.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&cmder.farewellMode, "farewell", "fixed", "Farewell mode: fixed or strategy")
	cmd.Flags().DurationVar(&cmder.typingSpeed, "typing-speed", 10*time.Millisecond, "Delay per printed character")
	cmd.Flags().Int64Var(&cmder.seed, "seed", 0, "Seed for reply selection; 0 picks a random seed")
	cmd.Flags().BoolVar(&cmder.recap, "recap", false, "Show the last turns when the chat ends")
	cmd.Flags().BoolVarP(&cmder.debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

// loadConfig reads the environment and lets explicitly set flags win
func (c *chatCommander) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(c.envFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	override := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	override("strategy", func() { cfg.Strategy = c.strategy })
	override("rules", func() { cfg.RulesFile = c.rulesFile })
	override("profile", func() { cfg.ProfileFile = c.profileFile })
	override("provider", func() { cfg.Provider = c.provider })
	override("model", func() { cfg.Model = c.model })
	override("memory-file", func() {
		cfg.MemoryBackend = "file"
		cfg.MemoryFile = c.memoryFile
	})
	override("metrics-addr", func() { cfg.MetricsAddr = c.metricsAddr })
	override("farewell", func() { cfg.FarewellMode = c.farewellMode })
	override("typing-speed", func() { cfg.TypingSpeed = c.typingSpeed })
	override("seed", func() { cfg.Seed = c.seed })
	override("recap", func() { cfg.Recap = c.recap })
	override("debug", func() { cfg.Level = "debug" })

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *chatCommander) run(cmd *cobra.Command, cfg *config.Config) error {
	log, closer, err := logger.New(cfg.Config)
	if err != nil {
		return err
	}
	defer closer.Close()

	sessionID := uuid.NewString()
	log = log.With().Str("session_id", sessionID).Logger()
	log.Info().
		Str("strategy", cfg.Strategy).
		Str("memory_backend", cfg.MemoryBackend).
		Msg("Starting TerBot")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := buildStrategy(ctx, cfg, log)
	if err != nil {
		return err
	}

	persister := buildPersister(ctx, cfg, log)
	defer persister.Close()

	opts := []engine.Option{
		engine.WithLogger(log),
		engine.WithPersister(persister),
		engine.WithHistory(conversation.NewHistory(cfg.MaxHistoryTurns)),
	}
	if cfg.MetricsAddr != "" {
		m := metrics.New("terbot")
		opts = append(opts, engine.WithObserver(m))
		go func() {
			if err := m.Serve(ctx, cfg.MetricsAddr, sessionID, log); err != nil {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	eng := engine.New(s, cfg.BuildEngineConfig(), opts...)
	term := render.NewTerminal(cmd.OutOrStdout(), cfg.BotName, cfg.TypingSpeed)
	if cfg.Strategy == string(strategy.KindGenerative) {
		term.Note("(%s via %s)", cfg.Model, cfg.Provider)
	}

	if err := eng.Run(ctx, cmd.InOrStdin(), term); err != nil {
		return fmt.Errorf("conversation ended unexpectedly: %w", err)
	}
	log.Info().Int("facts", eng.Memory().Len()).Msg("TerBot stopped")
	return nil
}

func buildStrategy(ctx context.Context, cfg *config.Config, log zerolog.Logger) (strategy.Strategy, error) {
	ruleRand, genRand := newRand(cfg.Seed, 0), newRand(cfg.Seed, 1)

	var (
		rs  *rules.RuleSet
		err error
	)
	if cfg.RulesFile != "" {
		rs, err = rules.LoadFile(cfg.RulesFile, ruleRand)
		if err != nil {
			return nil, err
		}
	} else {
		rs = rules.NewDefaultRuleSet(ruleRand)
	}

	deps := strategy.Deps{
		Rules:      rs,
		Overrides:  memory.DefaultOverrides(),
		Generative: cfg.BuildGenerativeConfig(),
		Rand:       genRand,
	}
	kind := strategy.Kind(cfg.Strategy)
	if kind == strategy.KindGenerative {
		pc := cfg.BuildProviderConfig()
		gen, err := llm.NewGenerator(ctx, pc)
		if err != nil {
			return nil, fmt.Errorf("failed to create generator: %w", err)
		}
		if ignored := llm.IgnoredOptions(pc); len(ignored) > 0 {
			log.Warn().Str("provider", pc.Provider).Strs("options", ignored).Msg("Provider does not support these sampling options")
		}
		deps.Generator = llm.NewRetrying(gen, cfg.MaxRetries, 0, log)
	}
	return strategy.New(kind, deps)
}

// buildPersister never fails: an unreachable store degrades to no persistence
func buildPersister(ctx context.Context, cfg *config.Config, log zerolog.Logger) memory.Persister {
	switch cfg.MemoryBackend {
	case "file":
		return memory.NewFilePersister(cfg.MemoryFile)
	case "redis":
		p, err := memory.NewRedisPersister(ctx, cfg.RedisURL, cfg.MemoryProfile, cfg.MemoryTTL)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, memory will not be persisted")
			return memory.NopPersister{}
		}
		return p
	}
	return memory.NopPersister{}
}

// newRand returns nil for a zero seed so the consumer seeds itself randomly
func newRand(seed, offset int64) *rand.Rand {
	if seed == 0 {
		return nil
	}
	return rand.New(rand.NewSource(seed + offset))
}
