package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terbot/internal/engine"
)

func noEnvFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "rules", cfg.Strategy)
	assert.Equal(t, "TerBot", cfg.BotName)
	assert.Equal(t, 6, cfg.MaxHistoryTurns)
	assert.Equal(t, 3, cfg.ContextExchanges)
	assert.Equal(t, 6, cfg.DisplayTurns)
	assert.Equal(t, 150, cfg.MaxNewTokens)
	assert.InDelta(t, 0.8, cfg.Temperature, 1e-9)
	assert.Equal(t, 50, cfg.TopK)
	assert.InDelta(t, 0.95, cfg.TopP, 1e-9)
	assert.True(t, cfg.DoSample)
	assert.Equal(t, 10*time.Millisecond, cfg.TypingSpeed)
	assert.Equal(t, DefaultPersona, cfg.Persona)
	assert.Equal(t, "fixed", cfg.FarewellMode)
	assert.Equal(t, "file", cfg.Output)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TERBOT_STRATEGY", "generative")
	t.Setenv("TERBOT_MAX_NEW_TOKENS", "64")
	t.Setenv("TERBOT_DO_SAMPLE", "false")
	t.Setenv("TERBOT_RECAP", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "generative", cfg.Strategy)
	assert.Equal(t, 64, cfg.MaxNewTokens)
	assert.False(t, cfg.DoSample)
	assert.True(t, cfg.BuildEngineConfig().Recap)
	assert.Equal(t, "debug", cfg.Level)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TERBOT_BOT_NAME=Ada\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TERBOT_BOT_NAME") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Ada", cfg.BotName)
	assert.Contains(t, cfg.Persona, "You are Ada:")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown strategy", env: map[string]string{"TERBOT_STRATEGY": "oracle"}},
		{name: "zero history", env: map[string]string{"TERBOT_MAX_HISTORY_TURNS": "0"}},
		{name: "top p out of range", env: map[string]string{"TERBOT_TOP_P": "1.5"}},
		{name: "hosted provider without key", env: map[string]string{"TERBOT_STRATEGY": "generative", "TERBOT_PROVIDER": "openai"}},
		{name: "bad log level", env: map[string]string{"LOG_LEVEL": "loud"}},
		{name: "bad farewell mode", env: map[string]string{"TERBOT_FAREWELL_MODE": "silent"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(noEnvFile(t))
			assert.Error(t, err)
		})
	}
}

func TestProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bot_name: Marvin
persona: You are Marvin, a gloomy but helpful robot.
greeting: Oh. Hello.
farewell: Finally.
farewell_mode: strategy
exit_phrases: [exit, "so long"]
clarifying_questions:
  - "What now?"
`), 0o600))
	t.Setenv("TERBOT_PROFILE_FILE", path)

	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "Marvin", cfg.BotName)
	assert.Equal(t, "You are Marvin, a gloomy but helpful robot.", cfg.Persona)

	ec := cfg.BuildEngineConfig()
	assert.Equal(t, "Oh. Hello.", ec.Greeting)
	assert.Equal(t, "Finally.", ec.Farewell)
	assert.Equal(t, engine.FarewellStrategy, ec.FarewellMode)
	assert.Equal(t, []string{"exit", "so long"}, ec.ExitPhrases)

	gc := cfg.BuildGenerativeConfig()
	assert.Equal(t, []string{"What now?"}, gc.Fallbacks)
	assert.Equal(t, 6, gc.ContextTurns)
}

func TestProfileMissingFile(t *testing.T) {
	t.Setenv("TERBOT_PROFILE_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load(noEnvFile(t))
	assert.Error(t, err)
}

func TestBuildProviderConfig(t *testing.T) {
	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)

	pc := cfg.BuildProviderConfig()
	assert.Equal(t, "ollama", pc.Provider)
	assert.Equal(t, 150, pc.Options.MaxNewTokens)
	assert.Equal(t, 30*time.Second, pc.Timeout)
}
