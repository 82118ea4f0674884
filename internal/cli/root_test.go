package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runChat(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("LOG_OUTPUT", "file")
	t.Setenv("LOG_FILE_PATH", filepath.Join(dir, "terbot.log"))

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(&out)
	cmd.SetArgs(append([]string{
		"--env-file", filepath.Join(dir, "missing.env"),
		"--typing-speed", "0s",
		"--seed", "3",
	}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestChatSessionRemembersName(t *testing.T) {
	memFile := filepath.Join(t.TempDir(), "memory.json")

	out, err := runChat(t, "hello\nmy name is Bob\nwhat is my name?\nexit\n", "--memory-file", memFile)
	require.NoError(t, err)

	assert.Contains(t, out, "--- TerBot ---")
	assert.Contains(t, out, "Nice to meet you, Bob!")
	assert.Contains(t, out, "Your name is Bob.")
	assert.Contains(t, out, "Goodbye! Wishing you a productive day.")

	data, err := os.ReadFile(memFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name":"Bob"`)

	// a new session recalls the fact from the file
	out, err = runChat(t, "what is my name?\n", "--memory-file", memFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Your name is Bob.")
	assert.Contains(t, out, "Goodbye! Shutting down gracefully.")
}

func TestChatCustomRules(t *testing.T) {
	rulesFile := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rulesFile, []byte(`
rules:
  - id: ping
    keywords: [ping]
    responses: ["pong"]
  - id: fallback
    any: true
    responses: ["no idea"]
`), 0o600))

	out, err := runChat(t, "ping\nsomething else\nquit\n", "--rules", rulesFile, "--memory-file", filepath.Join(t.TempDir(), "m.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "TerBot: pong")
	assert.Contains(t, out, "TerBot: no idea")
}

func TestChatRejectsBadConfiguration(t *testing.T) {
	_, err := runChat(t, "", "--strategy", "oracle")
	assert.Error(t, err)

	_, err = runChat(t, "", "--rules", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)

	_, err = runChat(t, "", "--strategy", "generative", "--provider", "openai")
	assert.Error(t, err, "hosted provider without API key")
}

func TestChatRecapShowsDisplayWindow(t *testing.T) {
	t.Setenv("TERBOT_DISPLAY_TURNS", "2")

	out, err := runChat(t, "tell me a joke\nquit\n", "--recap", "--memory-file", filepath.Join(t.TempDir(), "m.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "--- last 2 turns ---")
	assert.Contains(t, out, "User: quit")
}
