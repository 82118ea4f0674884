package render

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"terbot/internal/conversation"
)

func TestTerminalPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, "TerBot", 0)

	term.Banner("TerBot")
	term.Bot("Hello there.")
	term.Prompt()
	term.Note("backend: %s", "rules")

	assert.Equal(t, "--- TerBot ---\nTerBot: Hello there.\nYou: backend: rules\n", buf.String())
}

func TestTerminalTypingDelay(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, "TerBot", 10*time.Millisecond)

	var slept []time.Duration
	term.sleep = func(d time.Duration) { slept = append(slept, d) }

	term.Bot("héllo")

	assert.Equal(t, "TerBot: héllo\n", buf.String())
	assert.Len(t, slept, 5, "one pause per character")
	assert.Equal(t, 10*time.Millisecond, slept[0])
}

func TestTerminalRecap(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, "TerBot", 0)

	term.Recap(nil)
	assert.Empty(t, buf.String())

	h := conversation.NewHistory(6)
	h.Append(conversation.User, "hi")
	h.Append(conversation.Bot, "Hello there!")
	term.Recap(h.Window(0))

	assert.Equal(t, "--- last 2 turns ---\nUser: hi\nTerBot: Hello there!\n", buf.String())
}
