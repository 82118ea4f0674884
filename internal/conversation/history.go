package conversation

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// Speaker is who produced a turn
type Speaker = schema.RoleType

const (
	User Speaker = schema.User
	Bot  Speaker = schema.Assistant
)

// Turn is one utterance; immutable once appended
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
	Seq     int     `json:"seq"`
}

// View is the read-only history handed to response strategies
type View interface {
	Len() int
	Window(n int) []Turn
	ContextString(n int, botName string) string
}

// History is a bounded FIFO of turns sized in exchanges (user + bot pairs)
type History struct {
	turns    []Turn
	maxTurns int
	nextSeq  int
}

// NewHistory creates a buffer holding at most maxTurns exchanges
func NewHistory(maxTurns int) *History {
	if maxTurns < 1 {
		maxTurns = 1
	}
	return &History{maxTurns: maxTurns}
}

// Capacity returns the maximum number of turns kept
func (h *History) Capacity() int {
	return h.maxTurns * 2
}

func (h *History) Len() int {
	return len(h.turns)
}

// Append stamps the turn with the next sequence index and evicts the oldest
// turns so that Len() never exceeds Capacity()
func (h *History) Append(speaker Speaker, text string) Turn {
	t := Turn{Speaker: speaker, Text: text, Seq: h.nextSeq}
	h.nextSeq++
	h.turns = append(h.turns, t)
	h.turns = trimTail(h.turns, h.Capacity())
	return t
}

// Window returns a copy of the last n turns in chronological order.
// n <= 0 returns everything.
func (h *History) Window(n int) []Turn {
	out := trimTail(h.turns, n)
	return append([]Turn(nil), out...)
}

// ContextString joins the last n turns as labelled lines for generation prompts
func (h *History) ContextString(n int, botName string) string {
	var b strings.Builder
	for i, t := range h.Window(n) {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(Label(t.Speaker, botName))
		b.WriteString(": ")
		b.WriteString(t.Text)
	}
	return b.String()
}

// Reset discards every turn; sequence numbering continues
func (h *History) Reset() {
	h.turns = nil
}

// Snapshot captures the buffer so an aborted turn can be rolled back
type Snapshot struct {
	turns   []Turn
	nextSeq int
}

func (h *History) Snapshot() Snapshot {
	return Snapshot{turns: append([]Turn(nil), h.turns...), nextSeq: h.nextSeq}
}

// Restore puts the buffer back to a previous snapshot
func (h *History) Restore(s Snapshot) {
	h.turns = append([]Turn(nil), s.turns...)
	h.nextSeq = s.nextSeq
}

// Label is the display name of a speaker
func Label(s Speaker, botName string) string {
	if s == Bot {
		return botName
	}
	return "User"
}

func trimTail(turns []Turn, n int) []Turn {
	if n <= 0 || len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}
