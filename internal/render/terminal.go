package render

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"terbot/internal/conversation"
)

// Terminal prints the conversation with colored speaker prompts and a
// per-character typing delay for bot lines
type Terminal struct {
	out     io.Writer
	botName string
	delay   time.Duration
	sleep   func(time.Duration)

	mu     sync.Mutex
	banner lipgloss.Style
	bot    lipgloss.Style
	user   lipgloss.Style
	dim    lipgloss.Style
}

// NewTerminal creates a renderer writing to out. The color profile follows out,
// so a non-terminal writer gets plain text.
func NewTerminal(out io.Writer, botName string, delay time.Duration) *Terminal {
	r := lipgloss.NewRenderer(out)
	return &Terminal{
		out:     out,
		botName: botName,
		delay:   delay,
		sleep:   time.Sleep,
		banner:  r.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		bot:     r.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		user:    r.NewStyle().Foreground(lipgloss.Color("82")).Bold(true),
		dim:     r.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

func (t *Terminal) Banner(title string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, t.banner.Render(fmt.Sprintf("--- %s ---", title)))
}

func (t *Terminal) Prompt() {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprint(t.out, t.user.Render("You: "))
}

// Bot types text out one character at a time
func (t *Terminal) Bot(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprint(t.out, t.bot.Render(t.botName+": "))
	if t.delay <= 0 {
		fmt.Fprintln(t.out, text)
		return
	}
	for _, r := range text {
		fmt.Fprint(t.out, string(r))
		t.sleep(t.delay)
	}
	fmt.Fprintln(t.out)
}

// Note prints a dimmed status line, e.g. the active backend
func (t *Terminal) Note(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, t.dim.Render(strings.TrimSpace(fmt.Sprintf(format, args...))))
}

// Recap prints the given turns as a dimmed transcript
func (t *Terminal) Recap(turns []conversation.Turn) {
	if len(turns) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintln(t.out, t.banner.Render(fmt.Sprintf("--- last %d turns ---", len(turns))))
	for _, turn := range turns {
		label := conversation.Label(turn.Speaker, t.botName)
		fmt.Fprintln(t.out, t.dim.Render(label+": "+turn.Text))
	}
}
