package engine

import (
	"bufio"
	"context"
	"io"

	"terbot/internal/conversation"
)

// Renderer displays the conversation
type Renderer interface {
	Banner(title string)
	Prompt()
	Bot(text string)
	Recap(turns []conversation.Turn)
}

// Run drives the interactive loop until an exit phrase, end of input or
// cancellation of ctx. All three are graceful and return nil.
func (e *Engine) Run(ctx context.Context, in io.Reader, r Renderer) error {
	e.LoadMemory(ctx)

	r.Banner(e.cfg.BotName)
	r.Bot(e.cfg.Greeting)

	done := make(chan struct{})
	defer close(done)

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		e.state = StateAwaitingInput
		r.Prompt()

		select {
		case <-ctx.Done():
			return e.stop(context.WithoutCancel(ctx), r)

		case text, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					e.logger.Warn().Err(err).Msg("Input read failed")
				}
				return e.stop(ctx, r)
			}

			out, err := e.Step(ctx, text)
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return e.stop(context.WithoutCancel(ctx), r)
			}
			if out.Skipped {
				continue
			}
			r.Bot(out.Reply)
			if out.Terminated {
				e.recap(r)
				return nil
			}
		}
	}
}

func (e *Engine) stop(ctx context.Context, r Renderer) error {
	out, err := e.Interrupt(ctx)
	if err != nil {
		return err
	}
	r.Bot(out.Reply)
	e.recap(r)
	return nil
}

func (e *Engine) recap(r Renderer) {
	if e.cfg.Recap {
		r.Recap(e.Transcript())
	}
}
