package llm

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Retrying retries transient generation failures with exponential backoff.
// Empty output and context errors are not retried.
type Retrying struct {
	next       Generator
	maxRetries uint64
	initial    time.Duration
	logger     zerolog.Logger
}

// NewRetrying wraps next; maxRetries of zero disables retrying
func NewRetrying(next Generator, maxRetries int, initial time.Duration, logger zerolog.Logger) *Retrying {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if initial <= 0 {
		initial = 200 * time.Millisecond
	}
	return &Retrying{next: next, maxRetries: uint64(maxRetries), initial: initial, logger: logger}
}

func (r *Retrying) Generate(ctx context.Context, contextText string, opts Options) (string, error) {
	var out string
	attempt := 0

	op := func() error {
		attempt++
		text, err := r.next.Generate(ctx, contextText, opts)
		if err == nil {
			out = text
			return nil
		}
		if errors.Is(err, ErrEmptyOutput) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		r.logger.Warn().Err(err).Int("attempt", attempt).Msg("generation failed")
		return err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.initial
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, r.maxRetries), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		return "", err
	}
	return out, nil
}
