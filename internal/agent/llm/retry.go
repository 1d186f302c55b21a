package llm

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudwego/eino/schema"

	"github.com/yekaditya11/Acma-Insights/internal/agent/graph/prompts"
	logx "github.com/yekaditya11/Acma-Insights/pkg/logger"
)

// RetryingGenerator retries failed generation calls with exponential backoff.
// Cancellation of the caller's context stops retrying immediately.
type RetryingGenerator struct {
	next       Generator
	maxRetries uint64
	initial    time.Duration
}

var _ Generator = (*RetryingGenerator)(nil)

// WithRetry wraps next unless maxRetries is zero, in which case next is returned as-is.
func WithRetry(next Generator, maxRetries int, initial time.Duration) Generator {
	if maxRetries <= 0 {
		return next
	}
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	return &RetryingGenerator{next: next, maxRetries: uint64(maxRetries), initial: initial}
}

func (r *RetryingGenerator) Generate(ctx context.Context, id prompts.TemplateID, vars map[string]any, history []*schema.Message) (string, error) {
	var out string
	op := func() error {
		text, err := r.next.Generate(ctx, id, vars, history)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		out = text
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.initial
	bo.MaxElapsedTime = 0

	err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(bo, r.maxRetries), ctx),
		func(err error, wait time.Duration) {
			logx.Warn().Err(err).
				Str("stage", string(id)).
				Dur("retry_in", wait).
				Msg("Retrying text generation")
		})
	if err != nil {
		return "", err
	}
	return out, nil
}
