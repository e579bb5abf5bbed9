package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrRateLimitExceeded indicates the in-flight request cap was hit.
var ErrRateLimitExceeded = errors.New("llm rate limit exceeded")

// Middleware wraps a Client with cross-cutting behavior. Middlewares
// compose outside-in: Chain(c, A, B) runs A around B around c.
type Middleware func(Client) Client

// Chain applies the middlewares to the client, first middleware outermost.
func Chain(client Client, middlewares ...Middleware) Client {
	for i := len(middlewares) - 1; i >= 0; i-- {
		client = middlewares[i](client)
	}
	return client
}

// WithLogging logs every completion call with its duration and outcome.
func WithLogging(logger *slog.Logger) Middleware {
	return func(next Client) Client {
		return CompleteFunc(func(ctx context.Context, prompt string) (string, error) {
			start := time.Now()
			out, err := next.Complete(ctx, prompt)
			if err != nil {
				logger.Warn("completion failed",
					"prompt_length", len(prompt),
					"duration", time.Since(start),
					"error", err)
				return "", err
			}
			logger.Debug("completion finished",
				"prompt_length", len(prompt),
				"output_length", len(out),
				"duration", time.Since(start))
			return out, nil
		})
	}
}

// WithRetry retries failed completions up to attempts times with a fixed
// delay between tries. Context cancellation stops the retry loop.
func WithRetry(attempts int, delay time.Duration) Middleware {
	if attempts < 1 {
		attempts = 1
	}
	return func(next Client) Client {
		return CompleteFunc(func(ctx context.Context, prompt string) (string, error) {
			var lastErr error
			for i := 0; i < attempts; i++ {
				if i > 0 {
					select {
					case <-ctx.Done():
						return "", ctx.Err()
					case <-time.After(delay):
					}
				}
				out, err := next.Complete(ctx, prompt)
				if err == nil {
					return out, nil
				}
				lastErr = err
			}
			return "", lastErr
		})
	}
}

// WithMaxInFlight caps concurrent completions; calls beyond the cap fail
// fast with ErrRateLimitExceeded instead of queueing.
func WithMaxInFlight(max int) Middleware {
	if max < 1 {
		max = 1
	}
	slots := make(chan struct{}, max)
	return func(next Client) Client {
		return CompleteFunc(func(ctx context.Context, prompt string) (string, error) {
			select {
			case slots <- struct{}{}:
				defer func() { <-slots }()
				return next.Complete(ctx, prompt)
			default:
				return "", ErrRateLimitExceeded
			}
		})
	}
}
