package llm

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

// timeoutClient bounds every completion call with a deadline.
type timeoutClient struct {
	next    Client
	timeout time.Duration
}

// WithTimeout wraps a client so each Complete call is cancelled after d.
// Exceeding the deadline yields a *CompletionError with Timeout set.
// A non-positive d returns next unchanged.
func WithTimeout(next Client, d time.Duration) Client {
	if d <= 0 {
		return next
	}
	return &timeoutClient{next: next, timeout: d}
}

func (c *timeoutClient) Complete(ctx context.Context, prompt string, modelID string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err := c.next.Complete(callCtx, prompt, modelID)
	if err == nil {
		return text, nil
	}

	// Only the per-call deadline counts as a timeout; parent cancellation passes through.
	if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		var ce *CompletionError
		if errors.As(err, &ce) {
			timedOut := *ce
			timedOut.Timeout = true
			return "", &timedOut
		}
		return "", &CompletionError{Model: modelID, Timeout: true, Cause: err}
	}
	return "", asCompletionError(err, modelID)
}

func (c *timeoutClient) Close() error {
	return c.next.Close()
}

// rateLimitedClient paces outbound completion calls.
type rateLimitedClient struct {
	next    Client
	limiter *rate.Limiter
}

// WithRateLimit wraps a client so calls wait on limiter before reaching the provider.
// The limiter is shared by all requests using the returned client.
func WithRateLimit(next Client, limiter *rate.Limiter) Client {
	if limiter == nil {
		return next
	}
	return &rateLimitedClient{next: next, limiter: limiter}
}

// NewLimiter builds a limiter allowing rps calls per second with the given burst.
// A non-positive rps disables limiting.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func (c *rateLimitedClient) Complete(ctx context.Context, prompt string, modelID string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &CompletionError{Model: modelID, Message: "rate limiter wait", Cause: err}
	}
	return c.next.Complete(ctx, prompt, modelID)
}

func (c *rateLimitedClient) Close() error {
	return c.next.Close()
}

// asCompletionError makes sure errors leaving a decorator carry the CompletionError type.
func asCompletionError(err error, modelID string) error {
	var ce *CompletionError
	if errors.As(err, &ce) {
		return err
	}
	return &CompletionError{Model: modelID, Cause: err}
}
