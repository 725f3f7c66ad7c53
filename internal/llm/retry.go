package llm

import (
	"context"
	"time"
)

// retryClient repeats a completion call after a transient provider failure.
type retryClient struct {
	next    Client
	retries int
	backoff time.Duration
}

// WithRetry wraps a client so transient failures (overload, rate limit) are
// retried up to retries times, doubling backoff between attempts. Timeouts and
// non-transient errors are returned immediately.
func WithRetry(next Client, retries int, backoff time.Duration) Client {
	if retries <= 0 {
		return next
	}
	return &retryClient{next: next, retries: retries, backoff: backoff}
}

func (c *retryClient) Complete(ctx context.Context, prompt string, modelID string) (string, error) {
	wait := c.backoff
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", &CompletionError{Model: modelID, Message: "cancelled during retry backoff", Cause: ctx.Err()}
			case <-time.After(wait):
			}
			wait *= 2
		}

		text, err := c.next.Complete(ctx, prompt, modelID)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if IsTimeout(err) || !IsRetryable(err) {
			return "", err
		}
	}
	return "", lastErr
}

func (c *retryClient) Close() error {
	return c.next.Close()
}
