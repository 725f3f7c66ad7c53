package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// CompletionError is returned by every Client when a completion call fails:
// network failure, timeout, or the provider rejecting the request.
type CompletionError struct {
	Provider  Provider
	Model     string
	Message   string
	Timeout   bool
	Retryable bool
	Cause     error
}

func (e *CompletionError) Error() string {
	var sb strings.Builder
	sb.WriteString("completion failed")
	if e.Provider != "" {
		sb.WriteString(fmt.Sprintf(" (%s", e.Provider))
		if e.Model != "" {
			sb.WriteString("/" + e.Model)
		}
		sb.WriteString(")")
	}
	if e.Timeout {
		sb.WriteString(": timed out")
	}
	if e.Message != "" {
		sb.WriteString(": " + e.Message)
	}
	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Cause))
	}
	return sb.String()
}

func (e *CompletionError) Unwrap() error {
	return e.Cause
}

// IsTimeout reports whether err is a completion timeout.
func IsTimeout(err error) bool {
	var ce *CompletionError
	return errors.As(err, &ce) && ce.Timeout
}

// IsRetryable reports whether err is a transient provider failure
// (overload, rate limit, timeout).
func IsRetryable(err error) bool {
	var ce *CompletionError
	return errors.As(err, &ce) && (ce.Retryable || ce.Timeout)
}

// newCompletionError wraps a provider error, classifying transient failures.
func newCompletionError(provider Provider, model, message string, cause error) *CompletionError {
	ce := &CompletionError{
		Provider: provider,
		Model:    model,
		Message:  message,
		Cause:    cause,
	}
	if cause != nil {
		if errors.Is(cause, context.DeadlineExceeded) {
			ce.Timeout = true
		}
		ce.Retryable = isTransient(cause.Error())
	}
	return ce
}

// isTransient matches the provider failures worth retrying: 429/529 and overload messages.
func isTransient(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range []string{"429", "529", "503", "rate limit", "overloaded", "timeout", "temporarily unavailable"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
