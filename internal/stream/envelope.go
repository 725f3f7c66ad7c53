// Package stream defines the wire format for run progress: one JSON envelope
// per event, written as NDJSON lines or SSE frames, ending with an end sentinel.
package stream

import (
	"github.com/google/uuid"

	"github.com/pynay/LetterChain/internal/llm"
	"github.com/pynay/LetterChain/internal/pipeline"
)

// Version is the envelope schema version.
const Version = 1

// Type is the envelope type.
type Type string

// Envelope types. A stream carries status envelopes, then one result or error
// envelope, then the end sentinel.
const (
	TypeStatus Type = "status"
	TypeResult Type = "result"
	TypeError  Type = "error"
	TypeEnd    Type = "end"
)

// Error codes carried by error envelopes.
const (
	CodeInvalidInput = "invalid_input"
	CodeTimeout      = "timeout"
	CodeCancelled    = "cancelled"
	CodeStepFailed   = "step_failed"
	CodeInternal     = "internal"
)

// Envelope is one line of a progress stream.
type Envelope struct {
	V       int              `json:"v"`
	Type    Type             `json:"type"`
	RunID   string           `json:"run_id,omitempty"`
	Step    string           `json:"step,omitempty"`
	Attempt int              `json:"attempt,omitempty"`
	Message string           `json:"message,omitempty"`
	Code    string           `json:"code,omitempty"`
	Result  *pipeline.Result `json:"result,omitempty"`
}

// Terminal reports whether e is a result or error envelope.
func (e Envelope) Terminal() bool {
	return e.Type == TypeResult || e.Type == TypeError
}

// End returns the sentinel written after the terminal envelope.
func End() Envelope {
	return Envelope{V: Version, Type: TypeEnd}
}

// FromEvent converts a pipeline event to its wire form.
func FromEvent(ev pipeline.Event) Envelope {
	env := Envelope{
		V:       Version,
		Step:    string(ev.Step),
		Attempt: ev.Attempt,
		Message: ev.Message,
	}
	if ev.RunID != uuid.Nil {
		env.RunID = ev.RunID.String()
	}

	switch ev.Type {
	case pipeline.EventStatus:
		env.Type = TypeStatus
	case pipeline.EventResult:
		env.Type = TypeResult
		env.Result = ev.Result
	default:
		env.Type = TypeError
		env.Code = ErrorCode(ev.Err)
		if step, ok := pipeline.FailedStep(ev.Err); ok {
			env.Step = string(step)
		}
		if env.Message == "" && ev.Err != nil {
			env.Message = ev.Err.Error()
		}
	}
	return env
}

// ErrorCode classifies a run error for clients.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case pipeline.IsInputError(err):
		return CodeInvalidInput
	case pipeline.IsCancelled(err):
		return CodeCancelled
	case llm.IsTimeout(err):
		return CodeTimeout
	}
	if _, ok := pipeline.FailedStep(err); ok {
		return CodeStepFailed
	}
	return CodeInternal
}
