package pipeline

import (
	"errors"
	"fmt"
)

// InputError reports a request rejected before any completion call.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid input: %s", e.Message)
}

// StepError wraps the fatal error of a step.
type StepError struct {
	Step    StepName
	Attempt int
	Cause   error
}

func (e *StepError) Error() string {
	if e.Attempt > 0 {
		return fmt.Sprintf("step %s failed on attempt %d: %v", e.Step, e.Attempt, e.Cause)
	}
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Cause)
}

func (e *StepError) Unwrap() error {
	return e.Cause
}

// IsInputError reports whether err is an InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// FailedStep returns the step that caused err, if any.
func FailedStep(err error) (StepName, bool) {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step, true
	}
	return "", false
}
