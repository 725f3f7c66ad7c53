package pipeline

import (
	"github.com/google/uuid"

	"github.com/pynay/LetterChain/internal/types"
)

// EventType discriminates progress events.
type EventType string

// Event types. Every stream carries zero or more status events followed by
// exactly one result or error event.
const (
	EventStatus EventType = "status"
	EventResult EventType = "result"
	EventError  EventType = "error"
)

// Event is one progress update from a run.
type Event struct {
	Type    EventType
	RunID   uuid.UUID
	Step    StepName
	Attempt int
	Message string
	// Result is set on EventResult.
	Result *Result
	// Err is set on EventError.
	Err error
}

// Terminal reports whether e ends the stream.
func (e Event) Terminal() bool {
	return e.Type == EventResult || e.Type == EventError
}

// ProgressCallback is called for every event of a synchronous run.
type ProgressCallback func(event Event)

// Result is the outcome of a completed run. BestEffort is set when the
// attempt cap was reached without a passing verdict.
type Result struct {
	RunID       uuid.UUID      `json:"run_id"`
	CoverLetter string         `json:"cover_letter"`
	BestEffort  bool           `json:"best_effort"`
	Attempts    int            `json:"attempts"`
	Verdict     *types.Verdict `json:"validation,omitempty"`
	Fallbacks   []StepName     `json:"fallbacks,omitempty"`
	Snapshot    Snapshot       `json:"snapshot"`
}

func newResult(s State) *Result {
	return &Result{
		RunID:       s.RunID,
		CoverLetter: s.CoverLetter,
		BestEffort:  s.Verdict == nil || !s.Verdict.Valid,
		Attempts:    s.AttemptCount + 1,
		Verdict:     s.Verdict.Clone(),
		Fallbacks:   append([]StepName(nil), s.Fallbacks...),
		Snapshot:    s.Snapshot(),
	}
}
