package pipeline

import (
	"context"

	"github.com/google/uuid"
)

// RunKind distinguishes fresh generation from feedback revision in run records.
type RunKind string

// Run kinds.
const (
	RunGenerate RunKind = "generate"
	RunFeedback RunKind = "feedback"
)

// RunRecorder persists run records. Recorder failures are logged and never
// fail the request.
type RunRecorder interface {
	StartRun(ctx context.Context, runID uuid.UUID, kind RunKind, in Input) error
	RecordStep(ctx context.Context, runID uuid.UUID, step StepName, attempt int, durationMS int64, stepErr error) error
	FinishRun(ctx context.Context, runID uuid.UUID, res *Result, runErr error) error
}
