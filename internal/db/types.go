package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Run status constants
const (
	RunStatusRunning    = "running"
	RunStatusAccepted   = "accepted"
	RunStatusBestEffort = "best_effort"
	RunStatusFailed     = "failed"
)

// Step status constants
const (
	StepStatusCompleted = "completed"
	StepStatusFailed    = "failed"
)

// MaxErrorMessageLen bounds stored error text.
const MaxErrorMessageLen = 2000

// Run is a stored generation or feedback run.
type Run struct {
	ID           uuid.UUID       `json:"id"`
	Kind         string          `json:"kind"`
	Status       string          `json:"status"`
	Tone         string          `json:"tone,omitempty"`
	JobHash      string          `json:"job_hash,omitempty"`
	ResumeHash   string          `json:"resume_hash,omitempty"`
	Attempts     int             `json:"attempts"`
	BestEffort   bool            `json:"best_effort"`
	CoverLetter  *string         `json:"cover_letter,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	Steps        []RunStep       `json:"steps,omitempty"`
}

// RunStep is one executed step of a run.
type RunStep struct {
	Step         string    `json:"step"`
	Attempt      int       `json:"attempt"`
	Status       string    `json:"status"`
	DurationMs   int64     `json:"duration_ms"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
