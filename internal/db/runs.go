package db

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pynay/LetterChain/internal/pipeline"
)

var _ pipeline.RunRecorder = (*DB)(nil)

// StartRun inserts a running run record. Input texts are stored as digests only.
func (db *DB) StartRun(ctx context.Context, runID uuid.UUID, kind pipeline.RunKind, in pipeline.Input) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO letter_runs (id, kind, status, tone, job_hash, resume_hash)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		runID, string(kind), RunStatusRunning, in.Tone, digest(in.JobText), digest(in.ResumeText),
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// RecordStep appends a step record.
func (db *DB) RecordStep(ctx context.Context, runID uuid.UUID, step pipeline.StepName, attempt int, durationMS int64, stepErr error) error {
	status := StepStatusCompleted
	if stepErr != nil {
		status = StepStatusFailed
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO letter_run_steps (run_id, step, attempt, status, duration_ms, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		runID, string(step), attempt, status, durationMS, errorMessage(stepErr),
	)
	if err != nil {
		return fmt.Errorf("failed to record step %s: %w", step, err)
	}
	return nil
}

// FinishRun stores the outcome of a run.
func (db *DB) FinishRun(ctx context.Context, runID uuid.UUID, res *pipeline.Result, runErr error) error {
	var (
		letter   *string
		payload  []byte
		attempts int
		best     bool
	)
	if res != nil {
		letter = &res.CoverLetter
		attempts = res.Attempts
		best = res.BestEffort
		var err error
		if payload, err = json.Marshal(res); err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
	}

	_, err := db.pool.Exec(ctx,
		`UPDATE letter_runs
		 SET status = $2, attempts = $3, best_effort = $4, cover_letter = $5,
		     result = $6, error_message = $7, completed_at = NOW()
		 WHERE id = $1`,
		runID, RunStatus(res, runErr), attempts, best, letter, payload, errorMessage(runErr),
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// GetRun retrieves a run and its steps. It returns nil, nil when not found.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var run Run
	err := db.pool.QueryRow(ctx,
		`SELECT id, kind, status, tone, job_hash, resume_hash, attempts, best_effort,
		        cover_letter, result, error_message, created_at, completed_at
		 FROM letter_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.Kind, &run.Status, &run.Tone, &run.JobHash, &run.ResumeHash,
		&run.Attempts, &run.BestEffort, &run.CoverLetter, &run.Result, &run.ErrorMessage,
		&run.CreatedAt, &run.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	steps, err := db.ListRunSteps(ctx, runID)
	if err != nil {
		return nil, err
	}
	run.Steps = steps
	return &run, nil
}

// ListRunSteps returns the steps of a run in execution order.
func (db *DB) ListRunSteps(ctx context.Context, runID uuid.UUID) ([]RunStep, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT step, attempt, status, duration_ms, error_message, created_at
		 FROM letter_run_steps WHERE run_id = $1 ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list run steps: %w", err)
	}
	defer rows.Close()

	var steps []RunStep
	for rows.Next() {
		var s RunStep
		if err := rows.Scan(&s.Step, &s.Attempt, &s.Status, &s.DurationMs, &s.ErrorMessage, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run step: %w", err)
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

// RunStatus derives the stored status of a finished run.
func RunStatus(res *pipeline.Result, runErr error) string {
	switch {
	case runErr != nil || res == nil:
		return RunStatusFailed
	case res.BestEffort:
		return RunStatusBestEffort
	default:
		return RunStatusAccepted
	}
}

func errorMessage(err error) *string {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if len(msg) > MaxErrorMessageLen {
		msg = msg[:MaxErrorMessageLen]
		for !utf8.ValidString(msg) {
			msg = msg[:len(msg)-1]
		}
	}
	return &msg
}

func digest(text string) string {
	if text == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
