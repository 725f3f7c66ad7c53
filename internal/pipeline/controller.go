package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pynay/LetterChain/internal/types"
)

// Options configures a Controller.
type Options struct {
	// MaxAttempts is the total number of generation attempts per request.
	MaxAttempts int
	// MinInputChars is the shortest resume or job text accepted; 0 disables the check.
	MinInputChars int
	Logger        *slog.Logger
	Recorder      RunRecorder
}

// Controller sequences the workflow steps for each request. It holds no
// per-request state and is safe for concurrent use.
type Controller struct {
	steps    map[StepName]Step
	opts     Options
	logger   *slog.Logger
	recorder RunRecorder
}

// NewController creates a controller over the given step collaborators.
func NewController(steps Steps, opts Options) (*Controller, error) {
	if err := steps.validate(); err != nil {
		return nil, err
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.MinInputChars < 0 {
		opts.MinInputChars = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		steps:    steps.build(),
		opts:     opts,
		logger:   logger,
		recorder: opts.Recorder,
	}, nil
}

// MaxAttempts returns the configured generation attempt cap.
func (c *Controller) MaxAttempts() int {
	return c.opts.MaxAttempts
}

// emitFunc delivers an event; it returns false when the consumer is gone.
type emitFunc func(Event) bool

// Generate runs the full workflow and returns the accepted letter.
// onProgress, if non-nil, receives every event including the terminal one.
func (c *Controller) Generate(ctx context.Context, in Input, onProgress ProgressCallback) (*Result, error) {
	in = in.normalize()
	if err := checkInput(in, in, c.opts.MinInputChars); err != nil {
		return nil, err
	}
	state := NewState(in)
	return c.execute(ctx, state, RunGenerate, in, PhaseParsingInputs, nil, callbackEmitter(onProgress))
}

// Stream runs the full workflow in a new goroutine and returns its events in
// execution order. The channel carries exactly one terminal event and is then
// closed. Cancelling ctx stops the run at the next step boundary; a consumer
// that stopped reading may miss the terminal event.
func (c *Controller) Stream(ctx context.Context, in Input) <-chan Event {
	in = in.normalize()
	return c.stream(ctx, func(ctx context.Context, emit emitFunc) {
		if err := checkInput(in, in, c.opts.MinInputChars); err != nil {
			emit(Event{Type: EventError, Err: err, Message: err.Error()})
			return
		}
		state := NewState(in)
		_, _ = c.execute(ctx, state, RunGenerate, in, PhaseParsingInputs, nil, emit)
	})
}

// Feedback revises a previous letter. The run starts at Generating with the
// feedback text as the only prior issue. Profiles and matches come from
// in.Snapshot when it is complete; otherwise the parse and match steps run first.
func (c *Controller) Feedback(ctx context.Context, in FeedbackInput, onProgress ProgressCallback) (*Result, error) {
	in = in.normalize()
	if err := checkInput(in, in.Input, c.opts.MinInputChars); err != nil {
		return nil, err
	}
	state, start, done := feedbackState(in)
	return c.execute(ctx, state, RunFeedback, in.Input, start, done, callbackEmitter(onProgress))
}

// StreamFeedback is the streaming form of Feedback.
func (c *Controller) StreamFeedback(ctx context.Context, in FeedbackInput) <-chan Event {
	in = in.normalize()
	return c.stream(ctx, func(ctx context.Context, emit emitFunc) {
		if err := checkInput(in, in.Input, c.opts.MinInputChars); err != nil {
			emit(Event{Type: EventError, Err: err, Message: err.Error()})
			return
		}
		state, start, done := feedbackState(in)
		_, _ = c.execute(ctx, state, RunFeedback, in.Input, start, done, emit)
	})
}

// feedbackState seeds a revision run and reports where it starts.
func feedbackState(in FeedbackInput) (State, Phase, map[StepName]bool) {
	state := NewState(in.Input)
	state.Feedback = []string{in.Feedback}
	state.PriorIssues = []string{in.Feedback}
	state.PreviousLetter = in.PreviousLetter

	if !in.Snapshot.Complete() {
		return state, PhaseParsingInputs, nil
	}

	state.JobProfile = in.Snapshot.JobProfile.Clone()
	state.ResumeProfile = in.Snapshot.ResumeProfile.Clone()
	state.Matches = snapshotMatches(in.Snapshot)
	return state, PhaseGenerating, map[StepName]bool{
		StepJobParse:    true,
		StepResumeParse: true,
		StepMatch:       true,
	}
}

// snapshotMatches returns the snapshot's matches capped at types.MaxMatches.
func snapshotMatches(s *Snapshot) []types.MatchedExperience {
	matches := types.CloneMatches(s.Matches)
	if matches == nil {
		return []types.MatchedExperience{}
	}
	if len(matches) > types.MaxMatches {
		matches = matches[:types.MaxMatches]
	}
	return matches
}

func (c *Controller) stream(ctx context.Context, run func(context.Context, emitFunc)) <-chan Event {
	ch := make(chan Event, 1)
	go func() {
		defer close(ch)
		run(ctx, func(ev Event) bool {
			select {
			case ch <- ev:
				return true
			case <-ctx.Done():
				if ev.Terminal() {
					// Last chance for a consumer that is still reading.
					select {
					case ch <- ev:
					default:
					}
				}
				return false
			}
		})
	}()
	return ch
}

func callbackEmitter(cb ProgressCallback) emitFunc {
	return func(ev Event) bool {
		if cb != nil {
			cb(ev)
		}
		return true
	}
}

// execute drives the state machine from start until a terminal phase and
// emits exactly one terminal event.
func (c *Controller) execute(ctx context.Context, state State, kind RunKind, in Input, start Phase, completed map[StepName]bool, emit emitFunc) (*Result, error) {
	logger := c.logger.With("run_id", state.RunID.String(), "kind", string(kind))
	started := time.Now()
	c.startRun(ctx, logger, state.RunID, kind, in)
	logger.Info("run started", "start_phase", start.String(), "max_attempts", c.opts.MaxAttempts)

	if completed == nil {
		completed = make(map[StepName]bool)
	}

	state, err := c.runMachine(ctx, state, start, completed, emit, logger)
	if err != nil {
		logger.Error("run failed", "error", err, "duration_ms", time.Since(started).Milliseconds())
		c.finishRun(ctx, logger, state.RunID, nil, err)
		emit(Event{Type: EventError, RunID: state.RunID, Err: err, Message: err.Error()})
		return nil, err
	}

	result := newResult(state)
	logger.Info("run accepted",
		"attempts", result.Attempts,
		"best_effort", result.BestEffort,
		"fallbacks", len(result.Fallbacks),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	c.finishRun(ctx, logger, state.RunID, result, nil)
	emit(Event{Type: EventResult, RunID: state.RunID, Result: result, Attempt: result.Attempts})
	return result, nil
}

func (c *Controller) runMachine(ctx context.Context, state State, phase Phase, completed map[StepName]bool, emit emitFunc, logger *slog.Logger) (State, error) {
	for !phase.Terminal() {
		switch phase {
		case PhaseRegenerating:
			state = state.Apply("", regeneratePatch(state))
			delete(completed, StepGenerate)
			delete(completed, StepValidate)
			logger.Info("regenerating letter", "attempt", state.AttemptCount+1, "issues", len(state.PriorIssues))
		default:
			for _, name := range StepsFor(phase) {
				var err error
				state, err = c.runStep(ctx, state, name, completed, emit, logger)
				if err != nil {
					return state, err
				}
			}
		}

		next := Next(phase, state, c.opts.MaxAttempts)
		if next == PhaseAccepted {
			state = state.Apply("", acceptPatch(state))
		}
		phase = next
	}
	return state, nil
}

func (c *Controller) runStep(ctx context.Context, state State, name StepName, completed map[StepName]bool, emit emitFunc, logger *slog.Logger) (State, error) {
	attempt := state.AttemptCount + 1

	// Cooperative cancellation: no new completion call once the caller is gone.
	if err := ctx.Err(); err != nil {
		return state, fmt.Errorf("run cancelled before %s: %w", name, err)
	}
	if err := ValidateDependencies(name, completed); err != nil {
		return state, err
	}
	step, ok := c.steps[name]
	if !ok {
		return state, fmt.Errorf("step %s is not configured", name)
	}

	if !emit(Event{Type: EventStatus, RunID: state.RunID, Step: name, Attempt: attempt, Message: StatusMessage(name, attempt)}) {
		return state, fmt.Errorf("run cancelled before %s: %w", name, context.Cause(ctx))
	}

	stepLogger := logger.With("step", string(name), "attempt", attempt)
	stepLogger.Debug("step started")
	began := time.Now()

	patch, err := step.Run(ctx, state)
	duration := time.Since(began)
	c.recordStep(ctx, stepLogger, state.RunID, name, attempt, duration, err)
	if err != nil {
		stepErr := &StepError{Step: name, Attempt: attempt, Cause: err}
		stepLogger.Warn("step failed", "error", err, "duration_ms", duration.Milliseconds())
		return state, stepErr
	}

	if patch.Fallback {
		stepLogger.Warn("structured output fell back to default")
	}
	stepLogger.Debug("step finished", "duration_ms", duration.Milliseconds())

	completed[name] = true
	return state.Apply(name, patch), nil
}

func (c *Controller) startRun(ctx context.Context, logger *slog.Logger, runID uuid.UUID, kind RunKind, in Input) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.StartRun(ctx, runID, kind, in); err != nil {
		logger.Warn("failed to record run start", "error", err)
	}
}

func (c *Controller) recordStep(ctx context.Context, logger *slog.Logger, runID uuid.UUID, step StepName, attempt int, d time.Duration, stepErr error) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.RecordStep(ctx, runID, step, attempt, d.Milliseconds(), stepErr); err != nil {
		logger.Warn("failed to record step", "error", err)
	}
}

func (c *Controller) finishRun(ctx context.Context, logger *slog.Logger, runID uuid.UUID, res *Result, runErr error) {
	if c.recorder == nil {
		return
	}
	// Record the outcome even when the caller cancelled.
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
	}
	if err := c.recorder.FinishRun(ctx, runID, res, runErr); err != nil {
		logger.Warn("failed to record run finish", "error", err)
	}
}

// IsCancelled reports whether err resulted from the caller cancelling the run.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
