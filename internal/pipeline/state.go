// Package pipeline runs the cover letter workflow: it owns the request state,
// sequences the five steps through an explicit state machine, retries
// generation while the validator rejects the letter, and reports progress.
package pipeline

import (
	"github.com/google/uuid"

	"github.com/pynay/LetterChain/internal/types"
)

// State is the record threaded through one request. It is a value: steps
// never modify it and return a Patch instead, which the controller merges
// with Apply to produce the next State.
type State struct {
	RunID uuid.UUID

	// Inputs, fixed at construction.
	JobText    string
	ResumeText string
	Tone       string

	JobProfile    *types.JobProfile
	ResumeProfile *types.ResumeProfile
	Matches       []types.MatchedExperience
	CoverLetter   string
	Verdict       *types.Verdict

	// PriorIssues feed the next generation only.
	PriorIssues []string
	// Feedback is user feedback seeding a revision run; it stays part of every
	// prior-issue list within that run.
	Feedback []string
	// PreviousLetter is the draft being revised.
	PreviousLetter string
	AttemptCount   int

	// Fallbacks lists steps whose structured output could not be parsed.
	Fallbacks []StepName
}

// NewState builds the initial state for a request.
func NewState(in Input) State {
	return State{
		RunID:      uuid.New(),
		JobText:    in.JobText,
		ResumeText: in.ResumeText,
		Tone:       in.Tone,
	}
}

// Patch is the change a step makes to State. Nil fields are left untouched.
type Patch struct {
	JobProfile     *types.JobProfile
	ResumeProfile  *types.ResumeProfile
	Matches        *[]types.MatchedExperience
	CoverLetter    *string
	Verdict        *types.Verdict
	PriorIssues    *[]string
	PreviousLetter *string
	AttemptCount   *int
	// Fallback marks the producing step's output as a parse fallback.
	Fallback bool
}

// Apply returns a copy of s with p merged in. step names the producer and is
// recorded in Fallbacks when p.Fallback is set. s itself is not modified.
func (s State) Apply(step StepName, p Patch) State {
	next := s.clone()

	if p.JobProfile != nil {
		next.JobProfile = p.JobProfile.Clone()
	}
	if p.ResumeProfile != nil {
		next.ResumeProfile = p.ResumeProfile.Clone()
	}
	if p.Matches != nil {
		next.Matches = types.CloneMatches(*p.Matches)
		if next.Matches == nil {
			next.Matches = []types.MatchedExperience{}
		}
	}
	if p.CoverLetter != nil {
		next.CoverLetter = *p.CoverLetter
	}
	if p.Verdict != nil {
		next.Verdict = p.Verdict.Clone()
	}
	if p.PriorIssues != nil {
		next.PriorIssues = cloneStrings(*p.PriorIssues)
	}
	if p.PreviousLetter != nil {
		next.PreviousLetter = *p.PreviousLetter
	}
	if p.AttemptCount != nil {
		next.AttemptCount = *p.AttemptCount
	}
	if p.Fallback && step != "" {
		next.Fallbacks = append(next.Fallbacks, step)
	}
	return next
}

func (s State) clone() State {
	c := s
	c.JobProfile = s.JobProfile.Clone()
	c.ResumeProfile = s.ResumeProfile.Clone()
	c.Matches = types.CloneMatches(s.Matches)
	c.Verdict = s.Verdict.Clone()
	c.PriorIssues = cloneStrings(s.PriorIssues)
	c.Feedback = cloneStrings(s.Feedback)
	if s.Fallbacks != nil {
		c.Fallbacks = make([]StepName, len(s.Fallbacks))
		copy(c.Fallbacks, s.Fallbacks)
	}
	return c
}

// Snapshot is the parsed context of a completed run, reusable by a feedback run.
type Snapshot struct {
	JobProfile    *types.JobProfile         `json:"job_profile"`
	ResumeProfile *types.ResumeProfile      `json:"resume_profile"`
	Matches       []types.MatchedExperience `json:"matched_experiences"`
}

// Snapshot captures the parsed context of s.
func (s State) Snapshot() Snapshot {
	return Snapshot{
		JobProfile:    s.JobProfile.Clone(),
		ResumeProfile: s.ResumeProfile.Clone(),
		Matches:       types.CloneMatches(s.Matches),
	}
}

// Complete reports whether the snapshot carries both profiles.
func (s *Snapshot) Complete() bool {
	return s != nil && s.JobProfile != nil && s.ResumeProfile != nil
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func ptr[T any](v T) *T {
	return &v
}
