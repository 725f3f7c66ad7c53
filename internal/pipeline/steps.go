package pipeline

import (
	"context"
	"fmt"

	"github.com/pynay/LetterChain/internal/generation"
	"github.com/pynay/LetterChain/internal/llm"
	"github.com/pynay/LetterChain/internal/matching"
	"github.com/pynay/LetterChain/internal/parsing"
	"github.com/pynay/LetterChain/internal/types"
	"github.com/pynay/LetterChain/internal/validation"
)

// StepName identifies a pipeline step in events, logs, and run records.
type StepName string

// Step names, in execution order.
const (
	StepJobParse    StepName = "job-parse"
	StepResumeParse StepName = "resume-parse"
	StepMatch       StepName = "match"
	StepGenerate    StepName = "generate"
	StepValidate    StepName = "validate"
)

// Step is one transformation of State. Run must not modify its argument.
type Step interface {
	Name() StepName
	Run(ctx context.Context, s State) (Patch, error)
}

// JobProfileParser extracts a job profile from posting text.
type JobProfileParser interface {
	Parse(ctx context.Context, text string) (*types.JobProfile, bool, error)
}

// ResumeProfileParser extracts a resume profile from resume text.
type ResumeProfileParser interface {
	Parse(ctx context.Context, text string) (*types.ResumeProfile, bool, error)
}

// ExperienceMatcher selects relevant experiences.
type ExperienceMatcher interface {
	Match(ctx context.Context, job *types.JobProfile, resume *types.ResumeProfile) ([]types.MatchedExperience, bool, error)
}

// LetterGenerator drafts a letter.
type LetterGenerator interface {
	Generate(ctx context.Context, req generation.Request) (string, error)
}

// Steps holds the collaborators behind the five steps.
type Steps struct {
	Job       JobProfileParser
	Resume    ResumeProfileParser
	Matcher   ExperienceMatcher
	Generator LetterGenerator
	Validator validation.Validator
}

// NewSteps wires the default step implementations to one completion client.
// Parsing, matching, and judging use the standard tier; drafting uses the advanced tier.
// cache may be nil; validator nil selects the LLM judge.
func NewSteps(client llm.Client, models *llm.Config, cache parsing.Cache, validator validation.Validator) Steps {
	if models == nil {
		models = llm.DefaultConfig()
	}
	if validator == nil {
		validator = validation.NewLLMValidator(client, models.GetModel(llm.TierStandard))
	}
	return Steps{
		Job:       parsing.NewJobParser(client, models.GetModel(llm.TierStandard), cache),
		Resume:    parsing.NewResumeParser(client, models.GetModel(llm.TierStandard), cache),
		Matcher:   matching.New(client, models.GetModel(llm.TierStandard)),
		Generator: generation.New(client, models.GetModel(llm.TierAdvanced)),
		Validator: validator,
	}
}

func (s Steps) validate() error {
	var missing []string
	if s.Job == nil {
		missing = append(missing, "Job")
	}
	if s.Resume == nil {
		missing = append(missing, "Resume")
	}
	if s.Matcher == nil {
		missing = append(missing, "Matcher")
	}
	if s.Generator == nil {
		missing = append(missing, "Generator")
	}
	if s.Validator == nil {
		missing = append(missing, "Validator")
	}
	if len(missing) > 0 {
		return fmt.Errorf("pipeline steps not configured: %v", missing)
	}
	return nil
}

// build returns the Step adapters keyed by name.
func (s Steps) build() map[StepName]Step {
	return map[StepName]Step{
		StepJobParse:    &jobParseStep{parser: s.Job},
		StepResumeParse: &resumeParseStep{parser: s.Resume},
		StepMatch:       &matchStep{matcher: s.Matcher},
		StepGenerate:    &generateStep{generator: s.Generator},
		StepValidate:    &validateStep{validator: s.Validator},
	}
}

type jobParseStep struct{ parser JobProfileParser }

func (st *jobParseStep) Name() StepName { return StepJobParse }

func (st *jobParseStep) Run(ctx context.Context, s State) (Patch, error) {
	profile, fallback, err := st.parser.Parse(ctx, s.JobText)
	if err != nil {
		return Patch{}, err
	}
	return Patch{JobProfile: profile, Fallback: fallback}, nil
}

type resumeParseStep struct{ parser ResumeProfileParser }

func (st *resumeParseStep) Name() StepName { return StepResumeParse }

func (st *resumeParseStep) Run(ctx context.Context, s State) (Patch, error) {
	profile, fallback, err := st.parser.Parse(ctx, s.ResumeText)
	if err != nil {
		return Patch{}, err
	}
	return Patch{ResumeProfile: profile, Fallback: fallback}, nil
}

type matchStep struct{ matcher ExperienceMatcher }

func (st *matchStep) Name() StepName { return StepMatch }

func (st *matchStep) Run(ctx context.Context, s State) (Patch, error) {
	matches, fallback, err := st.matcher.Match(ctx, s.JobProfile, s.ResumeProfile)
	if err != nil {
		return Patch{}, err
	}
	return Patch{Matches: &matches, Fallback: fallback}, nil
}

type generateStep struct{ generator LetterGenerator }

func (st *generateStep) Name() StepName { return StepGenerate }

func (st *generateStep) Run(ctx context.Context, s State) (Patch, error) {
	letter, err := st.generator.Generate(ctx, generation.Request{
		Job:            s.JobProfile,
		Resume:         s.ResumeProfile,
		Matches:        s.Matches,
		Tone:           s.Tone,
		PriorIssues:    s.PriorIssues,
		PreviousLetter: s.PreviousLetter,
	})
	if err != nil {
		return Patch{}, err
	}
	return Patch{CoverLetter: &letter}, nil
}

type validateStep struct{ validator validation.Validator }

func (st *validateStep) Name() StepName { return StepValidate }

func (st *validateStep) Run(ctx context.Context, s State) (Patch, error) {
	verdict, fallback, err := st.validator.Validate(ctx, validation.Request{
		Letter: s.CoverLetter,
		Job:    s.JobProfile,
		Resume: s.ResumeProfile,
		Tone:   s.Tone,
	})
	if err != nil {
		return Patch{}, err
	}
	verdict = verdict.Normalize()
	return Patch{Verdict: &verdict, Fallback: fallback}, nil
}
