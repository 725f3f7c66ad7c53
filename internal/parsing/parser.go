// Package parsing turns raw job postings and resumes into structured profiles
// with one completion call each.
package parsing

import (
	"context"

	"github.com/pynay/LetterChain/internal/llm"
	"github.com/pynay/LetterChain/internal/prompts"
	"github.com/pynay/LetterChain/internal/schemas"
	"github.com/pynay/LetterChain/internal/structured"
	"github.com/pynay/LetterChain/internal/types"
)

// Cache memoizes parsed profiles keyed by input text. fill runs on a miss; its
// boolean result reports a parse fallback, and fallback values must not be stored.
type Cache interface {
	Job(ctx context.Context, text string, fill func(context.Context) (*types.JobProfile, bool, error)) (*types.JobProfile, bool, error)
	Resume(ctx context.Context, text string, fill func(context.Context) (*types.ResumeProfile, bool, error)) (*types.ResumeProfile, bool, error)
}

// JobParser extracts a JobProfile from posting text.
type JobParser struct {
	client llm.Client
	model  string
	cache  Cache
}

// NewJobParser creates a job parser. cache may be nil.
func NewJobParser(client llm.Client, model string, cache Cache) *JobParser {
	return &JobParser{client: client, model: model, cache: cache}
}

// Parse returns the job profile and whether the structured parse fell back to
// an empty profile. Completion errors are returned unchanged.
func (p *JobParser) Parse(ctx context.Context, text string) (*types.JobProfile, bool, error) {
	if p.cache != nil {
		return p.cache.Job(ctx, text, func(ctx context.Context) (*types.JobProfile, bool, error) {
			return p.parse(ctx, text)
		})
	}
	return p.parse(ctx, text)
}

func (p *JobParser) parse(ctx context.Context, text string) (*types.JobProfile, bool, error) {
	prompt := prompts.Format(prompts.MustGet(prompts.ParsingFile, "parse-job"), map[string]string{
		"OutputFormat": llm.OutputInstructions(llm.JobProfileSchema()),
		"Text":         text,
	})

	raw, err := p.client.Complete(ctx, prompt, p.model)
	if err != nil {
		return nil, false, err
	}

	profile, ok := structured.Decode(raw, types.JobProfile{}, schemas.JobProfile)
	NormalizeJobProfile(&profile)
	return &profile, !ok, nil
}

// ResumeParser extracts a ResumeProfile from resume text.
type ResumeParser struct {
	client llm.Client
	model  string
	cache  Cache
}

// NewResumeParser creates a resume parser. cache may be nil.
func NewResumeParser(client llm.Client, model string, cache Cache) *ResumeParser {
	return &ResumeParser{client: client, model: model, cache: cache}
}

// Parse returns the resume profile, with skills and experiences deduplicated,
// and whether the structured parse fell back to an empty profile.
func (p *ResumeParser) Parse(ctx context.Context, text string) (*types.ResumeProfile, bool, error) {
	if p.cache != nil {
		return p.cache.Resume(ctx, text, func(ctx context.Context) (*types.ResumeProfile, bool, error) {
			return p.parse(ctx, text)
		})
	}
	return p.parse(ctx, text)
}

func (p *ResumeParser) parse(ctx context.Context, text string) (*types.ResumeProfile, bool, error) {
	prompt := prompts.Format(prompts.MustGet(prompts.ParsingFile, "parse-resume"), map[string]string{
		"OutputFormat": llm.OutputInstructions(llm.ResumeProfileSchema()),
		"Text":         text,
	})

	raw, err := p.client.Complete(ctx, prompt, p.model)
	if err != nil {
		return nil, false, err
	}

	profile, ok := structured.Decode(raw, types.ResumeProfile{}, schemas.ResumeProfile)
	NormalizeResumeProfile(&profile)
	return &profile, !ok, nil
}
