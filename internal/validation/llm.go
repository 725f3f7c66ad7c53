package validation

import (
	"context"
	"encoding/json"

	"github.com/pynay/LetterChain/internal/llm"
	"github.com/pynay/LetterChain/internal/prompts"
	"github.com/pynay/LetterChain/internal/schemas"
	"github.com/pynay/LetterChain/internal/structured"
	"github.com/pynay/LetterChain/internal/types"
)

// ParseErrorIssue is the issue recorded when the judge's reply cannot be parsed.
const ParseErrorIssue = "parse error"

// LLMValidator asks a model to check company/title mention, fabrication,
// tone consistency, and letter structure.
type LLMValidator struct {
	client llm.Client
	model  string
}

// NewLLMValidator creates a model-backed validator.
func NewLLMValidator(client llm.Client, model string) *LLMValidator {
	return &LLMValidator{client: client, model: model}
}

// Validate implements Validator. An unparseable reply yields
// {valid: false, issues: ["parse error"]} and fallback=true.
func (v *LLMValidator) Validate(ctx context.Context, req Request) (types.Verdict, bool, error) {
	raw, err := v.client.Complete(ctx, BuildPrompt(req), v.model)
	if err != nil {
		return types.Verdict{}, false, err
	}

	fallback := types.Verdict{Valid: false, Issues: []string{ParseErrorIssue}}
	verdict, ok := structured.Decode(raw, fallback, schemas.Verdict)
	return verdict.Normalize(), !ok, nil
}

// BuildPrompt assembles the validation prompt.
func BuildPrompt(req Request) string {
	job := req.Job
	if job == nil {
		job = &types.JobProfile{}
	}
	resume := req.Resume
	if resume == nil {
		resume = &types.ResumeProfile{}
	}

	profile, err := json.MarshalIndent(resume, "", "  ")
	if err != nil {
		profile = []byte("{}")
	}

	return prompts.Format(prompts.MustGet(prompts.ValidationFile, "validate-letter"), map[string]string{
		"Company":       job.Company,
		"JobTitle":      job.Title,
		"Tone":          types.DescribeTone(req.Tone),
		"OutputFormat":  llm.OutputInstructions(llm.VerdictSchema()),
		"ResumeProfile": string(profile),
		"Letter":        req.Letter,
	})
}
