// Package generation drafts cover letters from parsed profiles and matched experiences.
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pynay/LetterChain/internal/llm"
	"github.com/pynay/LetterChain/internal/prompts"
	"github.com/pynay/LetterChain/internal/types"
)

// Request carries everything a draft is built from.
type Request struct {
	Job     *types.JobProfile
	Resume  *types.ResumeProfile
	Matches []types.MatchedExperience
	Tone    string
	// PriorIssues are the reasons the previous draft was rejected, or user feedback.
	PriorIssues []string
	// PreviousLetter is the draft being revised, if any.
	PreviousLetter string
}

// Generator produces one letter per Generate call.
type Generator struct {
	client llm.Client
	model  string
}

// New creates a Generator.
func New(client llm.Client, model string) *Generator {
	return &Generator{client: client, model: model}
}

// Generate drafts a letter. The returned text is trimmed with any single
// surrounding code fence removed.
func (g *Generator) Generate(ctx context.Context, req Request) (string, error) {
	raw, err := g.client.Complete(ctx, BuildPrompt(req), g.model)
	if err != nil {
		return "", err
	}
	return llm.StripCodeFence(raw), nil
}

// BuildPrompt assembles the generation prompt. Without matches the evidence
// section falls back to the candidate's summary and skills; prior issues and a
// previous draft append a revision block.
func BuildPrompt(req Request) string {
	job := req.Job
	if job == nil {
		job = &types.JobProfile{}
	}
	resume := req.Resume
	if resume == nil {
		resume = &types.ResumeProfile{}
	}

	prompt := prompts.Format(prompts.MustGet(prompts.GenerationFile, "generate-letter"), map[string]string{
		"CandidateName": orDefault(resume.Name, "the candidate"),
		"JobTitle":      orDefault(job.Title, "open"),
		"Company":       orDefault(job.Company, "the company"),
		"Tone":          types.DescribeTone(req.Tone),
		"JobProfile":    toJSON(job),
		"ResumeProfile": toJSON(resume),
		"Evidence":      evidence(req.Matches, resume),
	})

	var sb strings.Builder
	sb.WriteString(prompt)

	if len(req.PriorIssues) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(prompts.Format(prompts.MustGet(prompts.GenerationFile, "revision"), map[string]string{
			"Issues": bulletList(req.PriorIssues),
		}))
	}
	if strings.TrimSpace(req.PreviousLetter) != "" {
		sb.WriteString("\n\n")
		sb.WriteString(prompts.Format(prompts.MustGet(prompts.GenerationFile, "previous-draft"), map[string]string{
			"Letter": strings.TrimSpace(req.PreviousLetter),
		}))
	}

	return sb.String()
}

func evidence(matches []types.MatchedExperience, resume *types.ResumeProfile) string {
	if len(matches) == 0 {
		return prompts.Format(prompts.MustGet(prompts.GenerationFile, "evidence-skills-only"), map[string]string{
			"Summary": orDefault(resume.Summary, "(none provided)"),
			"Skills":  orDefault(strings.Join(resume.Skills, ", "), "(none listed)"),
		})
	}

	lines := make([]string, 0, len(matches))
	for _, m := range matches {
		line := fmt.Sprintf("%s: %s", m.Experience.Label(), m.Rationale)
		if m.Experience.Description != "" {
			line += fmt.Sprintf(" (%s)", m.Experience.Description)
		}
		lines = append(lines, line)
	}
	return prompts.Format(prompts.MustGet(prompts.GenerationFile, "evidence-matches"), map[string]string{
		"Matches": bulletList(lines),
	})
}

func bulletList(items []string) string {
	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- ")
		sb.WriteString(item)
	}
	return sb.String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func toJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
