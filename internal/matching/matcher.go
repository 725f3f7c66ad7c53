// Package matching selects the resume experiences most relevant to a job.
package matching

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pynay/LetterChain/internal/llm"
	"github.com/pynay/LetterChain/internal/prompts"
	"github.com/pynay/LetterChain/internal/schemas"
	"github.com/pynay/LetterChain/internal/structured"
	"github.com/pynay/LetterChain/internal/types"
)

// Matcher asks the model to pick 2-3 experiences and explain each choice.
type Matcher struct {
	client llm.Client
	model  string
}

// New creates a Matcher.
func New(client llm.Client, model string) *Matcher {
	return &Matcher{client: client, model: model}
}

type rawMatches struct {
	Matches []Candidate `json:"matches"`
}

// Candidate is one selection as returned by the model, before filtering.
type Candidate struct {
	Title     string `json:"title"`
	Org       string `json:"org"`
	Rationale string `json:"rationale"`
}

// Match returns at most types.MaxMatches experiences from resume, each with a
// non-empty rationale. A resume with no experiences yields an empty result
// without a completion call. The boolean reports a parse fallback.
func (m *Matcher) Match(ctx context.Context, job *types.JobProfile, resume *types.ResumeProfile) ([]types.MatchedExperience, bool, error) {
	if resume == nil || len(resume.Experiences) == 0 {
		return []types.MatchedExperience{}, false, nil
	}

	prompt := prompts.Format(prompts.MustGet(prompts.MatchingFile, "match-experiences"), map[string]string{
		"Count":        countInstruction(len(resume.Experiences)),
		"OutputFormat": llm.OutputInstructions(llm.MatchesSchema()),
		"JobProfile":   toJSON(job),
		"Experiences":  toJSON(resume.Experiences),
	})

	raw, err := m.client.Complete(ctx, prompt, m.model)
	if err != nil {
		return nil, false, err
	}

	parsed, ok := structured.Decode(raw, rawMatches{}, schemas.Matches)
	return Filter(parsed.Matches, resume), !ok, nil
}

// countInstruction phrases how many experiences to select.
func countInstruction(available int) string {
	if available < 2 {
		return "as many as are available (at least 1)"
	}
	return "2 to 3"
}

// Filter keeps only entries that name an experience present in resume, carry a
// rationale, and are not duplicates, capped at types.MaxMatches.
// The resume's own copy of each experience is returned.
func Filter(candidates []Candidate, resume *types.ResumeProfile) []types.MatchedExperience {
	out := make([]types.MatchedExperience, 0, types.MaxMatches)
	seen := make(map[string]bool)

	for _, c := range candidates {
		if len(out) == types.MaxMatches {
			break
		}
		rationale := strings.TrimSpace(c.Rationale)
		if rationale == "" {
			continue
		}
		exp, ok := lookup(resume, c.Title, c.Org)
		if !ok || seen[exp.Key()] {
			continue
		}
		seen[exp.Key()] = true
		out = append(out, types.MatchedExperience{Experience: exp, Rationale: rationale})
	}
	return out
}

// lookup finds the experience by (title, org). When the model omits the org,
// a title that identifies exactly one experience still matches.
func lookup(resume *types.ResumeProfile, title, org string) (types.Experience, bool) {
	if exp, ok := resume.FindExperience(types.Experience{Title: title, Org: org}); ok {
		return exp, true
	}
	if strings.TrimSpace(org) != "" {
		return types.Experience{}, false
	}

	var found types.Experience
	n := 0
	want := strings.ToLower(strings.TrimSpace(title))
	for _, exp := range resume.Experiences {
		if strings.ToLower(strings.TrimSpace(exp.Title)) == want {
			found = exp
			n++
		}
	}
	return found, n == 1
}

func toJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
