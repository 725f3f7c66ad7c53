package validation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/pynay/LetterChain/internal/types"
)

// RuleOptions configures RuleValidator.
type RuleOptions struct {
	MinWords      int
	MaxWords      int
	MinParagraphs int
	// ForbiddenPhrases are matched case-insensitively anywhere in the letter.
	ForbiddenPhrases []string
}

// DefaultRuleOptions returns limits that fit a one-page letter.
func DefaultRuleOptions() RuleOptions {
	return RuleOptions{
		MinWords:      150,
		MaxWords:      450,
		MinParagraphs: 3,
		ForbiddenPhrases: []string{
			"[company name]",
			"[your name]",
			"[hiring manager",
			"lorem ipsum",
			"as an ai",
			"as a language model",
		},
	}
}

// RuleValidator applies deterministic checks: company and title mention,
// greeting, closing, paragraph count, word range, and forbidden phrases.
// It never calls a model and never falls back.
type RuleValidator struct {
	opts RuleOptions
}

// NewRuleValidator creates a deterministic validator.
func NewRuleValidator(opts RuleOptions) *RuleValidator {
	return &RuleValidator{opts: opts}
}

var (
	greetingPattern = regexp.MustCompile(`(?i)^\s*(dear|hello|hi|to whom it may concern|greetings)\b`)
	closingPattern  = regexp.MustCompile(`(?i)\b(sincerely|best regards|kind regards|regards|respectfully|thank you|warm regards|yours truly)\b`)
	paragraphSplit  = regexp.MustCompile(`\n\s*\n`)
)

// Validate implements Validator.
func (v *RuleValidator) Validate(_ context.Context, req Request) (types.Verdict, bool, error) {
	letter := strings.TrimSpace(req.Letter)
	var issues []string

	if letter == "" {
		return types.Verdict{Valid: false, Issues: []string{"letter is empty"}}, false, nil
	}

	lower := strings.ToLower(letter)
	if req.Job != nil {
		if c := strings.TrimSpace(req.Job.Company); c != "" && !strings.Contains(lower, strings.ToLower(c)) {
			issues = append(issues, fmt.Sprintf("letter does not mention the company %q", c))
		}
		if t := strings.TrimSpace(req.Job.Title); t != "" && !strings.Contains(lower, strings.ToLower(t)) {
			issues = append(issues, fmt.Sprintf("letter does not mention the job title %q", t))
		}
	}

	if !greetingPattern.MatchString(letter) {
		issues = append(issues, "letter is missing an opening greeting")
	}
	if !closingPattern.MatchString(lastParagraph(letter)) {
		issues = append(issues, "letter is missing a closing sign-off")
	}

	if v.opts.MinParagraphs > 0 {
		if n := len(paragraphs(letter)); n < v.opts.MinParagraphs {
			issues = append(issues, fmt.Sprintf("letter has %d paragraphs, expected at least %d (opening, body, closing)", n, v.opts.MinParagraphs))
		}
	}

	words := len(strings.Fields(letter))
	if v.opts.MinWords > 0 && words < v.opts.MinWords {
		issues = append(issues, fmt.Sprintf("letter is too short: %d words, expected at least %d", words, v.opts.MinWords))
	}
	if v.opts.MaxWords > 0 && words > v.opts.MaxWords {
		issues = append(issues, fmt.Sprintf("letter is too long: %d words, expected at most %d", words, v.opts.MaxWords))
	}

	for _, phrase := range v.opts.ForbiddenPhrases {
		p := strings.ToLower(strings.TrimSpace(phrase))
		if p != "" && strings.Contains(lower, p) {
			issues = append(issues, fmt.Sprintf("letter contains placeholder or forbidden phrase %q", phrase))
		}
	}

	verdict := types.Verdict{Valid: len(issues) == 0, Issues: issues}
	return verdict.Normalize(), false, nil
}

func paragraphs(letter string) []string {
	var out []string
	for _, p := range paragraphSplit.Split(letter, -1) {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// lastParagraph returns the trailing block where a sign-off is expected.
func lastParagraph(letter string) string {
	ps := paragraphs(letter)
	if len(ps) == 0 {
		return ""
	}
	tail := ps[len(ps)-1]
	// A bare name line after the sign-off is its own paragraph in some drafts.
	if len(ps) > 1 && len(strings.Fields(tail)) <= 4 {
		tail = ps[len(ps)-2] + "\n" + tail
	}
	return tail
}
