// Package validation judges generated cover letters.
//
// Two implementations of Validator are provided: LLMValidator asks a model to
// review the letter, RuleValidator applies deterministic checks. Both return
// normalized verdicts: Issues is empty exactly when Valid is true.
package validation

import (
	"context"
	"fmt"

	"github.com/pynay/LetterChain/internal/types"
)

// Request is the letter under review plus the context it must agree with.
type Request struct {
	Letter string
	Job    *types.JobProfile
	Resume *types.ResumeProfile
	Tone   string
}

// Validator judges a letter. The boolean result reports that the judgement
// could not be parsed and a fallback verdict was returned.
type Validator interface {
	Validate(ctx context.Context, req Request) (types.Verdict, bool, error)
}

// Kind names a Validator implementation in configuration.
type Kind string

const (
	// KindLLM uses the model as judge.
	KindLLM Kind = "llm"
	// KindRules uses deterministic checks only.
	KindRules Kind = "rules"
)

// ParseKind converts a config value into a Kind. Empty selects KindLLM.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "", KindLLM:
		return KindLLM, nil
	case KindRules:
		return KindRules, nil
	default:
		return "", fmt.Errorf("unknown validator %q (want %q or %q)", s, KindLLM, KindRules)
	}
}
