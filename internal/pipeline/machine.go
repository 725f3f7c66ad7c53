package pipeline

// Phase is a state of the workflow machine.
type Phase int

const (
	// PhaseParsingInputs runs the job and resume parsers.
	PhaseParsingInputs Phase = iota
	// PhaseMatching runs the relevance matcher.
	PhaseMatching
	// PhaseGenerating drafts a letter.
	PhaseGenerating
	// PhaseValidating judges the latest draft.
	PhaseValidating
	// PhaseRegenerating carries the verdict's issues into the next draft.
	PhaseRegenerating
	// PhaseAccepted is terminal: the latest letter is returned.
	PhaseAccepted
	// PhaseFailed is terminal: a step failed fatally.
	PhaseFailed
)

// DefaultMaxAttempts is the default number of generation attempts per request.
const DefaultMaxAttempts = 3

func (p Phase) String() string {
	switch p {
	case PhaseParsingInputs:
		return "parsing_inputs"
	case PhaseMatching:
		return "matching"
	case PhaseGenerating:
		return "generating"
	case PhaseValidating:
		return "validating"
	case PhaseRegenerating:
		return "regenerating"
	case PhaseAccepted:
		return "accepted"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions happen from p.
func (p Phase) Terminal() bool {
	return p == PhaseAccepted || p == PhaseFailed
}

// Next is the transition function. maxAttempts counts total generation
// attempts; a rejected letter is accepted anyway once AttemptCount reaches
// maxAttempts-1. Values below 1 are treated as 1.
func Next(phase Phase, s State, maxAttempts int) Phase {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	switch phase {
	case PhaseParsingInputs:
		return PhaseMatching
	case PhaseMatching:
		return PhaseGenerating
	case PhaseGenerating:
		return PhaseValidating
	case PhaseValidating:
		if s.Verdict != nil && s.Verdict.Valid {
			return PhaseAccepted
		}
		if s.AttemptCount >= maxAttempts-1 {
			return PhaseAccepted
		}
		return PhaseRegenerating
	case PhaseRegenerating:
		return PhaseGenerating
	default:
		return phase
	}
}

// regeneratePatch is the Regenerating transition's effect: the rejected
// draft's issues (after any feedback seed) become the prior issues, the
// rejected draft becomes the previous letter, and the attempt count grows.
func regeneratePatch(s State) Patch {
	issues := cloneStrings(s.Feedback)
	if s.Verdict != nil {
		issues = append(issues, s.Verdict.Issues...)
	}
	return Patch{
		PriorIssues:    &issues,
		PreviousLetter: ptr(s.CoverLetter),
		AttemptCount:   ptr(s.AttemptCount + 1),
	}
}

// acceptPatch clears prior issues once a letter has passed validation.
func acceptPatch(s State) Patch {
	if s.Verdict == nil || !s.Verdict.Valid {
		return Patch{}
	}
	return Patch{PriorIssues: &[]string{}}
}
