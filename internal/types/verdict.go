package types

import "strings"

// GenericIssue is recorded when a letter is rejected without a stated reason.
const GenericIssue = "letter rejected by validator without a specific issue"

// Verdict is the validator's judgement of a letter.
// Issues is empty if and only if Valid is true.
type Verdict struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues"`
}

// Normalize enforces the Valid/Issues invariant: a valid verdict carries no
// issues, an invalid verdict carries at least one. Blank issues are dropped.
func (v Verdict) Normalize() Verdict {
	if v.Valid {
		return Verdict{Valid: true, Issues: []string{}}
	}
	issues := make([]string, 0, len(v.Issues))
	for _, issue := range v.Issues {
		if trimmed := strings.TrimSpace(issue); trimmed != "" {
			issues = append(issues, trimmed)
		}
	}
	if len(issues) == 0 {
		issues = append(issues, GenericIssue)
	}
	return Verdict{Valid: false, Issues: issues}
}

// Clone returns a deep copy.
func (v *Verdict) Clone() *Verdict {
	if v == nil {
		return nil
	}
	return &Verdict{Valid: v.Valid, Issues: cloneStrings(v.Issues)}
}
