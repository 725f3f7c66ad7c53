// Package types provides type definitions for structured data used throughout the cover letter pipeline.
//
//nolint:revive // types is a standard Go package name pattern
package types

// JobProfile represents a structured job posting extracted from raw text
type JobProfile struct {
	Title          string   `json:"title"`
	Company        string   `json:"company"`
	RequiredSkills []string `json:"required_skills"`
	Values         []string `json:"values"`
	Summary        string   `json:"summary"`
}

// IsEmpty reports whether nothing usable was extracted.
func (p *JobProfile) IsEmpty() bool {
	return p == nil || (p.Title == "" && p.Company == "" && len(p.RequiredSkills) == 0)
}

// Clone returns a deep copy.
func (p *JobProfile) Clone() *JobProfile {
	if p == nil {
		return nil
	}
	c := *p
	c.RequiredSkills = cloneStrings(p.RequiredSkills)
	c.Values = cloneStrings(p.Values)
	return &c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
