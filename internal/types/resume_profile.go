package types

import "strings"

// ResumeProfile represents a structured resume extracted from raw text
type ResumeProfile struct {
	Name        string       `json:"name"`
	Summary     string       `json:"summary"`
	Experiences []Experience `json:"experiences"`
	Skills      []string     `json:"skills"`
	Education   []string     `json:"education"`
}

// Experience is one role, project, or activity on the resume.
type Experience struct {
	Title       string `json:"title"`
	Org         string `json:"org"`
	Description string `json:"description"`
}

// Key is the case-insensitive identity of an experience: title plus org.
func (e Experience) Key() string {
	return strings.ToLower(strings.TrimSpace(e.Title)) + "\x00" + strings.ToLower(strings.TrimSpace(e.Org))
}

// Label is a human-readable "Title @ Org" form.
func (e Experience) Label() string {
	if e.Org == "" {
		return e.Title
	}
	return e.Title + " @ " + e.Org
}

// IsEmpty reports whether nothing usable was extracted.
func (p *ResumeProfile) IsEmpty() bool {
	return p == nil || (p.Name == "" && len(p.Experiences) == 0 && len(p.Skills) == 0)
}

// FindExperience returns the resume entry with the same identity as e.
func (p *ResumeProfile) FindExperience(e Experience) (Experience, bool) {
	if p == nil {
		return Experience{}, false
	}
	key := e.Key()
	for _, exp := range p.Experiences {
		if exp.Key() == key {
			return exp, true
		}
	}
	return Experience{}, false
}

// Clone returns a deep copy.
func (p *ResumeProfile) Clone() *ResumeProfile {
	if p == nil {
		return nil
	}
	c := *p
	if p.Experiences != nil {
		c.Experiences = make([]Experience, len(p.Experiences))
		copy(c.Experiences, p.Experiences)
	}
	c.Skills = cloneStrings(p.Skills)
	c.Education = cloneStrings(p.Education)
	return &c
}
