package types

// MaxMatches caps how many experiences a letter features.
const MaxMatches = 3

// MatchedExperience is a resume experience selected as relevant to the job.
type MatchedExperience struct {
	Experience Experience `json:"experience"`
	Rationale  string     `json:"rationale"`
}

// CloneMatches returns a copy of matches.
func CloneMatches(matches []MatchedExperience) []MatchedExperience {
	if matches == nil {
		return nil
	}
	out := make([]MatchedExperience, len(matches))
	copy(out, matches)
	return out
}
