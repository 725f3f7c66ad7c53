package parsing

import (
	"strings"

	"github.com/pynay/LetterChain/internal/types"
)

// skillAliases maps common skill name variants to a canonical identity
// so "golang" and "Go" count as the same skill.
var skillAliases = map[string]string{
	"golang":    "go",
	"go lang":   "go",
	"js":        "javascript",
	"ts":        "typescript",
	"k8s":       "kubernetes",
	"react.js":  "react",
	"reactjs":   "react",
	"vue.js":    "vue",
	"vuejs":     "vue",
	"nodejs":    "node.js",
	"postgres":  "postgresql",
	"gcp":       "google cloud",
	"aws cloud": "aws",
	"ml":        "machine learning",
	"c sharp":   "c#",
	"py":        "python",
	"python3":   "python",
	"html5":     "html",
	"css3":      "css",
}

// skillKey returns the case-insensitive identity of a skill.
func skillKey(skill string) string {
	key := strings.ToLower(strings.Join(strings.Fields(skill), " "))
	if alias, ok := skillAliases[key]; ok {
		return alias
	}
	return key
}

// DedupeStrings trims entries and removes case-insensitive duplicates.
// The first occurrence wins and blank entries are dropped.
func DedupeStrings(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		key := skillKey(trimmed)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, trimmed)
	}
	return out
}

// DedupeExperiences removes experiences sharing a (title, org) identity.
// The first occurrence keeps its position; a longer description from a later
// duplicate replaces the shorter one. Entries with neither title nor org are dropped.
func DedupeExperiences(exps []types.Experience) []types.Experience {
	out := make([]types.Experience, 0, len(exps))
	index := make(map[string]int, len(exps))

	for _, exp := range exps {
		exp.Title = strings.TrimSpace(exp.Title)
		exp.Org = strings.TrimSpace(exp.Org)
		exp.Description = strings.TrimSpace(exp.Description)
		if exp.Title == "" && exp.Org == "" {
			continue
		}

		key := exp.Key()
		if idx, ok := index[key]; ok {
			if len(exp.Description) > len(out[idx].Description) {
				out[idx].Description = exp.Description
			}
			continue
		}
		index[key] = len(out)
		out = append(out, exp)
	}
	return out
}

// NormalizeJobProfile trims fields and deduplicates skill and value lists in place.
func NormalizeJobProfile(p *types.JobProfile) {
	if p == nil {
		return
	}
	p.Title = strings.TrimSpace(p.Title)
	p.Company = strings.TrimSpace(p.Company)
	p.Summary = strings.TrimSpace(p.Summary)
	p.RequiredSkills = DedupeStrings(p.RequiredSkills)
	p.Values = DedupeStrings(p.Values)
}

// NormalizeResumeProfile trims fields and deduplicates skills and experiences in place.
func NormalizeResumeProfile(p *types.ResumeProfile) {
	if p == nil {
		return
	}
	p.Name = strings.TrimSpace(p.Name)
	p.Summary = strings.TrimSpace(p.Summary)
	p.Skills = DedupeStrings(p.Skills)
	p.Education = DedupeStrings(p.Education)
	p.Experiences = DedupeExperiences(p.Experiences)
}
