// Package observability provides logging setup and formatted output for
// verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/pynay/LetterChain/internal/pipeline"
	"github.com/pynay/LetterChain/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// truncate shortens s to at most n runes, ending in "..." when cut.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func writeList(sb *strings.Builder, heading string, items []string, limit int) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(heading + ":\n")
	count := min(len(items), limit)
	for i := 0; i < count; i++ {
		fmt.Fprintf(sb, "  • %s\n", truncate(items[i], 50))
	}
	if len(items) > limit {
		fmt.Fprintf(sb, "  ... and %d more\n", len(items)-limit)
	}
	sb.WriteString("\n")
}

// PrintJobProfile outputs a human-readable summary of the parsed job profile.
func (p *Printer) PrintJobProfile(profile *types.JobProfile) {
	if profile == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Company:  %s\n", profile.Company)
	fmt.Fprintf(&sb, "Role:     %s\n", profile.Title)
	sb.WriteString("\n")
	writeList(&sb, "Required Skills", profile.RequiredSkills, maxItemsToShow)
	writeList(&sb, "Values", profile.Values, 3)

	p.printBox("PARSED JOB PROFILE", strings.TrimSuffix(sb.String(), "\n\n"))
}

// PrintResumeProfile outputs the candidate name, experiences, and skills.
func (p *Printer) PrintResumeProfile(profile *types.ResumeProfile) {
	if profile == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Candidate: %s\n", profile.Name)
	sb.WriteString("\n")

	labels := make([]string, 0, len(profile.Experiences))
	for _, exp := range profile.Experiences {
		labels = append(labels, exp.Label())
	}
	writeList(&sb, "Experiences", labels, maxItemsToShow)
	writeList(&sb, "Skills", profile.Skills, maxItemsToShow)

	p.printBox("PARSED RESUME PROFILE", strings.TrimSuffix(sb.String(), "\n\n"))
}

// PrintMatches outputs the experiences selected for the letter with their rationale.
func (p *Printer) PrintMatches(matches []types.MatchedExperience) {
	if len(matches) == 0 {
		p.printBox("MATCHED EXPERIENCES", "No experiences matched")
		return
	}

	var sb strings.Builder
	for i, m := range matches {
		fmt.Fprintf(&sb, "#%d  %s\n", i+1, m.Experience.Label())
		if m.Rationale != "" {
			fmt.Fprintf(&sb, "    %s\n", truncate(m.Rationale, 50))
		}
		if i < len(matches)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("MATCHED EXPERIENCES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintVerdict outputs the final validator verdict.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintVerdict(verdict *types.Verdict) {
	if verdict == nil {
		return
	}
	if verdict.Valid {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ LETTER PASSED VALIDATION")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d issues:\n\n", len(verdict.Issues))
	for i, issue := range verdict.Issues {
		fmt.Fprintf(&sb, "⚠ %s", truncate(issue, 52))
		if i < len(verdict.Issues)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("VALIDATION ISSUES", sb.String())
}

// PrintEvent outputs one progress line for a status event. Terminal events
// are ignored.
//
//nolint:errcheck // writing to stderr; errors are not recoverable
func (p *Printer) PrintEvent(ev pipeline.Event) {
	if ev.Type != pipeline.EventStatus {
		return
	}
	fmt.Fprintf(p.out, "→ %s\n", ev.Message)
}

// PrintResult outputs the parsed context and verdict of a finished run.
//
//nolint:errcheck // writing to stderr; errors are not recoverable
func (p *Printer) PrintResult(res *pipeline.Result) {
	if res == nil {
		return
	}
	p.PrintJobProfile(res.Snapshot.JobProfile)
	p.PrintResumeProfile(res.Snapshot.ResumeProfile)
	p.PrintMatches(res.Snapshot.Matches)
	p.PrintVerdict(res.Verdict)

	status := "accepted"
	if res.BestEffort {
		status = "best effort (attempt cap reached)"
	}
	fmt.Fprintf(p.out, "Run %s: %s after %d attempt(s)\n", res.RunID, status, res.Attempts)
	if len(res.Fallbacks) > 0 {
		names := make([]string, len(res.Fallbacks))
		for i, f := range res.Fallbacks {
			names[i] = string(f)
		}
		fmt.Fprintf(p.out, "Fallback defaults used for: %s\n", strings.Join(names, ", "))
	}
}
