package extraction

import (
	"regexp"
	"strings"
)

var (
	inlineSpaceRe = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
	blankRunRe    = regexp.MustCompile(`\n{3,}`)
)

var bulletMarkers = []string{"• ", "· ", "● ", "▪ ", "– "}

// CleanText normalizes extracted text: LF line endings, single inner spaces,
// "- " bullets, at most one blank line between blocks, no outer whitespace.
// Markdown headings and bullet indentation are kept.
func CleanText(content string) string {
	if content == "" {
		return ""
	}
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.ToValidUTF8(content, "")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = cleanLine(line)
	}

	out := blankRunRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(out)
}

func cleanLine(line string) string {
	line = strings.TrimRight(line, " \t\u00a0")
	trimmed := strings.TrimLeft(line, " \t\u00a0")
	if trimmed == "" {
		return ""
	}
	indent := len(line) - len(trimmed)

	for _, marker := range bulletMarkers {
		if strings.HasPrefix(trimmed, marker) {
			trimmed = "- " + strings.TrimPrefix(trimmed, marker)
			break
		}
	}

	switch {
	case strings.HasPrefix(trimmed, "#"):
		return inlineSpaceRe.ReplaceAllString(trimmed, " ")
	case strings.HasPrefix(trimmed, "- "), strings.HasPrefix(trimmed, "* "):
		return strings.Repeat(" ", indent) + trimmed[:2] + inlineSpaceRe.ReplaceAllString(trimmed[2:], " ")
	default:
		return inlineSpaceRe.ReplaceAllString(trimmed, " ")
	}
}

// WordCount returns the number of whitespace-separated words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
