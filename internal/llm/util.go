// Package llm - util.go provides shared utilities for LLM response processing.
package llm

import "strings"

// StripCodeFence removes a single markdown code fence wrapping the whole response.
// Models often wrap output in ```json ... ``` blocks even when instructed not to.
// Text that is not fenced is returned trimmed.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	body := strings.TrimPrefix(text, "```")
	// Skip a language identifier on the opening line
	if idx := strings.Index(body, "\n"); idx >= 0 {
		firstLine := strings.TrimSpace(body[:idx])
		if len(firstLine) < 20 && !strings.ContainsAny(firstLine, " {[") {
			body = body[idx+1:]
		}
	}

	idx := strings.LastIndex(body, "```")
	if idx < 0 {
		// Unterminated fence: keep everything after the opener
		return strings.TrimSpace(body)
	}
	return strings.TrimSpace(body[:idx])
}
