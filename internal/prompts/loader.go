// Package prompts provides a loader for externalized LLM prompt templates.
// Prompts are stored as JSON files and embedded at compile time.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// Template files.
const (
	ParsingFile    = "parsing.json"
	MatchingFile   = "matching.json"
	GenerationFile = "generation.json"
	ValidationFile = "validation.json"
)

// cache stores parsed prompt files to avoid repeated JSON parsing
var (
	cache   = make(map[string]map[string]string)
	cacheMu sync.RWMutex
)

// Get retrieves a prompt by filename and key.
// The filename should not include the path (e.g., "parsing.json").
func Get(filename, key string) (string, error) {
	prompts, err := loadFile(filename)
	if err != nil {
		return "", err
	}

	prompt, exists := prompts[key]
	if !exists {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}

	return prompt, nil
}

// MustGet retrieves a prompt by filename and key, panicking if not found.
// Only use it for the embedded templates shipped with the binary.
func MustGet(filename, key string) string {
	prompt, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return prompt
}

// Format replaces placeholders of the form {{.Key}} with values from data.
// Substitution is a single left-to-right pass: placeholder-like text inside a
// substituted value (resume text, job postings) is never expanded again.
// Unknown placeholders are left in place.
func Format(template string, data map[string]string) string {
	var sb strings.Builder
	sb.Grow(len(template))

	rest := template
	for {
		open := strings.Index(rest, "{{.")
		if open < 0 {
			sb.WriteString(rest)
			break
		}
		closeIdx := strings.Index(rest[open:], "}}")
		if closeIdx < 0 {
			sb.WriteString(rest)
			break
		}
		closeIdx += open

		key := rest[open+3 : closeIdx]
		sb.WriteString(rest[:open])
		if value, ok := data[key]; ok {
			sb.WriteString(value)
		} else {
			sb.WriteString(rest[open : closeIdx+2])
		}
		rest = rest[closeIdx+2:]
	}
	return sb.String()
}

// Render loads a template and formats it, failing if any placeholder is left unfilled.
func Render(filename, key string, data map[string]string) (string, error) {
	template, err := Get(filename, key)
	if err != nil {
		return "", err
	}
	if missing := Placeholders(template, data); len(missing) > 0 {
		return "", fmt.Errorf("prompt %s/%s: missing values for %s", filename, key, strings.Join(missing, ", "))
	}
	return Format(template, data), nil
}

// Placeholders lists the placeholder keys in template that data does not supply, sorted.
func Placeholders(template string, data map[string]string) []string {
	seen := make(map[string]bool)
	var missing []string

	rest := template
	for {
		open := strings.Index(rest, "{{.")
		if open < 0 {
			break
		}
		closeIdx := strings.Index(rest[open:], "}}")
		if closeIdx < 0 {
			break
		}
		key := rest[open+3 : open+closeIdx]
		if _, ok := data[key]; !ok && !seen[key] {
			seen[key] = true
			missing = append(missing, key)
		}
		rest = rest[open+closeIdx+2:]
	}
	sort.Strings(missing)
	return missing
}

// loadFile loads and caches a prompt file.
func loadFile(filename string) (map[string]string, error) {
	cacheMu.RLock()
	if prompts, exists := cache[filename]; exists {
		cacheMu.RUnlock()
		return prompts, nil
	}
	cacheMu.RUnlock()

	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}

	var prompts map[string]string
	if err := json.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	cacheMu.Lock()
	cache[filename] = prompts
	cacheMu.Unlock()

	return prompts, nil
}

// ClearCache clears the prompt cache. Useful for testing.
func ClearCache() {
	cacheMu.Lock()
	cache = make(map[string]map[string]string)
	cacheMu.Unlock()
}

// List returns all available prompt keys in a file, sorted.
func List(filename string) ([]string, error) {
	prompts, err := loadFile(filename)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(prompts))
	for key := range prompts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}
