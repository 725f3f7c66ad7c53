package extraction

import (
	"path/filepath"
	"strings"
)

// Format is a document format.
type Format string

// Supported formats.
const (
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatDOCX     Format = "docx"
	FormatPDF      Format = "pdf"
)

var extensions = map[string]Format{
	".txt":      FormatText,
	".text":     FormatText,
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".html":     FormatHTML,
	".htm":      FormatHTML,
	".docx":     FormatDOCX,
	".pdf":      FormatPDF,
}

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatText, FormatMarkdown, FormatHTML, FormatDOCX, FormatPDF}
}

func supportedList() string {
	names := make([]string, 0, len(Formats()))
	for _, f := range Formats() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}

// ParseFormat resolves a format name such as "pdf" or ".pdf".
func ParseFormat(name string) (Format, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if !strings.HasPrefix(key, ".") {
		key = "." + key
	}
	if f, ok := extensions[key]; ok {
		return f, nil
	}
	return "", &UnsupportedFormatError{Format: name}
}

// FormatFromFilename picks the format from a file's extension.
func FormatFromFilename(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	return "", &UnsupportedFormatError{Format: strings.TrimPrefix(ext, "."), Filename: filepath.Base(filename)}
}
