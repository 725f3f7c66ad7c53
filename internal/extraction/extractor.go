// Package extraction turns uploaded resumes and job postings into plain text.
// Supported inputs are plain text, Markdown, HTML, DOCX, and PDF.
package extraction

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MaxUploadBytes is the default size limit for an input document.
const MaxUploadBytes = 5 << 20

// Extractor converts documents to cleaned text.
type Extractor struct {
	// MaxBytes caps the accepted input size; 0 means MaxUploadBytes.
	MaxBytes int64
}

// New returns an extractor with the default size limit.
func New() *Extractor {
	return &Extractor{MaxBytes: MaxUploadBytes}
}

// Limit returns the effective size limit in bytes.
func (e *Extractor) Limit() int64 {
	if e == nil || e.MaxBytes <= 0 {
		return MaxUploadBytes
	}
	return e.MaxBytes
}

// Extract returns the cleaned text of data in the given format.
func (e *Extractor) Extract(data []byte, format Format) (string, error) {
	if int64(len(data)) > e.Limit() {
		return "", &ExtractionError{
			Format:  format,
			Message: fmt.Sprintf("%d bytes exceeds the %d byte limit", len(data), e.Limit()),
			Cause:   ErrTooLarge,
		}
	}

	var (
		raw string
		err error
	)
	switch format {
	case FormatText, FormatMarkdown:
		raw, err = plainText(data)
	case FormatHTML:
		raw, err = htmlText(data)
	case FormatDOCX:
		raw, err = docxText(data)
	case FormatPDF:
		raw, err = pdfText(data)
	default:
		return "", &UnsupportedFormatError{Format: string(format)}
	}
	if err != nil {
		return "", &ExtractionError{Format: format, Message: "unreadable document", Cause: err}
	}

	text := CleanText(raw)
	if text == "" {
		return "", &ExtractionError{Format: format, Message: "document is empty", Cause: ErrNoText}
	}
	return text, nil
}

// ExtractReader reads at most the size limit from r and extracts it using
// the format implied by filename.
func (e *Extractor) ExtractReader(r io.Reader, filename string) (string, error) {
	format, err := FormatFromFilename(filename)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(io.LimitReader(r, e.Limit()+1))
	if err != nil {
		return "", &ExtractionError{Format: format, Message: "failed to read input", Cause: err}
	}
	return e.Extract(data, format)
}

// ExtractFile extracts the file at path.
func (e *Extractor) ExtractFile(path string) (string, error) {
	format, err := FormatFromFilename(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	if info.Size() > e.Limit() {
		return "", &ExtractionError{
			Format:  format,
			Message: fmt.Sprintf("%s is %d bytes, limit is %d", filepath.Base(path), info.Size(), e.Limit()),
			Cause:   ErrTooLarge,
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return e.Extract(data, format)
}

func plainText(data []byte) (string, error) {
	if bytes.IndexByte(data, 0) >= 0 {
		return "", fmt.Errorf("binary content in text file")
	}
	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	return text, nil
}
