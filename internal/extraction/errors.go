package extraction

import (
	"errors"
	"fmt"
)

// ErrTooLarge is wrapped by ExtractionError when input exceeds the size limit.
var ErrTooLarge = errors.New("file too large")

// ErrNoText is wrapped by ExtractionError when a document yields no text.
var ErrNoText = errors.New("no text found")

// UnsupportedFormatError reports a file type the extractor cannot read.
type UnsupportedFormatError struct {
	Format   string
	Filename string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Filename != "" {
		return fmt.Sprintf("unsupported file format %q for %s (supported: %s)", e.Format, e.Filename, supportedList())
	}
	return fmt.Sprintf("unsupported file format %q (supported: %s)", e.Format, supportedList())
}

// ExtractionError reports a readable format whose content could not be extracted.
type ExtractionError struct {
	Format  Format
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to extract %s text: %s: %v", e.Format, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to extract %s text: %s", e.Format, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}
