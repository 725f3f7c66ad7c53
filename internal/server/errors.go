package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/pynay/LetterChain/internal/extraction"
	"github.com/pynay/LetterChain/internal/fetch"
	"github.com/pynay/LetterChain/internal/llm"
	"github.com/pynay/LetterChain/internal/pipeline"
	"github.com/pynay/LetterChain/internal/stream"
)

// statusClientClosedRequest is reported when the caller went away mid-run.
const statusClientClosedRequest = 499

// Error codes beyond those defined by the stream package.
const (
	CodeInvalidUpload = "invalid_upload"
	CodeFetchFailed   = "fetch_failed"
	CodeNotFound      = "not_found"
	CodeNotEnabled    = "not_enabled"
	CodeRateLimited   = "rate_limit_exceeded"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		verr     *ErrValidation
		unsup    *extraction.UnsupportedFormatError
		extErr   *extraction.ExtractionError
		fetchErr *fetch.Error
		maxBytes *http.MaxBytesError
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &verr), pipeline.IsInputError(err):
		return http.StatusBadRequest
	case errors.As(err, &maxBytes), errors.Is(err, extraction.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &unsup):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &extErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway
	case pipeline.IsCancelled(err):
		return statusClientClosedRequest
	case llm.IsTimeout(err):
		return http.StatusGatewayTimeout
	}
	if _, ok := pipeline.FailedStep(err); ok {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// ErrorCode returns the machine-readable code reported with err.
func ErrorCode(err error) string {
	var (
		verr     *ErrValidation
		unsup    *extraction.UnsupportedFormatError
		extErr   *extraction.ExtractionError
		fetchErr *fetch.Error
		maxBytes *http.MaxBytesError
	)

	switch {
	case errors.As(err, &verr):
		return stream.CodeInvalidInput
	case errors.As(err, &maxBytes), errors.As(err, &unsup), errors.As(err, &extErr):
		return CodeInvalidUpload
	case errors.As(err, &fetchErr):
		return CodeFetchFailed
	default:
		return stream.ErrorCode(err)
	}
}
