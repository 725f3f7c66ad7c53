package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pynay/LetterChain/internal/extraction"
	"github.com/pynay/LetterChain/internal/pipeline"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 2 << 20

// multipartMemory is how much of a multipart form is held in memory.
const multipartMemory = 8 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// GenerateRequest is the body of POST /generate. JobURL is fetched when
// JobText is empty.
type GenerateRequest struct {
	ResumeText string `json:"resume_text"`
	JobText    string `json:"job_text"`
	JobURL     string `json:"job_url,omitempty" validate:"omitempty,http_url"`
	Tone       string `json:"tone,omitempty" validate:"max=500"`
}

// FeedbackRequest is the body of POST /feedback.
type FeedbackRequest struct {
	GenerateRequest
	PreviousLetter string             `json:"previous_letter"`
	Feedback       string             `json:"feedback"`
	Snapshot       *pipeline.Snapshot `json:"snapshot,omitempty"`
}

var requestFields = map[string]string{
	"JobURL": "job_url",
	"Tone":   "tone",
}

func checkRequest(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	fe := verrs[0]
	field := requestFields[fe.StructField()]
	if field == "" {
		field = fe.Field()
	}
	switch fe.Tag() {
	case "http_url":
		return &ErrValidation{Field: field, Message: "must be an http or https URL"}
	case "max":
		return &ErrValidation{Field: field, Message: "must be at most " + fe.Param() + " characters"}
	default:
		return &ErrValidation{Field: field, Message: fmt.Sprintf("failed %q check", fe.Tag())}
	}
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return &ErrValidation{Field: "body", Message: "request body is empty"}
		}
		return &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// decodeGenerate reads a generate request from a JSON body or a multipart
// form. Form files "resume" and "job" are extracted to text and take
// precedence over the resume_text and job_text fields.
func (s *Server) decodeGenerate(w http.ResponseWriter, r *http.Request) (GenerateRequest, error) {
	var req GenerateRequest
	if !isMultipart(r) {
		if err := decodeJSON(w, r, &req); err != nil {
			return req, err
		}
		return req, checkRequest(req)
	}

	// Two uploads plus the text fields.
	r.Body = http.MaxBytesReader(w, r.Body, 2*s.extractor.Limit()+1<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return req, err
		}
		return req, &ErrValidation{Field: "body", Message: "invalid multipart form: " + err.Error()}
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	req.ResumeText = r.FormValue("resume_text")
	req.JobText = r.FormValue("job_text")
	req.JobURL = strings.TrimSpace(r.FormValue("job_url"))
	req.Tone = r.FormValue("tone")

	if text, ok, err := s.formFile(r.MultipartForm, "resume"); err != nil {
		return req, err
	} else if ok {
		req.ResumeText = text
	}
	if text, ok, err := s.formFile(r.MultipartForm, "job"); err != nil {
		return req, err
	} else if ok {
		req.JobText = text
	}
	return req, checkRequest(req)
}

// formFile extracts the text of the named upload, if present.
func (s *Server) formFile(form *multipart.Form, field string) (string, bool, error) {
	if form == nil || len(form.File[field]) == 0 {
		return "", false, nil
	}
	header := form.File[field][0]
	if limit := s.extractor.Limit(); header.Size > limit {
		return "", false, fmt.Errorf("%s upload: %w", field, &extraction.ExtractionError{
			Message: fmt.Sprintf("%s is %d bytes, limit is %d", header.Filename, header.Size, limit),
			Cause:   extraction.ErrTooLarge,
		})
	}
	f, err := header.Open()
	if err != nil {
		return "", false, fmt.Errorf("failed to open %s upload: %w", field, err)
	}
	defer f.Close() //nolint:errcheck

	text, err := s.extractor.ExtractReader(f, header.Filename)
	if err != nil {
		return "", false, fmt.Errorf("%s upload: %w", field, err)
	}
	return text, true, nil
}

// decodeFeedback reads a JSON feedback request.
func decodeFeedback(w http.ResponseWriter, r *http.Request) (FeedbackRequest, error) {
	var req FeedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return req, err
	}
	return req, checkRequest(req)
}
