package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// DefaultMinInputChars is the shortest resume or job text accepted.
const DefaultMinInputChars = 100

var validate = validator.New(validator.WithRequiredStructEnabled())

// Input is a generation request.
type Input struct {
	ResumeText string `json:"resume_text" validate:"required"`
	JobText    string `json:"job_text" validate:"required"`
	Tone       string `json:"tone,omitempty" validate:"max=500"`
}

// FeedbackInput is a revision request for a previously generated letter.
type FeedbackInput struct {
	Input
	PreviousLetter string `json:"previous_letter" validate:"required"`
	Feedback       string `json:"feedback" validate:"required,max=4000"`
	// Snapshot, when complete, skips re-parsing and re-matching.
	Snapshot *Snapshot `json:"snapshot,omitempty"`
}

var fieldNames = map[string]string{
	"ResumeText":     "resume_text",
	"JobText":        "job_text",
	"Tone":           "tone",
	"PreviousLetter": "previous_letter",
	"Feedback":       "feedback",
}

// normalize trims the free-text fields so whitespace-only input counts as empty.
func (in Input) normalize() Input {
	in.ResumeText = strings.TrimSpace(in.ResumeText)
	in.JobText = strings.TrimSpace(in.JobText)
	in.Tone = strings.TrimSpace(in.Tone)
	return in
}

func (in FeedbackInput) normalize() FeedbackInput {
	in.Input = in.Input.normalize()
	in.PreviousLetter = strings.TrimSpace(in.PreviousLetter)
	in.Feedback = strings.TrimSpace(in.Feedback)
	return in
}

// checkInput validates a request struct and enforces the minimum text length.
func checkInput(v any, in Input, minChars int) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			field := fieldNames[fe.StructField()]
			if field == "" {
				field = fe.Field()
			}
			switch fe.Tag() {
			case "required":
				return &InputError{Field: field, Message: "must not be empty"}
			case "max":
				return &InputError{Field: field, Message: fmt.Sprintf("must be at most %s characters", fe.Param())}
			default:
				return &InputError{Field: field, Message: fmt.Sprintf("failed %q check", fe.Tag())}
			}
		}
		return &InputError{Message: err.Error()}
	}

	if minChars > 0 {
		if n := utf8.RuneCountInString(in.ResumeText); n < minChars {
			return &InputError{Field: "resume_text", Message: fmt.Sprintf("is too short (%d characters, need at least %d)", n, minChars)}
		}
		if n := utf8.RuneCountInString(in.JobText); n < minChars {
			return &InputError{Field: "job_text", Message: fmt.Sprintf("is too short (%d characters, need at least %d)", n, minChars)}
		}
	}
	return nil
}
