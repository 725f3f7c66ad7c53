// Package llm - extractor.go describes the JSON shapes requested from the model.
package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema describes the JSON object a prompt asks the model to return.
type ExtractionSchema struct {
	Name   string        // Schema name (e.g., "JobProfile", "Verdict")
	Fields []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint shown to the model
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// OutputInstructions renders the "return only this JSON" block embedded in prompts.
func OutputInstructions(schema ExtractionSchema) string {
	var sb strings.Builder

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "\"string\""
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n")
	sb.WriteString("Do not add commentary before or after the JSON object.")

	return sb.String()
}

// --- Predefined Schemas ---

// JobProfileSchema is the shape returned by the job parser.
func JobProfileSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "JobProfile",
		Fields: []SchemaField{
			{Name: "title", Description: "Job title exactly as posted", Required: true},
			{Name: "company", Description: "Hiring company name", Required: true},
			{Name: "required_skills", Type: "[\"string\"]", Description: "Skills and qualifications the role requires", Required: true},
			{Name: "values", Type: "[\"string\"]", Description: "Company values or culture signals"},
			{Name: "summary", Description: "Two or three sentence summary of the role"},
		},
	}
}

// ResumeProfileSchema is the shape returned by the resume parser.
func ResumeProfileSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "ResumeProfile",
		Fields: []SchemaField{
			{Name: "name", Description: "Candidate full name", Required: true},
			{Name: "summary", Description: "Professional summary"},
			{Name: "experiences", Type: "[{\"title\": \"string\", \"org\": \"string\", \"description\": \"string\"}]", Description: "Work history, most recent first", Required: true},
			{Name: "skills", Type: "[\"string\"]", Description: "Distinct skills", Required: true},
			{Name: "education", Type: "[\"string\"]", Description: "Degrees and institutions"},
		},
	}
}

// MatchesSchema is the shape returned by the relevance matcher.
func MatchesSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "Matches",
		Fields: []SchemaField{
			{
				Name:        "matches",
				Type:        "[{\"title\": \"string\", \"org\": \"string\", \"rationale\": \"string\"}]",
				Description: "Selected experiences, title and org copied exactly from the resume",
				Required:    true,
			},
		},
	}
}

// VerdictSchema is the shape returned by the letter validator.
func VerdictSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "Verdict",
		Fields: []SchemaField{
			{Name: "valid", Type: "boolean", Description: "true only if every check passes", Required: true},
			{Name: "issues", Type: "[\"string\"]", Description: "One entry per failed check, empty when valid", Required: true},
		},
	}
}
