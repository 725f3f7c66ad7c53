package pipeline

import (
	"fmt"
	"strings"
)

// StepDefinition defines metadata for a pipeline step
type StepDefinition struct {
	Name         StepName
	Phase        Phase
	Dependencies []StepName
	// Message is the human-readable status emitted when the step starts.
	Message string
}

// StepRegistry holds all step definitions
var StepRegistry = map[StepName]StepDefinition{
	StepJobParse: {
		Name:         StepJobParse,
		Phase:        PhaseParsingInputs,
		Dependencies: []StepName{},
		Message:      "Parsing job description",
	},
	StepResumeParse: {
		Name:         StepResumeParse,
		Phase:        PhaseParsingInputs,
		Dependencies: []StepName{},
		Message:      "Parsing resume",
	},
	StepMatch: {
		Name:         StepMatch,
		Phase:        PhaseMatching,
		Dependencies: []StepName{StepJobParse, StepResumeParse},
		Message:      "Matching experiences to the role",
	},
	StepGenerate: {
		Name:         StepGenerate,
		Phase:        PhaseGenerating,
		Dependencies: []StepName{StepMatch},
		Message:      "Writing cover letter",
	},
	StepValidate: {
		Name:         StepValidate,
		Phase:        PhaseValidating,
		Dependencies: []StepName{StepGenerate},
		Message:      "Reviewing cover letter",
	},
}

// stepOrder lists steps per phase in execution order.
var stepOrder = map[Phase][]StepName{
	PhaseParsingInputs: {StepJobParse, StepResumeParse},
	PhaseMatching:      {StepMatch},
	PhaseGenerating:    {StepGenerate},
	PhaseValidating:    {StepValidate},
}

// DependencyError represents a dependency validation error
type DependencyError struct {
	Step                StepName
	MissingDependencies []StepName
}

func (e *DependencyError) Error() string {
	names := make([]string, len(e.MissingDependencies))
	for i, d := range e.MissingDependencies {
		names[i] = string(d)
	}
	return fmt.Sprintf("step %s: missing dependencies: %s", e.Step, strings.Join(names, ", "))
}

// ValidateDependencies checks that every dependency of stepName has completed.
func ValidateDependencies(stepName StepName, completed map[StepName]bool) error {
	def, ok := StepRegistry[stepName]
	if !ok {
		return fmt.Errorf("unknown step: %s", stepName)
	}

	var missing []StepName
	for _, dep := range def.Dependencies {
		if !completed[dep] {
			missing = append(missing, dep)
		}
	}

	if len(missing) > 0 {
		return &DependencyError{
			Step:                stepName,
			MissingDependencies: missing,
		}
	}
	return nil
}

// StepsFor returns the steps run in a phase, in order.
func StepsFor(phase Phase) []StepName {
	return stepOrder[phase]
}

// StatusMessage returns the status text announced when step starts.
func StatusMessage(step StepName, attempt int) string {
	def, ok := StepRegistry[step]
	if !ok {
		return string(step)
	}
	if (step == StepGenerate || step == StepValidate) && attempt > 1 {
		return fmt.Sprintf("%s (attempt %d)", def.Message, attempt)
	}
	return def.Message
}
