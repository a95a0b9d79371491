package converter

import (
	"fmt"

	"martianoff/vbapy/converr"
)

// ModuleKind tags the origin of a module's source.
type ModuleKind string

const (
	// KindModule is ordinary macro source taken from a code module.
	KindModule ModuleKind = "module"
	// KindFormulas is a synthetic module built from worksheet cell formulas.
	KindFormulas ModuleKind = "formulas"
)

// Module is a named unit of macro source handed to the pipeline.
type Module struct {
	Name string     `json:"module_name"`
	Code string     `json:"code"`
	Kind ModuleKind `json:"type"`
}

// DifficultyTier is the aggregate difficulty of a conversion.
type DifficultyTier int

const (
	Easy DifficultyTier = iota
	Medium
	Hard
	VeryHard
)

func (d DifficultyTier) String() string {
	switch d {
	case Easy:
		return "Easy"
	case Medium:
		return "Medium"
	case Hard:
		return "Hard"
	case VeryHard:
		return "Very Hard"
	}
	return fmt.Sprintf("DifficultyTier(%d)", int(d))
}

// MarshalText renders the tier by name so reports serialise readably.
func (d DifficultyTier) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses a tier name as written by MarshalText.
func (d *DifficultyTier) UnmarshalText(text []byte) error {
	for t := Easy; t <= VeryHard; t++ {
		if t.String() == string(text) {
			*d = t
			return nil
		}
	}
	return fmt.Errorf("unknown difficulty tier %q", text)
}

// TierFor maps a total complexity score to its aggregate tier.
func TierFor(complexity int) DifficultyTier {
	switch {
	case complexity < 20:
		return Easy
	case complexity < 50:
		return Medium
	case complexity < 100:
		return Hard
	default:
		return VeryHard
	}
}

// ComplexityReport aggregates the metrics of every module of a file.
type ComplexityReport struct {
	ComplexityScore int            `json:"complexity_score"`
	TotalLines      int            `json:"total_lines"`
	RoutineCount    int            `json:"function_count"`
	VariableCount   int            `json:"variable_count"`
	Dependencies    []string       `json:"dependencies"`
	Difficulty      DifficultyTier `json:"difficulty_level"`
	Recommendations []string       `json:"recommendations"`
}

// FileResult is the outcome of converting one file. Failures are reported
// through Success and Error rather than returned as Go errors.
type FileResult struct {
	Success            bool              `json:"success"`
	InputFile          string            `json:"input_file"`
	OutputFile         string            `json:"output_file,omitempty"`
	ModulesConverted   int               `json:"modules_converted,omitempty"`
	ComplexityAnalysis *ComplexityReport `json:"complexity_analysis,omitempty"`
	Error              string            `json:"error,omitempty"`
	ErrorType          converr.ErrorType `json:"error_type,omitempty"`
}
