package parser

// Difficulty is the module-local three-tier classification.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// DifficultyFor classifies a module's complexity score.
func DifficultyFor(complexity int) Difficulty {
	switch {
	case complexity < 10:
		return DifficultyEasy
	case complexity < 20:
		return DifficultyMedium
	default:
		return DifficultyHard
	}
}

// Metrics summarises a structural model.
type Metrics struct {
	CyclomaticComplexity     int        `json:"cyclomatic_complexity"`
	RoutineCount             int        `json:"function_count"`
	VariableCount            int        `json:"variable_count"`
	LinesOfCode              int        `json:"lines_of_code"`
	CommentRatio             float64    `json:"comment_ratio"`
	AverageRoutineComplexity float64    `json:"average_function_complexity"`
	MaxRoutineComplexity     int        `json:"max_function_complexity"`
	Difficulty               Difficulty `json:"difficulty"`
}

// ComputeMetrics derives complexity metrics from m.
func ComputeMetrics(m *Model) Metrics {
	lineCount := m.LineCount
	if lineCount < 1 {
		lineCount = 1
	}

	metrics := Metrics{
		CyclomaticComplexity: m.ComplexityScore,
		RoutineCount:         len(m.Routines),
		VariableCount:        len(m.Variables),
		LinesOfCode:          m.CodeLines,
		CommentRatio:         float64(m.CommentLines) / float64(lineCount),
		Difficulty:           DifficultyFor(m.ComplexityScore),
	}

	if len(m.Routines) > 0 {
		total := 0
		for _, r := range m.Routines {
			total += r.Complexity
			if r.Complexity > metrics.MaxRoutineComplexity {
				metrics.MaxRoutineComplexity = r.Complexity
			}
		}
		metrics.AverageRoutineComplexity = float64(total) / float64(len(m.Routines))
	}
	return metrics
}
