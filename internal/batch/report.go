package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"martianoff/vbapy/converr"
)

// ReportFileName is written into the output directory by WriteReport.
const ReportFileName = "conversion_report.txt"

// RenderReport formats a summary as the plain-text batch report.
func RenderReport(s *Summary) string {
	var sb strings.Builder
	sb.WriteString("VBA to Python Batch Conversion Report\n")
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")
	fmt.Fprintf(&sb, "Processed: %d files\n", s.Processed)
	fmt.Fprintf(&sb, "Converted: %d files\n", s.Converted)
	fmt.Fprintf(&sb, "Failed: %d files\n\n", s.Failed)

	if len(s.Results) == 0 {
		return sb.String()
	}

	sb.WriteString("Detailed Results:\n")
	sb.WriteString(strings.Repeat("-", 20) + "\n")
	for _, r := range s.Results {
		fmt.Fprintf(&sb, "\nFile: %s\n", r.File)
		if !r.Success {
			sb.WriteString("Status: FAILED\n")
			msg := r.Error
			if msg == "" {
				msg = "Unknown error"
			}
			fmt.Fprintf(&sb, "Error: %s\n", msg)
			continue
		}
		sb.WriteString("Status: SUCCESS\n")
		if a := r.ComplexityAnalysis; a != nil {
			fmt.Fprintf(&sb, "Complexity: %s\n", a.Difficulty)
			fmt.Fprintf(&sb, "Functions: %d\n", a.RoutineCount)
			fmt.Fprintf(&sb, "Lines: %d\n", a.TotalLines)
		}
	}
	return sb.String()
}

// WriteReport writes the report for s into outputDir and returns its path.
func WriteReport(s *Summary, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", converr.NewOutputError(outputDir, err)
	}
	path := filepath.Join(outputDir, ReportFileName)
	if err := os.WriteFile(path, []byte(RenderReport(s)), 0o644); err != nil {
		return "", converr.NewOutputError(path, err)
	}
	return path, nil
}
