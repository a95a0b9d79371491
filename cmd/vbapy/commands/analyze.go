package commands

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	analyzeDetailed bool
	analyzeJSON     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze VBA complexity",
	Long: `Report how hard the macros of a workbook will be to port: complexity
score, difficulty tier, size, and the external dependencies they touch.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeDetailed, "detailed", false, "Show dependencies and recommendations")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the analysis as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]
	if err := checkInput(path); err != nil {
		return err
	}

	p := newPipeline()
	modules, err := p.extractor.Extract(cmd.Context(), path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(modules) == 0 {
		fmt.Fprintln(out, "No VBA code found in the file")
		return nil
	}

	report := p.converter.Analyze(modules)
	if analyzeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(out, "VBA Complexity Analysis for %s\n", filepath.Base(path))
	fmt.Fprintln(out, strings.Repeat("=", 50))
	fmt.Fprintf(out, "Complexity Score: %d\n", report.ComplexityScore)
	fmt.Fprintf(out, "Difficulty Level: %s\n", report.Difficulty)
	fmt.Fprintf(out, "Total Lines: %d\n", report.TotalLines)
	fmt.Fprintf(out, "Functions: %d\n", report.RoutineCount)
	fmt.Fprintf(out, "Variables: %d\n", report.VariableCount)
	fmt.Fprintf(out, "Dependencies: %d\n", len(report.Dependencies))

	if analyzeDetailed {
		fmt.Fprintln(out, "\nDetailed Analysis:")
		fmt.Fprintf(out, "Dependencies: %s\n", strings.Join(report.Dependencies, ", "))
		fmt.Fprintln(out, "\nRecommendations:")
		for _, rec := range report.Recommendations {
			fmt.Fprintf(out, "  • %s\n", rec)
		}
	}
	return nil
}
