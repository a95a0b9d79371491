package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var convertOutput string

var convertCmd = &cobra.Command{
	Use:   "convert <file>",
	Short: "Convert a single Excel file",
	Long: `Convert the VBA macros of one workbook (.xlsm, .xlsx, .xls) to Python.

Workbooks without macros are converted from their cell formulas.

Examples:
  vbapy convert sample.xlsm                   # Writes sample_converted.py next to it
  vbapy convert sample.xlsm -o converted.py   # Explicit output path`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "Output Python file path")
}

func runConvert(cmd *cobra.Command, args []string) error {
	path := args[0]
	if err := checkInput(path); err != nil {
		return err
	}

	p := newPipeline()
	res := p.converter.ConvertFile(cmd.Context(), path, convertOutput)
	if !res.Success {
		return fmt.Errorf("conversion failed: %s", res.Error)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Conversion completed successfully!")
	fmt.Fprintf(out, "Output file: %s\n", res.OutputFile)
	fmt.Fprintf(out, "Modules converted: %d\n", res.ModulesConverted)
	if a := res.ComplexityAnalysis; a != nil {
		fmt.Fprintf(out, "Complexity level: %s\n", a.Difficulty)
		fmt.Fprintf(out, "Functions: %d\n", a.RoutineCount)
		fmt.Fprintf(out, "Total lines: %d\n", a.TotalLines)
	}
	return nil
}
