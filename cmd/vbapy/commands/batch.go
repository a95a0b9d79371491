package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"martianoff/vbapy/internal/batch"
)

var (
	batchOutput  string
	batchWorkers int
	batchReport  bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <directory|git-url>",
	Short: "Convert every Excel file under a directory",
	Long: `Convert every workbook under a directory tree, several at a time.

The source may also be a git repository URL; it is shallow-cloned into a
temporary directory first. Paths matched by the root .gitignore are skipped.

Examples:
  vbapy batch ./workbooks                          # Output to ./workbooks/converted_python
  vbapy batch ./workbooks -o ./out -w 8 --report   # Eight workers, write conversion_report.txt
  vbapy batch https://github.com/acme/macros.git -o ./out`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "Output directory for converted files")
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 0, "Number of parallel workers (default from config)")
	batchCmd.Flags().BoolVar(&batchReport, "report", false, "Write a detailed conversion report")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	src, err := batch.Resolve(ctx, args[0], logger)
	if err != nil {
		return err
	}
	defer src.Close()

	outputDir := batchOutput
	if outputDir == "" && src.Cloned() {
		// The clone is removed on exit, so its output goes to the working directory.
		outputDir = cfg.Output.Dir
	}

	p := newPipeline()
	summary, err := p.runner(batchWorkers).ConvertDirectory(ctx, src.Dir, outputDir)
	if summary == nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Conversion Summary:")
	fmt.Fprintln(out, summary.Text)
	if summary.Processed > 0 {
		fmt.Fprintf(out, "Output directory: %s\n", summary.OutputDir)
	}

	if (batchReport || cfg.Batch.Report) && summary.Processed > 0 {
		path, rerr := batch.WriteReport(summary, summary.OutputDir)
		if rerr != nil {
			return rerr
		}
		fmt.Fprintf(out, "Report: %s\n", filepath.Clean(path))
	}

	if err != nil {
		return err
	}
	return summary.Err()
}
