package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"martianoff/vbapy/internal/watch"
)

var (
	watchOutput  string
	watchInitial bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <directory>",
	Short: "Re-convert workbooks whenever they change",
	Long: `Watch a directory tree and convert each workbook again after it is
created or saved. Changes are batched until the tree has been quiet for the
configured debounce interval. Stop with Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "", "Output directory (default: <directory>/converted_python)")
	watchCmd.Flags().BoolVar(&watchInitial, "initial", false, "Convert every workbook once before watching")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := watch.New(args[0],
		watch.WithDebounce(cfg.Watch.Debounce),
		watch.WithExtensions(cfg.Batch.Extensions),
		watch.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer w.Close()

	outputDir := watchOutput
	if outputDir == "" {
		outputDir = cfg.Output.Dir
		if !filepath.IsAbs(outputDir) {
			outputDir = filepath.Join(w.Root(), outputDir)
		}
	}

	p := newPipeline()
	if watchInitial {
		summary, err := p.runner(0).ConvertDirectory(ctx, w.Root(), outputDir)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), summary.Text)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (output: %s)\n", w.Root(), outputDir)
	return w.Run(ctx, watch.ConvertChanged(p.converter, w.Root(), outputDir, logger))
}
