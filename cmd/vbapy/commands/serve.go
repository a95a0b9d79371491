package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"martianoff/vbapy/internal/toolserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the conversion tools over stdio",
	Long: `Serve convert_vba_file, extract_vba_code, analyze_vba_complexity,
batch_convert_files and generate_python_equivalent as JSON-RPC 2.0 tools,
one JSON message per line on stdin and stdout.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p := newPipeline()
		srv := toolserver.New(p.converter, p.extractor, p.runner(0),
			toolserver.WithLogger(logger),
			toolserver.WithVersion(Version),
		)
		err := srv.ServeStdio(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}
