// Package commands provides the CLI commands for the vbapy tool.
package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"martianoff/vbapy/internal/batch"
	"martianoff/vbapy/internal/config"
	"martianoff/vbapy/internal/converter"
	"martianoff/vbapy/internal/converter/generator"
	"martianoff/vbapy/internal/extract"
	"martianoff/vbapy/internal/logging"
)

var (
	configPath string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "vbapy",
	Short: "Convert spreadsheet VBA macros to Python",
	Long: `vbapy extracts VBA macros (or cell formulas) from Excel workbooks and
translates them into a best-effort Python scaffold.

Usage:
  vbapy convert book.xlsm                 Convert one workbook
  vbapy batch ./workbooks -o ./out        Convert a directory or git repository
  vbapy analyze book.xlsm --detailed      Report conversion complexity
  vbapy extract book.xlsm                 Print the extracted macro source
  vbapy watch ./workbooks                 Re-convert workbooks as they change
  vbapy serve                             Serve conversion tools over stdio
  vbapy version                           Print version`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to vbapy.toml (default: search upward from the working directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")
}

// setup loads the configuration and builds the logger. Logs go to stderr
// so that stdout stays free for command output.
func setup(cmd *cobra.Command) error {
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		wd, wdErr := os.Getwd()
		if wdErr != nil {
			return wdErr
		}
		cfg, err = config.FindAndLoad(wd)
	}
	if err != nil {
		return err
	}

	if logLevel != "" {
		if _, err := logging.ParseLevel(logLevel); err != nil {
			return err
		}
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}

	logger = logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	if cfg.Path != "" {
		logger.Debug("loaded configuration", "path", cfg.Path)
	}
	return nil
}

// pipeline wires the extractor, generator and converter from the loaded
// configuration.
type pipeline struct {
	extractor *extract.Extractor
	converter *converter.Converter
}

func newPipeline() pipeline {
	ext := extract.New(extract.WithLogger(logger))
	gen := generator.NewPythonGenerator(
		generator.WithRegistry(cfg.Registry()),
		generator.WithLogger(logger),
	)
	conv := converter.NewConverter(gen,
		converter.WithExtractor(ext),
		converter.WithLogger(logger),
	)
	return pipeline{extractor: ext, converter: conv}
}

func (p pipeline) runner(workers int) *batch.Runner {
	if workers < 1 {
		workers = cfg.Batch.Workers
	}
	return batch.NewRunner(p.converter,
		batch.WithWorkers(workers),
		batch.WithExtensions(cfg.Batch.Extensions),
		batch.WithContinueOnError(cfg.Batch.ContinueOnError),
		batch.WithLogger(logger),
	)
}

// checkInput rejects missing files and unsupported extensions before any
// work starts.
func checkInput(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("file not found: %s", path)
	}
	if !extract.Supported(path) {
		return fmt.Errorf("unsupported file type: %s", path)
	}
	return nil
}
