package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"martianoff/vbapy/converr"
	"martianoff/vbapy/internal/converter"
)

// DefaultOutputDir is created inside the source directory when no output
// directory is given.
const DefaultOutputDir = "converted_python"

// ErrStopped wraps the cause of a run cut short by a failure or by
// cancellation.
var ErrStopped = errors.New("batch stopped")

// NoFilesSummary is the summary text of a directory without spreadsheets.
const NoFilesSummary = "No Excel files found in directory"

// FileConverter converts a single document. *converter.Converter
// implements it.
type FileConverter interface {
	ConvertFile(ctx context.Context, path, outputPath string) converter.FileResult
}

// Result is the outcome for one discovered file.
type Result struct {
	File string `json:"file"`
	converter.FileResult
}

// Summary aggregates a directory run.
type Summary struct {
	Processed   int      `json:"processed"`
	Converted   int      `json:"converted"`
	Failed      int      `json:"failed"`
	FailedFiles []string `json:"failed_files,omitempty"`
	OutputDir   string   `json:"output_dir"`
	Text        string   `json:"summary"`
	Results     []Result `json:"detailed_results,omitempty"`
}

// Err collects the failed files into a single error, or returns nil.
func (s *Summary) Err() error {
	var merr converr.MultiError
	for _, r := range s.Results {
		if !r.Success {
			merr.Append(fmt.Errorf("%s: %s", r.File, r.Error))
		}
	}
	return merr.ErrorOrNil()
}

// Runner converts directories with a bounded number of concurrent files.
type Runner struct {
	conv            FileConverter
	workers         int
	extensions      []string
	continueOnError bool
	logger          *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers bounds the number of files converted at once.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithExtensions sets the file extensions picked up by discovery.
func WithExtensions(exts []string) Option {
	return func(r *Runner) {
		if len(exts) > 0 {
			r.extensions = exts
		}
	}
}

// WithContinueOnError controls whether a failed file cancels the files
// not yet started.
func WithContinueOnError(v bool) Option {
	return func(r *Runner) {
		r.continueOnError = v
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner creates a Runner around conv.
func NewRunner(conv FileConverter, opts ...Option) *Runner {
	r := &Runner{
		conv:            conv,
		workers:         4,
		extensions:      []string{".xlsx", ".xlsm", ".xls"},
		continueOnError: true,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ConvertDirectory converts every spreadsheet under dir. Output files keep
// the relative layout of their inputs below outputDir, which defaults to
// dir/converted_python. Per-file failures are part of the summary; the
// returned error is set only when the run itself could not happen or was
// stopped early.
func (r *Runner) ConvertDirectory(ctx context.Context, dir, outputDir string) (*Summary, error) {
	files, err := Discover(dir, r.extensions)
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		out := outputDir
		if out == "" {
			out = dir
		}
		return &Summary{OutputDir: out, Text: NoFilesSummary}, nil
	}

	if outputDir == "" {
		outputDir = filepath.Join(dir, DefaultOutputDir)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, converr.NewOutputError(outputDir, err)
	}

	r.logger.Info("batch conversion started", "dir", dir, "files", len(files), "workers", r.workers)
	start := time.Now()

	results := make([]Result, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, rel := range files {
		g.Go(func() error {
			res := r.conv.ConvertFile(gctx, filepath.Join(dir, rel), OutputPath(outputDir, rel))
			results[i] = Result{File: rel, FileResult: res}
			if !res.Success && !r.continueOnError {
				return fmt.Errorf("%s: %s", rel, res.Error)
			}
			return nil
		})
	}
	runErr := g.Wait()
	if runErr == nil {
		runErr = ctx.Err()
	}

	summary := summarize(results, outputDir)
	r.logger.Info("batch conversion finished",
		"processed", summary.Processed,
		"converted", summary.Converted,
		"failed", summary.Failed,
		"duration", time.Since(start))

	if runErr != nil {
		return summary, fmt.Errorf("%w: %w", ErrStopped, runErr)
	}
	return summary, nil
}

// OutputPath maps a discovered relative path to its generated file.
func OutputPath(outputDir, rel string) string {
	stem := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
	return filepath.Join(outputDir, filepath.Dir(rel), stem+"_converted.py")
}

func summarize(results []Result, outputDir string) *Summary {
	s := &Summary{
		Processed: len(results),
		OutputDir: outputDir,
		Results:   results,
	}
	for _, r := range results {
		if r.Success {
			s.Converted++
		} else {
			s.Failed++
			s.FailedFiles = append(s.FailedFiles, r.File)
		}
	}

	lines := []string{
		fmt.Sprintf("Processed %d files", s.Processed),
		fmt.Sprintf("Successfully converted: %d", s.Converted),
		fmt.Sprintf("Failed: %d", s.Failed),
	}
	if s.Failed > 0 {
		lines = append(lines, "Failed files: "+strings.Join(s.FailedFiles, ", "))
	}
	s.Text = strings.Join(lines, "\n")
	return s
}
