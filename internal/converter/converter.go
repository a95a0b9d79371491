// Package converter drives macro-to-Python conversion: it runs the parser
// and a code generator over the modules of a document, formats the result
// and aggregates complexity into a report.
package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"martianoff/vbapy/converr"
	"martianoff/vbapy/internal/converter/parser"
)

// NoCodeComment is the whole output for an empty module list.
const NoCodeComment = "# No VBA code found to convert"

// CodeGenerator turns modules into target-language source text.
type CodeGenerator interface {
	Generate(modules []Module) string
}

// Extractor reads the macro modules embedded in a document.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]Module, error)
}

var header = []string{
	`"""`,
	"Converted from VBA to Python",
	"Generated automatically - review and test before use",
	`"""`,
	"",
}

var footer = []string{
	"",
	"",
	`if __name__ == "__main__":`,
	"    # Example usage",
	"    pass  # TODO: Add example usage",
}

var generalAdvice = []string{
	"Review Excel object model usage for pandas/openpyxl equivalents",
	"Test converted code thoroughly with sample data",
	"Consider adding type hints for better code quality",
	"Add error handling for file operations",
	"Document any manual adjustments needed",
}

// Converter orchestrates parsing, generation and analysis.
type Converter struct {
	generator CodeGenerator
	extractor Extractor
	parser    *parser.Parser
	logger    *slog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger used for per-file outcomes and parser warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) {
		c.logger = l
		c.parser = parser.New(l)
	}
}

// WithExtractor sets the collaborator used by ConvertFile.
func WithExtractor(e Extractor) Option {
	return func(c *Converter) {
		c.extractor = e
	}
}

// NewConverter creates a Converter around a code generator.
func NewConverter(generator CodeGenerator, opts ...Option) *Converter {
	c := &Converter{
		generator: generator,
		parser:    &parser.Parser{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert generates formatted Python source for modules. It never panics:
// a failure inside generation is rendered as a single comment line.
func (c *Converter) Convert(modules []Module) (out string) {
	if len(modules) == 0 {
		return NoCodeComment
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("error converting VBA to Python", "panic", r)
			out = fmt.Sprintf("# Conversion failed: %v", r)
		}
	}()
	return Format(c.generator.Generate(modules))
}

// Format wraps generated code with the provenance header and usage footer
// and collapses runs of blank lines.
func Format(code string) string {
	lines := make([]string, 0, len(header)+len(footer)+strings.Count(code, "\n")+1)
	lines = append(lines, header...)
	for _, line := range strings.Split(code, "\n") {
		if strings.TrimSpace(line) == "" {
			if lines[len(lines)-1] == "" {
				continue
			}
			line = ""
		}
		lines = append(lines, line)
	}
	lines = append(lines, footer...)
	return strings.Join(lines, "\n")
}

// Analyze aggregates parser metrics and dependencies over modules.
func (c *Converter) Analyze(modules []Module) ComplexityReport {
	report := ComplexityReport{Dependencies: []string{}}
	deps := make(map[string]struct{})

	for _, mod := range modules {
		model := c.parser.Parse(mod.Code)
		metrics := parser.ComputeMetrics(model)

		report.ComplexityScore += metrics.CyclomaticComplexity
		report.TotalLines += metrics.LinesOfCode
		report.RoutineCount += metrics.RoutineCount
		report.VariableCount += metrics.VariableCount
		for _, dep := range parser.AnalyzeDependencies(mod.Code) {
			deps[dep] = struct{}{}
		}
	}

	for dep := range deps {
		report.Dependencies = append(report.Dependencies, dep)
	}
	sort.Strings(report.Dependencies)

	report.Difficulty = TierFor(report.ComplexityScore)
	report.Recommendations = Recommendations(report.ComplexityScore, report.RoutineCount, len(report.Dependencies))
	return report
}

// Recommendations derives review advice from aggregate counters. Rules are
// cumulative; the general advice is always appended.
func Recommendations(complexity, routines, deps int) []string {
	var recs []string
	if complexity > 50 {
		recs = append(recs, "High complexity detected. Consider breaking down into smaller functions.")
	}
	if routines > 20 {
		recs = append(recs, "Many functions detected. Consider organizing into classes or modules.")
	}
	if deps > 5 {
		recs = append(recs, "Multiple dependencies detected. Review external library requirements.")
	}
	if complexity < 10 {
		recs = append(recs, "Low complexity. Conversion should be straightforward.")
	}
	return append(recs, generalAdvice...)
}

// DefaultOutputPath returns "<dir>/<stem>_converted.py" for an input file.
func DefaultOutputPath(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return filepath.Join(filepath.Dir(path), stem+"_converted.py")
}

// ConvertFile extracts, converts and writes one document. An empty
// outputPath selects DefaultOutputPath. Every failure, including a panic in
// the pipeline, is reported in the returned record.
func (c *Converter) ConvertFile(ctx context.Context, path, outputPath string) (result FileResult) {
	result.InputFile = path
	defer func() {
		if r := recover(); r != nil {
			result = c.failure(path, converr.NewConversionError(path, fmt.Sprint(r)))
		}
	}()

	if err := ctx.Err(); err != nil {
		return c.failure(path, err)
	}
	if c.extractor == nil {
		return c.failure(path, converr.NewExtractionError(path, errors.New("no extractor configured")))
	}

	modules, err := c.extractor.Extract(ctx, path)
	if err != nil {
		return c.failure(path, err)
	}
	if len(modules) == 0 {
		return c.failure(path, converr.NewConversionError(path, "No VBA code found in file"))
	}

	code := c.Convert(modules)

	if outputPath == "" {
		outputPath = DefaultOutputPath(path)
	}
	if dir := filepath.Dir(outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return c.failure(path, converr.NewOutputError(outputPath, err))
		}
	}
	if err := os.WriteFile(outputPath, []byte(code), 0o644); err != nil {
		return c.failure(path, converr.NewOutputError(outputPath, err))
	}

	report := c.Analyze(modules)
	c.logger.Info("converted file",
		"input", path,
		"output", outputPath,
		"modules", len(modules),
		"difficulty", report.Difficulty.String())

	return FileResult{
		Success:            true,
		InputFile:          path,
		OutputFile:         outputPath,
		ModulesConverted:   len(modules),
		ComplexityAnalysis: &report,
	}
}

func (c *Converter) failure(path string, err error) FileResult {
	c.logger.Error("error converting file", "file", path, "error", err)
	res := FileResult{
		InputFile: path,
		Error:     err.Error(),
	}
	var ce converr.ConvertError
	if errors.As(err, &ce) {
		res.ErrorType = ce.Type()
	}
	return res
}
