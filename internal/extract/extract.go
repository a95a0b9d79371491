// Package extract reads macro source and cell formulas out of spreadsheet
// documents.
//
// Macro-enabled workbooks (.xlsm) are zip packages holding a compound
// document named vbaProject.bin; legacy workbooks (.xls) are compound
// documents themselves. Module source is stored compressed inside the VBA
// storage. Workbooks without macros yield a single synthetic module made
// of their cell formulas.
package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"martianoff/vbapy/converr"
	"martianoff/vbapy/internal/converter"
	"martianoff/vbapy/internal/converter/parser"
)

// SupportedExtensions lists the input formats, lower-case with leading dot.
var SupportedExtensions = []string{".xlsx", ".xlsm", ".xls"}

// ModuleInfo summarises one extracted module.
type ModuleInfo struct {
	Kind      converter.ModuleKind `json:"type"`
	Lines     int                  `json:"lines"`
	Functions int                  `json:"functions"`
	Variables int                  `json:"variables"`
}

// Extractor implements converter.Extractor for spreadsheet files.
type Extractor struct {
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger for skipped streams and fallbacks.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = l
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Supported reports whether path has a supported extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Extract returns the modules of the document at path. A document without
// macros or formulas yields no modules and no error.
func (e *Extractor) Extract(ctx context.Context, path string) ([]converter.Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !Supported(path) {
		return nil, converr.NewUnsupportedFileError(path, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, converr.NewExtractionError(path, err)
	}

	switch ext {
	case ".xlsm":
		return e.fromPackage(path, data)
	case ".xls":
		return e.fromLegacy(path, data)
	default:
		return e.fromFormulas(path, data)
	}
}

func (e *Extractor) fromPackage(path string, data []byte) ([]converter.Module, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, converr.NewExtractionError(path, fmt.Errorf("open package: %w", err))
	}

	var modules []converter.Module
	found := false
	for _, f := range zr.File {
		if !strings.Contains(f.Name, "vbaProject") || !strings.HasSuffix(strings.ToLower(f.Name), ".bin") {
			continue
		}
		found = true
		raw, err := readZipFile(f)
		if err != nil {
			e.logger.Warn("could not read VBA project", "file", path, "entry", f.Name, "error", err)
			continue
		}
		modules = append(modules, e.fromProject(path, raw, f.Name)...)
	}

	if !found {
		e.logger.Warn("no VBA project found, collecting formulas", "file", path)
		return e.fromFormulas(path, data)
	}
	return modules, nil
}

func (e *Extractor) fromLegacy(path string, data []byte) ([]converter.Module, error) {
	modules := e.fromProject(path, data, "")
	if len(modules) > 0 {
		return modules, nil
	}
	return e.fromFormulas(path, data)
}

// fromProject reads a compound document. When no module source can be
// decompressed, the readable lines of the raw bytes stand in as a single
// module named after the entry.
func (e *Extractor) fromProject(file string, raw []byte, entry string) []converter.Module {
	sources, err := readProject(bytes.NewReader(raw))
	if err != nil {
		e.logger.Warn("could not read compound document", "file", file, "error", err)
	}

	var modules []converter.Module
	for _, src := range sources {
		modules = append(modules, converter.Module{Name: src.name, Code: src.code, Kind: converter.KindModule})
	}
	if len(modules) > 0 || entry == "" {
		return modules
	}

	e.logger.Warn("no module source recovered, using readable text", "file", file, "entry", entry)
	return []converter.Module{{
		Name: path.Base(entry),
		Code: readableLines(raw),
		Kind: converter.KindModule,
	}}
}

func (e *Extractor) fromFormulas(path string, data []byte) ([]converter.Module, error) {
	formulas, err := readFormulas(bytes.NewReader(data))
	if err != nil {
		e.logger.Warn("could not read workbook formulas", "file", path, "error", err)
		return nil, nil
	}
	if len(formulas) == 0 {
		return nil, nil
	}
	return []converter.Module{{
		Name: FormulasModuleName,
		Code: formulasSource(formulas),
		Kind: converter.KindFormulas,
	}}, nil
}

// ModuleInfo summarises the modules of the document at path, keyed by
// module name.
func (e *Extractor) ModuleInfo(ctx context.Context, path string) (map[string]ModuleInfo, error) {
	modules, err := e.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	info := make(map[string]ModuleInfo, len(modules))
	for _, mod := range modules {
		info[mod.Name] = Summarize(mod)
	}
	return info, nil
}

// Summarize counts the lines, routines and declarations of a module.
func Summarize(mod converter.Module) ModuleInfo {
	model := parser.Parse(mod.Code)
	vars := len(model.Variables)
	for _, r := range model.Routines {
		vars += len(r.Variables)
	}
	return ModuleInfo{
		Kind:      mod.Kind,
		Lines:     model.LineCount,
		Functions: len(model.Routines),
		Variables: vars,
	}
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

var _ converter.Extractor = (*Extractor)(nil)
