// Package generator emits Python source from macro modules.
//
// Module-level declarations come from the structural model; routine bodies
// are rewritten line by line from the macro source using the ordered
// expression rules and the substitution tables of a registry.
package generator

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"martianoff/vbapy/internal/converter"
	"martianoff/vbapy/internal/converter/parser"
	"martianoff/vbapy/internal/converter/registry"
)

var imports = []string{
	"import pandas as pd",
	"import openpyxl",
	"from openpyxl import Workbook, load_workbook",
	"from typing import Any, Optional, Union",
	"from datetime import datetime",
	"from decimal import Decimal",
	"import os",
	"import sys",
}

var helperSource = map[string][]string{
	registry.LeftHelper: {
		"def vba_left(s: str, n: int) -> str:",
		"    return s[:n]",
	},
	registry.RightHelper: {
		"def vba_right(s: str, n: int) -> str:",
		`    return s[-n:] if n > 0 else ""`,
	},
	registry.MidHelper: {
		"def vba_mid(s: str, start: int, length: Optional[int] = None) -> str:",
		"    if length is None:",
		"        return s[start - 1:]",
		"    return s[start - 1:start - 1 + length]",
	},
}

var formulasScaffold = []string{
	"class ExcelFormulasConverter:",
	`    """Converted Excel formulas to Python operations"""`,
	"",
	"    def __init__(self, workbook_path: str):",
	"        self.workbook_path = workbook_path",
	"        self.workbook = load_workbook(workbook_path)",
	"        self.data_frames = {}",
	"        self._load_sheets()",
	"",
	"    def _load_sheets(self):",
	`        """Load all sheets as pandas DataFrames"""`,
	"        for sheet_name in self.workbook.sheetnames:",
	"            ws = self.workbook[sheet_name]",
	"            data = []",
	"            for row in ws.iter_rows(values_only=True):",
	"                data.append(row)",
	"            self.data_frames[sheet_name] = pd.DataFrame(data)",
	"",
	"    def apply_formulas(self):",
	`        """Apply converted formulas"""`,
	"        # TODO: Implement formula conversions",
	"        pass",
}

var (
	formulaCellPattern = regexp.MustCompile(`^'\s*Sheet:\s*(.+),\s*Cell:\s*(\S+)$`)
	formulaPattern     = regexp.MustCompile(`(?i)^Range\("([^"]+)"\)\.Formula\s*=\s*"(.*)"$`)
)

type pythonGenerator struct {
	registry *registry.Registry
	parser   *parser.Parser
	logger   *slog.Logger
}

// Option configures the generator.
type Option func(*pythonGenerator)

// WithRegistry sets the substitution tables. The default is registry.Global.
func WithRegistry(r *registry.Registry) Option {
	return func(g *pythonGenerator) {
		g.registry = r
	}
}

// WithLogger sets the logger used by the generator and its parser.
func WithLogger(l *slog.Logger) Option {
	return func(g *pythonGenerator) {
		g.logger = l
		g.parser = parser.New(l)
	}
}

// NewPythonGenerator creates a CodeGenerator that emits Python.
func NewPythonGenerator(opts ...Option) converter.CodeGenerator {
	g := &pythonGenerator{
		registry: registry.Global,
		parser:   &parser.Parser{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate converts modules with the default generator.
func Generate(modules []converter.Module) string {
	return NewPythonGenerator().Generate(modules)
}

// Generate implements the CodeGenerator interface.
func (g *pythonGenerator) Generate(modules []converter.Module) string {
	if len(modules) == 0 {
		return converter.NoCodeComment
	}

	rw := NewRewriter(g.registry)
	var body []string
	for _, mod := range modules {
		name := mod.Name
		if name == "" {
			name = "Unknown"
		}
		body = append(body, "# Converted from VBA module: "+name, "")
		if mod.Kind == converter.KindFormulas {
			body = append(body, formulasModule(mod.Code)...)
		} else {
			body = append(body, g.module(rw, mod.Code)...)
		}
		body = append(body, "")
		g.logger.Debug("generated module", "module", name, "kind", mod.Kind)
	}

	out := append([]string{}, imports...)
	out = append(out, "")
	for _, helper := range rw.UsedHelpers() {
		out = append(out, helperSource[helper]...)
		out = append(out, "", "")
	}
	out = append(out, body...)
	return strings.Join(out, "\n")
}

func (g *pythonGenerator) module(rw *Rewriter, code string) []string {
	model := g.parser.Parse(code)
	lines := strings.Split(code, "\n")

	var out []string
	if len(model.Variables) > 0 {
		out = append(out, "# Module-level variables")
		for _, v := range model.Variables {
			out = append(out, fmt.Sprintf("%s: %s = None", pythonName(v.Name), g.registry.LookupType(v.Type)))
		}
		out = append(out, "")
	}
	if len(model.Constants) > 0 {
		out = append(out, "# Constants")
		for _, c := range model.Constants {
			out = append(out, fmt.Sprintf("%s = %s", strings.ToUpper(pythonName(c.Name)), c.Value))
		}
		out = append(out, "")
	}

	symbols := make(map[string]string)
	callables := make(map[string]bool)
	for _, fn := range g.registry.Functions() {
		callables[strings.ToUpper(fn.Name)] = true
	}
	for _, v := range model.Variables {
		symbols[v.Name] = pythonName(v.Name)
	}
	for _, c := range model.Constants {
		symbols[c.Name] = strings.ToUpper(pythonName(c.Name))
	}
	for _, r := range model.Routines {
		symbols[r.Name] = pythonName(r.Name)
		callables[strings.ToUpper(r.Name)] = true
	}

	for i := range model.Routines {
		out = append(out, g.routine(rw, &model.Routines[i], lines, symbols, callables)...)
		out = append(out, "")
	}
	return out
}

func (g *pythonGenerator) routine(rw *Rewriter, r *parser.Routine, lines []string, module map[string]string, callables map[string]bool) []string {
	symbols := make(map[string]string, len(module)+len(r.Parameters)+len(r.Variables))
	for k, v := range module {
		symbols[k] = v
	}
	for _, p := range r.Parameters {
		symbols[p.Name] = pythonName(p.Name)
	}
	for _, v := range r.Variables {
		symbols[v.Name] = pythonName(v.Name)
	}
	rw.SetSymbols(symbols)

	out := []string{g.signature(r)}
	out = append(out, indentUnit+`"""`, fmt.Sprintf("%sConverted from VBA %s: %s", indentUnit, r.Kind, r.Name))
	if len(r.Parameters) > 0 {
		out = append(out, "", indentUnit+"Args:")
		for _, p := range r.Parameters {
			out = append(out, fmt.Sprintf("%s    %s: %s", indentUnit, pythonName(p.Name), p.Type))
		}
	}
	out = append(out, indentUnit+`"""`)

	body := routineBody(r, lines)
	t := newBodyTranslator(rw, g.registry, callables)
	if r.IsFunction() && assignsResult(r.Name, body) {
		t.returnName = pythonName(r.Name)
	}
	return append(out, t.translate(body)...)
}

func (g *pythonGenerator) signature(r *parser.Routine) string {
	params := make([]string, 0, len(r.Parameters))
	for _, p := range r.Parameters {
		name := pythonName(p.Name)
		typ := g.registry.LookupType(p.Type)
		switch {
		case p.ParamArray:
			params = append(params, "*"+name)
		case p.Optional:
			params = append(params, fmt.Sprintf("%s: Optional[%s] = None", name, typ))
		default:
			params = append(params, fmt.Sprintf("%s: %s", name, typ))
		}
	}
	ret := "None"
	if r.IsFunction() {
		ret = "Any"
	}
	return fmt.Sprintf("def %s(%s) -> %s:", pythonName(r.Name), strings.Join(params, ", "), ret)
}

// routineBody slices the source lines between the signature and the end
// marker. A routine closed implicitly keeps its last line.
func routineBody(r *parser.Routine, lines []string) []string {
	start := r.HeaderEndLine
	if start < r.StartLine {
		start = r.StartLine
	}
	end := r.EndLine
	if end > len(lines) {
		end = len(lines)
	}
	if end > 0 && parser.IsRoutineEnd(parser.StripComment(strings.TrimSpace(lines[end-1]))) {
		end--
	}
	if start >= end {
		return nil
	}
	return lines[start:end]
}

// assignsResult reports whether a function body assigns to the function
// name, the dialect's way of setting the return value.
func assignsResult(name string, body []string) bool {
	pattern := regexp.MustCompile(`(?i)^(?:let\s+|set\s+)?` + regexp.QuoteMeta(name) + `\s*=[^=]`)
	for _, line := range body {
		if pattern.MatchString(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}

// formulasModule renders the workbook scaffold, preceded by a table of the
// collected cell formulas when the module carries any.
func formulasModule(code string) []string {
	var rows []string
	sheet, cell := "", ""
	for _, line := range strings.Split(code, "\n") {
		line = strings.TrimSpace(line)
		if m := formulaCellPattern.FindStringSubmatch(line); m != nil {
			sheet, cell = strings.TrimSpace(m[1]), m[2]
			continue
		}
		if m := formulaPattern.FindStringSubmatch(line); m != nil {
			if cell == "" {
				cell = m[1]
			}
			formula := strings.ReplaceAll(m[2], `""`, `"`)
			rows = append(rows, fmt.Sprintf("    (%s, %s, %s),", strconv.Quote(sheet), strconv.Quote(cell), strconv.Quote(formula)))
			sheet, cell = "", ""
		}
	}

	var out []string
	if len(rows) > 0 {
		out = append(out, "EXCEL_FORMULAS = [")
		out = append(out, rows...)
		out = append(out, "]", "")
	}
	return append(out, formulasScaffold...)
}

var _ converter.CodeGenerator = (*pythonGenerator)(nil)
