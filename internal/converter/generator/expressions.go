package generator

import (
	"regexp"
	"sort"
	"strings"

	"martianoff/vbapy/internal/converter/registry"
)

// rule is one entry of the ordered rewrite table. Rules marked codeOnly
// see only the text between string literals.
type rule struct {
	name     string
	codeOnly bool
	apply    func(rw *Rewriter, s string) string
}

var (
	rangePattern     = regexp.MustCompile(`(?i)\bRange\s*\(\s*"([^"]+)"\s*\)`)
	cellsPattern     = regexp.MustCompile(`(?i)\bCells\s*\(\s*([^,()]+?)\s*,\s*([^,()]+?)\s*\)`)
	hexPattern       = regexp.MustCompile(`(?i)&H([0-9A-F]+)&?`)
	concatPattern    = regexp.MustCompile(`\s*&\s*`)
	andPattern       = regexp.MustCompile(`(?i)\bAnd\b`)
	orPattern        = regexp.MustCompile(`(?i)\bOr\b`)
	notPattern       = regexp.MustCompile(`(?i)\bNot\b`)
	modPattern       = regexp.MustCompile(`(?i)\s*\bMod\b\s*`)
	isNothingPattern = regexp.MustCompile(`(?i)\bIs\s+Nothing\b`)
	nothingPattern   = regexp.MustCompile(`(?i)\bNothing\b`)
	truePattern      = regexp.MustCompile(`(?i)\bTrue\b`)
	falsePattern     = regexp.MustCompile(`(?i)\bFalse\b`)
	wordPattern      = regexp.MustCompile(`[A-Za-z_]\w*`)
)

// rules run in order. Function names are substituted before '&' becomes
// '+' so that argument lists containing '&' keep their call shape.
var rules = []rule{
	{name: "functions", codeOnly: true, apply: (*Rewriter).substituteFunctions},
	{name: "range", apply: func(_ *Rewriter, s string) string {
		return rangePattern.ReplaceAllString(s, `worksheet["$1"]`)
	}},
	{name: "cells", apply: func(_ *Rewriter, s string) string {
		return cellsPattern.ReplaceAllString(s, `worksheet.cell($1, $2)`)
	}},
	{name: "hex", codeOnly: true, apply: func(_ *Rewriter, s string) string {
		return hexPattern.ReplaceAllString(s, `0x$1`)
	}},
	{name: "concat", codeOnly: true, apply: func(_ *Rewriter, s string) string {
		return concatPattern.ReplaceAllString(s, " + ")
	}},
	{name: "logical", codeOnly: true, apply: func(_ *Rewriter, s string) string {
		s = andPattern.ReplaceAllString(s, "and")
		s = orPattern.ReplaceAllString(s, "or")
		return notPattern.ReplaceAllString(s, "not")
	}},
	{name: "mod", codeOnly: true, apply: func(_ *Rewriter, s string) string {
		return modPattern.ReplaceAllString(s, " % ")
	}},
	{name: "inequality", codeOnly: true, apply: func(_ *Rewriter, s string) string {
		return strings.ReplaceAll(s, "<>", "!=")
	}},
	{name: "literals", codeOnly: true, apply: func(_ *Rewriter, s string) string {
		s = isNothingPattern.ReplaceAllString(s, "is None")
		s = nothingPattern.ReplaceAllString(s, "None")
		s = truePattern.ReplaceAllString(s, "True")
		return falsePattern.ReplaceAllString(s, "False")
	}},
}

type funcRule struct {
	pattern *regexp.Regexp
	target  string
}

// Rewriter applies the expression rules using one registry's function
// table. It records which substring helpers were referenced and knows the
// canonical spelling of declared names. A Rewriter is not safe for
// concurrent use.
type Rewriter struct {
	funcs   []funcRule
	helpers map[string]bool
	symbols map[string]string
}

// NewRewriter builds a Rewriter from reg.
func NewRewriter(reg *registry.Registry) *Rewriter {
	rw := &Rewriter{helpers: make(map[string]bool)}
	for _, fn := range reg.Functions() {
		rw.funcs = append(rw.funcs, funcRule{
			pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(fn.Name) + `\$?\s*\(`),
			target:  fn.Target,
		})
	}
	return rw
}

// SetSymbols replaces the table of declared names. Keys are matched
// case-insensitively and replaced by their value wherever they appear as a
// whole word outside string literals and member accesses.
func (rw *Rewriter) SetSymbols(symbols map[string]string) {
	rw.symbols = make(map[string]string, len(symbols))
	for k, v := range symbols {
		rw.symbols[strings.ToUpper(k)] = v
	}
}

// UsedHelpers returns the substring helpers referenced so far, sorted.
func (rw *Rewriter) UsedHelpers() []string {
	out := make([]string, 0, len(rw.helpers))
	for name := range rw.helpers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Expression rewrites an expression or bare statement.
func (rw *Rewriter) Expression(expr string) string {
	s := strings.TrimSpace(expr)
	if len(rw.symbols) > 0 {
		s = mapCode(s, rw.normalizeSymbols)
	}
	for _, r := range rules {
		if r.codeOnly {
			s = mapCode(s, func(seg string) string { return r.apply(rw, seg) })
		} else {
			s = r.apply(rw, s)
		}
	}
	return s
}

// Condition rewrites a boolean condition: the expression rules plus the
// comparison '=' becoming '=='.
func (rw *Rewriter) Condition(cond string) string {
	return mapCode(rw.Expression(cond), equalityToPython)
}

func (rw *Rewriter) substituteFunctions(s string) string {
	for _, fn := range rw.funcs {
		if !fn.pattern.MatchString(s) {
			continue
		}
		s = fn.pattern.ReplaceAllLiteralString(s, fn.target+"(")
		if isHelper(fn.target) {
			rw.helpers[fn.target] = true
		}
	}
	return s
}

func (rw *Rewriter) normalizeSymbols(s string) string {
	var sb strings.Builder
	last := 0
	for _, loc := range wordPattern.FindAllStringIndex(s, -1) {
		start, end := loc[0], loc[1]
		if start > 0 && (s[start-1] == '.' || isWordByte(s[start-1])) {
			continue
		}
		canonical, ok := rw.symbols[strings.ToUpper(s[start:end])]
		if !ok {
			continue
		}
		sb.WriteString(s[last:start])
		sb.WriteString(canonical)
		last = end
	}
	if last == 0 {
		return s
	}
	sb.WriteString(s[last:])
	return sb.String()
}

// equalityToPython turns a lone '=' into '=='. Compound operators such as
// '<=', '>=', '!=' and '==' are left alone.
func equalityToPython(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '=' {
			sb.WriteByte(c)
			continue
		}
		prev, next := byte(0), byte(0)
		if i > 0 {
			prev = s[i-1]
		}
		if i+1 < len(s) {
			next = s[i+1]
		}
		if strings.IndexByte("<>!=", prev) >= 0 || next == '=' {
			sb.WriteByte(c)
			continue
		}
		sb.WriteString("==")
	}
	return sb.String()
}

// mapCode applies f to each stretch of s outside double-quoted string
// literals. A doubled quote inside a literal is an escaped quote.
func mapCode(s string, f func(string) string) string {
	if strings.IndexByte(s, '"') < 0 {
		return f(s)
	}
	var sb strings.Builder
	start := 0
	inString := false
	for i := 0; i < len(s); i++ {
		if s[i] != '"' {
			continue
		}
		if inString {
			if i+1 < len(s) && s[i+1] == '"' {
				i++
				continue
			}
			sb.WriteString(s[start : i+1])
			start = i + 1
			inString = false
			continue
		}
		sb.WriteString(f(s[start:i]))
		start = i
		inString = true
	}
	if inString {
		sb.WriteString(s[start:])
	} else {
		sb.WriteString(f(s[start:]))
	}
	return sb.String()
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isHelper(target string) bool {
	_, ok := helperSource[target]
	return ok
}

// RewriteExpression rewrites expr with the global tables.
func RewriteExpression(expr string) string {
	return NewRewriter(registry.Global).Expression(expr)
}

// RewriteCondition rewrites a condition with the global tables.
func RewriteCondition(cond string) string {
	return NewRewriter(registry.Global).Condition(cond)
}
