// Package parser builds a lightweight structural model of macro source:
// routines, parameters, declarations, line counters and complexity.
//
// Parsing never fails. Constructs that do not match a known shape degrade
// to best-effort records so that a conversion can always proceed.
package parser

import (
	"log/slog"
	"regexp"
	"strings"
)

var (
	routinePattern    = regexp.MustCompile(`(?i)^(?:(public|private|friend)\s+)?(?:static\s+)?(sub|function)\s+(\w+)`)
	endRoutinePattern = regexp.MustCompile(`(?i)^end\s+(sub|function)\b`)
	dimPattern        = regexp.MustCompile(`(?i)^(?:dim|static)\s+(.+)$`)
	moduleVarPattern  = regexp.MustCompile(`(?i)^(?:public|private|global)\s+(.+)$`)
	constPattern      = regexp.MustCompile(`(?i)^(?:(?:public|private|global)\s+)?const\s+(.+)$`)
	declNamePattern   = regexp.MustCompile(`(?i)^(\w+[$%&!#@]?)(?:\s*\([^)]*\))?(?:\s+as\s+(?:new\s+)?([\w.]+(?:\s*\*\s*\d+)?))?`)
	asSplitPattern    = regexp.MustCompile(`(?i)\s+as\s+`)
	identPattern      = regexp.MustCompile(`^[A-Za-z_]\w*[$%&!#@]?$`)
)

// Control-flow keywords counted towards complexity. Each keyword counts at
// most once per line.
var complexityKeywords = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bif\b`),
	regexp.MustCompile(`(?i)\bfor\b`),
	regexp.MustCompile(`(?i)\bwhile\b`),
	regexp.MustCompile(`(?i)\bselect\b`),
	regexp.MustCompile(`(?i)\bcase\b`),
}

// Words that may follow Public/Private at module level without introducing
// a variable declaration.
var nonVariableWords = map[string]struct{}{
	"sub": {}, "function": {}, "const": {}, "static": {}, "declare": {},
	"type": {}, "enum": {}, "property": {}, "event": {}, "withevents": {},
}

// Parser scans macro source text. The zero value is ready to use and logs
// through slog.Default.
type Parser struct {
	logger *slog.Logger
}

// New creates a Parser that reports degraded input through logger.
func New(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

var defaultParser = &Parser{}

// Parse builds a structural model using the default parser.
func Parse(src string) *Model {
	return defaultParser.Parse(src)
}

func (p *Parser) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return slog.Default()
}

// Parse scans src line by line. At most one routine is open at a time; a
// routine still open at end of input is closed at the last line.
func (p *Parser) Parse(src string) *Model {
	lines := strings.Split(src, "\n")
	m := &Model{
		Routines:  []Routine{},
		Variables: []Variable{},
		Constants: []Constant{},
		LineCount: len(lines),
	}

	cur := -1
	for i, raw := range lines {
		lineNum := i + 1
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if IsComment(line) {
			m.CommentLines++
			continue
		}
		m.CodeLines++

		code := StripComment(line)
		if code == "" {
			continue
		}

		switch {
		case routinePattern.MatchString(code):
			if cur >= 0 {
				m.Routines[cur].EndLine = lineNum - 1
			}
			m.Routines = append(m.Routines, p.newRoutine(lines, i, code))
			cur = len(m.Routines) - 1

		case endRoutinePattern.MatchString(code):
			if cur >= 0 {
				m.Routines[cur].EndLine = lineNum
				cur = -1
			}

		case constPattern.MatchString(code):
			m.Constants = append(m.Constants, parseConstant(code, lineNum))

		case dimPattern.MatchString(code):
			scope := ScopeModule
			if cur >= 0 {
				scope = ScopeLocal
			}
			vars := parseDeclarations(dimPattern.FindStringSubmatch(code)[1], scope, lineNum)
			if cur >= 0 {
				m.Routines[cur].Variables = append(m.Routines[cur].Variables, vars...)
			} else {
				m.Variables = append(m.Variables, vars...)
			}

		case cur < 0 && moduleVarPattern.MatchString(code):
			rest := moduleVarPattern.FindStringSubmatch(code)[1]
			word := strings.ToLower(strings.Fields(rest)[0])
			if _, skip := nonVariableWords[word]; !skip {
				m.Variables = append(m.Variables, parseDeclarations(rest, ScopeModule, lineNum)...)
			}
		}

		for _, kw := range complexityKeywords {
			if kw.MatchString(code) {
				m.ComplexityScore++
				if cur >= 0 {
					m.Routines[cur].Complexity++
				}
			}
		}
	}

	if cur >= 0 {
		m.Routines[cur].EndLine = len(lines)
	}
	return m
}

func (p *Parser) newRoutine(lines []string, idx int, code string) Routine {
	match := routinePattern.FindStringSubmatch(code)

	visibility := Public
	if strings.EqualFold(match[1], "private") {
		visibility = Private
	}

	header, headerEnd := joinContinuations(lines, idx)
	return Routine{
		Name:          match[3],
		Kind:          RoutineKind(strings.ToUpper(match[2])),
		Visibility:    visibility,
		StartLine:     idx + 1,
		HeaderEndLine: headerEnd,
		Parameters:    p.ParseParameters(header),
		Variables:     []Variable{},
		Complexity:    1,
	}
}

// IsRoutineEnd reports whether code is an End Sub or End Function line.
func IsRoutineEnd(code string) bool {
	return endRoutinePattern.MatchString(code)
}

// ParseDim parses a Dim or Static statement. The boolean is false when code
// is not a declaration statement.
func ParseDim(code string, scope Scope, line int) ([]Variable, bool) {
	match := dimPattern.FindStringSubmatch(code)
	if match == nil {
		return nil, false
	}
	return parseDeclarations(match[1], scope, line), true
}

// ParseConst parses a Const statement. The boolean is false when code is
// not a constant declaration.
func ParseConst(code string, line int) (Constant, bool) {
	if !constPattern.MatchString(code) {
		return Constant{}, false
	}
	return parseConstant(code, line), true
}

// JoinContinuations folds the " _" continuations of the logical line
// starting at lines[idx]. It returns the joined code without comments and
// the 0-based index of the last physical line consumed.
func JoinContinuations(lines []string, idx int) (string, int) {
	text, last := joinContinuations(lines, idx)
	return text, last - 1
}

// HasContinuation reports whether a code line ends with a " _" marker.
func HasContinuation(code string) bool {
	return hasContinuation(code)
}

// joinContinuations returns the logical line starting at idx with any
// " _" continuations folded in, and the 1-based number of its last
// physical line.
func joinContinuations(lines []string, idx int) (string, int) {
	text := StripComment(strings.TrimSpace(lines[idx]))
	last := idx
	for hasContinuation(text) && last+1 < len(lines) {
		last++
		next := StripComment(strings.TrimSpace(lines[last]))
		text = strings.TrimSpace(strings.TrimSuffix(text, "_")) + " " + next
	}
	return text, last + 1
}

// parseDeclarations parses the comma-separated names of a Dim statement.
// Names that do not match the declaration shape are skipped.
func parseDeclarations(text string, scope Scope, line int) []Variable {
	var vars []Variable
	for _, frag := range SplitTopLevel(text, ',') {
		frag = strings.TrimSpace(frag)
		if strings.HasPrefix(strings.ToLower(frag), "withevents ") {
			frag = strings.TrimSpace(frag[len("withevents "):])
		}
		match := declNamePattern.FindStringSubmatch(frag)
		if match == nil {
			continue
		}
		typ := match[2]
		if typ == "" {
			typ = DefaultType
		}
		vars = append(vars, Variable{
			Name:  match[1],
			Type:  typ,
			Scope: scope,
			Line:  line,
		})
	}
	return vars
}

// parseConstant parses "Const NAME [As Type] = value".
func parseConstant(code string, line int) Constant {
	rest := strings.TrimSpace(constPattern.FindStringSubmatch(code)[1])
	c := Constant{Type: DefaultType, Line: line}

	nameType := rest
	if eq := IndexTopLevel(rest, '='); eq >= 0 {
		nameType = strings.TrimSpace(rest[:eq])
		c.Value = strings.TrimSpace(rest[eq+1:])
	}

	parts := asSplitPattern.Split(nameType, 2)
	c.Name = strings.TrimSpace(parts[0])
	if len(parts) == 2 && strings.TrimSpace(parts[1]) != "" {
		c.Type = strings.TrimSpace(parts[1])
	}
	if fields := strings.Fields(c.Name); len(fields) > 0 {
		c.Name = fields[0]
	}
	return c
}
