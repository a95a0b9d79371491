package generator

import (
	"fmt"
	"regexp"
	"strings"

	"martianoff/vbapy/internal/converter/parser"
	"martianoff/vbapy/internal/converter/registry"
)

const indentUnit = "    "

// Placeholder lines left for a human reviewer.
const (
	emptyBodyLine      = "pass  # TODO: Implement function body"
	loopFallbackHeader = "for i in range(10):  # TODO: Fix loop range"
)

var (
	ifBlockPattern    = regexp.MustCompile(`(?i)^if\s+(.+?)\s+then$`)
	ifInlinePattern   = regexp.MustCompile(`(?i)^if\s+(.+?)\s+then\s+(.+)$`)
	inlineElsePattern = regexp.MustCompile(`(?i)\s+else\s+`)
	elseIfPattern     = regexp.MustCompile(`(?i)^else\s*if\s+(.+?)(?:\s+then)?$`)
	elsePattern       = regexp.MustCompile(`(?i)^else:?$`)
	endIfPattern      = regexp.MustCompile(`(?i)^end\s*if$`)
	selectPattern     = regexp.MustCompile(`(?i)^select\s+case\s+(.+)$`)
	caseElsePattern   = regexp.MustCompile(`(?i)^case\s+else$`)
	casePattern       = regexp.MustCompile(`(?i)^case\s+(.+)$`)
	caseIsPattern     = regexp.MustCompile(`(?i)^is\s*(<>|<=|>=|=|<|>)\s*(.+)$`)
	caseToPattern     = regexp.MustCompile(`(?i)^(.+?)\s+to\s+(.+)$`)
	endSelectPattern  = regexp.MustCompile(`(?i)^end\s+select$`)
	forEachPattern    = regexp.MustCompile(`(?i)^for\s+each\s+(\w+)\s+in\s+(.+)$`)
	forPattern        = regexp.MustCompile(`(?i)^for\s+(\w+)\s*=\s*(.+?)\s+to\s+(.+?)(?:\s+step\s+(.+))?$`)
	forStartPattern   = regexp.MustCompile(`(?i)^for\b`)
	nextPattern       = regexp.MustCompile(`(?i)^next\b`)
	whilePattern      = regexp.MustCompile(`(?i)^while\s+(.+)$`)
	wendPattern       = regexp.MustCompile(`(?i)^wend$`)
	doPattern         = regexp.MustCompile(`(?i)^do(?:\s+(while|until)\s+(.+))?$`)
	loopPattern       = regexp.MustCompile(`(?i)^loop(?:\s+(while|until)\s+(.+))?$`)
	withPattern       = regexp.MustCompile(`(?i)^with\s+(.+)$`)
	endWithPattern    = regexp.MustCompile(`(?i)^end\s+with$`)
	exitPattern       = regexp.MustCompile(`(?i)^exit\s+(sub|function|property|for|do)$`)
	reDimPattern      = regexp.MustCompile(`(?i)^redim\s+(?:preserve\s+)?(\w+)\s*\((.+)\)(?:\s+as\s+[\w.]+)?$`)
	setPattern        = regexp.MustCompile(`(?i)^(?:set|let)\s+(.+)$`)
	callPattern       = regexp.MustCompile(`(?i)^call\s+(.+)$`)
	debugPrintPattern = regexp.MustCompile(`(?i)^debug\.print\b\s*(.*)$`)
	errorFlowPattern  = regexp.MustCompile(`(?i)^(?:on\s+error|goto|resume)\b`)
	labelPattern      = regexp.MustCompile(`^\w+:$`)
	bareCallPattern   = regexp.MustCompile(`^(\w+)\s+([^=(].*)$`)
	simpleNamePattern = regexp.MustCompile(`^\w+[$%&!#@]?$`)
)

// ForLoop is a counted loop header: For <Var> = <Start> To <End> [Step <Step>].
type ForLoop struct {
	Var   string
	Start string
	End   string
	Step  string
}

// ParseForLoop parses a counted For header. The loop variable is
// lower-cased and a missing Step defaults to "1".
func ParseForLoop(line string) (ForLoop, bool) {
	match := forPattern.FindStringSubmatch(strings.TrimSpace(line))
	if match == nil {
		return ForLoop{}, false
	}
	step := strings.TrimSpace(match[4])
	if step == "" {
		step = "1"
	}
	return ForLoop{
		Var:   strings.ToLower(match[1]),
		Start: strings.TrimSpace(match[2]),
		End:   strings.TrimSpace(match[3]),
		Step:  step,
	}, true
}

// Range renders the inclusive bounds as a Python range call.
func (f ForLoop) Range() string {
	if strings.HasPrefix(f.Step, "-") {
		return fmt.Sprintf("range(%s, %s - 1, %s)", f.Start, f.End, f.Step)
	}
	return fmt.Sprintf("range(%s, %s + 1, %s)", f.Start, f.End, f.Step)
}

type blockKind int

const (
	blockIf blockKind = iota
	blockFor
	blockWhile
	blockDo
	blockSelect
	blockWith
)

type block struct {
	kind    blockKind
	indent  int  // indent of the opening statement
	empty   bool // nothing emitted since the block or its current branch opened
	subject string
	cases   int
	with    string
}

// bodyTranslator rewrites the statements of one routine body.
type bodyTranslator struct {
	rw         *Rewriter
	types      *registry.Registry
	callables  map[string]bool
	returnName string
	isFunction bool

	indent     int
	blocks     []*block
	out        []string
	statements int
}

func newBodyTranslator(rw *Rewriter, types *registry.Registry, callables map[string]bool) *bodyTranslator {
	return &bodyTranslator{rw: rw, types: types, callables: callables, indent: 1}
}

// translate converts body lines. Blank lines are dropped and whole-line
// comments are kept at the current indent.
func (t *bodyTranslator) translate(lines []string) []string {
	if t.returnName != "" {
		t.emit(t.returnName + " = None")
	}
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if parser.IsComment(line) {
			t.comment(parser.CommentText(line))
			continue
		}
		code, note := parser.SplitComment(line)
		if parser.HasContinuation(code) {
			code, i = parser.JoinContinuations(lines, i)
			note = ""
		}
		if code == "" {
			continue
		}
		before := len(t.out)
		t.statement(code)
		if note != "" {
			if len(t.out) > before {
				t.out[before] += "  # " + note
			} else {
				t.comment(note)
			}
		}
	}
	for len(t.blocks) > 0 {
		t.closeTop()
	}
	if t.returnName != "" {
		t.emit("return " + t.returnName)
	}
	if t.statements == 0 {
		t.emit(emptyBodyLine)
	}
	return t.out
}

func (t *bodyTranslator) statement(code string) {
	if strings.HasPrefix(code, ".") {
		if w := t.innermost(blockWith); w != nil {
			code = w.with + code
		}
	}

	if m := ifBlockPattern.FindStringSubmatch(code); m != nil {
		t.open(blockIf, "if "+t.rw.Condition(m[1])+":")
		return
	}
	if m := ifInlinePattern.FindStringSubmatch(code); m != nil {
		t.inlineIf(m[1], m[2])
		return
	}
	if m := elseIfPattern.FindStringSubmatch(code); m != nil {
		t.branch("elif " + t.rw.Condition(m[1]) + ":")
		return
	}
	if elsePattern.MatchString(code) {
		t.branch("else:")
		return
	}
	if endIfPattern.MatchString(code) {
		t.close(blockIf)
		return
	}

	if m := selectPattern.FindStringSubmatch(code); m != nil {
		t.blocks = append(t.blocks, &block{kind: blockSelect, indent: t.indent, subject: t.rw.Expression(m[1])})
		return
	}
	if caseElsePattern.MatchString(code) {
		t.caseBranch("")
		return
	}
	if m := casePattern.FindStringSubmatch(code); m != nil {
		t.caseBranch(m[1])
		return
	}
	if endSelectPattern.MatchString(code) {
		t.close(blockSelect)
		return
	}

	if m := forEachPattern.FindStringSubmatch(code); m != nil {
		t.open(blockFor, fmt.Sprintf("for %s in %s:", strings.ToLower(m[1]), t.rw.Expression(m[2])))
		return
	}
	if forStartPattern.MatchString(code) {
		t.open(blockFor, t.forHeader(code))
		return
	}
	if nextPattern.MatchString(code) {
		t.close(blockFor)
		return
	}
	if m := whilePattern.FindStringSubmatch(code); m != nil {
		t.open(blockWhile, "while "+t.rw.Condition(m[1])+":")
		return
	}
	if wendPattern.MatchString(code) {
		t.close(blockWhile)
		return
	}
	if m := doPattern.FindStringSubmatch(code); m != nil {
		t.open(blockDo, "while "+t.loopCondition(m[1], m[2])+":")
		return
	}
	if m := loopPattern.FindStringSubmatch(code); m != nil {
		if m[1] != "" {
			cond := t.rw.Condition(m[2])
			if strings.EqualFold(m[1], "while") {
				cond = "not (" + cond + ")"
			}
			t.emit("if " + cond + ":")
			t.emitAt(t.indent+1, "break")
		}
		t.close(blockDo)
		return
	}
	if m := withPattern.FindStringSubmatch(code); m != nil {
		t.blocks = append(t.blocks, &block{kind: blockWith, indent: t.indent, with: strings.TrimSpace(m[1])})
		return
	}
	if endWithPattern.MatchString(code) {
		t.close(blockWith)
		return
	}

	if m := exitPattern.FindStringSubmatch(code); m != nil {
		t.exit(strings.ToLower(m[1]))
		return
	}
	if vars, ok := parser.ParseDim(code, parser.ScopeLocal, 0); ok {
		for _, v := range vars {
			t.emit(fmt.Sprintf("%s: %s = None", pythonName(v.Name), t.types.LookupType(v.Type)))
		}
		return
	}
	if c, ok := parser.ParseConst(code, 0); ok {
		t.emit(fmt.Sprintf("%s = %s", strings.ToUpper(pythonName(c.Name)), t.rw.Expression(c.Value)))
		return
	}
	if m := reDimPattern.FindStringSubmatch(code); m != nil {
		bound := strings.TrimSpace(m[2])
		if to := caseToPattern.FindStringSubmatch(bound); to != nil {
			bound = strings.TrimSpace(to[2])
		}
		t.emit(fmt.Sprintf("%s = [None] * (%s + 1)", pythonName(m[1]), t.rw.Expression(bound)))
		return
	}
	if errorFlowPattern.MatchString(code) || labelPattern.MatchString(code) {
		t.comment("TODO: Review error handling: " + code)
		return
	}
	if m := debugPrintPattern.FindStringSubmatch(code); m != nil {
		t.emit("print(" + t.rw.Expression(m[1]) + ")")
		return
	}
	if m := setPattern.FindStringSubmatch(code); m != nil {
		code = m[1]
	}
	if m := callPattern.FindStringSubmatch(code); m != nil {
		call := strings.TrimSpace(m[1])
		if !strings.Contains(call, "(") {
			call += "()"
		}
		t.emit(t.rw.Expression(call))
		return
	}

	if eq := parser.IndexTopLevel(code, '='); eq > 0 && !isComparison(code, eq) {
		t.emit(t.target(code[:eq]) + " = " + t.rw.Expression(code[eq+1:]))
		return
	}
	if m := bareCallPattern.FindStringSubmatch(code); m != nil && t.callables[strings.ToUpper(m[1])] {
		t.emit(t.rw.Expression(m[1] + "(" + strings.TrimSpace(m[2]) + ")"))
		return
	}
	if simpleNamePattern.MatchString(code) && t.callables[strings.ToUpper(code)] {
		t.emit(t.rw.Expression(code) + "()")
		return
	}
	t.emit(t.rw.Expression(code))
}

func (t *bodyTranslator) inlineIf(cond, rest string) {
	then, otherwise := rest, ""
	if loc := inlineElsePattern.FindStringIndex(rest); loc != nil {
		then, otherwise = rest[:loc[0]], rest[loc[1]:]
	}
	t.emit("if " + t.rw.Condition(cond) + ":")
	t.nested(then)
	if otherwise != "" {
		t.emit("else:")
		t.nested(otherwise)
	}
}

func (t *bodyTranslator) nested(code string) {
	t.indent++
	t.statement(strings.TrimSpace(code))
	t.indent--
}

func (t *bodyTranslator) forHeader(code string) string {
	loop, ok := ParseForLoop(code)
	if !ok {
		return loopFallbackHeader
	}
	loop.Start = t.rw.Expression(loop.Start)
	loop.End = t.rw.Expression(loop.End)
	loop.Step = t.rw.Expression(loop.Step)
	return fmt.Sprintf("for %s in %s:", loop.Var, loop.Range())
}

func (t *bodyTranslator) loopCondition(kind, cond string) string {
	switch strings.ToLower(kind) {
	case "while":
		return t.rw.Condition(cond)
	case "until":
		return "not (" + t.rw.Condition(cond) + ")"
	}
	return "True"
}

func (t *bodyTranslator) caseBranch(values string) {
	sel := t.innermost(blockSelect)
	if sel == nil {
		t.comment("TODO: Case outside Select: " + values)
		return
	}
	for t.blocks[len(t.blocks)-1] != sel {
		t.closeTop()
	}
	if sel.cases > 0 && sel.empty {
		t.emitAt(sel.indent+1, "pass")
	}

	switch {
	case values == "":
		t.emitAt(sel.indent, "else:")
	case sel.cases == 0:
		t.emitAt(sel.indent, "if "+t.caseCondition(sel.subject, values)+":")
	default:
		t.emitAt(sel.indent, "elif "+t.caseCondition(sel.subject, values)+":")
	}
	sel.cases++
	sel.empty = true
	t.indent = sel.indent + 1
}

// caseCondition renders a Case value list as a boolean test on subject.
func (t *bodyTranslator) caseCondition(subject, values string) string {
	var conds []string
	for _, part := range parser.SplitTopLevel(values, ',') {
		part = strings.TrimSpace(part)
		if m := caseIsPattern.FindStringSubmatch(part); m != nil {
			conds = append(conds, t.rw.Condition(subject+" "+m[1]+" "+m[2]))
			continue
		}
		if m := caseToPattern.FindStringSubmatch(part); m != nil {
			conds = append(conds, fmt.Sprintf("%s <= %s <= %s",
				t.rw.Expression(m[1]), subject, t.rw.Expression(m[2])))
			continue
		}
		conds = append(conds, subject+" == "+t.rw.Expression(part))
	}
	return strings.Join(conds, " or ")
}

func (t *bodyTranslator) exit(what string) {
	switch what {
	case "for", "do":
		t.emit("break")
	case "function":
		if t.returnName != "" {
			t.emit("return " + t.returnName)
			return
		}
		t.emit("return None")
	default:
		t.emit("return")
	}
}

// target renders the left side of an assignment. Plain names are
// lower-cased; member and indexed targets go through the expression rules.
func (t *bodyTranslator) target(lhs string) string {
	lhs = strings.TrimSpace(lhs)
	if simpleNamePattern.MatchString(lhs) {
		return pythonName(lhs)
	}
	return t.rw.Expression(lhs)
}

func (t *bodyTranslator) open(kind blockKind, header string) {
	t.emit(header)
	t.blocks = append(t.blocks, &block{kind: kind, indent: t.indent, empty: true})
	t.indent++
}

// branch emits an elif or else at the level of the enclosing If.
func (t *bodyTranslator) branch(header string) {
	b := t.innermost(blockIf)
	if b == nil {
		t.comment("TODO: Unmatched branch: " + header)
		return
	}
	for t.blocks[len(t.blocks)-1] != b {
		t.closeTop()
	}
	if b.empty {
		t.emitAt(b.indent+1, "pass")
	}
	t.emitAt(b.indent, header)
	b.empty = true
	t.indent = b.indent + 1
}

// close ends the innermost block of the given kind together with any
// blocks left open inside it. A closer without an opener is ignored.
func (t *bodyTranslator) close(kind blockKind) {
	b := t.innermost(kind)
	if b == nil {
		return
	}
	for {
		top := t.blocks[len(t.blocks)-1]
		t.closeTop()
		if top == b {
			return
		}
	}
}

func (t *bodyTranslator) closeTop() {
	b := t.blocks[len(t.blocks)-1]
	t.blocks = t.blocks[:len(t.blocks)-1]
	switch b.kind {
	case blockWith:
	case blockSelect:
		if b.cases > 0 && b.empty {
			t.emitAt(b.indent+1, "pass")
		}
	default:
		if b.empty {
			t.emitAt(b.indent+1, "pass")
		}
	}
	t.indent = b.indent
}

func (t *bodyTranslator) innermost(kind blockKind) *block {
	for i := len(t.blocks) - 1; i >= 0; i-- {
		if t.blocks[i].kind == kind {
			return t.blocks[i]
		}
	}
	return nil
}

func (t *bodyTranslator) emit(text string) {
	t.emitAt(t.indent, text)
}

func (t *bodyTranslator) emitAt(indent int, text string) {
	t.out = append(t.out, strings.Repeat(indentUnit, indent)+text)
	t.statements++
	for _, b := range t.blocks {
		b.empty = false
	}
}

func (t *bodyTranslator) comment(text string) {
	t.out = append(t.out, strings.Repeat(indentUnit, t.indent)+"# "+text)
}

// isComparison reports whether the '=' at eq belongs to a relational
// operator rather than an assignment.
func isComparison(code string, eq int) bool {
	if eq > 0 && (code[eq-1] == '<' || code[eq-1] == '>') {
		return true
	}
	return eq+1 < len(code) && code[eq+1] == '='
}

// pythonName lower-cases an identifier and drops any type-suffix character.
func pythonName(name string) string {
	return strings.ToLower(strings.TrimRight(name, "$%&!#@"))
}
