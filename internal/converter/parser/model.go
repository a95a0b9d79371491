package parser

// RoutineKind distinguishes procedures from functions.
type RoutineKind string

const (
	KindSub      RoutineKind = "SUB"
	KindFunction RoutineKind = "FUNCTION"
)

// Visibility of a routine. Public is the dialect default.
type Visibility string

const (
	Public  Visibility = "PUBLIC"
	Private Visibility = "PRIVATE"
)

// Scope tells whether a variable was declared inside a routine.
type Scope string

const (
	ScopeModule Scope = "module"
	ScopeLocal  Scope = "local"
)

// DefaultType is the declared type used when a declaration has no As clause.
const DefaultType = "Variant"

// Parameter is one entry of a routine's parameter list.
type Parameter struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Optional   bool   `json:"optional"`
	ByRef      bool   `json:"by_ref"`
	ParamArray bool   `json:"param_array,omitempty"`
	Default    string `json:"default,omitempty"` // raw text after '=' on optional parameters
}

// Variable is a Dim (or Static) declaration.
type Variable struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Scope Scope  `json:"scope"`
	Line  int    `json:"line"`
}

// Constant is a Const declaration. Value is the raw, unevaluated literal.
type Constant struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
	Line  int    `json:"line"`
}

// Routine is a Sub or Function. Line numbers are 1-based and inclusive.
// EndLine is 0 while the routine is still open during a scan; Parse
// always returns closed routines.
type Routine struct {
	Name       string      `json:"name"`
	Kind       RoutineKind `json:"type"`
	Visibility Visibility  `json:"visibility"`
	StartLine  int         `json:"start_line"`
	// HeaderEndLine is the last line of the signature; it differs from
	// StartLine when the parameter list uses " _" line continuations.
	HeaderEndLine int         `json:"header_end_line"`
	EndLine       int         `json:"end_line"`
	Parameters    []Parameter `json:"parameters"`
	Variables     []Variable  `json:"variables"`
	Complexity    int         `json:"complexity"`
}

// Closed reports whether an end line has been assigned.
func (r *Routine) Closed() bool {
	return r.EndLine > 0
}

// IsFunction reports whether the routine returns a value.
func (r *Routine) IsFunction() bool {
	return r.Kind == KindFunction
}

// Model is the structural model of one module's source.
type Model struct {
	Routines  []Routine  `json:"functions"`
	Variables []Variable `json:"variables"`
	Constants []Constant `json:"constants"`

	LineCount       int `json:"line_count"`
	CommentLines    int `json:"comment_lines"`
	CodeLines       int `json:"code_lines"`
	ComplexityScore int `json:"complexity_score"`
}

// Routine returns the routine with the given name, compared case-insensitively.
func (m *Model) Routine(name string) (*Routine, bool) {
	for i := range m.Routines {
		if equalFold(m.Routines[i].Name, name) {
			return &m.Routines[i], true
		}
	}
	return nil, false
}
