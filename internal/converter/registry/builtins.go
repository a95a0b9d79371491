package registry

// Substring helpers emitted into generated code when referenced.
const (
	LeftHelper  = "vba_left"
	RightHelper = "vba_right"
	MidHelper   = "vba_mid"
)

// DefaultFunctions returns the built-in function table.
func DefaultFunctions() []FunctionInfo {
	return []FunctionInfo{
		{Name: "MsgBox", Target: "print"},
		{Name: "Len", Target: "len"},
		{Name: "UCase", Target: "str.upper"},
		{Name: "LCase", Target: "str.lower"},
		{Name: "Trim", Target: "str.strip"},
		{Name: "Left", Target: LeftHelper},
		{Name: "Right", Target: RightHelper},
		{Name: "Mid", Target: MidHelper},
	}
}

// DefaultTypes returns the intrinsic type table.
func DefaultTypes() map[string]string {
	return map[string]string{
		"INTEGER":  "int",
		"LONG":     "int",
		"STRING":   "str",
		"BOOLEAN":  "bool",
		"DOUBLE":   "float",
		"SINGLE":   "float",
		"VARIANT":  "Any",
		"DATE":     "datetime",
		"OBJECT":   "object",
		"CURRENCY": "Decimal",
	}
}

// Default returns a registry pre-populated with the built-in tables.
func Default() *Registry {
	r := New()
	for _, fn := range DefaultFunctions() {
		r.RegisterFunction(fn.Name, fn.Target)
	}
	for declared, target := range DefaultTypes() {
		r.RegisterType(declared, target)
	}
	return r
}

// Global is the default registry instance. Use Clone before registering
// extra mappings so other users of Global are unaffected.
var Global = Default()
