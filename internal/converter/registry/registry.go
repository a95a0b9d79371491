// Package registry provides the substitution tables used when rewriting
// macro source: built-in function names and declared type names.
//
// The defaults cover the common string and message built-ins and the
// intrinsic types. Additional mappings can be registered at runtime, for
// example from a configuration file.
package registry

import (
	"sort"
	"strings"
	"sync"
)

// FallbackType is the target annotation used for unknown declared types.
const FallbackType = "Any"

// FunctionInfo maps a built-in function of the macro dialect to its
// replacement in generated code.
type FunctionInfo struct {
	Name   string // Dialect name, e.g. "MsgBox"
	Target string // Replacement callable, e.g. "print"
}

// Registry manages function and type substitutions.
//
// Thread-safe: all methods can be called concurrently.
type Registry struct {
	mu sync.RWMutex

	// functions keeps registration order; rewriting applies them in order
	functions []FunctionInfo

	// funcIndex maps the upper-cased dialect name to its position in functions
	funcIndex map[string]int

	// types maps the upper-cased declared type to its target annotation
	types map[string]string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		funcIndex: make(map[string]int),
		types:     make(map[string]string),
	}
}

// RegisterFunction adds or replaces a function mapping. Names are matched
// case-insensitively.
func (r *Registry) RegisterFunction(name, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToUpper(strings.TrimSpace(name))
	info := FunctionInfo{Name: strings.TrimSpace(name), Target: target}
	if idx, ok := r.funcIndex[key]; ok {
		r.functions[idx] = info
		return
	}
	r.funcIndex[key] = len(r.functions)
	r.functions = append(r.functions, info)
}

// LookupFunction returns the mapping for a dialect function name.
func (r *Registry) LookupFunction(name string) (FunctionInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.funcIndex[strings.ToUpper(name)]
	if !ok {
		return FunctionInfo{}, false
	}
	return r.functions[idx], true
}

// Functions returns all function mappings in registration order.
func (r *Registry) Functions() []FunctionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]FunctionInfo, len(r.functions))
	copy(out, r.functions)
	return out
}

// RegisterType adds or replaces a declared type mapping.
func (r *Registry) RegisterType(declared, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[strings.ToUpper(strings.TrimSpace(declared))] = target
}

// LookupType returns the target annotation for a declared type, or
// FallbackType when the type is unknown.
func (r *Registry) LookupType(declared string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if target, ok := r.types[strings.ToUpper(strings.TrimSpace(declared))]; ok {
		return target
	}
	return FallbackType
}

// TypeNames returns the registered declared type names, sorted.
func (r *Registry) TypeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy of the registry.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := New()
	c.functions = append(c.functions, r.functions...)
	for k, v := range r.funcIndex {
		c.funcIndex[k] = v
	}
	for k, v := range r.types {
		c.types[k] = v
	}
	return c
}
