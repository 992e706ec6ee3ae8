package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Func is a helper callable from rules by name, and through call(name, ...)
// on every backend.
type Func func(args ...any) (any, error)

var funcName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Funcs holds helpers by lower-cased name.
type Funcs struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

func NewFuncs() *Funcs {
	return &Funcs{funcs: make(map[string]Func)}
}

// Register adds fn. Names are case insensitive, must be identifiers and may
// not shadow engine bindings.
func (f *Funcs) Register(name string, fn Func) error {
	if fn == nil {
		return fmt.Errorf("rules: function %q is nil", name)
	}
	key := strings.ToLower(strings.TrimSpace(name))
	if !funcName.MatchString(key) {
		return fmt.Errorf("rules: invalid function name %q", name)
	}
	if reserved[key] {
		return fmt.Errorf("rules: function name %q is reserved", name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.funcs == nil {
		f.funcs = make(map[string]Func)
	}
	if _, exists := f.funcs[key]; exists {
		return fmt.Errorf("rules: function %q already registered", name)
	}
	f.funcs[key] = fn
	return nil
}

func (f *Funcs) Call(name string, args ...any) (any, error) {
	if f == nil {
		return nil, fmt.Errorf("rules: no functions registered")
	}
	f.mu.RLock()
	fn := f.funcs[strings.ToLower(name)]
	f.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("rules: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns the registered names sorted.
func (f *Funcs) Names() []string {
	if f == nil {
		return nil
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.funcs))
	for name := range f.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f *Funcs) Clone() *Funcs {
	out := NewFuncs()
	if f == nil {
		return out
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for name, fn := range f.funcs {
		out.funcs[name] = fn
	}
	return out
}

// bind returns fn bound to name, for backends that register helpers one by
// one.
func (f *Funcs) bind(name string) func(args ...any) (any, error) {
	return func(args ...any) (any, error) {
		return f.Call(name, args...)
	}
}

// callByName backs call(name, ...).
func (f *Funcs) callByName(args ...any) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("rules: call requires a function name")
	}
	name, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("rules: call name must be a string, got %T", args[0])
	}
	return f.Call(name, args[1:]...)
}
