package rules

import (
	"sort"
	"time"
)

// Names every backend binds on its own. Entity fields with these names are
// hidden from rules.
var reserved = map[string]bool{
	"now":   true,
	"args":  true,
	"field": true,
	"value": true,
	"call":  true,
}

// Reserved reports whether name is bound by the engine itself.
func Reserved(name string) bool {
	return reserved[name]
}

// Env is what a rule sees when it runs: the entity's fields by name, the
// checked field as value, and the resource/field pair as field.resource and
// field.name.
type Env struct {
	Resource string
	Field    string
	Value    any
	Entity   map[string]any
	Args     map[string]any
	Now      time.Time
}

// Subject names what a rule checks, as resource.field.
func (e Env) Subject() string {
	switch {
	case e.Resource != "" && e.Field != "":
		return e.Resource + "." + e.Field
	case e.Field != "":
		return e.Field
	case e.Resource != "":
		return e.Resource
	}
	return "unknown"
}

// bindings flattens the env into variables. Declared names missing from the
// entity are bound to nil so strict backends still run.
func (e Env) bindings(declared []string, now time.Time) map[string]any {
	vars := make(map[string]any, len(e.Entity)+len(declared)+4)
	for _, name := range declared {
		if !reserved[name] {
			vars[name] = nil
		}
	}
	for name, value := range e.Entity {
		if !reserved[name] {
			vars[name] = value
		}
	}
	if e.Now.IsZero() {
		e.Now = now
	}
	args := e.Args
	if args == nil {
		args = map[string]any{}
	}
	vars["now"] = e.Now
	vars["args"] = args
	vars["field"] = map[string]any{"resource": e.Resource, "name": e.Field}
	vars["value"] = e.Value
	return vars
}

// declare returns the sorted, de-duplicated variable names a program is
// compiled with.
func declare(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" || reserved[name] || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
