//go:build js_eval

package rules

import (
	"fmt"

	"github.com/dop251/goja"
)

func init() {
	registerBackend("js", func() Backend { return jsBackend{} })
}

type jsBackend struct{}

func (jsBackend) Name() string { return "js" }

// Compile wraps expr in a function so statements such as ternaries and
// early returns behave as one expression.
func (jsBackend) Compile(expr string, _ []string, funcs *Funcs) (Program, error) {
	program, err := goja.Compile("rule", fmt.Sprintf("(function(){ return (%s); })()", expr), true)
	if err != nil {
		return nil, err
	}
	return jsProgram{program: program, funcs: funcs}, nil
}

type jsProgram struct {
	program *goja.Program
	funcs   *Funcs
}

// Run uses a fresh runtime each time; goja runtimes are not safe for
// concurrent use.
func (p jsProgram) Run(vars map[string]any) (any, error) {
	vm := goja.New()
	for name, value := range vars {
		if err := vm.Set(name, value); err != nil {
			return nil, err
		}
	}
	if err := vm.Set("call", p.funcs.callByName); err != nil {
		return nil, err
	}
	for _, name := range p.funcs.Names() {
		if err := vm.Set(name, p.funcs.bind(name)); err != nil {
			return nil, err
		}
	}
	out, err := vm.RunProgram(p.program)
	if err != nil {
		return nil, err
	}
	return out.Export(), nil
}
