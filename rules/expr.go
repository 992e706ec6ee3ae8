package rules

import (
	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

type exprBackend struct{}

func (exprBackend) Name() string { return "expr" }

// Compile declares every variable as untyped; undeclared names resolve to
// nil rather than failing, so rules survive fields added later.
func (exprBackend) Compile(expr string, vars []string, funcs *Funcs) (Program, error) {
	env := make(map[string]any, len(vars))
	for _, name := range vars {
		env[name] = nil
	}
	options := []exprlang.Option{
		exprlang.Env(env),
		exprlang.AllowUndefinedVariables(),
		exprlang.Function("call", funcs.callByName),
	}
	for _, name := range funcs.Names() {
		options = append(options, exprlang.Function(name, funcs.bind(name)))
	}
	program, err := exprlang.Compile(expr, options...)
	if err != nil {
		return nil, err
	}
	return exprProgram{program: program}, nil
}

type exprProgram struct {
	program *exprvm.Program
}

func (p exprProgram) Run(vars map[string]any) (any, error) {
	return exprlang.Run(p.program, vars)
}
