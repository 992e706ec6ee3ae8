package rules

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// celMaxArgs bounds helper arity: CEL has no variadic functions, so one
// overload is declared per arity.
const celMaxArgs = 4

type celBackend struct{}

func (celBackend) Name() string { return "cel" }

func (celBackend) Compile(expr string, vars []string, funcs *Funcs) (Program, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("field", celgo.MapType(celgo.StringType, celgo.StringType)),
		celgo.Variable("value", celgo.DynType),
		celFunction("call", celgo.StringType, func(args ...any) (any, error) {
			return funcs.callByName(args...)
		}),
	}
	for _, name := range vars {
		opts = append(opts, celgo.Variable(name, celgo.DynType))
	}
	for _, name := range funcs.Names() {
		opts = append(opts, celFunction(name, nil, funcs.bind(name)))
	}
	env, err := celgo.NewEnv(opts...)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	return celProgram{program: program}, nil
}

type celProgram struct {
	program celgo.Program
}

func (p celProgram) Run(vars map[string]any) (any, error) {
	// field is declared as map(string, string).
	if field, ok := vars["field"].(map[string]any); ok {
		vars["field"] = map[string]string{
			"resource": fmt.Sprint(field["resource"]),
			"name":     fmt.Sprint(field["name"]),
		}
	}
	out, _, err := p.program.Eval(vars)
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}

// celFunction declares name for 0..celMaxArgs dynamic arguments, after an
// optional leading argument of type first.
func celFunction(name string, first *celgo.Type, fn func(args ...any) (any, error)) celgo.EnvOption {
	overloads := make([]celgo.FunctionOpt, 0, celMaxArgs+1)
	for arity := 0; arity <= celMaxArgs; arity++ {
		params := make([]*celgo.Type, 0, arity+1)
		if first != nil {
			params = append(params, first)
		}
		for i := 0; i < arity; i++ {
			params = append(params, celgo.DynType)
		}
		overloads = append(overloads, celgo.Overload(
			fmt.Sprintf("%s_dyn%d", name, arity),
			params,
			celgo.DynType,
			celgo.FunctionBinding(celBinding(fn)),
		))
	}
	return celgo.Function(name, overloads...)
}

func celBinding(fn func(args ...any) (any, error)) func(...ref.Val) ref.Val {
	return func(values ...ref.Val) ref.Val {
		args := make([]any, len(values))
		for i, v := range values {
			args[i] = v.Value()
		}
		out, err := fn(args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if out == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(out)
	}
}
