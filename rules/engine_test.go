package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-crudkit/pkg/metrics"
)

func newEngine(t *testing.T, backend string, opts ...Option) *Engine {
	t.Helper()
	engine, err := New(append([]Option{WithBackend(backend)}, opts...)...)
	if errors.Is(err, ErrUnknownBackend) {
		t.Skipf("%s backend not available in this build", backend)
	}
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestRuleFixture(t *testing.T) {
	type testCase struct {
		Name     string         `json:"name"`
		Rule     string         `json:"rule"`
		Field    string         `json:"field"`
		Snapshot map[string]any `json:"snapshot"`
		Expect   bool           `json:"expect"`
		Backends []string       `json:"backends"`
	}
	var fx struct {
		Cases []testCase `json:"cases"`
	}
	raw, err := os.ReadFile(filepath.Join("testdata", "field_rules.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	if err := json.Unmarshal(raw, &fx); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}

	for _, backend := range []string{"expr", "cel", "js"} {
		t.Run(backend, func(t *testing.T) {
			engine := newEngine(t, backend)
			for _, tc := range fx.Cases {
				if len(tc.Backends) > 0 && !contains(tc.Backends, backend) {
					continue
				}
				t.Run(tc.Name, func(t *testing.T) {
					vars := []string{tc.Field}
					for name := range tc.Snapshot {
						vars = append(vars, name)
					}
					rule, err := engine.Compile(tc.Rule, vars...)
					if err != nil {
						t.Fatalf("compile: %v", err)
					}
					got, err := rule.Run(Env{
						Resource: "people",
						Field:    tc.Field,
						Value:    tc.Snapshot[tc.Field],
						Entity:   tc.Snapshot,
					})
					if err != nil {
						t.Fatalf("run: %v", err)
					}
					if got != tc.Expect {
						t.Fatalf("expected %v, got %v (%T)", tc.Expect, got, got)
					}
				})
			}
		})
	}
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	if _, err := New(WithBackend("lua")); !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("expected unknown backend, got %v", err)
	}
	engine, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if engine.Backend() != DefaultBackend {
		t.Fatalf("expected default backend, got %s", engine.Backend())
	}
	if !contains(Backends(), "expr") || !contains(Backends(), "cel") {
		t.Fatalf("expected expr and cel registered, got %v", Backends())
	}
}

func TestCompileErrors(t *testing.T) {
	engine := newEngine(t, "expr")
	if _, err := engine.Compile("  "); !errors.Is(err, ErrEmptyExpr) {
		t.Fatalf("expected empty expression error, got %v", err)
	}
	_, err := engine.Compile("value ==")
	var ruleErr *Error
	if !errors.As(err, &ruleErr) || ruleErr.Backend != "expr" || ruleErr.Subject != "" {
		t.Fatalf("expected expr compile error, got %v", err)
	}
	if !strings.Contains(err.Error(), "compile") {
		t.Fatalf("expected compile in message, got %q", err.Error())
	}
}

func TestRunErrorCarriesSubject(t *testing.T) {
	engine := newEngine(t, "expr")
	rule, err := engine.Compile(`fail(value)`, "name")
	if err == nil {
		_, err = rule.Run(Env{Resource: "people", Field: "name", Value: "x"})
	}
	if err == nil {
		t.Fatalf("expected calling an unknown function to fail")
	}

	engine = newEngine(t, "expr", WithFunc("fail", func(...any) (any, error) { return nil, errors.New("boom") }))
	rule, err = engine.Compile(`fail(value)`, "name")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	_, err = rule.Run(Env{Resource: "people", Field: "name", Value: "x"})
	var ruleErr *Error
	if !errors.As(err, &ruleErr) || ruleErr.Subject != "people.name" {
		t.Fatalf("expected run error on people.name, got %v", err)
	}
}

func TestCacheSharesPrograms(t *testing.T) {
	for _, backend := range []string{"expr", "cel", "js"} {
		t.Run(backend, func(t *testing.T) {
			cache := &countingCache{inner: NewCache()}
			first := newEngine(t, backend, WithCache(cache))
			second := newEngine(t, backend, WithCache(cache))

			for _, engine := range []*Engine{first, second, first} {
				rule, err := engine.Compile("age > 18", "age")
				if err != nil {
					t.Fatalf("compile: %v", err)
				}
				got, err := rule.Run(Env{Entity: map[string]any{"age": int64(40)}})
				if err != nil || got != true {
					t.Fatalf("expected true, got %v, %v", got, err)
				}
			}
			if cache.misses != 1 || cache.hits != 2 {
				t.Fatalf("expected 1 miss and 2 hits, got %d and %d", cache.misses, cache.hits)
			}

			// a different variable set is a different program
			if _, err := first.Compile("age > 18", "age", "name"); err != nil {
				t.Fatalf("compile: %v", err)
			}
			if cache.misses != 2 {
				t.Fatalf("expected a miss for new declarations, got %d", cache.misses)
			}
		})
	}
}

func TestFuncsAcrossBackends(t *testing.T) {
	funcs := NewFuncs()
	if err := funcs.Register("blank", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("blank expects 1 arg")
		}
		s, _ := args[0].(string)
		return strings.TrimSpace(s) == "", nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	for _, backend := range []string{"expr", "cel", "js"} {
		t.Run(backend, func(t *testing.T) {
			engine := newEngine(t, backend, WithFuncs(funcs))
			for _, expr := range []string{`!blank(value)`, `!call("blank", value)`} {
				rule, err := engine.Compile(expr, "name")
				if err != nil {
					t.Fatalf("%s: compile: %v", expr, err)
				}
				for input, want := range map[string]bool{"Ada": true, "   ": false} {
					got, err := rule.Run(Env{Field: "name", Value: input})
					if err != nil {
						t.Fatalf("%s %q: %v", expr, input, err)
					}
					if got != want {
						t.Fatalf("%s %q: expected %v, got %v", expr, input, want, got)
					}
				}
			}
		})
	}
}

func TestFuncsRegistry(t *testing.T) {
	funcs := NewFuncs()
	noop := func(...any) (any, error) { return nil, nil }
	if err := funcs.Register("Upper", noop); err != nil {
		t.Fatalf("register: %v", err)
	}
	for _, name := range []string{"upper", "", "has-dash", "value", "1st"} {
		if err := funcs.Register(name, noop); err == nil {
			t.Fatalf("expected %q to be rejected", name)
		}
	}
	if _, err := funcs.Call("UPPER"); err != nil {
		t.Fatalf("call: %v", err)
	}
	if _, err := funcs.Call("lower"); err == nil {
		t.Fatalf("expected missing function error")
	}
	clone := funcs.Clone()
	_ = clone.Register("lower", noop)
	if len(funcs.Names()) != 1 {
		t.Fatalf("clone must not share storage")
	}
	if _, err := New(WithFunc("now", noop)); err == nil {
		t.Fatalf("expected reserved name to fail engine construction")
	}
}

func TestEnvBindings(t *testing.T) {
	at := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	engine := newEngine(t, "expr", WithClock(func() time.Time { return at }))
	got, err := engine.Eval(`now.Year() == 2024 && field.resource == "people" && value == name && args != nil`, Env{
		Resource: "people",
		Field:    "name",
		Value:    "Ada",
		Entity:   map[string]any{"name": "Ada", "value": "shadowed"},
	})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if got != true {
		t.Fatalf("expected bindings to hold, got %v", got)
	}
	if (Env{}).Subject() != "unknown" || (Env{Field: "age"}).Subject() != "age" {
		t.Fatalf("unexpected subjects")
	}
}

func TestObservers(t *testing.T) {
	var buf bytes.Buffer
	reg := prometheus.NewRegistry()
	collector := metrics.NewWithRegistry(reg)
	var seen []Evaluation
	engine := newEngine(t, "expr",
		WithLogger(zerolog.New(&buf)),
		WithMetrics(collector),
		WithObserver(func(ev Evaluation) { seen = append(seen, ev) }),
	)

	if _, err := engine.Eval(`value == "Ada"`, Env{Resource: "people", Field: "name", Value: "Ada"}); err != nil {
		t.Fatalf("eval: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"backend":"expr"`, `"subject":"people.name"`, `"level":"debug"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}

	buf.Reset()
	if _, err := engine.Eval("1 +", Env{Field: "age"}); err == nil {
		t.Fatalf("expected syntax error")
	}
	if !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Fatalf("expected failure at warn level, got %s", buf.String())
	}
	if len(seen) != 2 || seen[1].Err == nil || seen[1].Subject != "age" {
		t.Fatalf("unexpected observations %+v", seen)
	}
	if got := testutil.ToFloat64(collector.RuleEvaluations.WithLabelValues("expr", "error")); got != 1 {
		t.Fatalf("expected one failed evaluation, got %v", got)
	}
}

type countingCache struct {
	inner  Cache
	hits   int
	misses int
}

func (c *countingCache) Get(key string) (Program, bool) {
	program, ok := c.inner.Get(key)
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return program, ok
}

func (c *countingCache) Set(key string, program Program) {
	c.inner.Set(key, program)
}

func contains(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}
