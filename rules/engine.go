// Package rules compiles and runs the boolean field rules declared in form
// layouts. Rules are written for one of several expression backends: expr
// (the default), CEL, and JavaScript when built with the js_eval tag.
package rules

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-crudkit/pkg/metrics"
)

const DefaultBackend = "expr"

// Backend turns an expression into a runnable program. vars lists the
// entity field names the rule may reference.
type Backend interface {
	Name() string
	Compile(expr string, vars []string, funcs *Funcs) (Program, error)
}

// Program is a compiled rule. Run must be safe for concurrent use.
type Program interface {
	Run(vars map[string]any) (any, error)
}

var (
	backendsMu sync.RWMutex
	backends   = map[string]func() Backend{
		"expr": func() Backend { return exprBackend{} },
		"cel":  func() Backend { return celBackend{} },
	}
)

func registerBackend(name string, factory func() Backend) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = factory
}

// Backends lists the backend names available in this build.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupBackend(name string) (Backend, error) {
	backendsMu.RLock()
	factory, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownBackend, name, strings.Join(Backends(), ", "))
	}
	return factory(), nil
}

// Evaluation describes one rule run, handed to observers.
type Evaluation struct {
	Backend  string
	Expr     string
	Subject  string
	Duration time.Duration
	Err      error
}

type Observer func(Evaluation)

type Option func(*Engine)

// WithBackend picks a registered backend by name.
func WithBackend(name string) Option {
	return func(e *Engine) {
		e.backendName = strings.ToLower(strings.TrimSpace(name))
	}
}

// WithCustomBackend uses b instead of a registered backend.
func WithCustomBackend(b Backend) Option {
	return func(e *Engine) {
		e.backend = b
	}
}

// WithFuncs exposes a copy of funcs to every rule.
func WithFuncs(funcs *Funcs) Option {
	return func(e *Engine) {
		if funcs != nil {
			e.funcs = funcs.Clone()
		}
	}
}

func WithFunc(name string, fn Func) Option {
	return func(e *Engine) {
		if err := e.funcs.Register(name, fn); err != nil && e.err == nil {
			e.err = err
		}
	}
}

// WithCache shares compiled programs between engines.
func WithCache(cache Cache) Option {
	return func(e *Engine) {
		if cache != nil {
			e.cache = cache
		}
	}
}

func WithObserver(observer Observer) Option {
	return func(e *Engine) {
		if observer != nil {
			e.observers = append(e.observers, observer)
		}
	}
}

// WithLogger logs runs at debug level and failures at warn level.
func WithLogger(logger zerolog.Logger) Option {
	return WithObserver(func(ev Evaluation) {
		event := logger.Debug()
		if ev.Err != nil {
			event = logger.Warn().Err(ev.Err)
		}
		event.Str("backend", ev.Backend).
			Str("expr", ev.Expr).
			Str("subject", ev.Subject).
			Dur("duration", ev.Duration).
			Msg("rule evaluated")
	})
}

func WithMetrics(collector *metrics.Collector) Option {
	if collector == nil {
		return nil
	}
	return WithObserver(func(ev Evaluation) {
		collector.ObserveRule(ev.Backend, ev.Err)
	})
}

// WithClock fixes the time bound to now.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// Engine compiles rules for one backend.
type Engine struct {
	backendName string
	backend     Backend
	funcs       *Funcs
	cache       Cache
	observers   []Observer
	clock       func() time.Time
	err         error
}

func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		backendName: DefaultBackend,
		funcs:       NewFuncs(),
		clock:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.err != nil {
		return nil, e.err
	}
	if e.backend == nil {
		backend, err := lookupBackend(e.backendName)
		if err != nil {
			return nil, err
		}
		e.backend = backend
	}
	if e.cache == nil {
		e.cache = NewCache()
	}
	return e, nil
}

func (e *Engine) Backend() string {
	return e.backend.Name()
}

// Compile prepares expr. vars are the entity fields the rule may name.
func (e *Engine) Compile(expr string, vars ...string) (*Rule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, ErrEmptyExpr
	}
	declared := declare(vars)
	names := e.funcs.Names()
	key := cacheKey(e.backend.Name(), expr, declared, names)
	if program, ok := e.cache.Get(key); ok {
		return &Rule{engine: e, expr: expr, vars: declared, program: program}, nil
	}
	program, err := e.backend.Compile(expr, declared, e.funcs)
	if err != nil {
		return nil, wrap(e.backend.Name(), expr, "", err)
	}
	e.cache.Set(key, program)
	return &Rule{engine: e, expr: expr, vars: declared, program: program}, nil
}

// Eval compiles expr against the entity's field names and runs it once.
func (e *Engine) Eval(expr string, env Env) (any, error) {
	vars := make([]string, 0, len(env.Entity))
	for name := range env.Entity {
		vars = append(vars, name)
	}
	rule, err := e.Compile(expr, vars...)
	if err != nil {
		e.observe(Evaluation{Backend: e.backend.Name(), Expr: strings.TrimSpace(expr), Subject: env.Subject(), Err: err})
		return nil, err
	}
	return rule.Run(env)
}

func (e *Engine) observe(ev Evaluation) {
	for _, observer := range e.observers {
		observer(ev)
	}
}

// Rule is a compiled expression bound to its engine.
type Rule struct {
	engine  *Engine
	expr    string
	vars    []string
	program Program
}

func (r *Rule) Expr() string { return r.expr }

func (r *Rule) Run(env Env) (any, error) {
	start := time.Now()
	out, err := r.program.Run(env.bindings(r.vars, r.engine.clock()))
	err = wrap(r.engine.backend.Name(), r.expr, env.Subject(), err)
	r.engine.observe(Evaluation{
		Backend:  r.engine.backend.Name(),
		Expr:     r.expr,
		Subject:  env.Subject(),
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
