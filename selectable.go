package crudkit

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Selectable is an option backing a select or multiselect field. The set of
// option types is open: each embedding application supplies its own.
type Selectable interface {
	fmt.Stringer
	// EqualSelectable compares two options for display purposes. Options of a
	// different dynamic type are never equal.
	EqualSelectable(other Selectable) bool
	CloneSelectable() Selectable
}

// DowncastSelectable narrows s to its concrete option type.
func DowncastSelectable[S Selectable](s Selectable) (S, error) {
	var zero S
	if s == nil {
		return zero, &DowncastError{Want: fmt.Sprintf("%T", zero), Got: "<nil>"}
	}
	typed, ok := s.(S)
	if !ok {
		return zero, &DowncastError{Want: fmt.Sprintf("%T", zero), Got: fmt.Sprintf("%T", s)}
	}
	return typed, nil
}

// SelectOption is a ready-made Selectable keyed by a comparable value.
type SelectOption[K comparable] struct {
	Key   K
	Label string
}

func (o SelectOption[K]) String() string {
	if o.Label != "" {
		return o.Label
	}
	return fmt.Sprint(o.Key)
}

func (o SelectOption[K]) EqualSelectable(other Selectable) bool {
	typed, ok := other.(SelectOption[K])
	return ok && typed.Key == o.Key
}

func (o SelectOption[K]) CloneSelectable() Selectable { return o }

func cloneSelectable(s Selectable) Selectable {
	if s == nil {
		return nil
	}
	return s.CloneSelectable()
}

func cloneSelectables(items []Selectable) []Selectable {
	if items == nil {
		return nil
	}
	out := make([]Selectable, len(items))
	for i, item := range items {
		out[i] = cloneSelectable(item)
	}
	return out
}

func selectableEqual(a, b Selectable) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.EqualSelectable(b)
}

// SelectableSource loads and holds the options of one select field.
type SelectableSource[S Selectable] interface {
	Load(ctx context.Context) ([]S, error)
	SetSelectable(options []S)
	// Selectable returns false while options are not yet loaded.
	Selectable() ([]S, bool)
}

// LoaderFunc fetches the options of a source, usually from the backend.
type LoaderFunc[S Selectable] func(ctx context.Context) ([]S, error)

// SourceOption configures an OptionsSource.
type SourceOption func(*sourceConfig)

type sourceConfig struct {
	logger zerolog.Logger
}

// WithSourceLogger sets the logger used for load failures.
func WithSourceLogger(logger zerolog.Logger) SourceOption {
	return func(cfg *sourceConfig) {
		cfg.logger = logger
	}
}

// OptionsSource is a SelectableSource backed by a loader function that caches
// the last loaded option set.
type OptionsSource[S Selectable] struct {
	mu      sync.RWMutex
	loader  LoaderFunc[S]
	options []S
	loaded  bool
	logger  zerolog.Logger
}

// NewOptionsSource builds a source around loader.
func NewOptionsSource[S Selectable](loader LoaderFunc[S], opts ...SourceOption) *OptionsSource[S] {
	cfg := sourceConfig{logger: zerolog.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &OptionsSource[S]{loader: loader, logger: cfg.logger}
}

// Load calls the loader without touching the cached options.
func (s *OptionsSource[S]) Load(ctx context.Context) ([]S, error) {
	if s.loader == nil {
		return nil, fmt.Errorf("crudkit: options source has no loader")
	}
	return s.loader(ctx)
}

func (s *OptionsSource[S]) SetSelectable(options []S) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options = append([]S(nil), options...)
	s.loaded = true
}

func (s *OptionsSource[S]) Selectable() ([]S, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return nil, false
	}
	return append([]S(nil), s.options...), true
}

// Refresh loads and stores the options. A failed load keeps the previous set.
func (s *OptionsSource[S]) Refresh(ctx context.Context) error {
	options, err := s.Load(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("could not load selectable options")
		return err
	}
	s.SetSelectable(options)
	return nil
}

// Erased returns the cached options behind the Selectable interface.
func (s *OptionsSource[S]) Erased() ([]Selectable, bool) {
	options, ok := s.Selectable()
	if !ok {
		return nil, false
	}
	out := make([]Selectable, len(options))
	for i, option := range options {
		out[i] = option
	}
	return out, true
}

// ErasedSource is the type-erased view of a source kept by the registry.
type ErasedSource interface {
	Refresh(ctx context.Context) error
	Erased() ([]Selectable, bool)
}

// SelectableRegistry keys option sources by field name so generic forms can
// find the options for a select field without knowing the option type.
type SelectableRegistry struct {
	mu      sync.RWMutex
	sources map[string]ErasedSource
}

func NewSelectableRegistry() *SelectableRegistry {
	return &SelectableRegistry{sources: make(map[string]ErasedSource)}
}

// Register stores source under field, rejecting duplicates.
func (r *SelectableRegistry) Register(field string, source ErasedSource) error {
	if field == "" {
		return fmt.Errorf("crudkit: selectable field name must not be empty")
	}
	if source == nil {
		return fmt.Errorf("crudkit: selectable source for %q is nil", field)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sources[field]; exists {
		return fmt.Errorf("crudkit: selectable source for %q already registered", field)
	}
	r.sources[field] = source
	return nil
}

// Options returns the loaded options of field.
func (r *SelectableRegistry) Options(field string) ([]Selectable, bool) {
	r.mu.RLock()
	source := r.sources[field]
	r.mu.RUnlock()
	if source == nil {
		return nil, false
	}
	return source.Erased()
}

// RefreshAll reloads every source and returns the first error per field.
func (r *SelectableRegistry) RefreshAll(ctx context.Context) map[string]error {
	r.mu.RLock()
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)

	failures := map[string]error{}
	for _, name := range names {
		r.mu.RLock()
		source := r.sources[name]
		r.mu.RUnlock()
		if err := source.Refresh(ctx); err != nil {
			failures[name] = err
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return failures
}

// Names lists registered fields alphabetically.
func (r *SelectableRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
