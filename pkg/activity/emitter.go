package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Sink receives normalized, complete events.
type Sink interface {
	Record(ctx context.Context, event Event) error
}

type SinkFunc func(ctx context.Context, event Event) error

func (fn SinkFunc) Record(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Config is the emission policy loaded with the rest of the configuration.
// An empty Verbs list lets every verb through.
type Config struct {
	Enabled bool   `yaml:"enabled"`
	Channel string `yaml:"channel"`
	Verbs   []Verb `yaml:"verbs"`
}

// Emitter stamps defaults on events and hands them to every sink. A nil
// Emitter is valid and does nothing.
type Emitter struct {
	sinks   []Sink
	channel string
	verbs   map[Verb]struct{}
	enabled bool
	logger  zerolog.Logger
}

func NewEmitter(cfg Config, sinks ...Sink) *Emitter {
	kept := make([]Sink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			kept = append(kept, sink)
		}
	}
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = "crudkit"
	}
	var verbs map[Verb]struct{}
	if len(cfg.Verbs) > 0 {
		verbs = make(map[Verb]struct{}, len(cfg.Verbs))
		for _, verb := range cfg.Verbs {
			verbs[verb] = struct{}{}
		}
	}
	return &Emitter{
		sinks:   kept,
		channel: channel,
		verbs:   verbs,
		enabled: cfg.Enabled && len(kept) > 0,
		logger:  zerolog.Nop(),
	}
}

// WithLogger logs every sink failure at warn level.
func (e *Emitter) WithLogger(logger zerolog.Logger) *Emitter {
	if e != nil {
		e.logger = logger
	}
	return e
}

func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled
}

// Emit delivers event to all sinks and joins their errors. Incomplete events
// and verbs outside the configured set are dropped silently.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	event = Normalize(event)
	if !event.Complete() {
		return nil
	}
	if e.verbs != nil {
		if _, ok := e.verbs[event.Verb]; !ok {
			return nil
		}
	}
	if event.Channel == "" {
		event.Channel = e.channel
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for i, sink := range e.sinks {
		if err := sink.Record(ctx, event); err != nil {
			e.logger.Warn().Err(err).Int("sink", i).Str("verb", string(event.Verb)).Msg("activity sink failed")
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps every event it receives. Tests and examples use it to
// observe emissions.
type Recorder struct {
	// Err is returned from every Record call.
	Err error

	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Record(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.Err
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
