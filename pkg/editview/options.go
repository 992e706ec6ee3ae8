package editview

import (
	"context"

	"github.com/rs/zerolog"

	crudkit "github.com/goliatone/go-crudkit"
	"github.com/goliatone/go-crudkit/internal/loop"
	"github.com/goliatone/go-crudkit/pkg/activity"
	"github.com/goliatone/go-crudkit/pkg/metrics"
)

// Runner starts provider requests in the background. The default runs each
// on its own goroutine.
type Runner = loop.Runner

// InlineRunner performs requests synchronously inside Send.
var InlineRunner Runner = loop.Inline

type Option[T any] func(*config[T])

type config[T any] struct {
	logger    zerolog.Logger
	runner    Runner
	validator *crudkit.Validator[T]
	emitter   *activity.Emitter
	metrics   *metrics.Collector
	equal     func(a, b *T) bool
	instance  string
	ctx       context.Context
}

func WithLogger[T any](logger zerolog.Logger) Option[T] {
	return func(c *config[T]) {
		c.logger = logger
	}
}

func WithRunner[T any](runner Runner) Option[T] {
	return func(c *config[T]) {
		if runner != nil {
			c.runner = runner
		}
	}
}

// WithValidator checks the working copy before every save. A save with
// violations is not sent.
func WithValidator[T any](validator *crudkit.Validator[T]) Option[T] {
	return func(c *config[T]) {
		c.validator = validator
	}
}

// WithActivity emits entity.updated after saves and entity.delete_requested
// on delete.
func WithActivity[T any](emitter *activity.Emitter) Option[T] {
	return func(c *config[T]) {
		c.emitter = emitter
	}
}

func WithMetrics[T any](collector *metrics.Collector) Option[T] {
	return func(c *config[T]) {
		c.metrics = collector
	}
}

// WithEqual replaces the dirty check. The default compares every declared
// field value.
func WithEqual[T any](equal func(a, b *T) bool) Option[T] {
	return func(c *config[T]) {
		if equal != nil {
			c.equal = equal
		}
	}
}

// WithInstance names the instance the view belongs to, for logs and
// activity metadata.
func WithInstance[T any](name string) Option[T] {
	return func(c *config[T]) {
		c.instance = name
	}
}

// WithContext sets the parent context of provider requests. Close cancels
// requests still running.
func WithContext[T any](ctx context.Context) Option[T] {
	return func(c *config[T]) {
		if ctx != nil {
			c.ctx = ctx
		}
	}
}
