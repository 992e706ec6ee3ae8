package store

import (
	"github.com/rs/zerolog"

	"github.com/goliatone/go-crudkit/pkg/activity"
	"github.com/goliatone/go-crudkit/pkg/metrics"
)

type Option[V any] func(*config[V])

type config[V any] struct {
	logger  zerolog.Logger
	metrics *metrics.Collector
	emitter *activity.Emitter
	equal   func(a, b V) bool
}

func WithLogger[V any](logger zerolog.Logger) Option[V] {
	return func(c *config[V]) { c.logger = logger }
}

func WithMetrics[V any](collector *metrics.Collector) Option[V] {
	return func(c *config[V]) { c.metrics = collector }
}

// WithActivity emits store.saved for every persisted change.
func WithActivity[V any](emitter *activity.Emitter) Option[V] {
	return func(c *config[V]) { c.emitter = emitter }
}

// WithEqual replaces the per-value comparison of the change gate.
func WithEqual[V any](equal func(a, b V) bool) Option[V] {
	return func(c *config[V]) {
		if equal != nil {
			c.equal = equal
		}
	}
}
