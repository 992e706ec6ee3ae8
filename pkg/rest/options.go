package rest

import (
	"net/http"

	"github.com/rs/zerolog"

	crudkit "github.com/goliatone/go-crudkit"
	"github.com/goliatone/go-crudkit/internal/hydrate"
	"github.com/goliatone/go-crudkit/pkg/metrics"
)

// DecodeContext identifies the response being decoded in decode hooks.
type DecodeContext = hydrate.Context

// Option configures a provider. Options a provider has no use for are
// ignored.
type Option[T any] func(*config[T])

type config[T any] struct {
	logger      zerolog.Logger
	metrics     *metrics.Collector
	client      *http.Client
	headers     http.Header
	decoderOpts []hydrate.DecoderOption[T]
	validator   *crudkit.Validator[T]
	document    any
}

func newConfig[T any](opts []Option[T]) config[T] {
	cfg := config[T]{
		logger:  zerolog.Nop(),
		client:  http.DefaultClient,
		headers: http.Header{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func WithLogger[T any](logger zerolog.Logger) Option[T] {
	return func(c *config[T]) {
		c.logger = logger
	}
}

// WithMetrics records request counts and durations into collector.
func WithMetrics[T any](collector *metrics.Collector) Option[T] {
	return func(c *config[T]) {
		c.metrics = collector
	}
}

func WithHTTPClient[T any](client *http.Client) Option[T] {
	return func(c *config[T]) {
		if client != nil {
			c.client = client
		}
	}
}

// WithHeader adds a header to every request.
func WithHeader[T any](key, value string) Option[T] {
	return func(c *config[T]) {
		c.headers.Add(key, value)
	}
}

// WithPreDecodeHook rewrites each row payload before it is decoded. Numbers
// in the payload arrive as json.Number.
func WithPreDecodeHook[T any](hook func(DecodeContext, map[string]any) (map[string]any, error)) Option[T] {
	return func(c *config[T]) {
		c.decoderOpts = append(c.decoderOpts, hydrate.WithPreHook[T](hook))
	}
}

// WithPostDecodeHook adjusts each decoded row.
func WithPostDecodeHook[T any](hook func(DecodeContext, *T) error) Option[T] {
	return func(c *config[T]) {
		c.decoderOpts = append(c.decoderOpts, hydrate.WithPostHook[T](hook))
	}
}

// WithStrictDecoding rejects row payloads with keys T does not declare.
func WithStrictDecoding[T any]() Option[T] {
	return func(c *config[T]) {
		c.decoderOpts = append(c.decoderOpts, hydrate.WithDisallowUnknownFields[T]())
	}
}

// WithValidator makes the memory provider refuse entities breaking the
// validator's rules, answering with violations like a backend would.
func WithValidator[T any](validator *crudkit.Validator[T]) Option[T] {
	return func(c *config[T]) {
		c.validator = validator
	}
}

// WithAPIDocument makes NewRouter serve document as JSON at
// GET /{resource}/openapi.json.
func WithAPIDocument[T any](document any) Option[T] {
	return func(c *config[T]) {
		c.document = document
	}
}
