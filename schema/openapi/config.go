package openapi

import (
	"strings"
)

const (
	defaultOpenAPIVersion = "3.0.3"
	defaultMediaType      = "application/json"
)

// Info fills the document info block. Empty fields keep the generated
// defaults.
type Info struct {
	Title       string
	Version     string
	Description string
}

type generatorConfig struct {
	version   string
	info      Info
	prefix    string
	mediaType string
	// status code -> description, attached to every operation
	failures  map[string]string
	component string
}

func newGeneratorConfig(resource string) generatorConfig {
	return generatorConfig{
		version:   defaultOpenAPIVersion,
		info:      Info{Title: resource + " API", Version: "1.0.0"},
		mediaType: defaultMediaType,
		failures: map[string]string{
			"400": "Invalid request body",
			"500": "Provider failure",
		},
	}
}

func (c *generatorConfig) apply(opts []GeneratorOption) {
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
}

// GeneratorOption adjusts a generated document.
type GeneratorOption func(*generatorConfig)

// WithOpenAPIVersion sets the openapi field. Defaults to 3.0.3.
func WithOpenAPIVersion(version string) GeneratorOption {
	return func(c *generatorConfig) {
		if version = strings.TrimSpace(version); version != "" {
			c.version = version
		}
	}
}

func WithInfo(info Info) GeneratorOption {
	return func(c *generatorConfig) {
		if info.Title != "" {
			c.info.Title = info.Title
		}
		if info.Version != "" {
			c.info.Version = info.Version
		}
		if info.Description != "" {
			c.info.Description = info.Description
		}
	}
}

// WithBasePath mounts every operation under path. "/api/", "api" and "/api"
// are equivalent; "/" and "" mount at the root.
func WithBasePath(path string) GeneratorOption {
	return func(c *generatorConfig) {
		trimmed := strings.Trim(path, "/ ")
		if trimmed == "" {
			c.prefix = ""
			return
		}
		c.prefix = "/" + trimmed
	}
}

// WithContentType sets the media type used for request and response bodies.
func WithContentType(mediaType string) GeneratorOption {
	return func(c *generatorConfig) {
		if mediaType != "" {
			c.mediaType = mediaType
		}
	}
}

// WithResponse documents an error status on every operation, replacing the
// description of a status already present.
func WithResponse(status, description string) GeneratorOption {
	return func(c *generatorConfig) {
		if status == "" {
			return
		}
		if c.failures == nil {
			c.failures = map[string]string{}
		}
		c.failures[status] = description
	}
}

// WithoutResponse drops a documented error status, including the defaults.
func WithoutResponse(status string) GeneratorOption {
	return func(c *generatorConfig) {
		delete(c.failures, status)
	}
}

// WithComponentName names the entity schema under components. Without it the
// name is derived from the resource.
func WithComponentName(name string) GeneratorOption {
	return func(c *generatorConfig) {
		c.component = name
	}
}
