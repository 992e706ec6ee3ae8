// Package openapi describes the REST surface of a resource as an OpenAPI 3
// document: the six POST operations served by rest.NewRouter and the entity
// schema derived from its field accessors and layout.
package openapi

import (
	"fmt"
	"strings"

	crudkit "github.com/goliatone/go-crudkit"
)

// Generate builds the document for model. elems may be nil; placed fields
// carry their label, rule and disabled flag in x-formgen.
func Generate[T any](model crudkit.Model[T], elems []crudkit.Elem, opts ...GeneratorOption) (map[string]any, error) {
	resource := strings.TrimSpace(model.ResourceName())
	if resource == "" {
		return nil, fmt.Errorf("openapi: resource name is required")
	}
	if model.Fields() == nil {
		return nil, fmt.Errorf("openapi: resource %q has no fields", resource)
	}

	cfg := newGeneratorConfig(resource)
	cfg.apply(opts)

	descriptors, err := crudkit.DescribeFields(model.Fields(), elems)
	if err != nil {
		return nil, fmt.Errorf("openapi: %s: %w", resource, err)
	}
	entity := entitySchema(descriptors)
	entity["required"] = []string{model.IDFieldName()}

	return newDocBuilder(cfg, resource, entity).build()
}
