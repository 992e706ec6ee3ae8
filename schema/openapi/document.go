package openapi

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-crudkit/pkg/rest"
)

// operationSpec is one POST route: rest.NewRouter serves every operation at
// <prefix>/<resource>/<op>.
type operationSpec struct {
	op       string
	summary  string
	request  map[string]any
	response map[string]any
}

type docBuilder struct {
	cfg       generatorConfig
	resource  string
	component string
	entity    map[string]any
}

func newDocBuilder(cfg generatorConfig, resource string, entity map[string]any) *docBuilder {
	component := cfg.component
	if component == "" {
		component = componentNameFor(resource)
	}
	return &docBuilder{
		cfg:       cfg,
		resource:  resource,
		component: sanitizeComponentName(component),
		entity:    entity,
	}
}

func (b *docBuilder) build() (map[string]any, error) {
	if b.entity == nil {
		return nil, errors.New("openapi: entity schema cannot be nil")
	}
	info := map[string]any{"title": b.cfg.info.Title, "version": b.cfg.info.Version}
	if b.cfg.info.Description != "" {
		info["description"] = b.cfg.info.Description
	}
	paths := make(map[string]any)
	for _, spec := range b.operations() {
		route := b.cfg.prefix + "/" + b.resource + "/" + spec.op
		paths[route] = map[string]any{"post": b.operation(spec)}
	}
	document := map[string]any{
		"openapi":    b.cfg.version,
		"info":       info,
		"paths":      paths,
		"components": map[string]any{"schemas": b.schemas()},
	}
	if err := validateDocument(document); err != nil {
		return nil, err
	}
	return document, nil
}

func (b *docBuilder) schemas() map[string]any {
	saveResult := b.component + "SaveResult"
	return map[string]any{
		b.component: b.entity,
		saveResult: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"entity":     ref(b.component),
				"violations": map[string]any{"type": "array", "items": ref("Violation")},
			},
			"required": []string{"entity"},
		},
		"Violation": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"field":   map[string]any{"type": "string"},
				"rule":    map[string]any{"type": "string"},
				"message": map[string]any{"type": "string"},
			},
		},
		"Condition": map[string]any{
			"type":        "object",
			"description": "Clauses combined by All or Any.",
			"properties": map[string]any{
				"combinator": map[string]any{"type": "string", "enum": []string{"All", "Any"}},
				"elements":   map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
			},
		},
		"OrderBy": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"column":    map[string]any{"type": "string"},
				"direction": map[string]any{"type": "string", "enum": []string{"Asc", "Desc"}},
			},
		},
	}
}

func (b *docBuilder) operations() []operationSpec {
	condition := ref("Condition")
	orderBy := map[string]any{"type": "array", "items": ref("OrderBy")}
	page := map[string]any{"type": "integer", "format": "int64", "minimum": 0}
	entity := ref(b.component)
	saveResult := ref(b.component + "SaveResult")

	return []operationSpec{
		{
			op:       rest.OpReadCount,
			summary:  "Count matching rows",
			request:  object(map[string]any{"condition": condition}),
			response: map[string]any{"type": "integer", "format": "int64", "minimum": 0},
		},
		{
			op:       rest.OpReadMany,
			summary:  "Read a page of matching rows",
			request:  object(map[string]any{"limit": page, "skip": page, "order_by": orderBy, "condition": condition}),
			response: map[string]any{"type": "array", "items": entity},
		},
		{
			op:       rest.OpReadOne,
			summary:  "Read the first matching row",
			request:  object(map[string]any{"skip": page, "order_by": orderBy, "condition": condition}),
			response: nullable(entity),
		},
		{
			op:       rest.OpCreateOne,
			summary:  "Create a row",
			request:  object(map[string]any{"entity": entity}, "entity"),
			response: nullable(saveResult),
		},
		{
			op:       rest.OpUpdateOne,
			summary:  "Update the first matching row",
			request:  object(map[string]any{"entity": entity, "condition": condition}, "entity"),
			response: nullable(saveResult),
		},
		{
			op:      rest.OpDeleteByID,
			summary: "Delete the row with an identifier",
			request: object(map[string]any{"id": map[string]any{"type": "array", "items": map[string]any{"type": "object"}}}, "id"),
			response: object(map[string]any{
				"deleted": page,
				"aborted": map[string]any{"type": "string"},
			}),
		},
	}
}

func (b *docBuilder) operation(spec operationSpec) map[string]any {
	responses := map[string]any{
		"200": map[string]any{"description": "OK", "content": b.body(spec.response)},
	}
	statuses := make([]string, 0, len(b.cfg.failures))
	for status := range b.cfg.failures {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		responses[status] = map[string]any{"description": b.cfg.failures[status]}
	}
	return map[string]any{
		"operationId": b.resource + ":" + spec.op,
		"summary":     spec.summary,
		"requestBody": map[string]any{"required": true, "content": b.body(spec.request)},
		"responses":   responses,
	}
}

func (b *docBuilder) body(schema map[string]any) map[string]any {
	return map[string]any{b.cfg.mediaType: map[string]any{"schema": schema}}
}

func ref(component string) map[string]any {
	return map[string]any{"$ref": componentRef(component)}
}

func nullable(schema map[string]any) map[string]any {
	return map[string]any{"nullable": true, "allOf": []any{schema}}
}

func object(props map[string]any, required ...string) map[string]any {
	out := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

// validateDocument checks the minimum a consumer needs: a version, a titled
// and versioned info block, and at least one path whose operations all carry
// an id, a request body with content, and responses.
func validateDocument(document map[string]any) error {
	if document == nil {
		return errors.New("openapi: document cannot be nil")
	}
	if v, _ := document["openapi"].(string); v == "" {
		return errors.New("openapi: missing openapi version")
	}
	info, _ := document["info"].(map[string]any)
	if info == nil {
		return errors.New("openapi: missing info")
	}
	for _, key := range []string{"title", "version"} {
		if v, _ := info[key].(string); strings.TrimSpace(v) == "" {
			return fmt.Errorf("openapi: info.%s is required", key)
		}
	}
	paths, _ := document["paths"].(map[string]any)
	if len(paths) == 0 {
		return errors.New("openapi: no paths")
	}
	for route, item := range paths {
		methods, _ := item.(map[string]any)
		if len(methods) == 0 {
			return fmt.Errorf("openapi: %s has no operations", route)
		}
		for method, raw := range methods {
			if err := validateOperation(raw); err != nil {
				return fmt.Errorf("openapi: %s %s: %w", strings.ToUpper(method), route, err)
			}
		}
	}
	return nil
}

func validateOperation(raw any) error {
	op, _ := raw.(map[string]any)
	if op == nil {
		return errors.New("operation is not an object")
	}
	if _, ok := op["operationId"].(string); !ok {
		return errors.New("operationId is required")
	}
	body, _ := op["requestBody"].(map[string]any)
	if content, _ := body["content"].(map[string]any); len(content) == 0 {
		return errors.New("requestBody content is required")
	}
	if _, ok := op["responses"].(map[string]any); !ok {
		return errors.New("responses are required")
	}
	return nil
}
