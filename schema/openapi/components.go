package openapi

import (
	"fmt"
	"regexp"
	"strings"

	crudkit "github.com/goliatone/go-crudkit"
)

// kindSchema maps a field kind onto its JSON schema.
func kindSchema(kind crudkit.Kind) map[string]any {
	switch kind {
	case crudkit.KindString, crudkit.KindText:
		return map[string]any{"type": "string"}
	case crudkit.KindJSON, crudkit.KindCustom:
		return map[string]any{}
	case crudkit.KindOptionalJSON:
		return map[string]any{"nullable": true}
	case crudkit.KindUUIDv4, crudkit.KindUUIDv7:
		return map[string]any{"type": "string", "format": "uuid"}
	case crudkit.KindU32:
		return map[string]any{"type": "integer", "format": "int64", "minimum": 0, "maximum": 4294967295}
	case crudkit.KindOptionalU32, crudkit.KindOneToOneRelation:
		return map[string]any{"type": "integer", "format": "int64", "minimum": 0, "maximum": 4294967295, "nullable": true}
	case crudkit.KindI32:
		return map[string]any{"type": "integer", "format": "int32"}
	case crudkit.KindOptionalI32:
		return map[string]any{"type": "integer", "format": "int32", "nullable": true}
	case crudkit.KindI64:
		return map[string]any{"type": "integer", "format": "int64"}
	case crudkit.KindOptionalI64:
		return map[string]any{"type": "integer", "format": "int64", "nullable": true}
	case crudkit.KindF32:
		return map[string]any{"type": "number", "format": "float"}
	case crudkit.KindBool, crudkit.KindValidationStatus:
		return map[string]any{"type": "boolean"}
	case crudkit.KindPrimitiveDateTime, crudkit.KindOffsetDateTime:
		return map[string]any{"type": "string", "format": "date-time"}
	case crudkit.KindOptionalPrimitiveDateTime, crudkit.KindOptionalOffsetDateTime:
		return map[string]any{"type": "string", "format": "date-time", "nullable": true}
	case crudkit.KindSelect:
		return map[string]any{"type": "string"}
	case crudkit.KindOptionalSelect:
		return map[string]any{"type": "string", "nullable": true}
	case crudkit.KindMultiselect, crudkit.KindOptionalMultiselect:
		return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
	case crudkit.KindNestedTable:
		return map[string]any{"type": "array", "items": map[string]any{"type": "object"}}
	}
	return map[string]any{}
}

// entitySchema describes the entity with one property per field. Form hints
// travel in x-formgen.
func entitySchema(descriptors []crudkit.FieldDescriptor) map[string]any {
	props := make(map[string]any, len(descriptors))
	for _, d := range descriptors {
		schema := kindSchema(d.Kind)
		formgen := map[string]any{"kind": string(d.Kind), "label": d.Label, "placed": d.Placed}
		if d.Disabled {
			formgen["disabled"] = true
		}
		if d.Rule != "" {
			formgen["rule"] = d.Rule
		}
		schema["x-formgen"] = formgen
		props[d.Name] = schema
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
	}
}

var componentNameRegexp = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

func componentRef(name string) string {
	return fmt.Sprintf("#/components/schemas/%s", name)
}

// componentNameFor derives a component name such as "People" from a
// resource name such as "people".
func componentNameFor(resource string) string {
	name := sanitizeComponentName(resource)
	if name == "" {
		return "Entity"
	}
	if name[0] >= 'a' && name[0] <= 'z' {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return name
}

func sanitizeComponentName(name string) string {
	name = componentNameRegexp.ReplaceAllString(name, "_")
	name = trimUnderscores(name)
	if name == "" {
		return ""
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}

func trimUnderscores(input string) string {
	start := 0
	for start < len(input) && input[start] == '_' {
		start++
	}
	end := len(input)
	for end > start && input[end-1] == '_' {
		end--
	}
	return input[start:end]
}
