package crudkit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-crudkit/pkg/id"
	"github.com/goliatone/go-crudkit/rules"
)

// Violation reports one field rule that did not hold.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (v Violation) Error() string {
	return fmt.Sprintf("crudkit: field %q: %s", v.Field, v.Message)
}

type fieldRule struct {
	field string
	rule  *rules.Rule
}

// Validator checks the rules attached to field elements of a layout.
//
// A rule evaluates to a bool (true when the value is acceptable) or to a
// string (empty when acceptable, otherwise the message to show). Rules see
// every field of the entity by name, the checked field value as `value` and
// resource/field names under `field`.
type Validator[T any] struct {
	resource string
	fields   *FieldSet[T]
	rules    []fieldRule
}

// NewValidator compiles every rule found in elems. Rules on undeclared fields
// and rules that fail to compile are reported here rather than at save time.
func NewValidator[T any](resource string, fields *FieldSet[T], elems []Elem, opts ...rules.Option) (*Validator[T], error) {
	engine, err := rules.New(opts...)
	if err != nil {
		return nil, err
	}
	names := fields.Names()
	v := &Validator[T]{resource: resource, fields: fields}
	err = WalkFields(elems, func(elem FieldElem) error {
		if elem.Options.Rule == "" {
			return nil
		}
		if _, err := fields.Lookup(elem.Name); err != nil {
			return err
		}
		rule, err := engine.Compile(elem.Options.Rule, names...)
		if err != nil {
			return &FieldError{Field: elem.Name, Err: err}
		}
		v.rules = append(v.rules, fieldRule{field: elem.Name, rule: rule})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Validate runs all rules against entity. Violations are returned in layout
// order; an error means a rule could not be evaluated at all.
func (v *Validator[T]) Validate(entity *T) ([]Violation, error) {
	if v == nil || len(v.rules) == 0 {
		return nil, nil
	}
	values := v.fields.Values(entity)
	snapshot := make(map[string]any, len(values))
	for name, value := range values {
		snapshot[name] = ruleInput(value)
	}

	var violations []Violation
	for _, rule := range v.rules {
		expr := rule.rule.Expr()
		result, err := rule.rule.Run(rules.Env{
			Resource: v.resource,
			Field:    rule.field,
			Value:    snapshot[rule.field],
			Entity:   snapshot,
		})
		if err != nil {
			return nil, &FieldError{Field: rule.field, Err: err}
		}
		switch out := result.(type) {
		case bool:
			if !out {
				violations = append(violations, Violation{
					Field:   rule.field,
					Rule:    expr,
					Message: fmt.Sprintf("value does not satisfy %s", expr),
				})
			}
		case string:
			if out != "" {
				violations = append(violations, Violation{Field: rule.field, Rule: expr, Message: out})
			}
		default:
			return nil, &FieldError{
				Field: rule.field,
				Err:   fmt.Errorf("crudkit: rule %q returned %T, want bool or string", expr, result),
			}
		}
	}
	return violations, nil
}

// Statuses maps every field that carries a rule to a ValidationStatus value,
// true for the fields named in violations.
func (v *Validator[T]) Statuses(violations []Violation) map[string]Value {
	if v == nil {
		return nil
	}
	failed := make(map[string]bool, len(violations))
	for _, violation := range violations {
		failed[violation.Field] = true
	}
	out := make(map[string]Value, len(v.rules))
	for _, rule := range v.rules {
		out[rule.field] = ValidationStatusValue(failed[rule.field])
	}
	return out
}

// ruleJSON copies a JSON document with its numbers as int64 when integral,
// float64 otherwise.
func ruleJSON(doc any) any {
	switch node := doc.(type) {
	case json.Number:
		if n, err := node.Int64(); err == nil {
			return n
		}
		f, _ := node.Float64()
		return f
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, v := range node {
			out[k] = ruleJSON(v)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, v := range node {
			out[i] = ruleJSON(v)
		}
		return out
	}
	return doc
}

// ruleInput projects a Value onto the plain types rule engines understand:
// integers widen to int64, floats to float64, identifiers and selections to
// their display strings, absent optionals to nil.
func ruleInput(v Value) any {
	switch payload := v.v.(type) {
	case nil:
		return nil
	case string, bool, time.Time:
		return payload
	case uint32:
		return int64(payload)
	case int32:
		return int64(payload)
	case int64:
		return payload
	case float32:
		return float64(payload)
	case uuid.UUID:
		return payload.String()
	case JSONValue:
		return ruleJSON(payload.Doc())
	case *JSONValue:
		if payload == nil {
			return nil
		}
		return ruleJSON(payload.Doc())
	case *uint32:
		if payload == nil {
			return nil
		}
		return int64(*payload)
	case *int32:
		if payload == nil {
			return nil
		}
		return int64(*payload)
	case *int64:
		if payload == nil {
			return nil
		}
		return *payload
	case *time.Time:
		if payload == nil {
			return nil
		}
		return *payload
	case []id.Field:
		out := make(map[string]any, len(payload))
		for _, f := range payload {
			out[f.Name()] = f.Value().Interface()
		}
		return out
	case Selectable:
		return payload.String()
	case []Selectable:
		if payload == nil {
			return nil
		}
		out := make([]any, len(payload))
		for i, s := range payload {
			out[i] = s.String()
		}
		return out
	}
	if v.kind == KindCustom {
		return nil
	}
	return v.v
}
