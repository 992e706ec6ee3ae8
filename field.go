package crudkit

import (
	"fmt"
	"sort"
	"time"

	"github.com/goliatone/go-crudkit/pkg/id"
	"github.com/google/uuid"
)

// Field reads and writes one declared field of an entity type through Value.
// Implementations are stateless and shared by every entity instance.
type Field[T any] interface {
	Name() string
	Kind() Kind
	Get(entity *T) Value
	// Set writes value into entity. An incompatible variant is rejected and
	// entity is left untouched.
	Set(entity *T, value Value) error
}

type accessor[T any, V any] struct {
	name string
	kind Kind
	ptr  func(*T) *V
	wrap func(V) Value
	take func(Value) (V, error)
}

// NewField builds a Field from a pointer projection and a pair of
// conversions. The typed helpers below cover every Value kind.
func NewField[T any, V any](name string, kind Kind, ptr func(*T) *V, wrap func(V) Value, take func(Value) (V, error)) Field[T] {
	return accessor[T, V]{name: name, kind: kind, ptr: ptr, wrap: wrap, take: take}
}

func (a accessor[T, V]) Name() string { return a.name }
func (a accessor[T, V]) Kind() Kind { return a.kind }

func (a accessor[T, V]) Get(entity *T) Value {
	return a.wrap(*a.ptr(entity))
}

func (a accessor[T, V]) Set(entity *T, value Value) error {
	native, err := a.take(value)
	if err != nil {
		return &FieldError{Field: a.name, Err: err}
	}
	*a.ptr(entity) = native
	return nil
}

func StringField[T any](name string, ptr func(*T) *string) Field[T] {
	return NewField(name, KindString, ptr, StringValue, Value.TakeString)
}

func TextField[T any](name string, ptr func(*T) *string) Field[T] {
	return NewField(name, KindText, ptr, TextValue, Value.TakeText)
}

func JSONField[T any](name string, ptr func(*T) *JSONValue) Field[T] {
	return NewField(name, KindJSON, ptr, JSONDocValue, Value.TakeJSON)
}

func OptionalJSONField[T any](name string, ptr func(*T) **JSONValue) Field[T] {
	return NewField(name, KindOptionalJSON, ptr, OptionalJSONValue, Value.TakeOptionalJSON)
}

func UUIDv4Field[T any](name string, ptr func(*T) *uuid.UUID) Field[T] {
	return NewField(name, KindUUIDv4, ptr, UUIDv4Value, Value.TakeUUIDv4)
}

func UUIDv7Field[T any](name string, ptr func(*T) *uuid.UUID) Field[T] {
	return NewField(name, KindUUIDv7, ptr, UUIDv7Value, Value.TakeUUIDv7)
}

func U32Field[T any](name string, ptr func(*T) *uint32) Field[T] {
	return NewField(name, KindU32, ptr, U32Value, Value.TakeU32)
}

func OptionalU32Field[T any](name string, ptr func(*T) **uint32) Field[T] {
	return NewField(name, KindOptionalU32, ptr, OptionalU32Value, Value.TakeOptionalU32)
}

func I32Field[T any](name string, ptr func(*T) *int32) Field[T] {
	return NewField(name, KindI32, ptr, I32Value, Value.TakeI32)
}

func I64Field[T any](name string, ptr func(*T) *int64) Field[T] {
	return NewField(name, KindI64, ptr, I64Value, Value.TakeI64)
}

func OptionalI32Field[T any](name string, ptr func(*T) **int32) Field[T] {
	return NewField(name, KindOptionalI32, ptr, OptionalI32Value, Value.TakeOptionalI32)
}

func OptionalI64Field[T any](name string, ptr func(*T) **int64) Field[T] {
	return NewField(name, KindOptionalI64, ptr, OptionalI64Value, Value.TakeOptionalI64)
}

func F32Field[T any](name string, ptr func(*T) *float32) Field[T] {
	return NewField(name, KindF32, ptr, F32Value, Value.TakeF32)
}

func BoolField[T any](name string, ptr func(*T) *bool) Field[T] {
	return NewField(name, KindBool, ptr, BoolValue, Value.TakeBool)
}

func ValidationStatusField[T any](name string, ptr func(*T) *bool) Field[T] {
	return NewField(name, KindValidationStatus, ptr, ValidationStatusValue, Value.TakeValidationStatus)
}

func PrimitiveDateTimeField[T any](name string, ptr func(*T) *time.Time) Field[T] {
	return NewField(name, KindPrimitiveDateTime, ptr, PrimitiveDateTimeValue, Value.TakePrimitiveDateTime)
}

func OffsetDateTimeField[T any](name string, ptr func(*T) *time.Time) Field[T] {
	return NewField(name, KindOffsetDateTime, ptr, OffsetDateTimeValue, Value.TakeOffsetDateTime)
}

func OptionalPrimitiveDateTimeField[T any](name string, ptr func(*T) **time.Time) Field[T] {
	return NewField(name, KindOptionalPrimitiveDateTime, ptr, OptionalPrimitiveDateTimeValue, Value.TakeOptionalPrimitiveDateTime)
}

func OptionalOffsetDateTimeField[T any](name string, ptr func(*T) **time.Time) Field[T] {
	return NewField(name, KindOptionalOffsetDateTime, ptr, OptionalOffsetDateTimeValue, Value.TakeOptionalOffsetDateTime)
}

func OneToOneRelationField[T any](name string, ptr func(*T) **uint32) Field[T] {
	return NewField(name, KindOneToOneRelation, ptr, OneToOneRelationValue, Value.TakeOneToOneRelation)
}

func NestedTableField[T any](name string, ptr func(*T) *[]id.Field) Field[T] {
	return NewField(name, KindNestedTable, ptr, NestedTableValue, Value.TakeNestedTable)
}

// CustomField declares a field rendered by application code. It carries no
// data through Value.
func CustomField[T any](name string) Field[T] {
	var unit struct{}
	return NewField(name, KindCustom,
		func(*T) *struct{} { return &unit },
		func(struct{}) Value { return CustomValue() },
		func(v Value) (struct{}, error) { return struct{}{}, v.TakeCustom() },
	)
}

func SelectField[T any, S Selectable](name string, ptr func(*T) *S) Field[T] {
	return NewField(name, KindSelect, ptr,
		func(s S) Value { return SelectValue(s) },
		TakeSelectAs[S],
	)
}

func OptionalSelectField[T any, S Selectable](name string, ptr func(*T) **S) Field[T] {
	return NewField(name, KindOptionalSelect, ptr,
		func(s *S) Value {
			if s == nil {
				return OptionalSelectValue(nil)
			}
			return OptionalSelectValue(*s)
		},
		TakeOptionalSelectAs[S],
	)
}

func MultiselectField[T any, S Selectable](name string, ptr func(*T) *[]S) Field[T] {
	return NewField(name, KindMultiselect, ptr,
		func(items []S) Value { return MultiselectValue(eraseAll(items)) },
		TakeMultiselectAs[S],
	)
}

// OptionalMultiselectField maps a nil slice to an absent selection.
func OptionalMultiselectField[T any, S Selectable](name string, ptr func(*T) *[]S) Field[T] {
	return NewField(name, KindOptionalMultiselect, ptr,
		func(items []S) Value {
			if items == nil {
				return OptionalMultiselectValue(nil)
			}
			return OptionalMultiselectValue(eraseAll(items))
		},
		func(v Value) ([]S, error) {
			items, ok, err := TakeOptionalMultiselectAs[S](v)
			if err != nil || !ok {
				return nil, err
			}
			if items == nil {
				items = []S{}
			}
			return items, nil
		},
	)
}

func eraseAll[S Selectable](items []S) []Selectable {
	out := make([]Selectable, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

// FieldSet is the declared field list of one entity type, addressable by
// stable name.
type FieldSet[T any] struct {
	resource string
	order    []Field[T]
	byName   map[string]Field[T]
}

// NewFieldSet indexes fields by name. Names must be unique and non-empty.
func NewFieldSet[T any](resource string, fields ...Field[T]) (*FieldSet[T], error) {
	set := &FieldSet[T]{
		resource: resource,
		order:    make([]Field[T], 0, len(fields)),
		byName:   make(map[string]Field[T], len(fields)),
	}
	for _, f := range fields {
		if f == nil {
			continue
		}
		name := f.Name()
		if name == "" {
			return nil, fmt.Errorf("crudkit: resource %q declares a field without name", resource)
		}
		if _, exists := set.byName[name]; exists {
			return nil, fmt.Errorf("crudkit: resource %q declares field %q twice", resource, name)
		}
		set.byName[name] = f
		set.order = append(set.order, f)
	}
	return set, nil
}

// MustFieldSet is NewFieldSet for package-level declarations.
func MustFieldSet[T any](resource string, fields ...Field[T]) *FieldSet[T] {
	set, err := NewFieldSet(resource, fields...)
	if err != nil {
		panic(err)
	}
	return set
}

// Lookup resolves name to its accessor.
func (s *FieldSet[T]) Lookup(name string) (Field[T], error) {
	if s != nil {
		if f, ok := s.byName[name]; ok {
			return f, nil
		}
	}
	resource := ""
	if s != nil {
		resource = s.resource
	}
	return nil, &UnknownFieldError{Resource: resource, Field: name}
}

// Fields returns the accessors in declaration order.
func (s *FieldSet[T]) Fields() []Field[T] {
	if s == nil {
		return nil
	}
	return append([]Field[T](nil), s.order...)
}

// Names returns the field names sorted alphabetically.
func (s *FieldSet[T]) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.order))
	for _, f := range s.order {
		names = append(names, f.Name())
	}
	sort.Strings(names)
	return names
}

// Values reads every field of entity.
func (s *FieldSet[T]) Values(entity *T) map[string]Value {
	out := make(map[string]Value, len(s.order))
	for _, f := range s.order {
		out[f.Name()] = f.Get(entity)
	}
	return out
}

// Apply writes every value into a copy of entity and commits only when all
// writes succeed.
func (s *FieldSet[T]) Apply(entity *T, values map[string]Value) error {
	working := *entity
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f, err := s.Lookup(name)
		if err != nil {
			return err
		}
		if err := f.Set(&working, values[name]); err != nil {
			return err
		}
	}
	*entity = working
	return nil
}

// Diff returns the names of the fields whose values differ between a and b,
// in declaration order.
func (s *FieldSet[T]) Diff(a, b *T) []string {
	var changed []string
	for _, f := range s.order {
		if !f.Get(a).Equal(f.Get(b)) {
			changed = append(changed, f.Name())
		}
	}
	return changed
}

// Equal reports whether every declared field of a and b holds an equal value.
func (s *FieldSet[T]) Equal(a, b *T) bool {
	for _, f := range s.order {
		if !f.Get(a).Equal(f.Get(b)) {
			return false
		}
	}
	return true
}
