// Package id models entity identifiers: typed identifier values, named
// identifier fields and the serializable form used inside persisted views.
package id

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind tags the concrete type carried by a Value.
type Kind string

const (
	KindString            Kind = "String"
	KindUUIDv4            Kind = "UuidV4"
	KindUUIDv7            Kind = "UuidV7"
	KindI32               Kind = "I32"
	KindI64               Kind = "I64"
	KindU32               Kind = "U32"
	KindBool              Kind = "Bool"
	KindPrimitiveDateTime Kind = "PrimitiveDateTime"
	KindOffsetDateTime    Kind = "OffsetDateTime"
)

var ErrInvalidValue = errors.New("id: invalid value")

// Value is one identifier component value.
type Value struct {
	kind Kind
	v    any
}

func String(v string) Value { return Value{kind: KindString, v: v} }
func UUIDv4(v uuid.UUID) Value { return Value{kind: KindUUIDv4, v: v} }
func UUIDv7(v uuid.UUID) Value { return Value{kind: KindUUIDv7, v: v} }
func I32(v int32) Value { return Value{kind: KindI32, v: v} }
func I64(v int64) Value { return Value{kind: KindI64, v: v} }
func U32(v uint32) Value { return Value{kind: KindU32, v: v} }
func Bool(v bool) Value { return Value{kind: KindBool, v: v} }
func PrimitiveDateTime(v time.Time) Value { return Value{kind: KindPrimitiveDateTime, v: v} }
func OffsetDateTime(v time.Time) Value { return Value{kind: KindOffsetDateTime, v: v} }

// Kind reports the variant of v.
func (v Value) Kind() Kind { return v.kind }

// Interface returns the native payload (string, uuid.UUID, int32, int64,
// uint32, bool or time.Time).
func (v Value) Interface() any { return v.v }

func (v Value) String() string {
	switch typed := v.v.(type) {
	case nil:
		return ""
	case time.Time:
		return typed.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(typed)
	}
}

// Equal compares kind and payload.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	if a, ok := v.v.(time.Time); ok {
		b, ok := other.v.(time.Time)
		return ok && a.Equal(b)
	}
	return v.v == other.v
}

// MarshalJSON encodes v as an externally tagged object, e.g. {"U32":7}.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == "" {
		return []byte("null"), nil
	}
	payload := v.v
	if t, ok := payload.(time.Time); ok {
		payload = t.Format(time.RFC3339Nano)
	}
	return json.Marshal(map[string]any{string(v.kind): payload})
}

func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Value{}
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("%w: expected exactly one variant, got %d", ErrInvalidValue, len(raw))
	}
	for key, payload := range raw {
		decoded, err := decodeValue(Kind(key), payload)
		if err != nil {
			return err
		}
		*v = decoded
	}
	return nil
}

func decodeValue(kind Kind, payload json.RawMessage) (Value, error) {
	switch kind {
	case KindString:
		var s string
		err := json.Unmarshal(payload, &s)
		return String(s), err
	case KindUUIDv4, KindUUIDv7:
		var u uuid.UUID
		if err := json.Unmarshal(payload, &u); err != nil {
			return Value{}, err
		}
		return Value{kind: kind, v: u}, nil
	case KindI32:
		var n int32
		err := json.Unmarshal(payload, &n)
		return I32(n), err
	case KindI64:
		var n int64
		err := json.Unmarshal(payload, &n)
		return I64(n), err
	case KindU32:
		var n uint32
		err := json.Unmarshal(payload, &n)
		return U32(n), err
	case KindBool:
		var b bool
		err := json.Unmarshal(payload, &b)
		return Bool(b), err
	case KindPrimitiveDateTime, KindOffsetDateTime:
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return Value{}, err
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return Value{}, err
		}
		return Value{kind: kind, v: t}, nil
	default:
		return Value{}, fmt.Errorf("%w: unknown variant %q", ErrInvalidValue, kind)
	}
}

// Field is one named component of an identifier.
type Field interface {
	Name() string
	Value() Value
}

type field struct {
	name  string
	value Value
}

// NewField builds an immutable identifier field.
func NewField(name string, value Value) Field {
	return field{name: name, value: value}
}

func (f field) Name() string { return f.name }
func (f field) Value() Value { return f.value }

// ID is an ordered list of identifier fields.
type ID []Field

// Get returns the field named name.
func (i ID) Get(name string) (Field, bool) {
	for _, f := range i {
		if f != nil && f.Name() == name {
			return f, true
		}
	}
	return nil, false
}

// Serializable converts i into its serializable form.
func (i ID) Serializable() SerializableID {
	out := make(SerializableID, 0, len(i))
	for _, f := range i {
		if f == nil {
			continue
		}
		out = append(out, Entry{Name: f.Name(), Value: f.Value()})
	}
	return out
}

func (i ID) String() string {
	parts := make([]string, 0, len(i))
	for _, f := range i {
		if f == nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s", f.Name(), f.Value()))
	}
	return strings.Join(parts, ",")
}

// Entry is one name/value pair of a SerializableID.
type Entry struct {
	Name  string `json:"name" yaml:"name"`
	Value Value  `json:"value" yaml:"-"`
}

// SerializableID is the persisted form of an ID.
type SerializableID []Entry

// ID rebuilds the identifier fields.
func (s SerializableID) ID() ID {
	out := make(ID, 0, len(s))
	for _, entry := range s {
		out = append(out, NewField(entry.Name, entry.Value))
	}
	return out
}

// Equal compares entries in order.
func (s SerializableID) Equal(other SerializableID) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i].Name != other[i].Name || !s[i].Value.Equal(other[i].Value) {
			return false
		}
	}
	return true
}
