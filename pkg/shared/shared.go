// Package shared holds the value type exchanged with the backend when rows
// are read back without an entity schema, e.g. in list views or id columns.
package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind tags the concrete type of a backend value.
type Kind string

const (
	KindString            Kind = "String"
	KindJSON              Kind = "Json"
	KindUUIDv4            Kind = "UuidV4"
	KindUUIDv7            Kind = "UuidV7"
	KindI32               Kind = "I32"
	KindI32Vec            Kind = "I32Vec"
	KindI64               Kind = "I64"
	KindU32               Kind = "U32"
	KindF32               Kind = "F32"
	KindBool              Kind = "Bool"
	KindPrimitiveDateTime Kind = "PrimitiveDateTime"
	KindOffsetDateTime    Kind = "OffsetDateTime"
)

var ErrInvalidValue = errors.New("shared: invalid value")

// Value is a backend value.
type Value struct {
	kind Kind
	v    any
}

func String(v string) Value { return Value{kind: KindString, v: v} }
func JSON(v any) Value { return Value{kind: KindJSON, v: v} }
func UUIDv4(v uuid.UUID) Value { return Value{kind: KindUUIDv4, v: v} }
func UUIDv7(v uuid.UUID) Value { return Value{kind: KindUUIDv7, v: v} }
func I32(v int32) Value { return Value{kind: KindI32, v: v} }
func I64(v int64) Value { return Value{kind: KindI64, v: v} }
func U32(v uint32) Value { return Value{kind: KindU32, v: v} }
func F32(v float32) Value { return Value{kind: KindF32, v: v} }
func Bool(v bool) Value { return Value{kind: KindBool, v: v} }
func PrimitiveDateTime(v time.Time) Value { return Value{kind: KindPrimitiveDateTime, v: v} }
func OffsetDateTime(v time.Time) Value { return Value{kind: KindOffsetDateTime, v: v} }

// I32Vec copies v.
func I32Vec(v []int32) Value {
	return Value{kind: KindI32Vec, v: append([]int32(nil), v...)}
}

func (v Value) Kind() Kind { return v.kind }

// Interface returns the native payload.
func (v Value) Interface() any { return v.v }

func (v Value) String() string {
	switch x := v.v.(type) {
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case []int32:
		parts := make([]string, len(x))
		for i, n := range x {
			parts[i] = strconv.FormatInt(int64(n), 10)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// MarshalJSON writes v as {"Kind": payload}.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == "" {
		return []byte("null"), nil
	}
	return json.Marshal(map[string]any{string(v.kind): v.v})
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
		decoded, err := decode(Kind(key), payload)
		if err != nil {
			return err
		}
		*v = decoded
	}
	return nil
}

func decode(kind Kind, payload json.RawMessage) (Value, error) {
	var err error
	switch kind {
	case KindString:
		var s string
		err = json.Unmarshal(payload, &s)
		return String(s), err
	case KindJSON:
		var doc any
		err = json.Unmarshal(payload, &doc)
		return JSON(doc), err
	case KindUUIDv4, KindUUIDv7:
		var u uuid.UUID
		err = json.Unmarshal(payload, &u)
		return Value{kind: kind, v: u}, err
	case KindI32:
		var n int32
		err = json.Unmarshal(payload, &n)
		return I32(n), err
	case KindI32Vec:
		var ns []int32
		err = json.Unmarshal(payload, &ns)
		return I32Vec(ns), err
	case KindI64:
		var n int64
		err = json.Unmarshal(payload, &n)
		return I64(n), err
	case KindU32:
		var n uint32
		err = json.Unmarshal(payload, &n)
		return U32(n), err
	case KindF32:
		var n float32
		err = json.Unmarshal(payload, &n)
		return F32(n), err
	case KindBool:
		var b bool
		err = json.Unmarshal(payload, &b)
		return Bool(b), err
	case KindPrimitiveDateTime, KindOffsetDateTime:
		var t time.Time
		err = json.Unmarshal(payload, &t)
		return Value{kind: kind, v: t}, err
	default:
		return Value{}, fmt.Errorf("%w: unknown variant %q", ErrInvalidValue, kind)
	}
}
