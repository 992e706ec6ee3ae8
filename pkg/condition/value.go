package condition

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ValueKind tags a clause value.
type ValueKind string

const (
	KindString ValueKind = "String"
	KindJSON   ValueKind = "Json"
	KindUUIDv4 ValueKind = "UuidV4"
	KindUUIDv7 ValueKind = "UuidV7"
	KindI32    ValueKind = "I32"
	KindI64    ValueKind = "I64"
	KindU32    ValueKind = "U32"
	KindF32    ValueKind = "F32"
	KindBool   ValueKind = "Bool"
)

// Value is the right-hand side of a clause.
type Value struct {
	kind ValueKind
	v    any
}

func StringValue(v string) Value { return Value{kind: KindString, v: v} }
func JSONValue(v any) Value { return Value{kind: KindJSON, v: v} }
func UUIDv4Value(v uuid.UUID) Value { return Value{kind: KindUUIDv4, v: v} }
func UUIDv7Value(v uuid.UUID) Value { return Value{kind: KindUUIDv7, v: v} }
func I32Value(v int32) Value { return Value{kind: KindI32, v: v} }
func I64Value(v int64) Value { return Value{kind: KindI64, v: v} }
func U32Value(v uint32) Value { return Value{kind: KindU32, v: v} }
func F32Value(v float32) Value { return Value{kind: KindF32, v: v} }
func BoolValue(v bool) Value { return Value{kind: KindBool, v: v} }

// Kind reports the variant of v.
func (v Value) Kind() ValueKind { return v.kind }

// Interface returns the native payload.
func (v Value) Interface() any { return v.v }

func (v Value) String() string {
	return fmt.Sprint(v.v)
}

// Equal reports whether v and other hold the same variant and payload.
func (v Value) Equal(other Value) bool {
	return v.kind == other.kind && equalValues(v, other)
}

// MarshalJSON encodes v as an externally tagged object, e.g. {"U32":7}.
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
		return fmt.Errorf("%w: expected exactly one value variant, got %d", ErrInvalidCondition, len(raw))
	}
	for key, payload := range raw {
		var err error
		kind := ValueKind(key)
		switch kind {
		case KindString:
			var s string
			err = json.Unmarshal(payload, &s)
			*v = StringValue(s)
		case KindJSON:
			var doc any
			err = json.Unmarshal(payload, &doc)
			*v = JSONValue(doc)
		case KindUUIDv4, KindUUIDv7:
			var u uuid.UUID
			err = json.Unmarshal(payload, &u)
			*v = Value{kind: kind, v: u}
		case KindI32:
			var n int32
			err = json.Unmarshal(payload, &n)
			*v = I32Value(n)
		case KindI64:
			var n int64
			err = json.Unmarshal(payload, &n)
			*v = I64Value(n)
		case KindU32:
			var n uint32
			err = json.Unmarshal(payload, &n)
			*v = U32Value(n)
		case KindF32:
			var n float32
			err = json.Unmarshal(payload, &n)
			*v = F32Value(n)
		case KindBool:
			var b bool
			err = json.Unmarshal(payload, &b)
			*v = BoolValue(b)
		default:
			return fmt.Errorf("%w: unknown value variant %q", ErrInvalidCondition, key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// compare applies op with v on the right-hand side and actual on the left.
func (v Value) compare(op Operator, actual Value) bool {
	switch op {
	case Equal:
		return equalValues(actual, v)
	case NotEqual:
		return !equalValues(actual, v)
	case Less, LessOrEqual, Greater, GreaterOrEqual:
		a, okA := numeric(actual)
		b, okB := numeric(v)
		if okA && okB {
			return orderHolds(op, compareFloat(a, b))
		}
		sa, okA := actual.v.(string)
		sb, okB := v.v.(string)
		if okA && okB {
			return orderHolds(op, compareString(sa, sb))
		}
		return false
	case IsIn, IsNotIn:
		items, ok := v.v.([]any)
		if !ok {
			return false
		}
		found := false
		for _, item := range items {
			if fmt.Sprint(item) == fmt.Sprint(actual.v) {
				found = true
				break
			}
		}
		return found == (op == IsIn)
	default:
		return false
	}
}

// Compare orders v against other. Numbers compare by value across kinds,
// strings lexically. The boolean is false when the two are not ordered.
func (v Value) Compare(other Value) (int, bool) {
	a, okA := numeric(v)
	b, okB := numeric(other)
	if okA && okB {
		return compareFloat(a, b), true
	}
	sa, okA := v.v.(string)
	sb, okB := other.v.(string)
	if okA && okB {
		return compareString(sa, sb), true
	}
	return 0, false
}

func equalValues(a, b Value) bool {
	na, okA := numeric(a)
	nb, okB := numeric(b)
	if okA && okB {
		return na == nb
	}
	if a.kind == KindJSON || b.kind == KindJSON {
		left, errA := json.Marshal(a.v)
		right, errB := json.Marshal(b.v)
		return errA == nil && errB == nil && string(left) == string(right)
	}
	return a.kind == b.kind && a.v == b.v
}

func numeric(v Value) (float64, bool) {
	switch n := v.v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func orderHolds(op Operator, cmp int) bool {
	switch op {
	case Less:
		return cmp < 0
	case LessOrEqual:
		return cmp <= 0
	case Greater:
		return cmp > 0
	case GreaterOrEqual:
		return cmp >= 0
	default:
		return false
	}
}
