package crudkit

import (
	"time"

	"github.com/goliatone/go-crudkit/pkg/condition"
	"github.com/goliatone/go-crudkit/pkg/id"
	"github.com/goliatone/go-crudkit/pkg/shared"
	"github.com/google/uuid"
)

// ToClauseValue maps v onto the right-hand side of a filter clause. Text is
// sent as a plain string. Kinds without a clause representation fail with
// UnsupportedConversionError instead of being dropped.
func (v Value) ToClauseValue() (condition.Value, error) {
	switch v.kind {
	case KindString, KindText:
		return condition.StringValue(v.v.(string)), nil
	case KindJSON:
		return condition.JSONValue(v.v.(JSONValue).Doc()), nil
	case KindUUIDv4:
		return condition.UUIDv4Value(v.v.(uuid.UUID)), nil
	case KindUUIDv7:
		return condition.UUIDv7Value(v.v.(uuid.UUID)), nil
	case KindU32:
		return condition.U32Value(v.v.(uint32)), nil
	case KindI32:
		return condition.I32Value(v.v.(int32)), nil
	case KindI64:
		return condition.I64Value(v.v.(int64)), nil
	case KindF32:
		return condition.F32Value(v.v.(float32)), nil
	case KindBool:
		return condition.BoolValue(v.v.(bool)), nil
	default:
		return condition.Value{}, &UnsupportedConversionError{From: describeKind(v.kind), To: "condition clause value"}
	}
}

// ToIDValue maps v onto an identifier component.
func (v Value) ToIDValue() (id.Value, error) {
	switch v.kind {
	case KindString, KindText:
		return id.String(v.v.(string)), nil
	case KindUUIDv4:
		return id.UUIDv4(v.v.(uuid.UUID)), nil
	case KindUUIDv7:
		return id.UUIDv7(v.v.(uuid.UUID)), nil
	case KindI32:
		return id.I32(v.v.(int32)), nil
	case KindI64:
		return id.I64(v.v.(int64)), nil
	case KindU32:
		return id.U32(v.v.(uint32)), nil
	case KindBool:
		return id.Bool(v.v.(bool)), nil
	case KindPrimitiveDateTime:
		return id.PrimitiveDateTime(v.v.(time.Time)), nil
	case KindOffsetDateTime:
		return id.OffsetDateTime(v.v.(time.Time)), nil
	default:
		return id.Value{}, &UnsupportedConversionError{From: describeKind(v.kind), To: "identifier value"}
	}
}

// FromShared converts a backend value. Vector values have no field
// representation and fail.
func FromShared(s shared.Value) (Value, error) {
	switch s.Kind() {
	case shared.KindString:
		return StringValue(s.Interface().(string)), nil
	case shared.KindJSON:
		j, err := NewJSONValue(s.Interface())
		if err != nil {
			return Value{}, err
		}
		return JSONDocValue(j), nil
	case shared.KindUUIDv4:
		return UUIDv4Value(s.Interface().(uuid.UUID)), nil
	case shared.KindUUIDv7:
		return UUIDv7Value(s.Interface().(uuid.UUID)), nil
	case shared.KindI32:
		return I32Value(s.Interface().(int32)), nil
	case shared.KindI64:
		return I64Value(s.Interface().(int64)), nil
	case shared.KindU32:
		return U32Value(s.Interface().(uint32)), nil
	case shared.KindF32:
		return F32Value(s.Interface().(float32)), nil
	case shared.KindBool:
		return BoolValue(s.Interface().(bool)), nil
	case shared.KindPrimitiveDateTime:
		return PrimitiveDateTimeValue(s.Interface().(time.Time)), nil
	case shared.KindOffsetDateTime:
		return OffsetDateTimeValue(s.Interface().(time.Time)), nil
	default:
		return Value{}, &UnsupportedConversionError{From: "shared " + string(s.Kind()), To: "field value"}
	}
}

// FromID converts an identifier component. Every identifier kind has a field
// representation.
func FromID(v id.Value) Value {
	switch v.Kind() {
	case id.KindUUIDv4:
		return UUIDv4Value(v.Interface().(uuid.UUID))
	case id.KindUUIDv7:
		return UUIDv7Value(v.Interface().(uuid.UUID))
	case id.KindI32:
		return I32Value(v.Interface().(int32))
	case id.KindI64:
		return I64Value(v.Interface().(int64))
	case id.KindU32:
		return U32Value(v.Interface().(uint32))
	case id.KindBool:
		return BoolValue(v.Interface().(bool))
	case id.KindPrimitiveDateTime:
		return PrimitiveDateTimeValue(v.Interface().(time.Time))
	case id.KindOffsetDateTime:
		return OffsetDateTimeValue(v.Interface().(time.Time))
	default:
		s, _ := v.Interface().(string)
		return StringValue(s)
	}
}

func describeKind(kind Kind) string {
	if kind == "" {
		return "empty value"
	}
	return string(kind)
}
