package crudkit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-crudkit/pkg/id"
	"github.com/google/uuid"
)

// Kind tags the variant held by a Value. The tag is the only source of truth
// for which narrowing is legal on a Value.
type Kind string

const (
	KindString                    Kind = "String"
	KindText                      Kind = "Text"
	KindJSON                      Kind = "Json"
	KindOptionalJSON              Kind = "OptionalJson"
	KindUUIDv4                    Kind = "UuidV4"
	KindUUIDv7                    Kind = "UuidV7"
	KindU32                       Kind = "U32"
	KindOptionalU32               Kind = "OptionalU32"
	KindI32                       Kind = "I32"
	KindI64                       Kind = "I64"
	KindOptionalI32               Kind = "OptionalI32"
	KindOptionalI64               Kind = "OptionalI64"
	KindF32                       Kind = "F32"
	KindBool                      Kind = "Bool"
	KindValidationStatus          Kind = "ValidationStatus"
	KindPrimitiveDateTime         Kind = "PrimitiveDateTime"
	KindOffsetDateTime            Kind = "OffsetDateTime"
	KindOptionalPrimitiveDateTime Kind = "OptionalPrimitiveDateTime"
	KindOptionalOffsetDateTime    Kind = "OptionalOffsetDateTime"
	KindOneToOneRelation          Kind = "OneToOneRelation"
	KindNestedTable               Kind = "NestedTable"
	KindCustom                    Kind = "Custom"
	KindSelect                    Kind = "Select"
	KindMultiselect               Kind = "Multiselect"
	KindOptionalSelect            Kind = "OptionalSelect"
	KindOptionalMultiselect       Kind = "OptionalMultiselect"
)

// Value is a self-describing field value moving between an entity and the UI.
// The zero Value has no kind and fails every narrowing.
type Value struct {
	kind Kind
	v    any
}

func StringValue(v string) Value { return Value{kind: KindString, v: v} }
func TextValue(v string) Value { return Value{kind: KindText, v: v} }
func JSONDocValue(v JSONValue) Value { return Value{kind: KindJSON, v: v} }
func UUIDv4Value(v uuid.UUID) Value { return Value{kind: KindUUIDv4, v: v} }
func UUIDv7Value(v uuid.UUID) Value { return Value{kind: KindUUIDv7, v: v} }
func U32Value(v uint32) Value { return Value{kind: KindU32, v: v} }
func I32Value(v int32) Value { return Value{kind: KindI32, v: v} }
func I64Value(v int64) Value { return Value{kind: KindI64, v: v} }
func F32Value(v float32) Value { return Value{kind: KindF32, v: v} }
func BoolValue(v bool) Value { return Value{kind: KindBool, v: v} }
func CustomValue() Value { return Value{kind: KindCustom, v: struct{}{}} }

// ValidationStatusValue is a bool rendered as a status marker; true means the
// field has a problem.
func ValidationStatusValue(v bool) Value { return Value{kind: KindValidationStatus, v: v} }

// OptionalJSONValue wraps a JSON document that may be absent.
func OptionalJSONValue(v *JSONValue) Value {
	return Value{kind: KindOptionalJSON, v: copyPtr(v)}
}

func OptionalU32Value(v *uint32) Value { return Value{kind: KindOptionalU32, v: copyPtr(v)} }
func OptionalI32Value(v *int32) Value { return Value{kind: KindOptionalI32, v: copyPtr(v)} }
func OptionalI64Value(v *int64) Value { return Value{kind: KindOptionalI64, v: copyPtr(v)} }

// OneToOneRelationValue references a related row by numeric id, if any.
func OneToOneRelationValue(v *uint32) Value {
	return Value{kind: KindOneToOneRelation, v: copyPtr(v)}
}

// PrimitiveDateTimeValue holds a wall-clock timestamp without zone. The
// location of v is discarded.
func PrimitiveDateTimeValue(v time.Time) Value {
	return Value{kind: KindPrimitiveDateTime, v: primitive(v)}
}

func OffsetDateTimeValue(v time.Time) Value { return Value{kind: KindOffsetDateTime, v: v} }

func OptionalPrimitiveDateTimeValue(v *time.Time) Value {
	if v == nil {
		return Value{kind: KindOptionalPrimitiveDateTime, v: (*time.Time)(nil)}
	}
	t := primitive(*v)
	return Value{kind: KindOptionalPrimitiveDateTime, v: &t}
}

func OptionalOffsetDateTimeValue(v *time.Time) Value {
	return Value{kind: KindOptionalOffsetDateTime, v: copyPtr(v)}
}

// NestedTableValue carries the identifier fields of a parent row, used to
// scope a nested table.
func NestedTableValue(fields []id.Field) Value {
	return Value{kind: KindNestedTable, v: append([]id.Field(nil), fields...)}
}

func SelectValue(v Selectable) Value {
	return Value{kind: KindSelect, v: cloneSelectable(v)}
}

func MultiselectValue(v []Selectable) Value {
	return Value{kind: KindMultiselect, v: cloneSelectables(v)}
}

// OptionalSelectValue treats a nil option as absent.
func OptionalSelectValue(v Selectable) Value {
	return Value{kind: KindOptionalSelect, v: cloneSelectable(v)}
}

// OptionalMultiselectValue treats a nil slice as absent. An empty non-nil
// slice is a present, empty selection.
func OptionalMultiselectValue(v []Selectable) Value {
	return Value{kind: KindOptionalMultiselect, v: cloneSelectables(v)}
}

// Kind reports the variant of v.
func (v Value) Kind() Kind { return v.kind }

// IsZero reports whether v was never assigned a variant.
func (v Value) IsZero() bool { return v.kind == "" }

// Interface returns the native payload, e.g. uint32 for U32 or *int32 for
// OptionalI32.
func (v Value) Interface() any { return v.v }

// String renders v for display. Absent optionals render as "-" for numbers
// and JSON, as "" for timestamps and relations, and as "NONE" for selections.
func (v Value) String() string {
	switch v.kind {
	case KindString, KindText:
		return v.v.(string)
	case KindJSON:
		return v.v.(JSONValue).String()
	case KindOptionalJSON:
		if p := v.v.(*JSONValue); p != nil {
			return p.String()
		}
		return "-"
	case KindUUIDv4, KindUUIDv7:
		return v.v.(uuid.UUID).String()
	case KindU32:
		return strconv.FormatUint(uint64(v.v.(uint32)), 10)
	case KindI32:
		return strconv.FormatInt(int64(v.v.(int32)), 10)
	case KindI64:
		return strconv.FormatInt(v.v.(int64), 10)
	case KindOptionalU32:
		return optionalString(v.v.(*uint32), "-")
	case KindOptionalI32:
		return optionalString(v.v.(*int32), "-")
	case KindOptionalI64:
		return optionalString(v.v.(*int64), "-")
	case KindF32:
		return strconv.FormatFloat(float64(v.v.(float32)), 'f', -1, 32)
	case KindBool, KindValidationStatus:
		return strconv.FormatBool(v.v.(bool))
	case KindPrimitiveDateTime, KindOffsetDateTime:
		return v.v.(time.Time).Format(time.RFC3339)
	case KindOptionalPrimitiveDateTime, KindOptionalOffsetDateTime:
		if p := v.v.(*time.Time); p != nil {
			return p.Format(time.RFC3339)
		}
		return ""
	case KindOneToOneRelation:
		return optionalString(v.v.(*uint32), "")
	case KindNestedTable:
		var b strings.Builder
		for _, f := range v.v.([]id.Field) {
			fmt.Fprintf(&b, "'%s': %s", f.Name(), f.Value())
		}
		return b.String()
	case KindCustom:
		return "Custom"
	case KindSelect:
		if s, _ := v.v.(Selectable); s != nil {
			return s.String()
		}
		return ""
	case KindOptionalSelect:
		if s, _ := v.v.(Selectable); s != nil {
			return s.String()
		}
		return "NONE"
	case KindMultiselect:
		return joinSelectables(v.v.([]Selectable))
	case KindOptionalMultiselect:
		items := v.v.([]Selectable)
		if items == nil {
			return "NONE"
		}
		return joinSelectables(items)
	default:
		return ""
	}
}

// Equal reports whether v and other hold the same variant and payload.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case "":
		return true
	case KindJSON:
		return v.v.(JSONValue).Equal(other.v.(JSONValue))
	case KindOptionalJSON:
		a, b := v.v.(*JSONValue), other.v.(*JSONValue)
		if a == nil || b == nil {
			return a == b
		}
		return a.Equal(*b)
	case KindOptionalU32, KindOneToOneRelation:
		return ptrEqual(v.v.(*uint32), other.v.(*uint32))
	case KindOptionalI32:
		return ptrEqual(v.v.(*int32), other.v.(*int32))
	case KindOptionalI64:
		return ptrEqual(v.v.(*int64), other.v.(*int64))
	case KindPrimitiveDateTime, KindOffsetDateTime:
		return v.v.(time.Time).Equal(other.v.(time.Time))
	case KindOptionalPrimitiveDateTime, KindOptionalOffsetDateTime:
		a, b := v.v.(*time.Time), other.v.(*time.Time)
		if a == nil || b == nil {
			return a == b
		}
		return a.Equal(*b)
	case KindNestedTable:
		a, b := v.v.([]id.Field), other.v.([]id.Field)
		return id.ID(a).Serializable().Equal(id.ID(b).Serializable())
	case KindSelect, KindOptionalSelect:
		a, _ := v.v.(Selectable)
		b, _ := other.v.(Selectable)
		return selectableEqual(a, b)
	case KindMultiselect, KindOptionalMultiselect:
		a, b := v.v.([]Selectable), other.v.([]Selectable)
		if (a == nil) != (b == nil) || len(a) != len(b) {
			return false
		}
		for i := range a {
			if !selectableEqual(a[i], b[i]) {
				return false
			}
		}
		return true
	default:
		return v.v == other.v
	}
}

// DeepCopy returns a copy that shares no slices or documents with v. Views
// rely on it to keep working copies apart from server copies.
func (v Value) DeepCopy() Value {
	switch payload := v.v.(type) {
	case JSONValue:
		return Value{kind: v.kind, v: payload.DeepCopy()}
	case *JSONValue:
		if payload != nil {
			copied := payload.DeepCopy()
			return Value{kind: v.kind, v: &copied}
		}
	case []id.Field:
		return Value{kind: v.kind, v: append([]id.Field(nil), payload...)}
	case []Selectable:
		return Value{kind: v.kind, v: cloneSelectables(payload)}
	case Selectable:
		return Value{kind: v.kind, v: cloneSelectable(payload)}
	}
	return v
}

// JSONValue owns a JSON document together with its compact serialized form.
// Every mutation recomputes the string so the two never diverge.
type JSONValue struct {
	doc  any
	repr string
}

// NewJSONValue serializes doc once and keeps both forms.
func NewJSONValue(doc any) (JSONValue, error) {
	var j JSONValue
	if err := j.Set(doc); err != nil {
		return JSONValue{}, err
	}
	return j, nil
}

// ParseJSONValue builds a JSONValue from raw JSON text.
func ParseJSONValue(raw string) (JSONValue, error) {
	var j JSONValue
	if err := j.UnmarshalJSON([]byte(raw)); err != nil {
		return JSONValue{}, err
	}
	return j, nil
}

// Set replaces the document and recomputes the string form. On error j is
// left unchanged.
func (j *JSONValue) Set(doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("crudkit: json value: %w", err)
	}
	normalized, err := parseDoc(raw)
	if err != nil {
		return fmt.Errorf("crudkit: json value: %w", err)
	}
	j.doc = normalized
	j.repr = string(raw)
	return nil
}

// parseDoc decodes exactly one JSON document. Numbers stay json.Number so
// the document and its text agree on integers beyond 2^53.
func parseDoc(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after document")
	}
	return doc, nil
}

// Doc returns the structured document.
func (j JSONValue) Doc() any { return j.doc }

// String returns the cached serialized form. The zero JSONValue is "null".
func (j JSONValue) String() string {
	if j.repr == "" {
		return "null"
	}
	return j.repr
}

func (j JSONValue) Equal(other JSONValue) bool {
	return j.String() == other.String()
}

// DeepCopy returns a copy whose document shares nothing with j.
func (j JSONValue) DeepCopy() JSONValue {
	if j.repr == "" {
		return JSONValue{}
	}
	doc, err := parseDoc([]byte(j.repr))
	if err != nil {
		return j
	}
	return JSONValue{doc: doc, repr: j.repr}
}

func (j JSONValue) MarshalJSON() ([]byte, error) {
	return []byte(j.String()), nil
}

func (j *JSONValue) UnmarshalJSON(data []byte) error {
	doc, err := parseDoc(data)
	if err != nil {
		return fmt.Errorf("crudkit: json value: %w", err)
	}
	return j.Set(doc)
}

func primitive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func copyPtr[V any](p *V) *V {
	if p == nil {
		return nil
	}
	out := *p
	return &out
}

func ptrEqual[V comparable](a, b *V) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func optionalString[V uint32 | int32 | int64](p *V, none string) string {
	if p == nil {
		return none
	}
	return fmt.Sprint(*p)
}

func joinSelectables(items []Selectable) string {
	var b strings.Builder
	for _, item := range items {
		if item != nil {
			b.WriteString(item.String())
		}
	}
	return b.String()
}
