package crudkit

import (
	"strconv"
	"time"

	"github.com/goliatone/go-crudkit/pkg/id"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Target names a native type a Value can be narrowed to.
type Target string

const (
	TargetString                    Target = "string"
	TargetText                      Target = "text"
	TargetJSON                      Target = "json"
	TargetOptionalJSON              Target = "optional json"
	TargetUUIDv4                    Target = "uuid v4"
	TargetUUIDv7                    Target = "uuid v7"
	TargetU32                       Target = "u32"
	TargetU32OrParse                Target = "u32 or parse"
	TargetOptionalU32               Target = "optional u32"
	TargetI32                       Target = "i32"
	TargetI64                       Target = "i64"
	TargetOptionalI32               Target = "optional i32"
	TargetOptionalI64               Target = "optional i64"
	TargetF32                       Target = "f32"
	TargetBool                      Target = "bool"
	TargetBoolOrParse               Target = "bool or parse"
	TargetValidationStatus          Target = "validation status"
	TargetPrimitiveDateTime         Target = "primitive datetime"
	TargetOffsetDateTime            Target = "offset datetime"
	TargetOptionalPrimitiveDateTime Target = "optional primitive datetime"
	TargetOptionalOffsetDateTime    Target = "optional offset datetime"
	TargetOneToOneRelation          Target = "one-to-one relation"
	TargetNestedTable               Target = "nested table"
	TargetCustom                    Target = "custom"
	TargetSelect                    Target = "select"
	TargetOptionalSelect            Target = "optional select"
	TargetMultiselect               Target = "multiselect"
	TargetOptionalMultiselect       Target = "optional multiselect"
)

// coercions lists, per target, every variant it accepts. The first entry is
// the exact variant; any further entry is a deliberate cross-variant
// coercion. Keep this list and the Take methods in step.
var coercions = map[Target][]Kind{
	TargetString:                    {KindString},
	TargetText:                      {KindText},
	TargetJSON:                      {KindJSON},
	TargetOptionalJSON:              {KindOptionalJSON},
	TargetUUIDv4:                    {KindUUIDv4},
	TargetUUIDv7:                    {KindUUIDv7},
	TargetU32:                       {KindU32},
	TargetU32OrParse:                {KindU32, KindString},
	TargetOptionalU32:               {KindOptionalU32},
	TargetI32:                       {KindI32, KindU32},
	TargetI64:                       {KindI64},
	TargetOptionalI32:               {KindI32, KindOptionalI32, KindString},
	TargetOptionalI64:               {KindI64, KindOptionalI64, KindString},
	TargetF32:                       {KindF32},
	TargetBool:                      {KindBool},
	TargetBoolOrParse:               {KindBool, KindString},
	TargetValidationStatus:          {KindValidationStatus},
	TargetPrimitiveDateTime:         {KindPrimitiveDateTime, KindString},
	TargetOffsetDateTime:            {KindOffsetDateTime, KindString},
	TargetOptionalPrimitiveDateTime: {KindPrimitiveDateTime, KindOptionalPrimitiveDateTime, KindString},
	TargetOptionalOffsetDateTime:    {KindOffsetDateTime, KindOptionalOffsetDateTime, KindString},
	TargetOneToOneRelation:          {KindU32, KindOptionalU32, KindOneToOneRelation},
	TargetNestedTable:               {KindNestedTable},
	TargetCustom:                    {KindCustom},
	TargetSelect:                    {KindSelect},
	TargetOptionalSelect:            {KindOptionalSelect},
	TargetMultiselect:               {KindMultiselect},
	TargetOptionalMultiselect:       {KindOptionalMultiselect},
}

// Coercions returns a copy of the accepted variants per narrowing target.
func Coercions() map[Target][]Kind {
	out := make(map[Target][]Kind, len(coercions))
	for target, kinds := range coercions {
		out[target] = append([]Kind(nil), kinds...)
	}
	return out
}

// Accepts reports whether narrowing to target is legal for kind.
func Accepts(target Target, kind Kind) bool {
	for _, accepted := range coercions[target] {
		if accepted == kind {
			return true
		}
	}
	return false
}

func (v Value) expect(target Target) error {
	if Accepts(target, v.kind) {
		return nil
	}
	return &TypeMismatchError{Target: target, Got: v.kind, Accepts: append([]Kind(nil), coercions[target]...)}
}

func (v Value) TakeString() (string, error) {
	if err := v.expect(TargetString); err != nil {
		return "", err
	}
	return v.v.(string), nil
}

func (v Value) TakeText() (string, error) {
	if err := v.expect(TargetText); err != nil {
		return "", err
	}
	return v.v.(string), nil
}

func (v Value) TakeJSON() (JSONValue, error) {
	if err := v.expect(TargetJSON); err != nil {
		return JSONValue{}, err
	}
	return v.v.(JSONValue), nil
}

// TakeInnerJSON returns the structured document of a Json value.
func (v Value) TakeInnerJSON() (any, error) {
	j, err := v.TakeJSON()
	if err != nil {
		return nil, err
	}
	return j.Doc(), nil
}

func (v Value) TakeOptionalJSON() (*JSONValue, error) {
	if err := v.expect(TargetOptionalJSON); err != nil {
		return nil, err
	}
	return copyPtr(v.v.(*JSONValue)), nil
}

func (v Value) TakeUUIDv4() (uuid.UUID, error) {
	if err := v.expect(TargetUUIDv4); err != nil {
		return uuid.Nil, err
	}
	return v.v.(uuid.UUID), nil
}

func (v Value) TakeUUIDv7() (uuid.UUID, error) {
	if err := v.expect(TargetUUIDv7); err != nil {
		return uuid.Nil, err
	}
	return v.v.(uuid.UUID), nil
}

func (v Value) TakeU32() (uint32, error) {
	if err := v.expect(TargetU32); err != nil {
		return 0, err
	}
	return v.v.(uint32), nil
}

// TakeU32OrParse also accepts a String holding a decimal u32.
func (v Value) TakeU32OrParse() (uint32, error) {
	if err := v.expect(TargetU32OrParse); err != nil {
		return 0, err
	}
	if v.kind == KindString {
		n, err := strconv.ParseUint(v.v.(string), 10, 32)
		if err != nil {
			return 0, &ParseError{Target: TargetU32OrParse, Input: v.v.(string), Err: err}
		}
		return uint32(n), nil
	}
	return v.v.(uint32), nil
}

func (v Value) TakeOptionalU32() (*uint32, error) {
	if err := v.expect(TargetOptionalU32); err != nil {
		return nil, err
	}
	return copyPtr(v.v.(*uint32)), nil
}

// TakeI32 also accepts a U32, converted with a plain int32 cast. Values above
// math.MaxInt32 wrap.
func (v Value) TakeI32() (int32, error) {
	if err := v.expect(TargetI32); err != nil {
		return 0, err
	}
	if v.kind == KindU32 {
		return int32(v.v.(uint32)), nil
	}
	return v.v.(int32), nil
}

func (v Value) TakeI64() (int64, error) {
	if err := v.expect(TargetI64); err != nil {
		return 0, err
	}
	return v.v.(int64), nil
}

// TakeOptionalI32 accepts I32, OptionalI32 and String. A string that does not
// parse yields nil and a warning, not an error.
func (v Value) TakeOptionalI32() (*int32, error) {
	if err := v.expect(TargetOptionalI32); err != nil {
		return nil, err
	}
	switch v.kind {
	case KindI32:
		n := v.v.(int32)
		return &n, nil
	case KindString:
		n, err := strconv.ParseInt(v.v.(string), 10, 32)
		if err != nil {
			log.Warn().Err(err).Str("input", v.v.(string)).Msg("take optional i32: could not parse string")
			return nil, nil
		}
		out := int32(n)
		return &out, nil
	default:
		return copyPtr(v.v.(*int32)), nil
	}
}

// TakeOptionalI64 follows the same rules as TakeOptionalI32.
func (v Value) TakeOptionalI64() (*int64, error) {
	if err := v.expect(TargetOptionalI64); err != nil {
		return nil, err
	}
	switch v.kind {
	case KindI64:
		n := v.v.(int64)
		return &n, nil
	case KindString:
		n, err := strconv.ParseInt(v.v.(string), 10, 64)
		if err != nil {
			log.Warn().Err(err).Str("input", v.v.(string)).Msg("take optional i64: could not parse string")
			return nil, nil
		}
		return &n, nil
	default:
		return copyPtr(v.v.(*int64)), nil
	}
}

func (v Value) TakeF32() (float32, error) {
	if err := v.expect(TargetF32); err != nil {
		return 0, err
	}
	return v.v.(float32), nil
}

func (v Value) TakeBool() (bool, error) {
	if err := v.expect(TargetBool); err != nil {
		return false, err
	}
	return v.v.(bool), nil
}

// TakeBoolOrParse also accepts the strings "true" and "false".
func (v Value) TakeBoolOrParse() (bool, error) {
	if err := v.expect(TargetBoolOrParse); err != nil {
		return false, err
	}
	if v.kind != KindString {
		return v.v.(bool), nil
	}
	switch s := v.v.(string); s {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, &ParseError{Target: TargetBoolOrParse, Input: s, Err: strconv.ErrSyntax}
	}
}

func (v Value) TakeValidationStatus() (bool, error) {
	if err := v.expect(TargetValidationStatus); err != nil {
		return false, err
	}
	return v.v.(bool), nil
}

// TakePrimitiveDateTime also accepts an RFC 3339 string. The offset of a
// parsed string is dropped and the wall clock kept.
func (v Value) TakePrimitiveDateTime() (time.Time, error) {
	if err := v.expect(TargetPrimitiveDateTime); err != nil {
		return time.Time{}, err
	}
	if v.kind == KindString {
		t, err := parseRFC3339(TargetPrimitiveDateTime, v.v.(string))
		if err != nil {
			return time.Time{}, err
		}
		return primitive(t), nil
	}
	return v.v.(time.Time), nil
}

// TakeOffsetDateTime also accepts an RFC 3339 string.
func (v Value) TakeOffsetDateTime() (time.Time, error) {
	if err := v.expect(TargetOffsetDateTime); err != nil {
		return time.Time{}, err
	}
	if v.kind == KindString {
		return parseRFC3339(TargetOffsetDateTime, v.v.(string))
	}
	return v.v.(time.Time), nil
}

func (v Value) TakeOptionalPrimitiveDateTime() (*time.Time, error) {
	if err := v.expect(TargetOptionalPrimitiveDateTime); err != nil {
		return nil, err
	}
	switch v.kind {
	case KindPrimitiveDateTime:
		t := v.v.(time.Time)
		return &t, nil
	case KindString:
		t, err := parseRFC3339(TargetOptionalPrimitiveDateTime, v.v.(string))
		if err != nil {
			return nil, err
		}
		t = primitive(t)
		return &t, nil
	default:
		return copyPtr(v.v.(*time.Time)), nil
	}
}

func (v Value) TakeOptionalOffsetDateTime() (*time.Time, error) {
	if err := v.expect(TargetOptionalOffsetDateTime); err != nil {
		return nil, err
	}
	switch v.kind {
	case KindOffsetDateTime:
		t := v.v.(time.Time)
		return &t, nil
	case KindString:
		t, err := parseRFC3339(TargetOptionalOffsetDateTime, v.v.(string))
		if err != nil {
			return nil, err
		}
		return &t, nil
	default:
		return copyPtr(v.v.(*time.Time)), nil
	}
}

// TakeOneToOneRelation accepts U32, OptionalU32 and OneToOneRelation.
func (v Value) TakeOneToOneRelation() (*uint32, error) {
	if err := v.expect(TargetOneToOneRelation); err != nil {
		return nil, err
	}
	if v.kind == KindU32 {
		n := v.v.(uint32)
		return &n, nil
	}
	return copyPtr(v.v.(*uint32)), nil
}

func (v Value) TakeNestedTable() ([]id.Field, error) {
	if err := v.expect(TargetNestedTable); err != nil {
		return nil, err
	}
	return append([]id.Field(nil), v.v.([]id.Field)...), nil
}

func (v Value) TakeCustom() error {
	return v.expect(TargetCustom)
}

func (v Value) TakeSelect() (Selectable, error) {
	if err := v.expect(TargetSelect); err != nil {
		return nil, err
	}
	s, _ := v.v.(Selectable)
	return cloneSelectable(s), nil
}

// TakeOptionalSelect returns nil for an absent selection.
func (v Value) TakeOptionalSelect() (Selectable, error) {
	if err := v.expect(TargetOptionalSelect); err != nil {
		return nil, err
	}
	s, _ := v.v.(Selectable)
	return cloneSelectable(s), nil
}

func (v Value) TakeMultiselect() ([]Selectable, error) {
	if err := v.expect(TargetMultiselect); err != nil {
		return nil, err
	}
	return cloneSelectables(v.v.([]Selectable)), nil
}

// TakeOptionalMultiselect returns a nil slice for an absent selection.
func (v Value) TakeOptionalMultiselect() ([]Selectable, error) {
	if err := v.expect(TargetOptionalMultiselect); err != nil {
		return nil, err
	}
	return cloneSelectables(v.v.([]Selectable)), nil
}

// TakeSelectAs narrows a Select value to the option type S.
func TakeSelectAs[S Selectable](v Value) (S, error) {
	var zero S
	selected, err := v.TakeSelect()
	if err != nil {
		return zero, err
	}
	return DowncastSelectable[S](selected)
}

// TakeOptionalSelectAs narrows an OptionalSelect value; nil means absent.
func TakeOptionalSelectAs[S Selectable](v Value) (*S, error) {
	selected, err := v.TakeOptionalSelect()
	if err != nil || selected == nil {
		return nil, err
	}
	typed, err := DowncastSelectable[S](selected)
	if err != nil {
		return nil, err
	}
	return &typed, nil
}

func TakeMultiselectAs[S Selectable](v Value) ([]S, error) {
	selected, err := v.TakeMultiselect()
	if err != nil {
		return nil, err
	}
	return downcastAll[S](selected)
}

// TakeOptionalMultiselectAs returns ok=false for an absent selection.
func TakeOptionalMultiselectAs[S Selectable](v Value) ([]S, bool, error) {
	selected, err := v.TakeOptionalMultiselect()
	if err != nil {
		return nil, false, err
	}
	if selected == nil {
		return nil, false, nil
	}
	typed, err := downcastAll[S](selected)
	if err != nil {
		return nil, false, err
	}
	return typed, true, nil
}

func downcastAll[S Selectable](items []Selectable) ([]S, error) {
	out := make([]S, 0, len(items))
	for _, item := range items {
		typed, err := DowncastSelectable[S](item)
		if err != nil {
			return nil, err
		}
		out = append(out, typed)
	}
	return out, nil
}

func parseRFC3339(target Target, input string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return time.Time{}, &ParseError{Target: target, Input: input, Err: err}
	}
	return t, nil
}
