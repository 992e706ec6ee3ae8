package crudkit

import (
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-crudkit/pkg/condition"
	"github.com/goliatone/go-crudkit/pkg/id"
	"github.com/goliatone/go-crudkit/pkg/shared"
)

func TestToClauseValue(t *testing.T) {
	got, err := TextValue("notes").ToClauseValue()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(condition.StringValue("notes")) {
		t.Fatalf("text must map to a string clause value, got %v", got)
	}

	got, err = U32Value(7).ToClauseValue()
	if err != nil || !got.Equal(condition.U32Value(7)) {
		t.Fatalf("unexpected clause value %v, %v", got, err)
	}

	for _, v := range []Value{
		OptionalU32Value(nil),
		OffsetDateTimeValue(time.Now()),
		SelectValue(roleOption{Key: "a"}),
		CustomValue(),
		Value{},
	} {
		if _, err := v.ToClauseValue(); !errors.Is(err, ErrUnsupportedConversion) {
			t.Errorf("%s: expected unsupported conversion, got %v", v.Kind(), err)
		}
	}
}

func TestIDValueRoundTrip(t *testing.T) {
	at := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	for _, v := range []Value{
		StringValue("key"),
		UUIDv4Value(sampleUUID),
		I32Value(-1),
		I64Value(1 << 40),
		U32Value(3),
		BoolValue(true),
		PrimitiveDateTimeValue(at),
		OffsetDateTimeValue(at),
	} {
		idValue, err := v.ToIDValue()
		if err != nil {
			t.Fatalf("%s: unexpected error %v", v.Kind(), err)
		}
		if back := FromID(idValue); !back.Equal(v) {
			t.Errorf("%s: round trip gave %v", v.Kind(), back)
		}
	}
	if _, err := F32Value(1).ToIDValue(); !errors.Is(err, ErrUnsupportedConversion) {
		t.Fatalf("f32 has no identifier form, got %v", err)
	}
}

func TestFromShared(t *testing.T) {
	got, err := FromShared(shared.I64(9))
	if err != nil || !got.Equal(I64Value(9)) {
		t.Fatalf("unexpected conversion %v, %v", got, err)
	}
	doc, err := FromShared(shared.JSON(map[string]any{"k": "v"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.String() != `{"k":"v"}` {
		t.Fatalf("unexpected json %s", doc.String())
	}
	if _, err := FromShared(shared.I32Vec([]int32{1, 2})); !errors.Is(err, ErrUnsupportedConversion) {
		t.Fatalf("vectors must fail loudly, got %v", err)
	}
}

func TestModelIdentifiers(t *testing.T) {
	model := ModelDef[person]{Resource: "people", IDField: "id", FieldSet: personFieldSet()}
	if err := model.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	entity := ada()
	rowID, err := EntityID[person](model, &entity)
	if err != nil {
		t.Fatalf("entity id: %v", err)
	}
	if rowID.String() == "" {
		t.Fatalf("expected printable id")
	}
	f, ok := rowID.Get("id")
	if !ok || !f.Value().Equal(id.U32(7)) {
		t.Fatalf("unexpected id %v", rowID)
	}

	cond, err := BySerializableID(rowID.Serializable())
	if err != nil {
		t.Fatalf("by serializable id: %v", err)
	}
	direct := ByID[person](model, 7)
	if cond.String() != direct.String() {
		t.Fatalf("expected %s, got %s", direct, cond)
	}

	broken := ModelDef[person]{Resource: "people", IDField: "uuid", FieldSet: personFieldSet()}
	if err := broken.Validate(); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected unknown id field, got %v", err)
	}
}
