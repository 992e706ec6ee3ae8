package id

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestValueJSONRoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 4, 5, 6, 7, 890, time.FixedZone("X", -3*3600))
	values := []Value{
		String("key"),
		UUIDv4(uuid.MustParse("6f1c2d3e-4a5b-4c6d-8e7f-901234567890")),
		I32(-4),
		I64(1 << 50),
		U32(12),
		Bool(true),
		PrimitiveDateTime(at.UTC()),
		OffsetDateTime(at),
	}
	for _, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("%s: marshal: %v", v.Kind(), err)
		}
		var back Value
		if err := json.Unmarshal(raw, &back); err != nil {
			t.Fatalf("%s: unmarshal %s: %v", v.Kind(), raw, err)
		}
		if !back.Equal(v) {
			t.Errorf("%s: round trip gave %v from %s", v.Kind(), back, raw)
		}
	}
}

func TestValueJSONShape(t *testing.T) {
	raw, err := json.Marshal(U32(7))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"U32":7}` {
		t.Fatalf("unexpected encoding %s", raw)
	}

	var v Value
	if err := json.Unmarshal([]byte(`{"U32":1,"I32":2}`), &v); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected invalid value for two variants, got %v", err)
	}
	if err := json.Unmarshal([]byte(`{"F64":1}`), &v); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected invalid value for unknown variant, got %v", err)
	}
}

func TestSerializableID(t *testing.T) {
	rowID := ID{NewField("tenant", String("acme")), NewField("id", U32(7))}
	sid := rowID.Serializable()

	raw, err := json.Marshal(sid)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `[{"name":"tenant","value":{"String":"acme"}},{"name":"id","value":{"U32":7}}]` {
		t.Fatalf("unexpected encoding %s", raw)
	}
	var back SerializableID
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(sid) {
		t.Fatalf("expected %v, got %v", sid, back)
	}
	if back.ID().String() != "tenant=acme,id=7" {
		t.Fatalf("unexpected id string %q", back.ID().String())
	}
	if f, ok := back.ID().Get("id"); !ok || !f.Value().Equal(U32(7)) {
		t.Fatalf("expected id field, got %v", f)
	}
	if sid.Equal(SerializableID{sid[1], sid[0]}) {
		t.Fatalf("order must matter")
	}
}
