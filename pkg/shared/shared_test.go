package shared

import (
	"encoding/json"
	"testing"
)

func TestValueJSON(t *testing.T) {
	cases := []struct {
		in   Value
		want string
	}{
		{String("a"), `{"String":"a"}`},
		{I32Vec([]int32{1, 2}), `{"I32Vec":[1,2]}`},
		{JSON(map[string]any{"k": 1.0}), `{"Json":{"k":1}}`},
		{Value{}, `null`},
	}
	for _, tc := range cases {
		raw, err := json.Marshal(tc.in)
		if err != nil {
			t.Fatalf("marshal %v: %v", tc.in, err)
		}
		if string(raw) != tc.want {
			t.Errorf("expected %s, got %s", tc.want, raw)
		}
		var back Value
		if err := json.Unmarshal(raw, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if back.Kind() != tc.in.Kind() || back.String() != tc.in.String() {
			t.Errorf("round trip of %s gave %v", raw, back)
		}
	}
}

func TestI32VecCopies(t *testing.T) {
	src := []int32{1, 2}
	v := I32Vec(src)
	src[0] = 9
	if v.String() != "[1,2]" {
		t.Fatalf("vector aliased caller slice: %s", v.String())
	}
}
