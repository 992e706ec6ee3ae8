package crudkit

import (
	"errors"
	"testing"
)

func TestDescribeFields(t *testing.T) {
	elems := []Elem{
		FieldElement("name", FieldOptions{Label: NewLabel("Full name"), Rule: `value != ""`}),
		FieldElement("id", FieldOptions{Disabled: true}),
		FieldElement("name", FieldOptions{}),
	}
	got, err := DescribeFields(personFieldSet(), elems)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if len(got) != len(personFieldSet().Fields()) {
		t.Fatalf("expected every declared field once, got %d", len(got))
	}
	if got[0].Name != "name" || got[0].Label != "Full name" || got[0].Kind != KindString || !got[0].Placed {
		t.Fatalf("unexpected first descriptor %+v", got[0])
	}
	if got[1].Name != "id" || !got[1].Disabled {
		t.Fatalf("unexpected second descriptor %+v", got[1])
	}
	if got[2].Name != "bio" || got[2].Placed {
		t.Fatalf("expected unplaced fields in declaration order, got %+v", got[2])
	}

	if _, err := DescribeFields(personFieldSet(), []Elem{FieldElement("x", FieldOptions{})}); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected unknown field, got %v", err)
	}
}
