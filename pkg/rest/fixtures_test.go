package rest_test

import (
	"testing"

	crudkit "github.com/goliatone/go-crudkit"
	"github.com/goliatone/go-crudkit/pkg/rest"
)

type person struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
	Age  int32  `json:"age"`
}

var personFields = crudkit.MustFieldSet[person]("people",
	crudkit.U32Field[person]("id", func(p *person) *uint32 { return &p.ID }),
	crudkit.StringField[person]("name", func(p *person) *string { return &p.Name }),
	crudkit.I32Field[person]("age", func(p *person) *int32 { return &p.Age }),
)

var personModel = crudkit.ModelDef[person]{Resource: "people", IDField: "id", FieldSet: personFields}

func seededPeople(t *testing.T, opts ...rest.Option[person]) *rest.MemoryProvider[person] {
	t.Helper()
	provider := rest.NewMemoryProvider[person](personModel, opts...)
	provider.Seed(
		person{ID: 1, Name: "Ada", Age: 36},
		person{ID: 2, Name: "Grace", Age: 85},
		person{ID: 7, Name: "Alan", Age: 41},
	)
	return provider
}

func ageValidator(t *testing.T) *crudkit.Validator[person] {
	t.Helper()
	validator, err := crudkit.NewValidator("people", personFields, []crudkit.Elem{
		crudkit.FieldElement("age", crudkit.FieldOptions{Rule: `value >= 0 ? "" : "age must not be negative"`}),
	})
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	return validator
}

func u64(v uint64) *uint64 { return &v }
