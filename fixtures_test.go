package crudkit

import "time"

type roleOption = SelectOption[string]

type levelOption = SelectOption[int]

type person struct {
	ID      uint32
	Name    string
	Bio     string
	Age     int32
	Score   *int64
	Manager *uint32
	Born    time.Time
	Active  bool
	Role    roleOption
	Tags    []roleOption
	Backup  *roleOption
}

func personFieldSet() *FieldSet[person] {
	return MustFieldSet[person]("people",
		U32Field("id", func(p *person) *uint32 { return &p.ID }),
		StringField("name", func(p *person) *string { return &p.Name }),
		TextField("bio", func(p *person) *string { return &p.Bio }),
		I32Field("age", func(p *person) *int32 { return &p.Age }),
		OptionalI64Field("score", func(p *person) **int64 { return &p.Score }),
		OneToOneRelationField("manager", func(p *person) **uint32 { return &p.Manager }),
		OffsetDateTimeField("born", func(p *person) *time.Time { return &p.Born }),
		BoolField("active", func(p *person) *bool { return &p.Active }),
		SelectField[person, roleOption]("role", func(p *person) *roleOption { return &p.Role }),
		MultiselectField[person, roleOption]("tags", func(p *person) *[]roleOption { return &p.Tags }),
		OptionalSelectField[person, roleOption]("backup", func(p *person) **roleOption { return &p.Backup }),
	)
}

func ada() person {
	return person{
		ID:     7,
		Name:   "Ada",
		Age:    36,
		Born:   time.Date(1815, 12, 10, 0, 0, 0, 0, time.UTC),
		Active: true,
		Role:   roleOption{Key: "admin", Label: "Admin"},
	}
}

func ptr[V any](v V) *V { return &v }
