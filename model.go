package crudkit

import (
	"fmt"

	"github.com/goliatone/go-crudkit/pkg/condition"
	"github.com/goliatone/go-crudkit/pkg/id"
)

// Model is what an entity type supplies to take part in the generic CRUD
// runtime: the backend resource name, the name of its identifier field and
// its field accessors.
type Model[T any] interface {
	ResourceName() string
	IDFieldName() string
	Fields() *FieldSet[T]
}

// ModelDef is a plain Model implementation.
type ModelDef[T any] struct {
	Resource string
	IDField  string
	FieldSet *FieldSet[T]
}

func (m ModelDef[T]) ResourceName() string { return m.Resource }
func (m ModelDef[T]) IDFieldName() string { return m.IDField }
func (m ModelDef[T]) Fields() *FieldSet[T] { return m.FieldSet }

// Validate checks that the identifier field is declared.
func (m ModelDef[T]) Validate() error {
	if m.Resource == "" {
		return fmt.Errorf("crudkit: model resource name is required")
	}
	if m.FieldSet == nil {
		return fmt.Errorf("crudkit: model %q has no fields", m.Resource)
	}
	if _, err := m.FieldSet.Lookup(m.IDField); err != nil {
		return fmt.Errorf("crudkit: model %q identifier: %w", m.Resource, err)
	}
	return nil
}

// EntityID extracts the identifier of entity through its id field.
func EntityID[T any](model Model[T], entity *T) (id.ID, error) {
	f, err := model.Fields().Lookup(model.IDFieldName())
	if err != nil {
		return nil, err
	}
	value, err := f.Get(entity).ToIDValue()
	if err != nil {
		return nil, &FieldError{Field: f.Name(), Err: err}
	}
	return id.ID{id.NewField(f.Name(), value)}, nil
}

// ByID builds the condition matching the row whose identifier field equals
// the numeric route id.
func ByID[T any](model Model[T], rowID uint32) condition.Condition {
	return condition.AllOf(condition.Eq(model.IDFieldName(), condition.U32Value(rowID)))
}

// BySerializableID builds the condition matching every component of sid.
func BySerializableID(sid id.SerializableID) (condition.Condition, error) {
	clauses := make([]condition.Clause, 0, len(sid))
	for _, entry := range sid {
		value, err := FromID(entry.Value).ToClauseValue()
		if err != nil {
			return condition.Condition{}, &FieldError{Field: entry.Name, Err: err}
		}
		clauses = append(clauses, condition.Eq(entry.Name, value))
	}
	return condition.AllOf(clauses...), nil
}
