// Package rest is the data provider contract the CRUD views talk to, with a
// JSON over HTTP implementation and an in-memory one.
package rest

import (
	"context"

	crudkit "github.com/goliatone/go-crudkit"
	"github.com/goliatone/go-crudkit/pkg/condition"
	"github.com/goliatone/go-crudkit/pkg/id"
)

// Operation names, also used as endpoint paths below the resource.
const (
	OpReadCount  = "read-count"
	OpReadMany   = "read-many"
	OpReadOne    = "read-one"
	OpCreateOne  = "create-one"
	OpUpdateOne  = "update-one"
	OpDeleteByID = "delete-by-id"
)

type ReadCount struct {
	Condition *condition.Condition `json:"condition,omitempty"`
}

type ReadMany struct {
	Limit     *uint64              `json:"limit,omitempty"`
	Skip      *uint64              `json:"skip,omitempty"`
	OrderBy   []crudkit.OrderBy    `json:"order_by,omitempty"`
	Condition *condition.Condition `json:"condition,omitempty"`
}

type ReadOne struct {
	Skip      *uint64              `json:"skip,omitempty"`
	OrderBy   []crudkit.OrderBy    `json:"order_by,omitempty"`
	Condition *condition.Condition `json:"condition,omitempty"`
}

type CreateOne[T any] struct {
	Entity T `json:"entity"`
}

type UpdateOne[T any] struct {
	Entity    T                    `json:"entity"`
	Condition *condition.Condition `json:"condition,omitempty"`
}

type DeleteByID struct {
	ID id.SerializableID `json:"id"`
}

// SaveResult is what the backend answers to a create or update. A result
// with violations means the backend refused the entity; Entity then echoes
// what was sent.
type SaveResult[T any] struct {
	Entity     T                   `json:"entity"`
	Violations []crudkit.Violation `json:"violations,omitempty"`
}

// Saved reports whether the backend accepted the entity.
func (r SaveResult[T]) Saved() bool { return len(r.Violations) == 0 }

// DeleteResult reports how many rows a delete removed. Aborted carries the
// reason when the backend refused.
type DeleteResult struct {
	Deleted uint64 `json:"deleted"`
	Aborted string `json:"aborted,omitempty"`
}

// DataProvider is the backend of one resource. Single-row reads return nil
// without error when no row matches.
type DataProvider[T any] interface {
	ReadCount(ctx context.Context, req ReadCount) (uint64, error)
	ReadMany(ctx context.Context, req ReadMany) ([]T, error)
	ReadOne(ctx context.Context, req ReadOne) (*T, error)
	CreateOne(ctx context.Context, req CreateOne[T]) (*SaveResult[T], error)
	UpdateOne(ctx context.Context, req UpdateOne[T]) (*SaveResult[T], error)
	DeleteByID(ctx context.Context, req DeleteByID) (DeleteResult, error)
}

// ReadByID reads the row whose identifier field equals rowID.
func ReadByID[T any](ctx context.Context, provider DataProvider[T], model crudkit.Model[T], rowID uint32) (*T, error) {
	cond := crudkit.ByID(model, rowID)
	return provider.ReadOne(ctx, ReadOne{Condition: &cond})
}

// UpdateByID updates the row whose identifier field equals rowID.
func UpdateByID[T any](ctx context.Context, provider DataProvider[T], model crudkit.Model[T], rowID uint32, entity T) (*SaveResult[T], error) {
	cond := crudkit.ByID(model, rowID)
	return provider.UpdateOne(ctx, UpdateOne[T]{Entity: entity, Condition: &cond})
}
