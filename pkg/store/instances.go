package store

import (
	"context"

	crudkit "github.com/goliatone/go-crudkit"
)

// Storage keys of the two process-wide stores.
const (
	InstanceStoreKey = "crud_instance_store"
	ViewsStoreKey    = "crud_instance_views_store"
)

// InstanceStore maps instance names to their dynamic configuration.
type InstanceStore = Store[crudkit.InstanceConfig]

// ViewsStore maps instance names to the view they show.
type ViewsStore = Store[crudkit.View]

func NewInstanceStore(ctx context.Context, storage Storage, opts ...Option[crudkit.InstanceConfig]) *InstanceStore {
	return New(ctx, storage, Ref{Area: AreaLocal, Key: InstanceStoreKey}, opts...)
}

func NewViewsStore(ctx context.Context, storage Storage, opts ...Option[crudkit.View]) *ViewsStore {
	return New(ctx, storage, Ref{Area: AreaLocal, Key: ViewsStoreKey}, opts...)
}

// ResolveInstance returns the persisted config of name layered over static.
// Without a persisted config the static one is returned as is.
func ResolveInstance(s *InstanceStore, name string, static crudkit.InstanceConfig) crudkit.InstanceConfig {
	dynamic, ok := s.Get(name)
	if !ok {
		return static
	}
	return dynamic.WithDefaults(static)
}
