package crudkit

import (
	"context"
	"errors"
	"testing"
)

func TestOptionsSourceLifecycle(t *testing.T) {
	calls := 0
	fail := false
	source := NewOptionsSource(func(context.Context) ([]roleOption, error) {
		calls++
		if fail {
			return nil, errors.New("backend down")
		}
		return []roleOption{{Key: "admin"}, {Key: "viewer"}}, nil
	})

	if _, ok := source.Selectable(); ok {
		t.Fatalf("expected no options before the first load")
	}
	if err := source.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	options, ok := source.Selectable()
	if !ok || len(options) != 2 {
		t.Fatalf("expected two options, got %v (%v)", options, ok)
	}

	fail = true
	if err := source.Refresh(context.Background()); err == nil {
		t.Fatalf("expected refresh error")
	}
	if options, ok := source.Selectable(); !ok || len(options) != 2 {
		t.Fatalf("failed refresh must keep previous options, got %v", options)
	}
	if calls != 2 {
		t.Fatalf("expected two loader calls, got %d", calls)
	}

	options[0] = roleOption{Key: "mutated"}
	again, _ := source.Selectable()
	if again[0].Key != "admin" {
		t.Fatalf("source leaked its slice")
	}
}

func TestSelectableRegistry(t *testing.T) {
	registry := NewSelectableRegistry()
	roles := NewOptionsSource(func(context.Context) ([]roleOption, error) {
		return []roleOption{{Key: "admin"}}, nil
	})
	levels := NewOptionsSource(func(context.Context) ([]levelOption, error) {
		return nil, errors.New("no levels")
	})

	if err := registry.Register("role", roles); err != nil {
		t.Fatalf("register role: %v", err)
	}
	if err := registry.Register("level", levels); err != nil {
		t.Fatalf("register level: %v", err)
	}
	if err := registry.Register("role", roles); err == nil {
		t.Fatalf("expected duplicate registration error")
	}

	failures := registry.RefreshAll(context.Background())
	if len(failures) != 1 || failures["level"] == nil {
		t.Fatalf("expected only level to fail, got %v", failures)
	}

	options, ok := registry.Options("role")
	if !ok || len(options) != 1 {
		t.Fatalf("expected erased role options, got %v", options)
	}
	typed, err := DowncastSelectable[roleOption](options[0])
	if err != nil || typed.Key != "admin" {
		t.Fatalf("downcast: %+v, %v", typed, err)
	}
	if _, ok := registry.Options("level"); ok {
		t.Fatalf("level options must stay unloaded")
	}
	if _, ok := registry.Options("missing"); ok {
		t.Fatalf("unknown field must report no options")
	}
	if names := registry.Names(); len(names) != 2 || names[0] != "level" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestDowncastNil(t *testing.T) {
	if _, err := DowncastSelectable[roleOption](nil); !errors.Is(err, ErrDowncast) {
		t.Fatalf("expected downcast error for nil, got %v", err)
	}
}
