package crudkit

import (
	"fmt"

	"github.com/goliatone/go-crudkit/pkg/id"
)

// ViewKind names the page an instance is showing.
type ViewKind string

const (
	ViewList   ViewKind = "List"
	ViewCreate ViewKind = "Create"
	ViewRead   ViewKind = "Read"
	ViewEdit   ViewKind = "Edit"
)

// View is the current page of an instance. Read and Edit carry the
// identifier of the row they show. The zero View is the list.
type View struct {
	Kind ViewKind          `json:"kind" yaml:"kind"`
	ID   id.SerializableID `json:"id,omitempty" yaml:"-"`
}

// SimpleView is a View without its identifier.
type SimpleView = ViewKind

func ListView() View { return View{Kind: ViewList} }
func CreateView() View { return View{Kind: ViewCreate} }

func ReadViewOf(rowID id.ID) View {
	return View{Kind: ViewRead, ID: rowID.Serializable()}
}

func EditViewOf(rowID id.ID) View {
	return View{Kind: ViewEdit, ID: rowID.Serializable()}
}

// Simple drops the identifier.
func (v View) Simple() SimpleView {
	if v.Kind == "" {
		return ViewList
	}
	return v.Kind
}

func (v View) Equal(other View) bool {
	return v.Simple() == other.Simple() && v.ID.Equal(other.ID)
}

func (v View) Validate() error {
	switch v.Simple() {
	case ViewList, ViewCreate:
		if len(v.ID) > 0 {
			return fmt.Errorf("crudkit: %s view must not carry an id", v.Kind)
		}
	case ViewRead, ViewEdit:
		if len(v.ID) == 0 {
			return fmt.Errorf("crudkit: %s view requires an id", v.Kind)
		}
	default:
		return fmt.Errorf("crudkit: unknown view kind %q", v.Kind)
	}
	return nil
}

func (v View) String() string {
	if len(v.ID) == 0 {
		return string(v.Simple())
	}
	return fmt.Sprintf("%s(%s)", v.Simple(), v.ID.ID())
}
