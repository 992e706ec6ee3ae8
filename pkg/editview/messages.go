package editview

import (
	crudkit "github.com/goliatone/go-crudkit"
	"github.com/goliatone/go-crudkit/pkg/rest"
)

// Then is the navigation performed after a successful save.
type Then int

const (
	ThenStay Then = iota
	ThenList
	ThenCreate
)

func (t Then) String() string {
	switch t {
	case ThenList:
		return "list"
	case ThenCreate:
		return "create"
	default:
		return "stay"
	}
}

// Msg is a message handled by an edit view.
type Msg interface{ editMsg() }

// Back asks to leave for the list. With unsaved changes the view asks for
// confirmation instead.
type Back struct{}

// BackCanceled dismisses the leave confirmation.
type BackCanceled struct{}

// BackApproved confirms leaving despite unsaved changes.
type BackApproved struct{}

type Save struct{}
type SaveAndReturn struct{}
type SaveAndNew struct{}

// Delete hands the loaded entity to the delete flow.
type Delete struct{}

// Reload reads the entity again.
type Reload struct{}

// ValueChanged writes one field of the working copy.
type ValueChanged struct {
	Field string
	Value crudkit.Value
}

// GetInput reads one field of the working copy. Reply is called outside the
// view's lock and may call back into the view.
type GetInput struct {
	Field string
	Reply func(crudkit.Value, error)
}

// LoadedEntity carries the answer to a read.
type LoadedEntity[T any] struct {
	Entity *T
	Err    error
	seq    uint64
}

// UpdatedEntity carries the answer to a save.
type UpdatedEntity[T any] struct {
	Result *rest.SaveResult[T]
	Err    error
	Then   Then
	seq    uint64
	gen    uint64
}

func (Back) editMsg()             {}
func (BackCanceled) editMsg()     {}
func (BackApproved) editMsg()     {}
func (Save) editMsg()             {}
func (SaveAndReturn) editMsg()    {}
func (SaveAndNew) editMsg()       {}
func (Delete) editMsg()           {}
func (Reload) editMsg()           {}
func (ValueChanged) editMsg()     {}
func (GetInput) editMsg()         {}
func (LoadedEntity[T]) editMsg()  {}
func (UpdatedEntity[T]) editMsg() {}
