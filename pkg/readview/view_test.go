package readview_test

import (
	"context"
	"errors"
	"testing"

	crudkit "github.com/goliatone/go-crudkit"
	"github.com/goliatone/go-crudkit/internal/loop"
	"github.com/goliatone/go-crudkit/pkg/readview"
	"github.com/goliatone/go-crudkit/pkg/rest"
)

type person struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
}

var personModel = crudkit.ModelDef[person]{
	Resource: "people",
	IDField:  "id",
	FieldSet: crudkit.MustFieldSet[person]("people",
		crudkit.U32Field[person]("id", func(p *person) *uint32 { return &p.ID }),
		crudkit.StringField[person]("name", func(p *person) *string { return &p.Name }),
	),
}

type reader struct {
	rest.DataProvider[person]
	read func() (*person, error)
}

func (r reader) ReadOne(context.Context, rest.ReadOne) (*person, error) { return r.read() }

func TestReadViewLoads(t *testing.T) {
	provider := rest.NewMemoryProvider[person](personModel)
	provider.Seed(person{ID: 7, Name: "Ada"})

	var changes []readview.State[person]
	view := readview.New[person](personModel, provider, 7, readview.Callbacks[person]{
		OnChange: func(s readview.State[person]) { changes = append(changes, s) },
	}, readview.WithRunner(loop.Inline))
	defer view.Close()

	state := view.State()
	if state.Phase != readview.Loaded || state.Entity == nil || state.Entity.Name != "Ada" {
		t.Fatalf("expected loaded Ada, got %+v", state)
	}
	if len(changes) != 1 {
		t.Fatalf("expected one change notification, got %d", len(changes))
	}
}

func TestReadViewFailures(t *testing.T) {
	cases := []struct {
		name   string
		read   func() (*person, error)
		reason crudkit.NoDataReason
	}{
		{name: "absent", read: func() (*person, error) { return nil, nil }, reason: crudkit.FetchReturnedNothing},
		{name: "404", read: func() (*person, error) {
			return nil, &rest.RequestError{Kind: rest.KindStatus, Status: 404}
		}, reason: crudkit.FetchReturnedNothing},
		{name: "network", read: func() (*person, error) { return nil, errors.New("refused") }, reason: crudkit.FetchFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			view := readview.New[person](personModel, reader{read: tc.read}, 7, readview.Callbacks[person]{}, readview.WithRunner(loop.Inline))
			defer view.Close()
			state := view.State()
			if state.Phase != readview.Failed || state.NoData == nil || state.NoData.Reason != tc.reason {
				t.Fatalf("expected failed with %s, got %+v", tc.reason, state)
			}
		})
	}
}

func TestReadViewBackNavigatesAtOnce(t *testing.T) {
	lists := 0
	var tasks []func()
	view := readview.New[person](personModel, reader{read: func() (*person, error) { return nil, nil }}, 7,
		readview.Callbacks[person]{OnList: func() { lists++ }},
		readview.WithRunner(func(task func()) { tasks = append(tasks, task) }))
	defer view.Close()

	if view.State().Phase != readview.Loading {
		t.Fatalf("expected loading before the read returns")
	}
	view.Send(readview.Back{})
	if lists != 1 {
		t.Fatalf("expected navigation while loading, got %d", lists)
	}
}

func TestReadViewReloadDiscardsStale(t *testing.T) {
	var tasks []func()
	calls := 0
	provider := reader{read: func() (*person, error) {
		calls++
		if calls == 1 {
			return &person{ID: 7, Name: "New"}, nil
		}
		return &person{ID: 7, Name: "Old"}, nil
	}}
	view := readview.New[person](personModel, provider, 7, readview.Callbacks[person]{},
		readview.WithRunner(func(task func()) { tasks = append(tasks, task) }))
	defer view.Close()

	view.Send(readview.Reload{})
	tasks[1]()
	tasks[0]()

	if got := view.State().Entity; got == nil || got.Name != "New" {
		t.Fatalf("expected reload answer to win, got %+v", got)
	}
}
