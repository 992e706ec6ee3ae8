// Package readview shows one entity without editing it. It loads the row,
// renders it and leaves for the list on Back.
package readview

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	crudkit "github.com/goliatone/go-crudkit"
	"github.com/goliatone/go-crudkit/internal/loop"
	"github.com/goliatone/go-crudkit/layering"
	"github.com/goliatone/go-crudkit/pkg/rest"
)

type Msg interface{ readMsg() }

// Back always leaves at once.
type Back struct{}

// Reload reads the entity again.
type Reload struct{}

// LoadedEntity carries the answer to a read.
type LoadedEntity[T any] struct {
	Entity *T
	Err    error
	seq    uint64
}

func (Back) readMsg()            {}
func (Reload) readMsg()          {}
func (LoadedEntity[T]) readMsg() {}

// Phase is where the view stands on its way to an entity.
type Phase int

const (
	Loading Phase = iota
	Loaded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "loading"
	}
}

type State[T any] struct {
	Phase  Phase
	Entity *T
	NoData *crudkit.NoData
}

type Callbacks[T any] struct {
	OnList   func()
	OnChange func(State[T])
}

type Option func(*config)

type config struct {
	logger zerolog.Logger
	runner loop.Runner
	ctx    context.Context
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

func WithRunner(runner loop.Runner) Option {
	return func(c *config) {
		if runner != nil {
			c.runner = runner
		}
	}
}

func WithContext(ctx context.Context) Option {
	return func(c *config) {
		if ctx != nil {
			c.ctx = ctx
		}
	}
}

type View[T any] struct {
	model    crudkit.Model[T]
	provider rest.DataProvider[T]
	rowID    uint32
	cb       Callbacks[T]
	runner   loop.Runner
	logger   zerolog.Logger
	box      *loop.Mailbox[Msg]
	ctx      context.Context
	cancel   context.CancelFunc

	mu      sync.RWMutex
	state   State[T]
	seq     uint64
	applied uint64
}

// New mounts the view and starts loading the row.
func New[T any](model crudkit.Model[T], provider rest.DataProvider[T], rowID uint32, cb Callbacks[T], opts ...Option) *View[T] {
	cfg := config{logger: zerolog.Nop(), runner: loop.Go, ctx: context.Background()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	v := &View[T]{
		model:    model,
		provider: provider,
		rowID:    rowID,
		cb:       cb,
		runner:   cfg.runner,
		logger:   cfg.logger.With().Str("resource", model.ResourceName()).Uint32("id", rowID).Logger(),
		state:    State[T]{Phase: Loading, NoData: crudkit.NewNoData(crudkit.NotYetLoaded, nil)},
	}
	v.ctx, v.cancel = context.WithCancel(cfg.ctx)
	v.box = loop.New(v.handle, loop.WithLogger(v.logger), loop.WithName("readview"))
	v.box.Send(Reload{})
	return v
}

func (v *View[T]) Send(msg Msg) bool { return v.box.Send(msg) }

func (v *View[T]) Wait() { v.box.Wait() }

func (v *View[T]) Close() {
	v.box.Close()
	v.cancel()
}

// State returns a copy of the current state.
func (v *View[T]) State() State[T] {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.snapshot()
}

func (v *View[T]) snapshot() State[T] {
	out := v.state
	if out.Entity != nil {
		entity := layering.Clone(*out.Entity)
		out.Entity = &entity
	}
	return out
}

func (v *View[T]) handle(msg Msg) {
	switch m := msg.(type) {
	case Back:
		if v.cb.OnList != nil {
			v.cb.OnList()
		}
	case Reload:
		v.seq++
		seq := v.seq
		v.runner(func() {
			entity, err := rest.ReadByID(v.ctx, v.provider, v.model, v.rowID)
			v.box.Send(LoadedEntity[T]{Entity: entity, Err: err, seq: seq})
		})
	case LoadedEntity[T]:
		v.mu.Lock()
		if m.seq != 0 && m.seq < v.applied {
			v.mu.Unlock()
			v.logger.Debug().Uint64("seq", m.seq).Msg("discarding stale load")
			return
		}
		if m.seq != 0 {
			v.applied = m.seq
		}
		v.apply(m)
		state := v.snapshot()
		v.mu.Unlock()
		if v.cb.OnChange != nil {
			v.cb.OnChange(state)
		}
	default:
		v.logger.Warn().Str("message", fmt.Sprintf("%T", msg)).Msg("unhandled message")
	}
}

func (v *View[T]) apply(m LoadedEntity[T]) {
	switch {
	case m.Err != nil && errors.Is(m.Err, rest.ErrNotFound):
		v.fail(crudkit.NewNoData(crudkit.FetchReturnedNothing, m.Err))
	case m.Err != nil:
		v.logger.Warn().Err(m.Err).Msg("could not load entity")
		v.fail(crudkit.NewNoData(crudkit.FetchFailed, m.Err))
	case m.Entity == nil:
		v.fail(crudkit.NewNoData(crudkit.FetchReturnedNothing, nil))
	default:
		entity := layering.Clone(*m.Entity)
		v.state = State[T]{Phase: Loaded, Entity: &entity}
	}
}

func (v *View[T]) fail(reason *crudkit.NoData) {
	v.state = State[T]{Phase: Failed, NoData: reason}
}
