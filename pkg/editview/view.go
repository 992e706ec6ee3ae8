// Package editview is the edit/save state machine of a CRUD instance: it
// loads one entity, tracks edits against it, saves it through a data
// provider and routes afterwards.
//
// All transitions run through a single consumer mailbox. Provider requests
// run in the background and come back as messages, so state is only ever
// touched by one message at a time.
package editview

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	crudkit "github.com/goliatone/go-crudkit"
	"github.com/goliatone/go-crudkit/internal/loop"
	"github.com/goliatone/go-crudkit/layering"
	"github.com/goliatone/go-crudkit/pkg/activity"
	"github.com/goliatone/go-crudkit/pkg/metrics"
	"github.com/goliatone/go-crudkit/pkg/rest"
)

// Callbacks are the side effects of the view. Nil callbacks are skipped. They
// run outside the view's lock, in the order the transitions produced them.
type Callbacks[T any] struct {
	OnSaved  func(rest.SaveResult[T])
	OnList   func()
	OnCreate func()
	OnDelete func(T)
	OnToast  func(crudkit.Toast)
	// OnChange receives the state after every transition that changed it.
	OnChange func(State[T])
}

// State is what the view renders from.
//
// Entity and NoData are exclusive: one of them is always set. InputDirty is
// true iff Input differs from Entity. UserWantsToLeave implies InputDirty.
type State[T any] struct {
	Input            T
	InputDirty       bool
	Entity           *T
	NoData           *crudkit.NoData
	UserWantsToLeave bool
	OngoingSave      bool
	Violations       []crudkit.Violation
	Statuses         map[string]crudkit.Value
	// SaveErr explains the last failed save. It is cleared by the next
	// successful one.
	SaveErr *crudkit.NoData
}

// Loaded reports whether an entity is present.
func (s State[T]) Loaded() bool { return s.Entity != nil }

// View edits the row of a resource matched by a numeric route id.
type View[T any] struct {
	model    crudkit.Model[T]
	provider rest.DataProvider[T]
	rowID    uint32
	cb       Callbacks[T]
	cfg      config[T]
	logger   zerolog.Logger
	box      *loop.Mailbox[Msg]
	ctx      context.Context
	cancel   context.CancelFunc

	mu    sync.RWMutex
	state State[T]
	// seq numbers provider requests. applied is the newest answer applied,
	// load or save; saved is the newest save answer applied.
	seq     uint64
	applied uint64
	saved   uint64
	closed  bool
	// gen counts edits to the working copy.
	gen uint64
}

// New mounts the view and starts loading the row.
func New[T any](model crudkit.Model[T], provider rest.DataProvider[T], rowID uint32, cb Callbacks[T], opts ...Option[T]) *View[T] {
	cfg := config[T]{
		logger: zerolog.Nop(),
		runner: loop.Go,
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.equal == nil {
		fields := model.Fields()
		cfg.equal = fields.Equal
	}

	v := &View[T]{
		model:    model,
		provider: provider,
		rowID:    rowID,
		cb:       cb,
		cfg:      cfg,
		state:    State[T]{NoData: crudkit.NewNoData(crudkit.NotYetLoaded, nil)},
	}
	v.logger = cfg.logger.With().
		Str("resource", model.ResourceName()).
		Uint32("id", rowID).
		Str("instance", cfg.instance).
		Logger()
	v.ctx, v.cancel = context.WithCancel(cfg.ctx)
	v.box = loop.New(v.handle, loop.WithLogger(v.logger), loop.WithName("editview"))
	v.box.Send(Reload{})
	return v
}

// Send queues msg. It reports false once the view is closed.
func (v *View[T]) Send(msg Msg) bool {
	return v.box.Send(msg)
}

// Wait blocks until queued messages are handled. Requests still running in
// the background are not waited for.
func (v *View[T]) Wait() { v.box.Wait() }

// Close unmounts the view: pending requests are canceled and their answers
// dropped. Callbacks not yet started are skipped, including the remaining
// effects of a message being handled; a callback already running when Close
// is called is not interrupted. Close may be called from a callback.
func (v *View[T]) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
	v.box.Close()
	v.cancel()
}

func (v *View[T]) isClosed() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.closed
}

// State returns a copy of the current state.
func (v *View[T]) State() State[T] {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.snapshot()
}

func (v *View[T]) snapshot() State[T] {
	out := v.state
	out.Input = layering.Clone(v.state.Input)
	if v.state.Entity != nil {
		entity := layering.Clone(*v.state.Entity)
		out.Entity = &entity
	}
	out.Violations = append([]crudkit.Violation(nil), v.state.Violations...)
	if v.state.Statuses != nil {
		out.Statuses = make(map[string]crudkit.Value, len(v.state.Statuses))
		for k, s := range v.state.Statuses {
			out.Statuses[k] = s
		}
	}
	return out
}

func (v *View[T]) handle(msg Msg) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	effects, changed := v.update(msg)
	var state State[T]
	if changed && v.cb.OnChange != nil {
		state = v.snapshot()
	}
	v.mu.Unlock()

	for _, effect := range effects {
		if v.isClosed() {
			return
		}
		effect()
	}
	if changed && v.cb.OnChange != nil && !v.isClosed() {
		v.cb.OnChange(state)
	}
}

// update applies msg to the state. It returns the side effects to run after
// the lock is released and whether the state changed.
func (v *View[T]) update(msg Msg) ([]func(), bool) {
	switch m := msg.(type) {
	case Back:
		if v.state.InputDirty {
			v.state.UserWantsToLeave = true
			return nil, true
		}
		return v.navigate(ThenList), false

	case BackCanceled:
		v.state.UserWantsToLeave = false
		return nil, true

	case BackApproved:
		if !v.state.UserWantsToLeave {
			v.logger.Debug().Msg("leave approved without pending confirmation")
			return nil, false
		}
		v.state.UserWantsToLeave = false
		return v.navigate(ThenList), true

	case Reload:
		return []func(){v.load()}, false

	case LoadedEntity[T]:
		if v.staleLoad(m.seq) {
			v.logger.Debug().Uint64("seq", m.seq).Msg("discarding stale load")
			return nil, false
		}
		v.applyLoaded(m)
		return nil, true

	case ValueChanged:
		return v.applyChange(m), true

	case GetInput:
		value, err := v.readInput(m.Field)
		if m.Reply == nil {
			return nil, false
		}
		return []func(){func() { m.Reply(value, err) }}, false

	case Save:
		return v.save(ThenStay)
	case SaveAndReturn:
		return v.save(ThenList)
	case SaveAndNew:
		return v.save(ThenCreate)

	case UpdatedEntity[T]:
		return v.applyUpdated(m)

	case Delete:
		if v.state.Entity == nil {
			v.logger.Warn().Msg("cannot issue a delete event, no entity is loaded")
			return nil, false
		}
		entity := layering.Clone(*v.state.Entity)
		effects := []func(){v.emit(activity.DeleteRequested(v.model.ResourceName(), v.entityID()))}
		if v.cb.OnDelete != nil {
			effects = append(effects, func() { v.cb.OnDelete(entity) })
		}
		return effects, false

	default:
		v.logger.Warn().Str("message", typeName(msg)).Msg("unhandled message")
		return nil, false
	}
}

func (v *View[T]) load() func() {
	v.seq++
	seq := v.seq
	return func() {
		v.cfg.runner(func() {
			entity, err := rest.ReadByID(v.ctx, v.provider, v.model, v.rowID)
			v.box.Send(LoadedEntity[T]{Entity: entity, Err: err, seq: seq})
		})
	}
}

// staleLoad reports loads older than the newest answer applied: a load sent
// before a save or a later load carries outdated data. Messages built outside
// the view carry no sequence and always apply.
func (v *View[T]) staleLoad(seq uint64) bool {
	if seq == 0 {
		return false
	}
	if seq < v.applied {
		return true
	}
	v.applied = seq
	return false
}

// staleSave reports save answers older than the newest save applied. Loads
// never make a save stale: the row was written whatever a reload returned.
func (v *View[T]) staleSave(seq uint64) bool {
	if seq == 0 {
		return false
	}
	if seq < v.saved {
		return true
	}
	v.saved = seq
	if seq > v.applied {
		v.applied = seq
	}
	return false
}

func (v *View[T]) applyLoaded(m LoadedEntity[T]) {
	switch {
	case m.Err != nil && errors.Is(m.Err, rest.ErrNotFound):
		v.setNoData(crudkit.NewNoData(crudkit.FetchReturnedNothing, m.Err))
	case m.Err != nil:
		v.logger.Warn().Err(m.Err).Msg("could not load entity")
		v.setNoData(crudkit.NewNoData(crudkit.FetchFailed, m.Err))
	case m.Entity == nil:
		v.setNoData(crudkit.NewNoData(crudkit.FetchReturnedNothing, nil))
	default:
		entity := layering.Clone(*m.Entity)
		v.state.Entity = &entity
		v.state.NoData = nil
		v.state.Input = layering.Clone(entity)
		v.state.InputDirty = false
		v.state.UserWantsToLeave = false
		v.state.Violations = nil
		v.state.Statuses = nil
		v.state.SaveErr = nil
	}
}

func (v *View[T]) setNoData(reason *crudkit.NoData) {
	v.state.Entity = nil
	v.state.NoData = reason
	v.state.InputDirty = false
	v.state.UserWantsToLeave = false
}

func (v *View[T]) applyChange(m ValueChanged) []func() {
	f, err := v.model.Fields().Lookup(m.Field)
	if err != nil {
		v.logger.Warn().Err(err).Str("field", m.Field).Msg("value change for unknown field")
		return nil
	}
	if err := f.Set(&v.state.Input, m.Value); err != nil {
		v.logger.Warn().Err(err).Str("field", m.Field).Msg("value change rejected")
		return nil
	}
	v.gen++
	v.refreshDirty()
	if len(v.state.Violations) > 0 {
		v.revalidate()
	}
	return nil
}

func (v *View[T]) refreshDirty() {
	if v.state.Entity == nil {
		v.state.InputDirty = false
	} else {
		v.state.InputDirty = !v.cfg.equal(&v.state.Input, v.state.Entity)
	}
	if !v.state.InputDirty {
		v.state.UserWantsToLeave = false
	}
}

// revalidate refreshes violations and statuses while the user fixes input.
func (v *View[T]) revalidate() {
	if v.cfg.validator == nil {
		return
	}
	violations, err := v.cfg.validator.Validate(&v.state.Input)
	if err != nil {
		v.logger.Warn().Err(err).Msg("validation failed to run")
		return
	}
	v.state.Violations = violations
	v.state.Statuses = v.cfg.validator.Statuses(violations)
}

func (v *View[T]) readInput(field string) (crudkit.Value, error) {
	f, err := v.model.Fields().Lookup(field)
	if err != nil {
		return crudkit.Value{}, err
	}
	return f.Get(&v.state.Input), nil
}

func (v *View[T]) save(then Then) ([]func(), bool) {
	resource := v.model.ResourceName()
	if v.state.Entity == nil {
		v.logger.Warn().Msg("cannot save, no entity is loaded")
		return nil, false
	}
	if v.state.OngoingSave {
		v.logger.Warn().Str("then", then.String()).Msg("save rejected, another save is in flight")
		v.cfg.metrics.ObserveSave(resource, metrics.SaveRejected)
		return nil, false
	}

	if v.cfg.validator != nil {
		violations, err := v.cfg.validator.Validate(&v.state.Input)
		if err != nil {
			v.logger.Error().Err(err).Msg("validation failed to run")
			return v.toast(crudkit.ToastError, "Save failed", err.Error()), false
		}
		v.state.Violations = violations
		v.state.Statuses = v.cfg.validator.Statuses(violations)
		if len(violations) > 0 {
			v.cfg.metrics.ObserveSave(resource, metrics.SaveInvalid)
			return v.toast(crudkit.ToastWarn, "Invalid input", violations[0].Message), true
		}
	}

	v.state.OngoingSave = true
	v.seq++
	seq, gen := v.seq, v.gen
	entity := layering.Clone(v.state.Input)
	request := func() {
		v.cfg.runner(func() {
			result, err := rest.UpdateByID(v.ctx, v.provider, v.model, v.rowID, entity)
			v.box.Send(UpdatedEntity[T]{Result: result, Err: err, Then: then, seq: seq, gen: gen})
		})
	}
	return []func(){request}, true
}

func (v *View[T]) applyUpdated(m UpdatedEntity[T]) ([]func(), bool) {
	resource := v.model.ResourceName()
	v.state.OngoingSave = false
	if v.staleSave(m.seq) {
		v.logger.Debug().Uint64("seq", m.seq).Msg("discarding stale save result")
		return nil, true
	}

	switch {
	case m.Err != nil:
		v.logger.Warn().Err(m.Err).Msg("could not update entity due to request error")
		v.state.SaveErr = crudkit.NewNoData(crudkit.UpdateFailed, m.Err)
		v.cfg.metrics.ObserveSave(resource, metrics.SaveFailed)
		return v.toast(crudkit.ToastError, "Save failed", m.Err.Error()), true

	case m.Result == nil:
		v.logger.Warn().Msg("could not update entity, request returned nothing")
		v.state.SaveErr = crudkit.NewNoData(crudkit.UpdateReturnedNothing, nil)
		v.cfg.metrics.ObserveSave(resource, metrics.SaveNothing)
		return v.toast(crudkit.ToastError, "Save failed", "The entity no longer exists."), true

	case !m.Result.Saved():
		v.state.Violations = append([]crudkit.Violation(nil), m.Result.Violations...)
		v.state.Statuses = v.statuses(m.Result.Violations)
		v.cfg.metrics.ObserveSave(resource, metrics.SaveInvalid)
		return v.toast(crudkit.ToastWarn, "Invalid input", m.Result.Violations[0].Message), true
	}

	var previous T
	if v.state.Entity != nil {
		previous = *v.state.Entity
	}
	saved := layering.Clone(m.Result.Entity)
	changed := v.model.Fields().Diff(&previous, &saved)

	v.state.Entity = &saved
	v.state.NoData = nil
	if m.gen == v.gen {
		v.state.Input = layering.Clone(saved)
	}
	v.refreshDirty()
	v.state.Violations = nil
	v.state.Statuses = nil
	v.state.SaveErr = nil
	v.cfg.metrics.ObserveSave(resource, metrics.SaveSucceeded)

	result := rest.SaveResult[T]{Entity: layering.Clone(saved)}
	effects := []func(){v.emit(activity.EntityUpdated(v.model.ResourceName(), v.entityID(), changed))}
	if v.cb.OnSaved != nil {
		effects = append(effects, func() { v.cb.OnSaved(result) })
	}
	effects = append(effects, v.toast(crudkit.ToastSuccess, "Saved", "The entity was saved.")...)
	effects = append(effects, v.navigate(m.Then)...)
	return effects, true
}

func (v *View[T]) navigate(then Then) []func() {
	switch then {
	case ThenList:
		if v.cb.OnList != nil {
			return []func(){v.cb.OnList}
		}
	case ThenCreate:
		if v.cb.OnCreate != nil {
			return []func(){v.cb.OnCreate}
		}
	}
	return nil
}

func (v *View[T]) toast(variant crudkit.ToastVariant, heading, message string) []func() {
	if v.cb.OnToast == nil {
		return nil
	}
	t := crudkit.NewToast(variant, heading, message)
	return []func(){func() { v.cb.OnToast(t) }}
}

func (v *View[T]) entityID() string {
	return strconv.FormatUint(uint64(v.rowID), 10)
}

func (v *View[T]) emit(event activity.Event) func() {
	event = event.WithInstance(v.cfg.instance)
	return func() {
		if err := v.cfg.emitter.Emit(v.ctx, event); err != nil {
			v.logger.Warn().Err(err).Str("verb", string(event.Verb)).Msg("activity emission failed")
		}
	}
}

// statuses prefers the validator's view, which also marks passing fields.
func (v *View[T]) statuses(violations []crudkit.Violation) map[string]crudkit.Value {
	if v.cfg.validator != nil {
		return v.cfg.validator.Statuses(violations)
	}
	out := make(map[string]crudkit.Value, len(violations))
	for _, violation := range violations {
		out[violation.Field] = crudkit.ValidationStatusValue(true)
	}
	return out
}

func typeName(msg Msg) string {
	return fmt.Sprintf("%T", msg)
}
