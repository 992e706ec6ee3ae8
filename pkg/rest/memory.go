package rest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	crudkit "github.com/goliatone/go-crudkit"
	"github.com/goliatone/go-crudkit/layering"
	"github.com/goliatone/go-crudkit/pkg/condition"
	"github.com/goliatone/go-crudkit/pkg/metrics"
)

// MemoryProvider keeps rows in process and evaluates conditions through the
// model's field accessors. Rows are deep copied on the way in and out.
type MemoryProvider[T any] struct {
	mu        sync.RWMutex
	model     crudkit.Model[T]
	rows      []T
	validator *crudkit.Validator[T]
	logger    zerolog.Logger
	metrics   *metrics.Collector
}

var _ DataProvider[struct{}] = (*MemoryProvider[struct{}])(nil)

func NewMemoryProvider[T any](model crudkit.Model[T], opts ...Option[T]) *MemoryProvider[T] {
	cfg := newConfig(opts)
	return &MemoryProvider[T]{
		model:     model,
		validator: cfg.validator,
		logger:    cfg.logger.With().Str("resource", model.ResourceName()).Logger(),
		metrics:   cfg.metrics,
	}
}

// Seed appends rows as they are, identifiers included.
func (p *MemoryProvider[T]) Seed(rows ...T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, row := range rows {
		p.rows = append(p.rows, layering.Clone(row))
	}
}

// Rows returns a copy of every stored row in insertion order.
func (p *MemoryProvider[T]) Rows() []T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]T, 0, len(p.rows))
	for _, row := range p.rows {
		out = append(out, layering.Clone(row))
	}
	return out
}

func (p *MemoryProvider[T]) ReadCount(ctx context.Context, req ReadCount) (count uint64, err error) {
	defer p.observe(OpReadCount, time.Now(), &err)
	if err := p.check(ctx, OpReadCount); err != nil {
		return 0, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return uint64(len(p.matching(req.Condition))), nil
}

func (p *MemoryProvider[T]) ReadMany(ctx context.Context, req ReadMany) (rows []T, err error) {
	defer p.observe(OpReadMany, time.Now(), &err)
	if err := p.check(ctx, OpReadMany); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	idx := p.ordered(p.matching(req.Condition), req.OrderBy)
	idx = window(idx, req.Skip, req.Limit)
	rows = make([]T, 0, len(idx))
	for _, i := range idx {
		rows = append(rows, layering.Clone(p.rows[i]))
	}
	return rows, nil
}

func (p *MemoryProvider[T]) ReadOne(ctx context.Context, req ReadOne) (row *T, err error) {
	defer p.observe(OpReadOne, time.Now(), &err)
	if err := p.check(ctx, OpReadOne); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	one := uint64(1)
	idx := window(p.ordered(p.matching(req.Condition), req.OrderBy), req.Skip, &one)
	if len(idx) == 0 {
		return nil, nil
	}
	out := layering.Clone(p.rows[idx[0]])
	return &out, nil
}

func (p *MemoryProvider[T]) CreateOne(ctx context.Context, req CreateOne[T]) (result *SaveResult[T], err error) {
	defer p.observe(OpCreateOne, time.Now(), &err)
	if err := p.check(ctx, OpCreateOne); err != nil {
		return nil, err
	}
	entity := layering.Clone(req.Entity)
	if violations, err := p.validate(&entity); err != nil || len(violations) > 0 {
		if err != nil {
			return nil, err
		}
		return &SaveResult[T]{Entity: entity, Violations: violations}, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.assignID(&entity); err != nil {
		return nil, err
	}
	p.rows = append(p.rows, layering.Clone(entity))
	return &SaveResult[T]{Entity: entity}, nil
}

// UpdateOne replaces the first row matching the condition. No match returns
// nil without error.
func (p *MemoryProvider[T]) UpdateOne(ctx context.Context, req UpdateOne[T]) (result *SaveResult[T], err error) {
	defer p.observe(OpUpdateOne, time.Now(), &err)
	if err := p.check(ctx, OpUpdateOne); err != nil {
		return nil, err
	}
	entity := layering.Clone(req.Entity)
	if violations, err := p.validate(&entity); err != nil || len(violations) > 0 {
		if err != nil {
			return nil, err
		}
		return &SaveResult[T]{Entity: entity, Violations: violations}, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.matching(req.Condition)
	if len(idx) == 0 {
		p.logger.Debug().Msg("update matched no row")
		return nil, nil
	}
	p.rows[idx[0]] = layering.Clone(entity)
	return &SaveResult[T]{Entity: entity}, nil
}

func (p *MemoryProvider[T]) DeleteByID(ctx context.Context, req DeleteByID) (result DeleteResult, err error) {
	defer p.observe(OpDeleteByID, time.Now(), &err)
	if err := p.check(ctx, OpDeleteByID); err != nil {
		return DeleteResult{}, err
	}
	if len(req.ID) == 0 {
		return DeleteResult{Aborted: "empty identifier"}, nil
	}
	cond, err := crudkit.BySerializableID(req.ID)
	if err != nil {
		return DeleteResult{}, &RequestError{Kind: KindEncode, Resource: p.model.ResourceName(), Operation: OpDeleteByID, Err: err}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.rows[:0:0]
	for i := range p.rows {
		if cond.Matches(p.matcher(&p.rows[i])) {
			result.Deleted++
			continue
		}
		kept = append(kept, p.rows[i])
	}
	p.rows = kept
	return result, nil
}

func (p *MemoryProvider[T]) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return &RequestError{Kind: KindNetwork, Resource: p.model.ResourceName(), Operation: op, Err: err}
	}
	return nil
}

func (p *MemoryProvider[T]) observe(op string, started time.Time, err *error) {
	p.metrics.ObserveRequest(p.model.ResourceName(), op, started, *err)
}

func (p *MemoryProvider[T]) validate(entity *T) ([]crudkit.Violation, error) {
	if p.validator == nil {
		return nil, nil
	}
	return p.validator.Validate(entity)
}

// matching returns indexes of rows matching cond. Callers hold the lock.
func (p *MemoryProvider[T]) matching(cond *condition.Condition) []int {
	out := make([]int, 0, len(p.rows))
	for i := range p.rows {
		if cond == nil || cond.Matches(p.matcher(&p.rows[i])) {
			out = append(out, i)
		}
	}
	return out
}

func (p *MemoryProvider[T]) matcher(row *T) condition.Matcher {
	return func(column string) (condition.Value, bool) {
		f, err := p.model.Fields().Lookup(column)
		if err != nil {
			return condition.Value{}, false
		}
		value, err := f.Get(row).ToClauseValue()
		if err != nil {
			return condition.Value{}, false
		}
		return value, true
	}
}

func (p *MemoryProvider[T]) ordered(idx []int, orderBy []crudkit.OrderBy) []int {
	if len(orderBy) == 0 {
		return idx
	}
	sort.SliceStable(idx, func(a, b int) bool {
		left, right := p.matcher(&p.rows[idx[a]]), p.matcher(&p.rows[idx[b]])
		for _, o := range orderBy {
			lv, okL := left(o.Column)
			rv, okR := right(o.Column)
			if !okL || !okR {
				continue
			}
			cmp, ok := lv.Compare(rv)
			if !ok || cmp == 0 {
				continue
			}
			if o.Direction == crudkit.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return idx
}

// assignID gives entity the next free numeric identifier when its U32
// identifier field is zero. Callers hold the write lock.
func (p *MemoryProvider[T]) assignID(entity *T) error {
	f, err := p.model.Fields().Lookup(p.model.IDFieldName())
	if err != nil || f.Kind() != crudkit.KindU32 {
		return nil
	}
	current, err := f.Get(entity).TakeU32()
	if err != nil || current != 0 {
		return nil
	}
	var next uint32
	for i := range p.rows {
		if v, err := f.Get(&p.rows[i]).TakeU32(); err == nil && v > next {
			next = v
		}
	}
	return f.Set(entity, crudkit.U32Value(next+1))
}

func window(idx []int, skip, limit *uint64) []int {
	if skip != nil {
		if *skip >= uint64(len(idx)) {
			return nil
		}
		idx = idx[*skip:]
	}
	if limit != nil && *limit < uint64(len(idx)) {
		idx = idx[:*limit]
	}
	return idx
}
