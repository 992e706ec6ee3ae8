// Package hydrate turns JSON returned by a REST backend into typed entities.
// Payloads may be reshaped by pre-hooks before decoding and checked by
// post-hooks afterwards.
package hydrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Context identifies the request a payload answers.
type Context struct {
	Resource  string
	Operation string
}

func (c Context) String() string {
	if c.Operation == "" {
		return c.Resource
	}
	return c.Resource + "/" + c.Operation
}

// Stage is the decoding step an Error comes from.
type Stage string

const (
	StageRead     Stage = "read"
	StagePreHook  Stage = "pre-hook"
	StageDecode   Stage = "decode"
	StagePostHook Stage = "post-hook"
)

var ErrNull = errors.New("payload is null")

// Error reports where decoding a payload failed. Item is the list position
// for DecodeList and -1 otherwise.
type Error struct {
	Context Context
	Stage   Stage
	Item    int
	Err     error
}

func (e *Error) Error() string {
	where := e.Context.String()
	if e.Item >= 0 {
		where = fmt.Sprintf("%s item %d", where, e.Item)
	}
	return fmt.Sprintf("hydrate: %s: %s: %v", where, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// PreHook reshapes the payload object. Returning nil keeps the input.
type PreHook func(Context, map[string]any) (map[string]any, error)

type PostHook[T any] func(Context, *T) error

// CustomDecoder replaces JSON decoding of the (pre-hooked) payload.
type CustomDecoder[T any] func(Context, map[string]any) (T, error)

type DecoderOption[T any] func(*Decoder[T])

// Decoder converts payloads into entities of type T. It is safe for
// concurrent use once built.
type Decoder[T any] struct {
	pre       []PreHook
	post      []PostHook[T]
	custom    CustomDecoder[T]
	strict    bool
	useNumber bool
}

func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.pre = append(d.pre, hook)
		}
	}
}

func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.post = append(d.post, hook)
		}
	}
}

// WithUseNumber decodes numbers into interface fields as json.Number.
func WithUseNumber[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) { d.useNumber = true }
}

// WithDisallowUnknownFields rejects payload keys the entity does not declare.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) { d.strict = true }
}

func WithCustomDecoder[T any](decoder CustomDecoder[T]) DecoderOption[T] {
	return func(d *Decoder[T]) { d.custom = decoder }
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts one JSON object. A null or empty payload is an error.
func (d *Decoder[T]) Decode(ctx Context, raw []byte) (T, error) {
	return d.decode(ctx, raw, -1)
}

// DecodeOptional decodes one object or null. The boolean is false for null.
func (d *Decoder[T]) DecodeOptional(ctx Context, raw []byte) (T, bool, error) {
	var zero T
	if isNull(raw) {
		return zero, false, nil
	}
	out, err := d.decode(ctx, raw, -1)
	if err != nil {
		return zero, false, err
	}
	return out, true, nil
}

// DecodeList decodes an array of objects. null decodes as an empty list.
func (d *Decoder[T]) DecodeList(ctx Context, raw []byte) ([]T, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &Error{Context: ctx, Stage: StageRead, Item: -1, Err: err}
	}
	out := make([]T, 0, len(items))
	for i, item := range items {
		row, err := d.decode(ctx, item, i)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

func (d *Decoder[T]) decode(ctx Context, raw []byte, item int) (T, error) {
	var zero T
	fail := func(stage Stage, err error) (T, error) {
		return zero, &Error{Context: ctx, Stage: stage, Item: item, Err: err}
	}
	if isNull(raw) {
		return fail(StageRead, ErrNull)
	}

	var out T
	if len(d.pre) > 0 || d.custom != nil {
		payload, err := object(raw)
		if err != nil {
			return fail(StageRead, err)
		}
		for i, hook := range d.pre {
			next, err := hook(ctx, payload)
			if err != nil {
				return fail(StagePreHook, fmt.Errorf("hook %d: %w", i, err))
			}
			if next != nil {
				payload = next
			}
		}
		if d.custom != nil {
			out, err = d.custom(ctx, payload)
			if err != nil {
				return fail(StageDecode, err)
			}
			return d.finish(ctx, out, fail)
		}
		if raw, err = json.Marshal(payload); err != nil {
			return fail(StagePreHook, err)
		}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	if d.strict {
		dec.DisallowUnknownFields()
	}
	if d.useNumber {
		dec.UseNumber()
	}
	if err := dec.Decode(&out); err != nil {
		return fail(StageDecode, err)
	}
	return d.finish(ctx, out, fail)
}

func (d *Decoder[T]) finish(ctx Context, out T, fail func(Stage, error) (T, error)) (T, error) {
	for i, hook := range d.post {
		if err := hook(ctx, &out); err != nil {
			return fail(StagePostHook, fmt.Errorf("hook %d: %w", i, err))
		}
	}
	return out, nil
}

// object reads raw as a fresh map that hooks may mutate. Numbers stay
// json.Number so large ids survive the round trip.
func object(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, ErrNull
	}
	return payload, nil
}

func isNull(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
