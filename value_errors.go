package crudkit

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTypeMismatch          = errors.New("crudkit: value type mismatch")
	ErrDowncast              = errors.New("crudkit: selectable downcast failed")
	ErrUnknownField          = errors.New("crudkit: unknown field")
	ErrUnsupportedConversion = errors.New("crudkit: unsupported conversion")
	ErrParse                 = errors.New("crudkit: parse failed")
)

// TypeMismatchError reports a narrowing attempted on a Value whose variant is
// not accepted by the target. It usually signals drift between the entity
// type and the field configuration.
type TypeMismatchError struct {
	Target  Target
	Got     Kind
	Accepts []Kind
}

func (e *TypeMismatchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	got := string(e.Got)
	if got == "" {
		got = "<empty>"
	}
	accepts := make([]string, len(e.Accepts))
	for i, kind := range e.Accepts {
		accepts[i] = string(kind)
	}
	return fmt.Sprintf("crudkit: cannot take %s from %s value (accepts %s)", e.Target, got, strings.Join(accepts, ", "))
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

// DowncastError reports a selectable whose dynamic type is not the requested
// option type.
type DowncastError struct {
	Want string
	Got  string
}

func (e *DowncastError) Error() string {
	return fmt.Sprintf("crudkit: selectable is %s, not %s", e.Got, e.Want)
}

func (e *DowncastError) Is(target error) bool { return target == ErrDowncast }

// UnknownFieldError reports a field name that the entity type does not declare.
type UnknownFieldError struct {
	Resource string
	Field    string
}

func (e *UnknownFieldError) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("crudkit: unknown field %q", e.Field)
	}
	return fmt.Sprintf("crudkit: resource %q has no field %q", e.Resource, e.Field)
}

func (e *UnknownFieldError) Is(target error) bool { return target == ErrUnknownField }

// UnsupportedConversionError reports a value kind with no mapping into the
// requested representation.
type UnsupportedConversionError struct {
	From string
	To   string
}

func (e *UnsupportedConversionError) Error() string {
	return fmt.Sprintf("crudkit: no conversion from %s to %s", e.From, e.To)
}

func (e *UnsupportedConversionError) Is(target error) bool { return target == ErrUnsupportedConversion }

// ParseError reports a string that could not be coerced into the target.
type ParseError struct {
	Target Target
	Input  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("crudkit: cannot parse %q as %s: %v", e.Input, e.Target, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// FieldError wraps a failed write into a named field.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("crudkit: field %q: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// MustTake panics when err is non-nil. It is meant for call sites where a
// mismatch is a programming error, e.g. generated accessors.
func MustTake[V any](v V, err error) V {
	if err != nil {
		panic(err)
	}
	return v
}
