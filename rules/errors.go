package rules

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyExpr      = errors.New("rules: expression must not be empty")
	ErrUnknownBackend = errors.New("rules: unknown backend")
)

// Error reports a rule that failed to compile or run.
type Error struct {
	Backend string
	Expr    string
	// Subject is empty for compile errors.
	Subject string
	Err     error
}

func (e *Error) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("rules: %s: compile %q: %v", e.Backend, e.Expr, e.Err)
	}
	return fmt.Sprintf("rules: %s: %s: run %q: %v", e.Backend, e.Subject, e.Expr, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(backend, expr, subject string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	return &Error{Backend: backend, Expr: expr, Subject: subject, Err: err}
}
