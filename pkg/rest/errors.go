package rest

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrRequest = errors.New("rest: request failed")
	// ErrNotFound matches errors for an absent resource, as opposed to a
	// failing transport.
	ErrNotFound = errors.New("rest: not found")
)

// ErrorKind classifies a RequestError.
type ErrorKind string

const (
	KindNetwork ErrorKind = "network"
	KindStatus  ErrorKind = "status"
	KindDecode  ErrorKind = "decode"
	KindEncode  ErrorKind = "encode"
)

// RequestError is returned by providers for every failed request.
type RequestError struct {
	Kind      ErrorKind
	Resource  string
	Operation string
	Status    int
	Body      string
	Err       error
}

func (e *RequestError) Error() string {
	switch {
	case e.Kind == KindStatus:
		return fmt.Sprintf("rest: %s/%s: status %d: %s", e.Resource, e.Operation, e.Status, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("rest: %s/%s: %s: %v", e.Resource, e.Operation, e.Kind, e.Err)
	default:
		return fmt.Sprintf("rest: %s/%s: %s", e.Resource, e.Operation, e.Kind)
	}
}

func (e *RequestError) Unwrap() error { return e.Err }

func (e *RequestError) Is(target error) bool {
	switch target {
	case ErrRequest:
		return true
	case ErrNotFound:
		return e.Kind == KindStatus && e.Status == http.StatusNotFound
	}
	return false
}

// NotFound builds the error a provider returns for a missing row.
func NotFound(resource, operation string) *RequestError {
	return &RequestError{Kind: KindStatus, Resource: resource, Operation: operation, Status: http.StatusNotFound, Body: "not found"}
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.Kind == KindNetwork
}
