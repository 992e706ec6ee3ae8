package crudkit

import (
	"errors"
	"fmt"
)

// NoDataReason explains why a view holds no entity.
type NoDataReason string

const (
	NotYetLoaded          NoDataReason = "not_yet_loaded"
	FetchFailed           NoDataReason = "fetch_failed"
	FetchReturnedNothing  NoDataReason = "fetch_returned_nothing"
	CreateFailed          NoDataReason = "create_failed"
	CreateReturnedNothing NoDataReason = "create_returned_nothing"
	UpdateFailed          NoDataReason = "update_failed"
	UpdateReturnedNothing NoDataReason = "update_returned_nothing"
)

var ErrNoData = errors.New("crudkit: no data")

// NoData is the error side of a view's entity slot. Failed reasons carry the
// transport error; returned-nothing reasons mean the request succeeded but
// the row is absent.
type NoData struct {
	Reason NoDataReason
	Err    error
}

func NewNoData(reason NoDataReason, err error) *NoData {
	return &NoData{Reason: reason, Err: err}
}

func (n *NoData) Error() string {
	if n == nil {
		return "<nil>"
	}
	if n.Err != nil {
		return fmt.Sprintf("crudkit: no data (%s): %v", n.Reason, n.Err)
	}
	return fmt.Sprintf("crudkit: no data (%s)", n.Reason)
}

func (n *NoData) Unwrap() error { return n.Err }

func (n *NoData) Is(target error) bool { return target == ErrNoData }

// Transient reports whether the view is still waiting for its first load.
func (n *NoData) Transient() bool { return n != nil && n.Reason == NotYetLoaded }

// ReturnedNothing reports a successful request for an absent row.
func (n *NoData) ReturnedNothing() bool {
	if n == nil {
		return false
	}
	switch n.Reason {
	case FetchReturnedNothing, CreateReturnedNothing, UpdateReturnedNothing:
		return true
	}
	return false
}
