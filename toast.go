package crudkit

import (
	"time"

	"github.com/google/uuid"
)

// DefaultAutoCloseDelay is how long an auto-closing toast stays visible.
const DefaultAutoCloseDelay = 2500 * time.Millisecond

type ToastVariant string

const (
	ToastInfo    ToastVariant = "info"
	ToastSuccess ToastVariant = "success"
	ToastWarn    ToastVariant = "warn"
	ToastError   ToastVariant = "error"
)

// AutoClose controls whether a toast closes by itself. Zero Delay with
// Enabled uses DefaultAutoCloseDelay.
type AutoClose struct {
	Enabled bool
	Delay   time.Duration
}

// Toast is a short user notification.
type Toast struct {
	ID          uuid.UUID
	CreatedAt   time.Time
	Variant     ToastVariant
	Heading     string
	Message     string
	Dismissible bool
	AutoClose   AutoClose
}

// NewToast returns a toast with a fresh id that closes after the default
// delay. An empty variant means info.
func NewToast(variant ToastVariant, heading, message string) Toast {
	if variant == "" {
		variant = ToastInfo
	}
	return Toast{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Variant:   variant,
		Heading:   heading,
		Message:   message,
		AutoClose: AutoClose{Enabled: true},
	}
}

// CloseAfter returns the auto-close delay, or false for a sticky toast.
func (t Toast) CloseAfter() (time.Duration, bool) {
	if !t.AutoClose.Enabled {
		return 0, false
	}
	if t.AutoClose.Delay <= 0 {
		return DefaultAutoCloseDelay, true
	}
	return t.AutoClose.Delay, true
}

// Equal compares toasts by id.
func (t Toast) Equal(other Toast) bool { return t.ID == other.ID }
