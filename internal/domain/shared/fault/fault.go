package fault

import (
	"errors"
	"fmt"
)

// Kind is a stable machine-readable error tag surfaced to API clients and
// operators alongside the human-readable message.
type Kind string

const (
	KindInvalidBookingRequest   Kind = "invalid_booking_request"
	KindValidationFailed        Kind = "validation_failed"
	KindUnauthorized            Kind = "unauthorized"
	KindInvalidTransitionTarget Kind = "invalid_transition_target"
	KindNotFound                Kind = "not_found"
	KindAlreadyRated            Kind = "already_rated"
	KindNotCompleted            Kind = "not_completed"
	KindStorageFault            Kind = "storage_fault"
)

type Fault struct {
	Kind    Kind
	Message string
	Err     error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// New builds a fault with no underlying cause.
func New(kind Kind, message string) *Fault {
	return &Fault{Kind: kind, Message: message}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, message string, err error) *Fault {
	return &Fault{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from an error chain.
func KindOf(err error) (Kind, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return "", false
}

// Is reports whether the error carries the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
