// Package domain provides shared domain-level sentinel errors and the fault
// taxonomy used across layers.
package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateID indicates an insert collided with an existing identifier.
var ErrDuplicateID = errors.New("duplicate id")

// ErrPersistence indicates the backing storage could not be written.
var ErrPersistence = errors.New("persistence failure")

// FaultKind tells whether a fault was caused by the client or the server.
type FaultKind int

const (
	// FaultClient is a well-formed request that is invalid for the domain.
	FaultClient FaultKind = iota + 1
	// FaultServer is a storage or internal invariant failure.
	FaultServer
	// FaultThrottled is a request refused because its client is over quota.
	FaultThrottled
)

func (k FaultKind) String() string {
	switch k {
	case FaultClient:
		return "client"
	case FaultServer:
		return "server"
	case FaultThrottled:
		return "throttled"
	default:
		return "unknown"
	}
}

// Fault is a classified domain failure. Message is safe to show to clients;
// Err carries the internal cause and is only ever logged.
type Fault struct {
	Kind    FaultKind
	Message string
	Err     error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s fault: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s fault: %s", f.Kind, f.Message)
}

func (f *Fault) Unwrap() error { return f.Err }

// ClientFault returns a client-class fault with the given message.
func ClientFault(msg string) *Fault {
	return &Fault{Kind: FaultClient, Message: msg}
}

// ServerFault returns a server-class fault with the given message.
func ServerFault(msg string) *Fault {
	return &Fault{Kind: FaultServer, Message: msg}
}

// ThrottledFault returns a fault for a request refused by rate limiting.
func ThrottledFault(msg string) *Fault {
	return &Fault{Kind: FaultThrottled, Message: msg}
}

// WrapServerFault returns a server-class fault that keeps cause for errors.Is.
func WrapServerFault(msg string, cause error) *Fault {
	return &Fault{Kind: FaultServer, Message: msg, Err: cause}
}

// AsFault reports whether err is (or wraps) a classified fault.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// FieldFailure describes one structural problem with an inbound request.
type FieldFailure struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when a request fails shape validation before
// reaching domain logic.
type ValidationError struct {
	Failures []FieldFailure
}

func (e *ValidationError) Error() string {
	if len(e.Failures) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s %s (and %d more)",
		e.Failures[0].Field, e.Failures[0].Message, len(e.Failures)-1)
}
