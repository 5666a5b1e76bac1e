package hop

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamUnavailable covers transport failures, timeouts, non-2xx
	// statuses and an open circuit breaker.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrMalformedUpstream covers bodies that are not JSON or lack the
	// expected numeric fields.
	ErrMalformedUpstream = errors.New("malformed upstream response")
)

// Error describes a failed call to one hop. It unwraps to both its Kind and
// the underlying cause.
type Error struct {
	Hop    string
	Kind   error
	Status int // upstream HTTP status, 0 when no response was received
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Hop + ": " + e.Kind.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Unavailable builds an ErrUpstreamUnavailable error for hop.
func Unavailable(hop string, status int, detail string, err error) *Error {
	return &Error{Hop: hop, Kind: ErrUpstreamUnavailable, Status: status, Detail: detail, Err: err}
}

// Malformed builds an ErrMalformedUpstream error for hop.
func Malformed(hop, detail string, err error) *Error {
	return &Error{Hop: hop, Kind: ErrMalformedUpstream, Detail: detail, Err: err}
}

// Fields returns diagnostic key/values suitable for a JSON error body.
func (e *Error) Fields() map[string]any {
	f := map[string]any{"hop": e.Hop}
	if e.Status != 0 {
		f["status"] = e.Status
	}
	if e.Detail != "" {
		f["detail"] = e.Detail
	}
	return f
}
