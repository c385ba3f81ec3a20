package session

import (
	"errors"
	"fmt"
)

// Marker prefixes every authentication error message so failures stand out
// in mixed log output.
const Marker = "😱"

// Kind classifies an authentication error.
type Kind int

const (
	// KindTransport wraps a lower-level I/O, TLS or HTTP failure.
	KindTransport Kind = iota + 1

	// KindDeserialization is a malformed or schema-violating server payload.
	KindDeserialization

	// KindAuthenticationFailed is an explicit rejection by the server of the
	// credentials, challenge answer or MFA code.
	KindAuthenticationFailed

	// KindInvalidState is an operation invoked in a state that does not allow it.
	KindInvalidState
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindDeserialization:
		return "deserialization"
	case KindAuthenticationFailed:
		return "authentication_failed"
	case KindInvalidState:
		return "invalid_state"
	default:
		return "unknown"
	}
}

// Error is the single error type surfaced by the session core.
type Error struct {
	// Kind is used for programmatic discrimination; the message is for humans.
	Kind Kind

	// Message is the human readable description, without the marker.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s %s", Marker, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so the predefined sentinels work
// with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	// ErrTransport matches every transport failure.
	ErrTransport = &Error{Kind: KindTransport, Message: "transport failure"}

	// ErrDeserialization matches every deserialization failure.
	ErrDeserialization = &Error{Kind: KindDeserialization, Message: "deserialization failure"}

	// ErrAuthenticationFailed matches every rejection by the server.
	ErrAuthenticationFailed = &Error{Kind: KindAuthenticationFailed, Message: "authentication failed"}

	// ErrInvalidState matches every rejected state transition.
	ErrInvalidState = &Error{Kind: KindInvalidState, Message: "invalid state transition"}
)

// NewError creates a domain error of the given kind.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// TransportError wraps a lower-level HTTP failure.
func TransportError(err error) *Error {
	return &Error{
		Kind:    KindTransport,
		Message: fmt.Sprintf("https error: %v", err),
		Err:     err,
	}
}

// DeserializationError wraps a decoding or schema failure.
func DeserializationError(err error) *Error {
	return &Error{
		Kind:    KindDeserialization,
		Message: fmt.Sprintf("failed to deserialize: %v", err),
		Err:     err,
	}
}

// AuthenticationFailedError carries the server's detail text.
func AuthenticationFailedError(detail string) *Error {
	if detail == "" {
		detail = "server rejected the authentication attempt"
	}
	return &Error{
		Kind:    KindAuthenticationFailed,
		Message: fmt.Sprintf("authentication failed: %s", detail),
	}
}

func invalidTransition(op string, from State) *Error {
	return &Error{
		Kind:    KindInvalidState,
		Message: fmt.Sprintf("cannot %s while %s", op, from),
	}
}
