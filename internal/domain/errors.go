package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound        = errors.New("not found")
	ErrBadRequest      = errors.New("bad request")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrExpired         = errors.New("expired")
	ErrInvalidCode     = errors.New("invalid code")
	ErrTooManyAttempts = errors.New("too many attempts")
	ErrDelivery        = errors.New("delivery failed")
	ErrMisconfigured   = errors.New("misconfigured")
	ErrInternal        = errors.New("internal error")
	// ErrConflict means a record was replaced after it was read.
	ErrConflict        = errors.New("conflict")
)

// Error pairs a sentinel kind with a message that is safe to show to the client.
// Err holds the underlying cause for logs and is never written to a response.
type Error struct {
	Kind    error
	Message string
	Err     error
}

// NewError builds an Error of the given kind.
func NewError(kind error, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// ValidationError reports per-field problems with a submitted form.
// Fields is keyed by the json field name.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrBadRequest }
