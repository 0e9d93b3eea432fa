// Package dmserr defines the sentinel errors every component returns, and a
// wrapper carrying the structured payload a caller needs to react to some
// of them (the current hash on Conflict, the holder on Locked).
//
// Design mirrors internal/validate/errors.go and internal/store/schema.go:
// sentinel errors checked with errors.Is, detailed context added by wrapping
// with fmt.Errorf("...: %w", ...) rather than by defining new error types.
package dmserr

import "errors"

var (
	// Authentication failures. Never leak whether a username exists.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionConflict    = errors.New("session conflict")
	ErrSessionSuperseded  = errors.New("session superseded")
	ErrDeactivated        = errors.New("principal deactivated")

	// ErrESignatureMismatch is raised by any transition whose credential
	// check fails. It is not itself an audit-worthy transition.
	ErrESignatureMismatch = errors.New("e-signature mismatch")

	// ErrPermissionDenied is raised when a capability check fails.
	ErrPermissionDenied = errors.New("permission denied")

	// State machine rejections.
	ErrIllegalTransition = errors.New("illegal transition")
	ErrIllegalStatus     = errors.New("illegal status for this operation")

	// Edit-lock contention.
	ErrLocked      = errors.New("locked by another principal")
	ErrLockNotHeld = errors.New("lock not held")
	ErrLockExpired = errors.New("lock expired")

	// ErrConflict is a content-hash mismatch on save. The response must
	// carry the current hash; use WithCurrentHash.
	ErrConflict = errors.New("content hash conflict")

	// Standard structural errors.
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrValidation     = errors.New("validation error")

	// ErrInvariantViolation indicates a detected attempt to break I1-I6.
	// Must abort the transaction and surface as a 5xx-class error; never
	// swallowed or retried.
	ErrInvariantViolation = errors.New("invariant violation")
)

// Error wraps a sentinel with a human message and optional structured
// detail, while still matching errors.Is against the sentinel it wraps.
type Error struct {
	Kind    error
	Message string
	Detail  map[string]any
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

// Unwrap lets errors.Is(err, dmserr.ErrConflict) match through the wrapper.
func (e *Error) Unwrap() error {
	return e.Kind
}

// New builds an *Error around a sentinel kind with a plain message.
func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WithDetail attaches structured detail to an *Error, returning it for
// chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Detail == nil {
		e.Detail = make(map[string]any)
	}
	e.Detail[key] = value
	return e
}

// Conflict builds the Conflict error carrying the current content hash, as
// required by spec scenario S4.
func Conflict(currentHash string) *Error {
	return New(ErrConflict, "content was modified since you last read it").
		WithDetail("current_hash", currentHash)
}

// Locked builds the Locked error carrying holder identity and expiry, as
// required by spec scenario B3.
func Locked(holderUsername string, expiresAt int64) *Error {
	return New(ErrLocked, "version is locked by another principal").
		WithDetail("holder", holderUsername).
		WithDetail("expires_at", expiresAt)
}
