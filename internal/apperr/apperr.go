// Package apperr defines the error vocabulary shared by the engines and the
// HTTP layer. Every engine operation returns either nil or an *Error whose
// Kind tells the caller what happened and whether retrying makes sense.
package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	// KindValidation: malformed or missing input; retry after correction.
	KindValidation Kind = "validation_error"
	// KindAuthentication: missing or invalid token; terminal for the request.
	KindAuthentication Kind = "authentication_error"
	// KindAuthorization: authenticated but forbidden; terminal.
	KindAuthorization Kind = "authorization_error"
	// KindNotFound: a referenced entity is absent.
	KindNotFound Kind = "not_found"
	// KindInvalidState: the operation is not permitted in the current
	// lifecycle state, e.g. editing a job that is no longer open.
	KindInvalidState Kind = "invalid_state"
	// KindConflict: a concurrent mutation lost a race or a uniqueness
	// invariant would be violated.
	KindConflict Kind = "conflict"
	// KindPrecondition: a state transition is allowed by the table but a
	// required precondition is missing, e.g. in_progress without a
	// contractor assigned.
	KindPrecondition Kind = "precondition_failed"
	// KindPersistence: the underlying storage call failed.
	KindPersistence Kind = "persistence_error"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind of err, walking wrapped errors. Unclassified
// errors report KindPersistence so nothing internal leaks to callers.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindPersistence
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error kind to its response status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState, KindConflict, KindPrecondition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the user-facing message for err. Wrapped causes
// (driver errors, SQL text) are never exposed.
func PublicMessage(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "internal server error"
}
