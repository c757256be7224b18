// Package apperr defines the request-level error taxonomy and how each kind
// maps onto an HTTP status.
package apperr

import (
	"errors"
	"net/http"
	"sort"
	"strings"
)

// NonField is the key used for errors that are not tied to a single field.
const NonField = "non_field_errors"

type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuthentication
	KindNotFound
	KindQuota
	KindUnauthorized
	KindForbidden
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindNotFound:
		return "not_found"
	case KindQuota:
		return "quota_exceeded"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Status returns the HTTP status code rendered for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindAuthentication, KindQuota:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a kind plus per-field messages.
type Error struct {
	Kind   Kind
	Fields map[string][]string
	Err    error
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
	}
	msg := e.Kind.String()
	if len(parts) > 0 {
		msg += ": " + strings.Join(parts, ", ")
	}
	if e.Err != nil {
		msg += " (" + e.Err.Error() + ")"
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && len(t.Fields) == 0
}

// Message returns the first message, preferring the non-field slot.
func (e *Error) Message() string {
	if msgs := e.Fields[NonField]; len(msgs) > 0 {
		return msgs[0]
	}
	for _, msgs := range e.Fields {
		if len(msgs) > 0 {
			return msgs[0]
		}
	}
	return e.Kind.String()
}

// Kind sentinels, usable with errors.Is.
var (
	ErrValidation     = &Error{Kind: KindValidation}
	ErrAuthentication = &Error{Kind: KindAuthentication}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrQuota          = &Error{Kind: KindQuota}
	ErrUnauthorized   = &Error{Kind: KindUnauthorized}
	ErrForbidden      = &Error{Kind: KindForbidden}
	ErrRateLimited    = &Error{Kind: KindRateLimited}
)

func newErr(kind Kind, field, message string) *Error {
	return &Error{Kind: kind, Fields: map[string][]string{field: {message}}}
}

func Validation(message string) *Error {
	return newErr(KindValidation, NonField, message)
}

func FieldValidation(field, message string) *Error {
	return newErr(KindValidation, field, message)
}

func ValidationFields(fields map[string][]string) *Error {
	return &Error{Kind: KindValidation, Fields: fields}
}

func Authentication(message string) *Error {
	return newErr(KindAuthentication, NonField, message)
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Fields: map[string][]string{"detail": {message}}}
}

func Quota(message string) *Error {
	return newErr(KindQuota, "file", message)
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Fields: map[string][]string{"detail": {message}}}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Fields: map[string][]string{"detail": {message}}}
}

func RateLimited(message string) *Error {
	return &Error{Kind: KindRateLimited, Fields: map[string][]string{"detail": {message}}}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
