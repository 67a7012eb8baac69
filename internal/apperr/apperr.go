// Package apperr is the error taxonomy shared by the ledger, the gateway
// client, the reservation flow and the HTTP handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation         Kind = "validation_error"
	KindUnauthorized       Kind = "unauthorized"
	KindNotFound           Kind = "not_found"
	KindStorageUnavailable Kind = "storage_unavailable"
	KindConfig             Kind = "config_error"
	KindGateway            Kind = "gateway_error"
	KindInvalidTransition  Kind = "invalid_transition"
	KindInternal           Kind = "internal_error"
)

// Error carries a Kind so callers can branch with errors.As instead of
// matching message text.
type Error struct {
	Kind      Kind
	Field     string
	Message   string
	Retryable bool
	Details   any
	Err       error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: msg}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

// StorageUnavailable is retryable: nothing was written.
func StorageUnavailable(msg string, err error) *Error {
	return &Error{Kind: KindStorageUnavailable, Message: msg, Retryable: true, Err: err}
}

// Config marks a deployment fault; the operator has to act, retrying won't help.
func Config(reason string) *Error {
	return &Error{Kind: KindConfig, Message: reason}
}

func Gateway(msg string, details any) *Error {
	return &Error{Kind: KindGateway, Message: msg, Retryable: true, Details: details}
}

func InvalidTransition(from, to string) *Error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf("cannot move booking from %s to %s", from, to)}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRetryable reports whether the caller may repeat the request as-is.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}

// HTTPStatus maps a Kind to the response status used by the handlers.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidTransition:
		return http.StatusConflict
	case KindStorageUnavailable:
		return http.StatusServiceUnavailable
	case KindGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
