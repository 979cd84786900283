package models

import (
	"fmt"
	"net/http"
)

// ErrorKind classifies a failure independently of the wire code used to report it.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindInvalidParameter
	KindMalformedDDL
	KindSchemaViolation
	KindQuerySyntax
	KindNotFound
	KindConflict
	KindPreconditionFailed
)

// APIError is the error type returned by the service layer. Handlers only look at
// Kind to pick a status; Code and Message go on the wire unchanged.
type APIError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Status returns the HTTP status class for the error kind.
func (e *APIError) Status() int {
	switch e.Kind {
	case KindInvalidParameter, KindMalformedDDL, KindSchemaViolation, KindQuerySyntax:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindPreconditionFailed:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

func New(kind ErrorKind, code, msg string) *APIError {
	return &APIError{Kind: kind, Code: code, Message: msg}
}

func Errorf(kind ErrorKind, code, format string, args ...any) *APIError {
	return New(kind, code, fmt.Sprintf(format, args...))
}

func InvalidParameter(format string, args ...any) *APIError {
	return Errorf(KindInvalidParameter, "InvalidParameter", format, args...)
}

func NotFound(format string, args ...any) *APIError {
	return Errorf(KindNotFound, "NotAuthorizedOrNotFound", format, args...)
}

func Internal(format string, args ...any) *APIError {
	return Errorf(KindInternal, "InternalServerError", format, args...)
}
