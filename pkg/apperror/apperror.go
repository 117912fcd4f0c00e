// Package apperror is the error taxonomy shared by the ledger services.
// Every error that crosses a service boundary carries one of the Codes below
// so the caller can decide between fixing input, reporting a missing
// resource, or surfacing a conflict.
package apperror

import (
	stdErrors "errors"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

type Code string

const (
	CodeValidation Code = "VALIDATION_ERROR"
	CodeNotFound   Code = "NOT_FOUND"
	CodeConflict   Code = "CONFLICT"
	CodeForbidden  Code = "FORBIDDEN"
	CodeInternal   Code = "INTERNAL_ERROR"
)

type Metadata struct {
	HTTPStatus    int
	Retryable     bool
	PublicMessage string
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed"},
	CodeNotFound:   {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found"},
	CodeConflict:   {HTTPStatus: http.StatusConflict, PublicMessage: "conflict detected"},
	CodeForbidden:  {HTTPStatus: http.StatusForbidden, PublicMessage: "access denied"},
	CodeInternal:   {HTTPStatus: http.StatusInternalServerError, Retryable: true, PublicMessage: "internal server error"},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details map[string]any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code to err. The cause keeps a stack trace from the
// point of wrapping.
func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: errors.WithStack(err)}
}

func Validation(message string) *Error { return New(CodeValidation, message) }

func NotFound(resource string, id any) *Error {
	return Newf(CodeNotFound, "%s %v not found", resource, id).WithDetails("resource", resource, "id", id)
}

func Conflict(message string) *Error { return New(CodeConflict, message) }

func Internal(err error, message string) *Error { return Wrap(CodeInternal, err, message) }

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() map[string]any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails adds key/value pairs in the same shape the logger takes.
func (e *Error) WithDetails(kv ...any) *Error {
	if e == nil {
		return nil
	}
	if e.details == nil {
		e.details = make(map[string]any, len(kv)/2)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		e.details[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return e
}

func (e *Error) HTTPStatus() int {
	return MetadataFor(e.Code()).HTTPStatus
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, errors.Cause(e.cause))
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns CodeInternal for errors outside the taxonomy.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}

func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
