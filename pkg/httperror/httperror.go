package httperror

import (
	"fmt"
	"net/http"
)

// Error is an error with an HTTP status and a stable machine readable code.
type Error struct {
	Status  int
	Code    string
	Message string
	Details any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an Error. When details is an error it becomes the cause and is
// kept out of the response body.
func New(status int, code, message string, details any) *Error {
	e := &Error{Status: status, Code: code, Message: message}
	if err, ok := details.(error); ok {
		e.Cause = err
	} else {
		e.Details = details
	}
	return e
}

func BadRequest(code, message string, details any) *Error {
	return New(http.StatusBadRequest, code, message, details)
}

func Unauthorized(code, message string, details any) *Error {
	return New(http.StatusUnauthorized, code, message, details)
}

func Forbidden(code, message string, details any) *Error {
	return New(http.StatusForbidden, code, message, details)
}

func NotFound(code, message string, details any) *Error {
	return New(http.StatusNotFound, code, message, details)
}

func UnprocessableEntity(code, message string, details any) *Error {
	return New(http.StatusUnprocessableEntity, code, message, details)
}

func InternalServerError(code, message string, details any) *Error {
	return New(http.StatusInternalServerError, code, message, details)
}

func BadGateway(code, message string, details any) *Error {
	return New(http.StatusBadGateway, code, message, details)
}

func ServiceUnavailable(code, message string, details any) *Error {
	return New(http.StatusServiceUnavailable, code, message, details)
}

// NoContent is returned by handlers that succeed without a body.
func NoContent(code, message string, details any) *Error {
	return New(http.StatusNoContent, code, message, details)
}
