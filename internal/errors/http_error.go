package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// HTTPError is an error that carries the status code the API should answer with.
type HTTPError struct {
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{
		Code:    code,
		Message: message,
	}
}

var (
	BadRequest   = func(format string, args ...any) *HTTPError { return newf(http.StatusBadRequest, format, args...) }
	Unauthorized = func(format string, args ...any) *HTTPError { return newf(http.StatusUnauthorized, format, args...) }
	Forbidden    = func(format string, args ...any) *HTTPError { return newf(http.StatusForbidden, format, args...) }
	NotFound     = func(format string, args ...any) *HTTPError { return newf(http.StatusNotFound, format, args...) }
	Conflict     = func(format string, args ...any) *HTTPError { return newf(http.StatusConflict, format, args...) }
	Unavailable  = func(format string, args ...any) *HTTPError { return newf(http.StatusServiceUnavailable, format, args...) }
)

func newf(code int, format string, args ...any) *HTTPError {
	if len(args) == 0 {
		return NewHTTPError(code, format)
	}
	return NewHTTPError(code, fmt.Sprintf(format, args...))
}

// StatusOf returns the status carried by err, or 500 for anything else.
func StatusOf(err error) (int, string) {
	var httpErr *HTTPError
	if stderrors.As(err, &httpErr) {
		return httpErr.Code, httpErr.Message
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}

// IsValidation reports whether err is a 400 raised before any write happened.
func IsValidation(err error) bool {
	var httpErr *HTTPError
	return stderrors.As(err, &httpErr) && httpErr.Code == http.StatusBadRequest
}
