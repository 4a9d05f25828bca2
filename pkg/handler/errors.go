package handler

import (
	"errors"
	"net/http"
)

var ErrNilResponse = errors.New("handler.nil_response")

// HTTPError is an error with a status code and a stable machine-readable key.
type HTTPError struct {
	Code int
	Key  string
}

func (e HTTPError) Error() string {
	return e.Key
}

func NewHTTPError(code int, key string) HTTPError {
	return HTTPError{Code: code, Key: key}
}

var (
	ErrBadRequest         = NewHTTPError(http.StatusBadRequest, "bad-request")
	ErrUnauthorized       = NewHTTPError(http.StatusUnauthorized, "unauthorized")
	ErrNotFound           = NewHTTPError(http.StatusNotFound, "not-found")
	ErrMethodNotAllowed   = NewHTTPError(http.StatusMethodNotAllowed, "method-not-allowed")
	ErrInternal           = NewHTTPError(http.StatusInternalServerError, "internal-error")
	ErrServiceUnavailable = NewHTTPError(http.StatusServiceUnavailable, "service-unavailable")
)
