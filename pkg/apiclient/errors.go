package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnableToRefresh is returned once the bootstrap retry budget is spent.
	ErrUnableToRefresh = errors.New("apiclient.unable_to_refresh")
	ErrBootstrapFailed = errors.New("apiclient.bootstrap_failed")
	ErrInvalidRequest  = errors.New("apiclient.invalid_request")
)

// StatusError is returned for non-2xx responses to the substantive request.
type StatusError struct {
	Status int
	URL    string
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("apiclient: %s returned %d %s", e.URL, e.Status, http.StatusText(e.Status))
}

// IsUnauthorized reports whether err is a 401 StatusError.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusUnauthorized
}
