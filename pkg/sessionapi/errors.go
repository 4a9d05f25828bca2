package sessionapi

import (
	"net/http"

	"github.com/thostetler/nectar-sub000/pkg/handler"
)

var (
	ErrUnavailable      = handler.NewHTTPError(http.StatusServiceUnavailable, "session-management-unavailable")
	ErrUnauthorized     = handler.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	ErrMissingSessionID = handler.NewHTTPError(http.StatusBadRequest, "missing-session-id")
	ErrRevokeCurrent    = handler.NewHTTPError(http.StatusBadRequest, "cannot-revoke-current-session")
	ErrSessionNotFound  = handler.NewHTTPError(http.StatusNotFound, "session-not-found")
	ErrRevocationFailed = handler.NewHTTPError(http.StatusInternalServerError, "revocation-failed")
)
