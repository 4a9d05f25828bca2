package sessionapi

import (
	"cmp"
	"log/slog"
	"net/http"
	"slices"

	"github.com/thostetler/nectar-sub000/pkg/binder"
	"github.com/thostetler/nectar-sub000/pkg/handler"
	"github.com/thostetler/nectar-sub000/pkg/logger"
	"github.com/thostetler/nectar-sub000/pkg/session"
	"github.com/thostetler/nectar-sub000/pkg/token"
)

type userResponse struct {
	IsAuthenticated bool         `json:"isAuthenticated"`
	User            *token.Token `json:"user"`
}

func (a *API) user(r *http.Request, _ struct{}) handler.Response {
	st, ok := session.FromContext(r.Context())
	if !ok || st.Token.AccessToken == "" {
		return handler.JSON(http.StatusOK, userResponse{})
	}
	tok := st.Token
	return handler.JSON(http.StatusOK, userResponse{IsAuthenticated: st.IsAuthenticated, User: &tok})
}

type sessionInfo struct {
	SessionID    string `json:"sessionId"`
	CreatedAt    int64  `json:"createdAt"`
	LastActivity int64  `json:"lastActivity"`
	UserAgent    string `json:"userAgent,omitempty"`
	IP           string `json:"ip,omitempty"`
	Current      bool   `json:"current"`
}

type sessionsResponse struct {
	Success  bool          `json:"success"`
	Sessions []sessionInfo `json:"sessions"`
}

// authorize returns the caller's state when session management is usable
// for it.
func (a *API) authorize(r *http.Request) (*session.State, error) {
	st, ok := session.FromContext(r.Context())
	if !ok {
		st = &session.State{}
	}
	if !a.flags.UseNetworkedSessions(st.SessionID) {
		a.log.DebugContext(r.Context(), "session management requested without redis sessions")
		return nil, ErrUnavailable
	}
	if !st.IsAuthenticated || st.Token.Username == "" {
		a.log.WarnContext(r.Context(), "unauthorized session management attempt", logger.SessionID(st.SessionID))
		return nil, ErrUnauthorized
	}
	return st, nil
}

func (a *API) listSessions(r *http.Request, _ struct{}) handler.Response {
	st, err := a.authorize(r)
	if err != nil {
		return handler.Error(err)
	}
	userID := st.Token.Username

	records := a.store.UserSessions(r.Context(), userID)
	out := make([]sessionInfo, 0, len(records))
	for _, rec := range records {
		out = append(out, sessionInfo{
			SessionID:    rec.SessionID,
			CreatedAt:    rec.CreatedAt,
			LastActivity: rec.LastActivity,
			UserAgent:    rec.UserAgent,
			IP:           rec.IP,
			Current:      rec.SessionID == st.SessionID,
		})
	}
	slices.SortFunc(out, func(x, y sessionInfo) int { return cmp.Compare(y.LastActivity, x.LastActivity) })

	a.log.InfoContext(r.Context(), "listed user sessions", logger.UserID(userID), logger.Event("list"))
	return handler.JSON(http.StatusOK, sessionsResponse{Success: true, Sessions: out})
}

type revokeRequest struct {
	SessionID string `json:"sessionId"`
}

var bindRevoke = binder.JSON()

type successResponse struct {
	Success bool `json:"success"`
	Count   *int `json:"count,omitempty"`
}

func (a *API) revoke(r *http.Request, req revokeRequest) handler.Response {
	st, err := a.authorize(r)
	if err != nil {
		return handler.Error(err)
	}
	userID := st.Token.Username
	ctx := r.Context()

	switch {
	case req.SessionID == "":
		return handler.Error(ErrMissingSessionID)
	case req.SessionID == st.SessionID:
		a.log.WarnContext(ctx, "attempt to revoke current session", logger.UserID(userID))
		return handler.Error(ErrRevokeCurrent)
	}

	target := a.store.Get(ctx, req.SessionID)
	if target == nil || target.UserID != userID {
		a.log.WarnContext(ctx, "attempt to revoke session not owned by user",
			logger.UserID(userID), logger.SessionID(req.SessionID))
		return handler.Error(ErrSessionNotFound)
	}

	if !a.store.Destroy(ctx, req.SessionID) {
		a.log.ErrorContext(ctx, "failed to revoke session",
			logger.UserID(userID), logger.SessionID(req.SessionID))
		return handler.Error(ErrRevocationFailed)
	}

	a.log.InfoContext(ctx, "session revoked", logger.UserID(userID), logger.SessionID(req.SessionID))
	return handler.JSON(http.StatusOK, successResponse{Success: true})
}

func (a *API) revokeAll(r *http.Request, _ struct{}) handler.Response {
	st, err := a.authorize(r)
	if err != nil {
		return handler.Error(err)
	}
	userID := st.Token.Username

	n := a.store.DestroyAllUserSessions(r.Context(), userID, st.SessionID)
	a.log.InfoContext(r.Context(), "revoked other sessions", logger.UserID(userID), slog.Int("count", n))
	return handler.JSON(http.StatusOK, successResponse{Success: true, Count: &n})
}
