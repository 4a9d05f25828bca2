package session

import (
	"context"

	"github.com/thostetler/nectar-sub000/pkg/token"
)

// State is the per-client session summary carried in the sealed cookie and
// exposed to handlers through the request context.
type State struct {
	SessionID       string      `json:"sessionId,omitempty"`
	Token           token.Token `json:"token"`
	IsAuthenticated bool        `json:"isAuthenticated"`
	APICookieHash   string      `json:"apiCookieHash,omitempty"`
	Bot             bool        `json:"bot,omitempty"`
	// Backend names the backend that produced this state. Not persisted.
	Backend string `json:"-"`
}

// record converts a cookie-only state into the Record shape used by the
// reuse check.
func (s State) record() *Record {
	return &Record{
		SessionID:       s.SessionID,
		Token:           s.Token,
		IsAuthenticated: s.IsAuthenticated,
		APICookieHash:   s.APICookieHash,
		Bot:             s.Bot,
	}
}

func (s State) sameAs(o State) bool {
	return s.SessionID == o.SessionID &&
		s.Token == o.Token &&
		s.IsAuthenticated == o.IsAuthenticated &&
		s.APICookieHash == o.APICookieHash &&
		s.Bot == o.Bot
}

type stateContextKey struct{}

func WithState(ctx context.Context, st *State) context.Context {
	return context.WithValue(ctx, stateContextKey{}, st)
}

// FromContext returns the State stored by Initializer.Middleware.
func FromContext(ctx context.Context) (*State, bool) {
	st, ok := ctx.Value(stateContextKey{}).(*State)
	return st, ok && st != nil
}
