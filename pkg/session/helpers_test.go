package session_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/thostetler/nectar-sub000/pkg/logger"
	"github.com/thostetler/nectar-sub000/pkg/session"
	"github.com/thostetler/nectar-sub000/pkg/token"
)

const farFuture token.Epoch = "99999999999999999"

func newRedis(t *testing.T) (*miniredis.Miniredis, goredis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{
		Addr:        mr.Addr(),
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newStore(t *testing.T, opts ...session.StoreOption) (*session.Store, *miniredis.Miniredis) {
	t.Helper()
	mr, client := newRedis(t)
	opts = append([]session.StoreOption{session.WithStoreLogger(logger.Discard())}, opts...)
	return session.NewStore(client, opts...), mr
}

func validToken(username string) token.Token {
	return token.Token{
		AccessToken: "tok-" + username,
		Username:    username,
		Anonymous:   username == token.AnonymousUsername,
		ExpiresAt:   farFuture,
	}
}

func authRecord(id, user string) *session.Record {
	return &session.Record{
		SessionID:       id,
		UserID:          user,
		Username:        user,
		Token:           validToken(user),
		IsAuthenticated: true,
		APICookieHash:   token.HashCookie("upstream"),
		CreatedAt:       1_700_000_000_000,
		UserAgent:       "test",
		IP:              "192.0.2.1",
	}
}

func anonRecord(id string) *session.Record {
	return &session.Record{
		SessionID: id,
		Username:  token.AnonymousUsername,
		Token:     validToken(token.AnonymousUsername),
		CreatedAt: 1_700_000_000_000,
	}
}
