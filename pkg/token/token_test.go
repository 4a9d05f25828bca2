package token_test

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thostetler/nectar-sub000/pkg/token"
)

func freezeClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := token.Now
	token.Now = func() time.Time { return at }
	t.Cleanup(func() { token.Now = prev })
}

func epoch(at time.Time) token.Epoch {
	return token.Epoch(strconv.FormatInt(at.Unix(), 10))
}

func TestIsValid(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	freezeClock(t, now)

	tests := []struct {
		name string
		tok  *token.Token
		want bool
	}{
		{"nil", nil, false},
		{"empty access token", &token.Token{ExpiresAt: epoch(now.Add(time.Hour))}, false},
		{"no expiry", &token.Token{AccessToken: "abc"}, false},
		{"epoch in future", &token.Token{AccessToken: "abc", ExpiresAt: epoch(now.Add(time.Hour))}, true},
		{"epoch in past", &token.Token{AccessToken: "abc", ExpiresAt: epoch(now.Add(-time.Second))}, false},
		{"epoch exactly now", &token.Token{AccessToken: "abc", ExpiresAt: epoch(now)}, false},
		{"epoch garbage", &token.Token{AccessToken: "abc", ExpiresAt: "soon"}, false},
		{"iso in future", &token.Token{AccessToken: "abc", ExpireIn: now.Add(time.Hour).Format(time.RFC3339)}, true},
		{"iso in past", &token.Token{AccessToken: "abc", ExpireIn: now.Add(-time.Hour).Format(time.RFC3339)}, false},
		{"iso without zone", &token.Token{AccessToken: "abc", ExpireIn: "2025-06-01T13:00:00"}, true},
		{"iso garbage", &token.Token{AccessToken: "abc", ExpireIn: "tomorrow"}, false},
		{"epoch wins over iso", &token.Token{
			AccessToken: "abc",
			ExpiresAt:   epoch(now.Add(-time.Hour)),
			ExpireIn:    now.Add(time.Hour).Format(time.RFC3339),
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tok.IsValid())
		})
	}
}

func TestIsAuthenticated(t *testing.T) {
	now := time.Now()
	freezeClock(t, now)
	future := epoch(now.Add(time.Hour))

	tests := []struct {
		name string
		tok  token.Token
		want bool
	}{
		{"named user", token.Token{AccessToken: "a", ExpiresAt: future, Username: "user@example.com"}, true},
		{"anonymous sentinel", token.Token{AccessToken: "a", ExpiresAt: future, Username: token.AnonymousUsername, Anonymous: true}, false},
		{"anonymous flag with real username", token.Token{AccessToken: "a", ExpiresAt: future, Username: "user@example.com", Anonymous: true}, true},
		{"sentinel without flag", token.Token{AccessToken: "a", ExpiresAt: future, Username: token.AnonymousUsername}, true},
		{"expired user", token.Token{AccessToken: "a", ExpiresAt: epoch(now.Add(-time.Hour)), Username: "user@example.com"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tok.IsAuthenticated())
		})
	}
}

func TestEpochDecoding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want token.Epoch
	}{
		{"string", `{"expires_at":"99999999999999999"}`, "99999999999999999"},
		{"number", `{"expires_at":1700000000}`, "1700000000"},
		{"null", `{"expires_at":null}`, ""},
		{"absent", `{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var tok token.Token
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &tok))
			assert.Equal(t, tt.want, tok.ExpiresAt)
		})
	}

	t.Run("bool rejected", func(t *testing.T) {
		t.Parallel()
		var tok token.Token
		assert.Error(t, json.Unmarshal([]byte(`{"expires_at":true}`), &tok))
	})
}

func TestFarFutureEpochIsValid(t *testing.T) {
	tok := token.Token{AccessToken: "mocked", ExpiresAt: "99999999999999999"}
	assert.True(t, tok.IsValid())
}

func TestHashCookie(t *testing.T) {
	t.Parallel()

	assert.Empty(t, token.HashCookie(""))
	// sha1("abc")
	assert.Equal(t, "a9993e364706816aba3e25717850c26c9cd0d89d", token.HashCookie("abc"))
	assert.Equal(t, token.HashCookie("session-1"), token.HashCookie("session-1"))
	assert.NotEqual(t, token.HashCookie("session-1"), token.HashCookie("session-2"))
}
