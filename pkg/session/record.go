package session

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"math/big"
	mrand "math/rand/v2"
	"strconv"
	"time"

	"github.com/thostetler/nectar-sub000/pkg/logger"
	"github.com/thostetler/nectar-sub000/pkg/token"
)

// Record is the server-side session persisted by RedisBackend.
// CreatedAt and LastActivity are Unix milliseconds.
type Record struct {
	SessionID       string      `json:"sessionId"`
	UserID          string      `json:"userId,omitempty"`
	Username        string      `json:"username,omitempty"`
	Token           token.Token `json:"token"`
	IsAuthenticated bool        `json:"isAuthenticated"`
	APICookieHash   string      `json:"apiCookieHash,omitempty"`
	Bot             bool        `json:"bot"`
	CreatedAt       int64       `json:"createdAt"`
	LastActivity    int64       `json:"lastActivity"`
	UserAgent       string      `json:"userAgent,omitempty"`
	IP              string      `json:"ip,omitempty"`
}

// State returns the fields mirrored into the sealed cookie.
func (r *Record) State() State {
	return State{
		SessionID:       r.SessionID,
		Token:           r.Token,
		IsAuthenticated: r.IsAuthenticated,
		APICookieHash:   r.APICookieHash,
		Bot:             r.Bot,
	}
}

var randRead = rand.Read

// GenerateID returns 32 random bytes, hex encoded. If the system RNG fails
// it logs and returns a unique but predictable timestamp based id instead of
// failing the request.
func GenerateID() string {
	b := make([]byte, 32)
	if _, err := randRead(b); err != nil {
		slog.Default().Error("session id generation fell back to non-cryptographic source",
			logger.Component("session"),
			logger.Error(err),
		)
		suffix := new(big.Int).SetUint64(mrand.Uint64()).Text(36)
		return strconv.FormatInt(time.Now().UnixNano(), 10) + "-" + suffix
	}
	return hex.EncodeToString(b)
}
