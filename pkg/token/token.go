package token

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AnonymousUsername is the username the identity service assigns to
// anonymous tokens.
const AnonymousUsername = "anonymous@ads"

// Now is the clock used by expiry checks. Tests may replace it.
var Now = time.Now

// Epoch is a Unix timestamp in seconds. It decodes from a JSON string or
// number and always encodes as a string.
type Epoch string

func (e *Epoch) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*e = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*e = Epoch(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("token: expires_at: %w", err)
	}
	*e = Epoch(n.String())
	return nil
}

// Token is the credential attached to every outbound API request.
type Token struct {
	AccessToken string `json:"access_token"`
	Username    string `json:"username"`
	Anonymous   bool   `json:"anonymous"`
	ExpiresAt   Epoch  `json:"expires_at,omitempty"`
	ExpireIn    string `json:"expire_in,omitempty"`
}

// IsShapeValid reports whether the token carries an access token and an
// expiry marker.
func (t *Token) IsShapeValid() bool {
	return t != nil && t.AccessToken != "" && (t.ExpiresAt != "" || t.ExpireIn != "")
}

// IsExpired reports whether the token's expiry has passed.
func (t *Token) IsExpired() bool {
	if t == nil {
		return true
	}
	if t.ExpiresAt != "" {
		return IsEpochExpired(string(t.ExpiresAt))
	}
	return IsISOExpired(t.ExpireIn)
}

func (t *Token) IsValid() bool {
	return t.IsShapeValid() && !t.IsExpired()
}

// IsAuthenticated reports whether the token is valid and belongs to a real
// user rather than the anonymous identity.
func (t *Token) IsAuthenticated() bool {
	return t.IsValid() && (!t.Anonymous || t.Username != AnonymousUsername)
}

// IsEpochExpired reports whether now >= expiry, where expiry is a decimal
// count of seconds since the Unix epoch.
func IsEpochExpired(expiry string) bool {
	expiry = strings.TrimSpace(expiry)
	sec, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(expiry, 64)
		if ferr != nil {
			return true
		}
		sec = int64(f)
	}
	return Now().Unix() >= sec
}

// IsISOExpired reports whether now >= expiry, where expiry is an RFC 3339 /
// ISO-8601 timestamp.
func IsISOExpired(expiry string) bool {
	at, err := parseISO(strings.TrimSpace(expiry))
	if err != nil {
		return true
	}
	return !Now().Before(at)
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseISO(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range isoLayouts {
		at, err := time.Parse(layout, s)
		if err == nil {
			return at, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// HashCookie returns the hex SHA-1 digest of a raw upstream cookie value, or
// "" when the value is empty. The digest is used for equality checks only.
func HashCookie(raw string) string {
	if raw == "" {
		return ""
	}
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
