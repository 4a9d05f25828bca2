package bootstrap

import (
	"encoding/json"
	"errors"

	"github.com/thostetler/nectar-sub000/pkg/token"
)

var ErrNoToken = errors.New("bootstrap.no_token")

// payload mirrors only the fields the session layer uses. The identity
// service returns more; everything else is ignored.
type payload struct {
	AccessToken string      `json:"access_token"`
	Username    string      `json:"username"`
	Anonymous   bool        `json:"anonymous"`
	ExpiresAt   token.Epoch `json:"expires_at"`
	ExpireIn    string      `json:"expire_in"`
	User        *payload    `json:"user"`
}

// Decode extracts a token from a bootstrap body. Both the flat upstream shape
// and the {"user": {...}} envelope served by /api/user are accepted.
func Decode(body []byte) (*token.Token, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}
	if p.AccessToken == "" && p.User != nil {
		p = *p.User
	}
	if p.AccessToken == "" {
		return nil, ErrNoToken
	}
	return &token.Token{
		AccessToken: p.AccessToken,
		Username:    p.Username,
		Anonymous:   p.Anonymous,
		ExpiresAt:   p.ExpiresAt,
		ExpireIn:    p.ExpireIn,
	}, nil
}
