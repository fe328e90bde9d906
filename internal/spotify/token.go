package spotify

import (
	"time"
)

// AccessToken is a client-credentials token.
type AccessToken struct {
	AccessToken string    `yaml:"access_token"`
	TokenType   string    `yaml:"token_type"`
	ExpiresIn   int64     `yaml:"expires_in"`
	Granted     time.Time `yaml:"granted"`
}

// Expired reports whether the token is no longer valid at now. A token with
// no grant time is always expired.
func (t *AccessToken) Expired(now time.Time) bool {
	if t == nil || t.Granted.IsZero() || t.AccessToken == "" {
		return true
	}
	return now.Sub(t.Granted) > time.Duration(t.ExpiresIn)*time.Second
}

// TokenStore persists tokens between runs.
type TokenStore interface {
	LoadToken() (*AccessToken, error)
	SaveToken(*AccessToken) error
}
