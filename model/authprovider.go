package model

import "time"

// AuthProvider supplies the credentials used to authenticate against Yamcs.
type AuthProvider interface {
	GetCredentials() (*Credentials, error)
}

// Credentials hold either a username/password pair, which the client
// exchanges for tokens, or bearer tokens directly.
type Credentials struct {
	Username     string    `yaml:"username,omitempty"`
	Password     string    `yaml:"-"`
	AccessToken  string    `yaml:"access_token,omitempty"`
	RefreshToken string    `yaml:"refresh_token,omitempty"`
	Expiry       time.Time `yaml:"expiry,omitempty"`
}

// IsExpired reports whether the access token is expired at the given time.
// Tokens without a known expiry never expire.
func (c *Credentials) IsExpired(now time.Time) bool {
	if c == nil || c.Expiry.IsZero() {
		return false
	}
	return !now.Before(c.Expiry)
}

// HasPassword reports whether these credentials must still be exchanged for a token.
func (c *Credentials) HasPassword() bool {
	return c != nil && c.Username != "" && c.Password != ""
}

// StaticCredentials is an AuthProvider returning fixed credentials.
type StaticCredentials Credentials

func (s StaticCredentials) GetCredentials() (*Credentials, error) {
	c := Credentials(s)
	return &c, nil
}
