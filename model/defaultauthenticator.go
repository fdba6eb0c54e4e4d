package model

import "os"

const (
	EnvUsername    = "YAMCS_USERNAME"
	EnvPassword    = "YAMCS_PASSWORD"
	EnvAccessToken = "YAMCS_ACCESS_TOKEN"
)

// DefaultAuthenticator implements AuthProvider from environment variables.
// It returns nil credentials when none are set, in which case requests are
// sent unauthenticated.
type DefaultAuthenticator struct {
}

func (da DefaultAuthenticator) GetCredentials() (*Credentials, error) {
	username := os.Getenv(EnvUsername)
	password := os.Getenv(EnvPassword)
	if username != "" && password != "" {
		return &Credentials{Username: username, Password: password}, nil
	}
	if token := os.Getenv(EnvAccessToken); token != "" {
		return &Credentials{AccessToken: token}, nil
	}
	return nil, nil
}
