package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yamcs/yamcs-client-go/model"
	"github.com/yamcs/yamcs-client-go/utils"
)

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (s *Session) login(ctx context.Context, username, password string) error {
	return s.exchange(ctx, url.Values{
		"grant_type": {"password"},
		"username":   {username},
		"password":   {password},
	})
}

func (s *Session) refresh(ctx context.Context, refreshToken string) error {
	return s.exchange(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
}

// exchange converts credentials into tokens by using Yamcs as the
// authentication server.
func (s *Session) exchange(ctx context.Context, form url.Values) error {
	tokenURL := s.authRoot + "/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("connection to %s refused: %w: %w", s.address, model.ErrConnectionFailure, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return model.ErrUnauthorized
	default:
		return &model.APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return fmt.Errorf("error in decoding token response: %w", err)
	}

	creds := model.Credentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if token.ExpiresIn > 0 {
		creds.Expiry = s.now().Add(time.Duration(token.ExpiresIn) * time.Second)
	} else if exp, ok := utils.TokenExpiry(token.AccessToken); ok {
		creds.Expiry = exp
	}

	s.mu.Lock()
	if s.credentials != nil {
		creds.Username = s.credentials.Username
	}
	s.credentials = &creds
	s.mu.Unlock()

	s.logger.Debug().Time("expiry", creds.Expiry).Msg("access token updated")
	if s.onTokenUpdate != nil {
		s.onTokenUpdate(creds)
	}
	return nil
}
