package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// OAuth2 endpoints for Google accounts.
const (
	authURL  = "https://accounts.google.com/o/oauth2/auth"
	tokenURL = "https://oauth2.googleapis.com/token"
)

// Credentials holds the OAuth credentials for a Google source.
// A refresh token together with the client ID/secret yields a self-renewing
// token source; a bare access token is accepted for short-lived use.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	AccessToken  string
}

// NewTokenSource creates an oauth2.TokenSource from the given credentials.
// The returned TokenSource can be used with option.WithTokenSource() when
// creating Google API services.
func NewTokenSource(ctx context.Context, creds Credentials) (oauth2.TokenSource, error) {
	if creds.RefreshToken != "" {
		if creds.ClientID == "" || creds.ClientSecret == "" {
			return nil, fmt.Errorf("google: refresh token requires client_id and client_secret")
		}
		cfg := &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
		}
		return cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken}), nil
	}

	if creds.AccessToken != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: creds.AccessToken,
			TokenType:   "Bearer",
		}), nil
	}

	return nil, fmt.Errorf("google: no credentials provided (need refresh_token or access_token)")
}
