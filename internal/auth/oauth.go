package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Credentials selects how the bot authenticates against the game server.
// A TokenURL switches to OAuth2 client credentials; otherwise a service
// token is signed with JWTSecret.
type Credentials struct {
	JWTSecret    string
	UserID       string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// ServiceTokenSource returns client-credentials tokens from tokenURL. The
// tokens are cached until they expire.
func ServiceTokenSource(ctx context.Context, clientID, clientSecret, tokenURL string, scopes []string) oauth2.TokenSource {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       scopes,
	}
	return cfg.TokenSource(ctx)
}

// TokenSource returns the bearer token source for c.
func (c Credentials) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if c.TokenURL != "" {
		if c.ClientID == "" {
			return nil, fmt.Errorf("client credentials: missing client id")
		}
		return ServiceTokenSource(ctx, c.ClientID, c.ClientSecret, c.TokenURL, c.Scopes), nil
	}
	if c.JWTSecret == "" {
		return nil, fmt.Errorf("service token: %w", ErrMissingToken)
	}
	return NewJWTManager(c.JWTSecret).TokenSource(c.UserID), nil
}
