package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// OAuthConfigFromJSON parses an OAuth client file ("installed" or "web").
func OAuthConfigFromJSON(data []byte) (*oauth2.Config, error) {
	conf, err := google.ConfigFromJSON(data, DefaultOAuthScopes...)
	if err != nil {
		return nil, fmt.Errorf("invalid OAuth client configuration: %w", err)
	}
	return conf, nil
}

// StoredToken is a user token as persisted on disk or in the bucket.
// Python authorized-user files also carry the OAuth client they were issued to.
type StoredToken struct {
	Token *oauth2.Token

	ClientID     string
	ClientSecret string
	TokenURI     string
}

// storedTokenJSON is the union of both token file shapes.
type storedTokenJSON struct {
	AccessToken  string `json:"access_token"`
	Token        string `json:"token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	Expiry       string `json:"expiry"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	TokenURI     string `json:"token_uri"`
}

// Python writes naive UTC timestamps with microseconds.
const pythonExpiryLayout = "2006-01-02T15:04:05.999999"

// ParseToken reads a token file. A token without a usable expiry is treated as
// expired so that it is refreshed before first use.
func ParseToken(data []byte) (*StoredToken, error) {
	var raw storedTokenJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid token JSON: %w", err)
	}

	access := raw.AccessToken
	if access == "" {
		access = raw.Token
	}
	if access == "" && raw.RefreshToken == "" {
		return nil, errors.New("token has neither an access token nor a refresh token")
	}

	tokenType := raw.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	return &StoredToken{
		Token: &oauth2.Token{
			AccessToken:  access,
			TokenType:    tokenType,
			RefreshToken: raw.RefreshToken,
			Expiry:       parseExpiry(raw.Expiry),
		},
		ClientID:     raw.ClientID,
		ClientSecret: raw.ClientSecret,
		TokenURI:     raw.TokenURI,
	}, nil
}

func parseExpiry(s string) time.Time {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.ParseInLocation(pythonExpiryLayout, s, time.UTC); err == nil {
		return t
	}
	return time.Unix(1, 0)
}

// OAuthConfig builds a client configuration from the client fields embedded
// in the token. It fails when the token does not carry them.
func (t *StoredToken) OAuthConfig() (*oauth2.Config, error) {
	if t.ClientID == "" || t.ClientSecret == "" {
		return nil, errors.New("token does not include OAuth client credentials")
	}

	endpoint := google.Endpoint
	if t.TokenURI != "" {
		endpoint.TokenURL = t.TokenURI
	}
	return &oauth2.Config{
		ClientID:     t.ClientID,
		ClientSecret: t.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       DefaultOAuthScopes,
	}, nil
}

// MarshalToken encodes a token in the Go oauth2 shape.
func MarshalToken(tok *oauth2.Token) ([]byte, error) {
	return json.MarshalIndent(tok, "", "  ")
}

// NewHTTPClient returns an HTTP client that authorizes requests with tok and
// refreshes it through conf when it expires.
// The client is configured to use HTTP/1.1 to avoid HTTP/2 protocol errors.
func NewHTTPClient(ctx context.Context, conf *oauth2.Config, tok *oauth2.Token) *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: conf.TokenSource(ctx, tok),
			Base: &http.Transport{
				Proxy:             http.ProxyFromEnvironment,
				ForceAttemptHTTP2: false,
			},
		},
	}
}

// IsAuthError reports whether err comes from a failed token refresh.
func IsAuthError(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	return errors.As(err, &retrieveErr)
}
