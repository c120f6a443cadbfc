package zoho

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"
)

// TokenProvider returns a currently valid access token. Implementations
// handle refresh and expiry internally and are safe for concurrent use.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// RefreshTokenProvider exchanges a long-lived refresh token for access
// tokens and reuses each one until shortly before it expires.
type RefreshTokenProvider struct {
	src oauth2.TokenSource
}

// Credentials are the OAuth client settings of the service.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	TokenURL     string
}

// NewRefreshTokenProvider builds a provider that refreshes through client.
// client carries the timeout and rate limiting of all vendor calls.
func NewRefreshTokenProvider(creds Credentials, client *http.Client) *RefreshTokenProvider {
	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  creds.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ctx := context.Background()
	if client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
	}
	return &RefreshTokenProvider{
		src: conf.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken}),
	}
}

// Token returns a valid access token, refreshing when needed.
func (p *RefreshTokenProvider) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &UpstreamError{Op: OpRefreshToken, Err: err}
	}
	tok, err := p.src.Token()
	if err != nil {
		uerr := &UpstreamError{Op: OpRefreshToken, Err: err}
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil {
			uerr.StatusCode = rerr.Response.StatusCode
			uerr.Body = excerpt(rerr.Body)
		}
		return "", uerr
	}
	return tok.AccessToken, nil
}

// StaticToken is a pre-issued access token.
type StaticToken string

// Token returns the static token.
func (s StaticToken) Token(context.Context) (string, error) {
	if s == "" {
		return "", &UpstreamError{Op: OpRefreshToken, Err: errors.New("empty static token")}
	}
	return string(s), nil
}
