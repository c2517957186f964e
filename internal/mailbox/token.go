package mailbox

import (
	"context"
	"time"

	"golang.org/x/oauth2"

	"order-recon-go/internal/errs"
)

// expirySkew treats tokens expiring within this margin as already expired.
const expirySkew = 60 * time.Second

// Credential is the access/refresh token pair owned by the caller. The guard
// may hand back a refreshed access token and expiry which the caller must
// persist.
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the access token is missing or inside the
// clock-skew margin of its expiry.
func (c Credential) Expired(now time.Time) bool {
	if c.AccessToken == "" {
		return true
	}
	if c.ExpiresAt.IsZero() {
		return true
	}
	return !now.Before(c.ExpiresAt.Add(-expirySkew))
}

// TokenGuard ensures a valid bearer credential, exchanging the refresh token
// when the access token is expired or absent.
type TokenGuard struct {
	conf *oauth2.Config
	now  func() time.Time
}

// NewTokenGuard builds a guard for the given OAuth client. tokenURL points at
// the provider's token endpoint.
func NewTokenGuard(clientID, clientSecret, tokenURL string) *TokenGuard {
	return &TokenGuard{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
		},
		now: time.Now,
	}
}

// Ensure returns a usable credential and whether a refresh occurred. A
// refresh failure is fatal to the run: there is no retry here, the caller
// must force re-authentication.
func (g *TokenGuard) Ensure(ctx context.Context, cred Credential) (Credential, bool, error) {
	if !cred.Expired(g.now()) {
		return cred, false, nil
	}

	if cred.RefreshToken == "" {
		return Credential{}, false, &errs.CredentialError{Msg: "missing refresh token for token refresh"}
	}

	src := g.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	token, err := src.Token()
	if err != nil {
		return Credential{}, false, &errs.CredentialError{Msg: "failed to refresh access token", Err: err}
	}

	refreshed := Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: cred.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
	if token.RefreshToken != "" {
		refreshed.RefreshToken = token.RefreshToken
	}
	return refreshed, true, nil
}
