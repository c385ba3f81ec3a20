package robinhood

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/aussiebroadwan/hoodauth/pkg/session"
)

// refreshBuffer is how long before expiry a token is treated as stale.
const refreshBuffer = 30 * time.Second

// TokenSource exposes the authenticated session as an oauth2.TokenSource.
// Tokens are refreshed through Refresh shortly before they expire, so the
// result can back an oauth2.Transport for API calls.
func (a *Authenticator) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &sessionTokenSource{ctx: ctx, auth: a, now: time.Now}
}

type sessionTokenSource struct {
	ctx  context.Context
	auth *Authenticator
	now  func() time.Time
}

func (s *sessionTokenSource) Token() (*oauth2.Token, error) {
	tokens, ok := s.auth.Tokens()
	if !ok {
		return nil, session.NewError(session.KindInvalidState, "session is not authenticated")
	}

	if !s.now().Before(Deadline(tokens)) {
		refreshed, err := s.auth.Refresh(s.ctx)
		if err != nil {
			return nil, err
		}
		tokens = refreshed
	}

	return &oauth2.Token{
		AccessToken:  tokens.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: tokens.RefreshToken,
		Expiry:       Deadline(tokens),
	}, nil
}

// Deadline returns when tokens should be refreshed: the access token's exp
// claim when it is a JWT, otherwise issue time plus expires_in, minus a
// short buffer.
func Deadline(tokens session.Tokens) time.Time {
	expiry := tokens.ExpiresAt()
	if exp, ok := accessTokenExpiry(tokens.AccessToken); ok {
		expiry = exp
	}
	return expiry.Add(-refreshBuffer)
}

// accessTokenExpiry reads the exp claim without verifying the signature.
// The signing key belongs to the server.
func accessTokenExpiry(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
