package robinhood

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/aussiebroadwan/hoodauth/pkg/session"
)

// ErrNoFallback is returned by TOTPPrompter for challenges when it has no
// fallback prompter.
var ErrNoFallback = errors.New("robinhood: no prompter for challenge codes")

// TOTPPrompter derives MFA codes from a base32 authenticator secret.
// Challenge codes arrive by SMS or email, so those go to Fallback.
type TOTPPrompter struct {
	Secret   string
	Fallback Prompter

	// Now defaults to time.Now.
	Now func() time.Time
}

// MFACode returns the TOTP code for the current 30 second window.
func (p *TOTPPrompter) MFACode(ctx context.Context) (string, error) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	secret := strings.ToUpper(strings.ReplaceAll(p.Secret, " ", ""))
	return totp.GenerateCode(secret, now())
}

// ChallengeCode delegates to Fallback.
func (p *TOTPPrompter) ChallengeCode(ctx context.Context, challenge *session.Challenge) (string, error) {
	if p.Fallback == nil {
		return "", ErrNoFallback
	}
	return p.Fallback.ChallengeCode(ctx, challenge)
}
