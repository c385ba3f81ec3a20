package robinhood

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/hoodauth/pkg/session"
	"github.com/aussiebroadwan/hoodauth/pkg/slogx"
)

// Prompter supplies the codes a user has to type during login.
type Prompter interface {
	// ChallengeCode returns the code delivered for challenge by SMS or email.
	ChallengeCode(ctx context.Context, challenge *session.Challenge) (string, error)

	// MFACode returns the current code from the user's authenticator.
	MFACode(ctx context.Context) (string, error)
}

// Credentials identify the user for a password-grant login.
type Credentials struct {
	Username      string
	Password      string
	ChallengeType session.ChallengeType
	DeviceToken   string
}

// Authenticator runs login and refresh flows for one user session.
type Authenticator struct {
	client   *Client
	prompter Prompter
	logger   *slog.Logger

	mu      sync.Mutex
	machine *session.Machine
}

// AuthenticatorOption configures an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithLogger sets the logger used for flow events. When unset, the logger
// carried by the call's context is used.
func WithLogger(logger *slog.Logger) AuthenticatorOption {
	return func(a *Authenticator) {
		a.logger = logger
	}
}

// WithMachine replaces the session machine, mostly to inject a clock in tests.
func WithMachine(m *session.Machine) AuthenticatorOption {
	return func(a *Authenticator) {
		a.machine = m
	}
}

// NewAuthenticator creates an Authenticator sending requests through client.
func NewAuthenticator(client *Client, prompter Prompter, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		client:   client,
		prompter: prompter,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.machine == nil {
		a.machine = session.NewMachine()
	}
	return a
}

// State returns the current state of the underlying session.
func (a *Authenticator) State() session.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.machine.State()
}

// Tokens returns the tokens of an authenticated session.
func (a *Authenticator) Tokens() (session.Tokens, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.machine.State() != session.StateAuthenticated {
		return session.Tokens{}, false
	}
	return a.machine.Tokens()
}

// SessionID identifies the session in logs.
func (a *Authenticator) SessionID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.machine.ID().String()
}

// Login authenticates with creds, answering challenges and MFA demands
// through the Prompter until the server issues tokens or rejects the attempt.
func (a *Authenticator) Login(ctx context.Context, creds Credentials) (session.Tokens, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx = a.withLogger(ctx)
	logger := slogx.FromContext(ctx)

	req, err := a.machine.Begin(creds.Username, creds.Password, creds.ChallengeType, creds.DeviceToken)
	if err != nil {
		return session.Tokens{}, err
	}
	logger.Info("login_started", "username", creds.Username, "challenge_type", creds.ChallengeType)

	var resub *session.Resubmission
	for {
		var resp *session.OAuthResponse
		if resub != nil {
			resp, err = a.client.Resubmit(ctx, resub)
		} else {
			resp, err = a.client.Login(ctx, req)
		}
		if err != nil {
			return session.Tokens{}, a.failed(ctx, err)
		}

		state, err := a.machine.Handle(resp)
		if err != nil {
			return session.Tokens{}, a.failed(ctx, err)
		}
		logger.Debug("session_transition", "state", state)

		switch state {
		case session.StateAuthenticated:
			tokens, _ := a.machine.Tokens()
			logger.Info("login_succeeded", "expires_at", tokens.ExpiresAt().Format(time.RFC3339))
			return tokens, nil

		case session.StateAwaitingChallengeResponse:
			answered, err := a.answerChallenge(ctx)
			if err != nil {
				return session.Tokens{}, a.failed(ctx, err)
			}
			resub = &answered

		case session.StateAwaitingMFA:
			code, err := a.prompter.MFACode(ctx)
			if err != nil {
				return session.Tokens{}, a.failed(ctx, promptError("mfa", err))
			}
			req, err = a.machine.SupplyMFACode(code)
			if err != nil {
				return session.Tokens{}, a.failed(ctx, err)
			}
			resub = nil

		default:
			return session.Tokens{}, a.failed(ctx, fmt.Errorf("unexpected session state %s", state))
		}
	}
}

// answerChallenge prompts for the pending challenge's code, submits it and
// returns the request to resend.
func (a *Authenticator) answerChallenge(ctx context.Context) (session.Resubmission, error) {
	challenge := a.machine.Challenge()
	slogx.FromContext(ctx).Info("challenge_issued",
		"challenge_id", challenge.ID,
		"type", challenge.Type,
		"remaining_attempts", challenge.RemainingAttempts,
		"expires_at", challenge.ExpiresAt.Format(time.RFC3339),
	)

	code, err := a.prompter.ChallengeCode(ctx, challenge)
	if err != nil {
		return session.Resubmission{}, promptError("challenge", err)
	}

	resub, err := a.machine.AnswerChallenge(session.NewChallengeResponse(code))
	if err != nil {
		return session.Resubmission{}, err
	}

	updated, err := a.client.RespondToChallenge(ctx, resub.Challenge, resub.Answer)
	if err != nil {
		return session.Resubmission{}, err
	}
	if updated.Status != session.ChallengeStatusValidated {
		return session.Resubmission{}, session.AuthenticationFailedError(
			fmt.Sprintf("challenge %s is %s with %d attempts remaining", updated.ID, updated.Status, updated.RemainingAttempts))
	}
	return resub, nil
}

// Refresh exchanges the refresh token for a new token pair. It never
// prompts; a refresh the server does not honour fails the session.
func (a *Authenticator) Refresh(ctx context.Context) (session.Tokens, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx = a.withLogger(ctx)

	req, err := a.machine.BeginRefresh()
	if err != nil {
		return session.Tokens{}, err
	}

	resp, err := a.client.Refresh(ctx, req)
	if err != nil {
		return session.Tokens{}, a.failed(ctx, err)
	}
	if _, err := a.machine.Handle(resp); err != nil {
		return session.Tokens{}, a.failed(ctx, err)
	}

	tokens, _ := a.machine.Tokens()
	slogx.FromContext(ctx).Info("token_refreshed", "expires_at", tokens.ExpiresAt().Format(time.RFC3339))
	return tokens, nil
}

// Logout forgets the session's tokens and returns it to idle.
func (a *Authenticator) Logout() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.machine.Reset()
}

// failed moves the machine to StateFailed, unless it is already there, and
// logs the failure.
func (a *Authenticator) failed(ctx context.Context, cause error) error {
	err := cause
	if a.machine.State() != session.StateFailed {
		err = a.machine.Fail(cause)
	}
	slogx.FromContext(ctx).Warn("session_failed", "error", err)
	return err
}

func (a *Authenticator) withLogger(ctx context.Context) context.Context {
	if a.logger != nil {
		ctx = slogx.WithContext(ctx, a.logger)
	}
	return slogx.WithSession(ctx, a.machine.ID().String())
}

func promptError(what string, err error) *session.Error {
	return &session.Error{
		Kind:    session.KindTransport,
		Message: fmt.Sprintf("%s prompt failed: %v", what, err),
		Err:     err,
	}
}
