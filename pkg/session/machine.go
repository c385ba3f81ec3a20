package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/hoodauth/pkg/idx"
)

// State is the position of a session in the authentication flow.
type State int

const (
	// StateIdle means no flow has started (or the machine was reset).
	StateIdle State = iota
	// StateInitiated means a login request is built and not yet answered.
	StateInitiated
	// StateAwaitingChallengeResponse means the server issued a challenge.
	StateAwaitingChallengeResponse
	// StateAwaitingMFA means the server asked for an MFA code.
	StateAwaitingMFA
	// StateAuthenticated means tokens were obtained.
	StateAuthenticated
	// StateRefreshing means a refresh request is built and not yet answered.
	StateRefreshing
	// StateFailed is terminal until Begin or Reset.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitiated:
		return "initiated"
	case StateAwaitingChallengeResponse:
		return "awaiting_challenge_response"
	case StateAwaitingMFA:
		return "awaiting_mfa"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Tokens is the credential pair held by an authenticated session.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	IssuedAt     time.Time
}

// ExpiresAt is the access token deadline derived from ExpiresIn.
func (t Tokens) ExpiresAt() time.Time {
	return t.IssuedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// Resubmission is the login request to send again after a challenge was
// answered, together with the headers the transport must attach.
type Resubmission struct {
	Request   OAuthLoginRequest
	Headers   map[string]string
	Challenge *Challenge
	Answer    ChallengeResponse
}

// Machine sequences one session's authentication flow. It performs no I/O:
// the caller sends the requests it builds and feeds back parsed responses.
//
// A Machine is not safe for concurrent use. Independent sessions each own
// their own Machine.
type Machine struct {
	id  idx.ID
	now func() time.Time

	state     State
	request   OAuthLoginRequest
	challenge *Challenge
	tokens    Tokens
	hasTokens bool
	err       error
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock replaces time.Now, used for token issue times and challenge expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		m.now = now
	}
}

// NewMachine returns an idle machine with a fresh session id.
func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		id:  idx.New(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ID identifies the session, mainly for log correlation.
func (m *Machine) ID() idx.ID { return m.id }

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Request returns the active login request.
func (m *Machine) Request() OAuthLoginRequest { return m.request }

// Challenge returns the pending challenge, or nil.
func (m *Machine) Challenge() *Challenge { return m.challenge }

// Err returns the failure reason once the machine is in StateFailed.
func (m *Machine) Err() error { return m.err }

// Tokens returns the stored tokens and whether any were obtained.
func (m *Machine) Tokens() (Tokens, bool) {
	return m.tokens, m.hasTokens
}

// Begin builds the initial login request and moves to StateInitiated.
// It is rejected while another flow is in progress.
func (m *Machine) Begin(username, password string, challengeType ChallengeType, deviceToken string) (OAuthLoginRequest, error) {
	switch m.state {
	case StateIdle, StateAuthenticated, StateFailed:
	default:
		return OAuthLoginRequest{}, invalidTransition("begin login", m.state)
	}

	m.request = NewLoginRequest(username, password, challengeType, deviceToken)
	m.challenge = nil
	m.tokens = Tokens{}
	m.hasTokens = false
	m.err = nil
	m.state = StateInitiated
	return m.request, nil
}

// Handle advances the machine with a freshly parsed response. From
// StateInitiated the response is ranked: access token, then challenge, then
// MFA, otherwise failure. From StateRefreshing only an access token counts.
//
// The returned error is non-nil exactly when the machine ends in StateFailed,
// or when Handle is called in a state that expects no response.
func (m *Machine) Handle(resp *OAuthResponse) (State, error) {
	switch m.state {
	case StateInitiated, StateRefreshing:
	default:
		return m.state, invalidTransition("handle a response", m.state)
	}

	if resp == nil {
		return m.fail(DeserializationError(fmt.Errorf("empty oauth response")))
	}

	refreshing := m.state == StateRefreshing

	switch {
	case resp.HasAccessToken():
		refreshToken := resp.RefreshToken
		if refreshToken == "" && refreshing {
			refreshToken = m.tokens.RefreshToken
		}
		m.tokens = Tokens{
			AccessToken:  resp.AccessToken,
			RefreshToken: refreshToken,
			ExpiresIn:    resp.ExpiresIn,
			IssuedAt:     m.now(),
		}
		m.hasTokens = true
		m.challenge = nil
		m.state = StateAuthenticated
		return m.state, nil

	case refreshing:
		return m.fail(AuthenticationFailedError(resp.Detail))

	case resp.HasChallenge():
		m.challenge = resp.Challenge
		m.state = StateAwaitingChallengeResponse
		return m.state, nil

	case resp.MFARequired:
		m.state = StateAwaitingMFA
		return m.state, nil

	default:
		return m.fail(AuthenticationFailedError(resp.Detail))
	}
}

// AnswerChallenge records the caller's answer to the pending challenge and
// returns the unchanged login request to resend with the challenge header.
// An expired challenge fails the flow.
func (m *Machine) AnswerChallenge(answer ChallengeResponse) (Resubmission, error) {
	if m.state != StateAwaitingChallengeResponse {
		return Resubmission{}, invalidTransition("answer a challenge", m.state)
	}
	if answer.Response == "" {
		return Resubmission{}, NewError(KindInvalidState, "challenge answer is empty")
	}

	challenge := m.challenge
	if challenge.Expired(m.now()) {
		_, err := m.fail(AuthenticationFailedError(fmt.Sprintf("challenge %s expired at %s", challenge.ID, challenge.ExpiresAt.Format(time.RFC3339))))
		return Resubmission{}, err
	}

	name, value := challenge.ResponseHeader()
	m.state = StateInitiated
	return Resubmission{
		Request:   m.request,
		Headers:   map[string]string{name: value},
		Challenge: challenge,
		Answer:    answer,
	}, nil
}

// SupplyMFACode folds the MFA code into a new login request, which becomes
// the active request to send.
func (m *Machine) SupplyMFACode(code string) (OAuthLoginRequest, error) {
	if m.state != StateAwaitingMFA {
		return OAuthLoginRequest{}, invalidTransition("supply an mfa code", m.state)
	}
	if code == "" {
		return OAuthLoginRequest{}, NewError(KindInvalidState, "mfa code is empty")
	}

	m.request = m.request.WithMFACode(code)
	m.state = StateInitiated
	return m.request, nil
}

// BeginRefresh builds a refresh request from the stored refresh token.
func (m *Machine) BeginRefresh() (OAuthRefreshRequest, error) {
	if m.state != StateAuthenticated {
		return OAuthRefreshRequest{}, invalidTransition("refresh", m.state)
	}
	if m.tokens.RefreshToken == "" {
		return OAuthRefreshRequest{}, NewError(KindInvalidState, "no refresh token available")
	}

	m.state = StateRefreshing
	return NewRefreshRequest(m.tokens.RefreshToken), nil
}

// Fail drives the machine to StateFailed. Errors that are not already
// domain errors are treated as transport failures.
func (m *Machine) Fail(cause error) error {
	var domainErr *Error
	if !errors.As(cause, &domainErr) {
		domainErr = TransportError(cause)
	}
	_, err := m.fail(domainErr)
	return err
}

// Reset returns the machine to StateIdle and forgets everything but its id.
func (m *Machine) Reset() {
	m.state = StateIdle
	m.request = OAuthLoginRequest{}
	m.challenge = nil
	m.tokens = Tokens{}
	m.hasTokens = false
	m.err = nil
}

func (m *Machine) fail(err *Error) (State, error) {
	m.state = StateFailed
	m.err = err
	return m.state, err
}
