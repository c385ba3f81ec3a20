package robinhood

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/hoodauth/pkg/session"
	"github.com/aussiebroadwan/hoodauth/pkg/slogx"
)

var testNow = time.Date(2023, 10, 18, 10, 55, 0, 0, time.UTC)

const challengeBody = `{
  "detail": "Request blocked, challenge issued.",
  "expires_in": 0,
  "challenge": {
    "id": "challenge-42",
    "user": "user-1",
    "type": "sms",
    "status": "issued",
    "remaining_attempts": 3,
    "remaining_retries": 2,
    "expires_at": "2023-10-18T10:59:50.159306Z"
  }
}`

const validatedChallenge = `{
  "id": "challenge-42",
  "user": "user-1",
  "type": "sms",
  "status": "validated",
  "remaining_attempts": 3,
  "remaining_retries": 2,
  "expires_at": "2023-10-18T10:59:50.159306Z"
}`

const failedChallenge = `{
  "id": "challenge-42",
  "user": "user-1",
  "type": "sms",
  "status": "failed",
  "remaining_attempts": 0,
  "remaining_retries": 2,
  "expires_at": "2023-10-18T10:59:50.159306Z"
}`

const mfaBody = `{"detail":"Please enter your MFA code.","mfa_required":true,"expires_in":0}`

type reply struct {
	status int
	body   string
}

type recorded struct {
	path   string
	header http.Header
	body   map[string]any
}

// fakeAPI serves scripted replies for the token and challenge endpoints
// and records what it was sent.
type fakeAPI struct {
	mu           sync.Mutex
	token        []reply
	respond      []reply
	tokenCalls   []recorded
	respondCalls []recorded
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var body map[string]any
	data, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(data, &body)
	rec := recorded{path: r.URL.Path, header: r.Header.Clone(), body: body}

	var queue *[]reply
	switch {
	case r.URL.Path == "/"+TokenPath:
		f.tokenCalls = append(f.tokenCalls, rec)
		queue = &f.token
	case strings.HasPrefix(r.URL.Path, "/challenge/") && strings.HasSuffix(r.URL.Path, "/respond/"):
		f.respondCalls = append(f.respondCalls, rec)
		queue = &f.respond
	default:
		http.NotFound(w, r)
		return
	}

	if len(*queue) == 0 {
		http.Error(w, "no scripted reply", http.StatusInternalServerError)
		return
	}
	next := (*queue)[0]
	*queue = (*queue)[1:]

	if next.status != 0 {
		w.WriteHeader(next.status)
	}
	_, _ = io.WriteString(w, next.body)
}

func (f *fakeAPI) tokenRequests() []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recorded(nil), f.tokenCalls...)
}

func (f *fakeAPI) respondRequests() []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recorded(nil), f.respondCalls...)
}

type fakePrompter struct {
	challengeCode string
	mfaCode       string
	err           error

	challenges []*session.Challenge
	mfaCalls   int
}

func (p *fakePrompter) ChallengeCode(_ context.Context, challenge *session.Challenge) (string, error) {
	p.challenges = append(p.challenges, challenge)
	if p.err != nil {
		return "", p.err
	}
	return p.challengeCode, nil
}

func (p *fakePrompter) MFACode(context.Context) (string, error) {
	p.mfaCalls++
	if p.err != nil {
		return "", p.err
	}
	return p.mfaCode, nil
}

var errPromptClosed = errors.New("stdin closed")

func newTestAuthenticator(t *testing.T, api *fakeAPI, prompter Prompter) *Authenticator {
	t.Helper()
	machine := session.NewMachine(session.WithClock(func() time.Time { return testNow }))
	return NewAuthenticator(newTestClient(t, api), prompter,
		WithMachine(machine),
		WithLogger(slogx.Discard()),
	)
}

var testCredentials = Credentials{
	Username:      "username",
	Password:      "password",
	ChallengeType: session.ChallengeTypeSMS,
	DeviceToken:   "device",
}
