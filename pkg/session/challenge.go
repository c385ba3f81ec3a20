package session

import (
	"encoding/json"
	"fmt"
	"time"
)

// ChallengeResponseHeader carries the id of the challenge being answered
// when the login request is resubmitted.
const ChallengeResponseHeader = "X-ROBINHOOD-CHALLENGE-RESPONSE-ID"

// ChallengeType is the delivery channel of a verification challenge.
type ChallengeType int

const (
	ChallengeTypeEmail ChallengeType = iota + 1
	ChallengeTypeSMS
)

var (
	challengeTypeTokens = map[ChallengeType]string{
		ChallengeTypeEmail: "email",
		ChallengeTypeSMS:   "sms",
	}
	challengeTypeValues = map[string]ChallengeType{
		"email": ChallengeTypeEmail,
		"sms":   ChallengeTypeSMS,
	}
)

// ParseChallengeType maps a wire token to its ChallengeType.
func ParseChallengeType(token string) (ChallengeType, error) {
	t, ok := challengeTypeValues[token]
	if !ok {
		return 0, fmt.Errorf("unknown challenge type %q", token)
	}
	return t, nil
}

func (t ChallengeType) String() string {
	if token, ok := challengeTypeTokens[t]; ok {
		return token
	}
	return fmt.Sprintf("ChallengeType(%d)", int(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t ChallengeType) MarshalText() ([]byte, error) {
	token, ok := challengeTypeTokens[t]
	if !ok {
		return nil, fmt.Errorf("invalid challenge type %d", int(t))
	}
	return []byte(token), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ChallengeType) UnmarshalText(text []byte) error {
	parsed, err := ParseChallengeType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ChallengeStatus is the server-side state of a challenge.
type ChallengeStatus int

const (
	ChallengeStatusIssued ChallengeStatus = iota + 1
	ChallengeStatusValidated
	ChallengeStatusFailed
)

var (
	challengeStatusTokens = map[ChallengeStatus]string{
		ChallengeStatusIssued:    "issued",
		ChallengeStatusValidated: "validated",
		ChallengeStatusFailed:    "failed",
	}
	challengeStatusValues = map[string]ChallengeStatus{
		"issued":    ChallengeStatusIssued,
		"validated": ChallengeStatusValidated,
		"failed":    ChallengeStatusFailed,
	}
)

// ParseChallengeStatus maps a wire token to its ChallengeStatus.
func ParseChallengeStatus(token string) (ChallengeStatus, error) {
	s, ok := challengeStatusValues[token]
	if !ok {
		return 0, fmt.Errorf("unknown challenge status %q", token)
	}
	return s, nil
}

func (s ChallengeStatus) String() string {
	if token, ok := challengeStatusTokens[s]; ok {
		return token
	}
	return fmt.Sprintf("ChallengeStatus(%d)", int(s))
}

// Terminal reports whether no further answer can change the challenge.
func (s ChallengeStatus) Terminal() bool {
	return s == ChallengeStatusValidated || s == ChallengeStatusFailed
}

// MarshalText implements encoding.TextMarshaler.
func (s ChallengeStatus) MarshalText() ([]byte, error) {
	token, ok := challengeStatusTokens[s]
	if !ok {
		return nil, fmt.Errorf("invalid challenge status %d", int(s))
	}
	return []byte(token), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ChallengeStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseChallengeStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Challenge is a server-issued out-of-band verification prompt. It is a
// value object: a new status arrives as a new Challenge from the server.
type Challenge struct {
	ID                string
	User              string
	Type              ChallengeType
	Status            ChallengeStatus
	RemainingAttempts int
	RemainingRetries  int
	ExpiresAt         time.Time

	// Extra keeps every field the server sent that is not listed above.
	Extra Overflow
}

var challengeFields = newFieldSet(
	"id", "user", "type", "status", "remaining_attempts", "remaining_retries", "expires_at",
)

// challengeWire is the decoding shape; pointers tell absent from zero.
type challengeWire struct {
	ID                *string          `json:"id"`
	User              *string          `json:"user"`
	Type              *ChallengeType   `json:"type"`
	Status            *ChallengeStatus `json:"status"`
	RemainingAttempts *int             `json:"remaining_attempts"`
	RemainingRetries  *int             `json:"remaining_retries"`
	ExpiresAt         *time.Time       `json:"expires_at"`
}

type challengeKnown struct {
	ID                string          `json:"id"`
	User              string          `json:"user"`
	Type              ChallengeType   `json:"type"`
	Status            ChallengeStatus `json:"status"`
	RemainingAttempts int             `json:"remaining_attempts"`
	RemainingRetries  int             `json:"remaining_retries"`
	ExpiresAt         time.Time       `json:"expires_at"`
}

// UnmarshalJSON decodes a challenge, keeping unknown fields in Extra.
// Failures are returned as deserialization errors.
func (c *Challenge) UnmarshalJSON(data []byte) error {
	root, err := parseObject(data)
	if err != nil {
		return DeserializationError(fmt.Errorf("challenge: %w", err))
	}

	var w challengeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return DeserializationError(fmt.Errorf("challenge: %w", err))
	}

	switch {
	case w.ID == nil:
		return DeserializationError(fmt.Errorf("challenge: missing field %q", "id"))
	case w.User == nil:
		return DeserializationError(fmt.Errorf("challenge: missing field %q", "user"))
	case w.Type == nil:
		return DeserializationError(fmt.Errorf("challenge: missing field %q", "type"))
	case w.Status == nil:
		return DeserializationError(fmt.Errorf("challenge: missing field %q", "status"))
	case w.ExpiresAt == nil:
		return DeserializationError(fmt.Errorf("challenge: missing field %q", "expires_at"))
	}

	decoded := Challenge{
		ID:        *w.ID,
		User:      *w.User,
		Type:      *w.Type,
		Status:    *w.Status,
		ExpiresAt: *w.ExpiresAt,
		Extra:     captureOverflow(root, challengeFields),
	}
	if w.RemainingAttempts != nil {
		decoded.RemainingAttempts = *w.RemainingAttempts
	}
	if w.RemainingRetries != nil {
		decoded.RemainingRetries = *w.RemainingRetries
	}
	if decoded.RemainingAttempts < 0 || decoded.RemainingRetries < 0 {
		return DeserializationError(fmt.Errorf("challenge: remaining counters must not be negative"))
	}

	*c = decoded
	return nil
}

// MarshalJSON encodes the known fields followed by the Extra fields.
func (c Challenge) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(challengeKnown{
		ID:                c.ID,
		User:              c.User,
		Type:              c.Type,
		Status:            c.Status,
		RemainingAttempts: c.RemainingAttempts,
		RemainingRetries:  c.RemainingRetries,
		ExpiresAt:         c.ExpiresAt,
	})
	if err != nil {
		return nil, err
	}
	return emitOverflow(base, c.Extra, challengeFields)
}

// ResponseHeader maps the challenge to the header the transport attaches
// when resubmitting the login request.
func (c *Challenge) ResponseHeader() (name, value string) {
	return ChallengeResponseHeader, c.ID
}

// Expired reports whether now is past the challenge's expiry.
// Enforcing it is up to the caller.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// ChallengeResponse is the caller's answer to a challenge.
type ChallengeResponse struct {
	Response string `json:"response"`
}

// NewChallengeResponse wraps the code the user received.
func NewChallengeResponse(code string) ChallengeResponse {
	return ChallengeResponse{Response: code}
}
