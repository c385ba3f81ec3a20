package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

// OAuthResponse is the token endpoint's answer. It may be a success, a
// pending challenge, a pending MFA prompt or a rejection; see Machine.Handle
// for how the cases are ranked.
type OAuthResponse struct {
	Detail       string
	Challenge    *Challenge
	MFARequired  bool
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64

	// Extra keeps every top-level field not listed above.
	Extra Overflow

	// emptyAccessToken records "access_token":"" on the wire, which still
	// counts as present.
	emptyAccessToken bool
}

var oauthResponseFields = newFieldSet(
	"detail", "challenge", "mfa_required", "access_token", "refresh_token", "expires_in",
)

type oauthResponseWire struct {
	Detail       *string    `json:"detail"`
	Challenge    *Challenge `json:"challenge"`
	MFARequired  *bool      `json:"mfa_required"`
	AccessToken  *string    `json:"access_token"`
	RefreshToken *string    `json:"refresh_token"`
	ExpiresIn    *int64     `json:"expires_in"`
}

type oauthResponseKnown struct {
	Detail       string     `json:"detail"`
	Challenge    *Challenge `json:"challenge,omitempty"`
	MFARequired  bool       `json:"mfa_required,omitempty"`
	AccessToken  *string    `json:"access_token,omitempty"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresIn    int64      `json:"expires_in"`
}

// ParseOAuthResponse decodes a token endpoint body.
func ParseOAuthResponse(data []byte) (*OAuthResponse, error) {
	var resp OAuthResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		var domainErr *Error
		if errors.As(err, &domainErr) {
			return nil, domainErr
		}
		return nil, DeserializationError(err)
	}
	return &resp, nil
}

// UnmarshalJSON decodes the response, keeping unknown fields in Extra.
func (r *OAuthResponse) UnmarshalJSON(data []byte) error {
	root, err := parseObject(data)
	if err != nil {
		return DeserializationError(fmt.Errorf("oauth response: %w", err))
	}

	var w oauthResponseWire
	if err := json.Unmarshal(data, &w); err != nil {
		var domainErr *Error
		if errors.As(err, &domainErr) {
			return domainErr
		}
		return DeserializationError(fmt.Errorf("oauth response: %w", err))
	}

	switch {
	case w.Detail == nil:
		return DeserializationError(fmt.Errorf("oauth response: missing field %q", "detail"))
	case w.ExpiresIn == nil:
		return DeserializationError(fmt.Errorf("oauth response: missing field %q", "expires_in"))
	}

	decoded := OAuthResponse{
		Detail:    *w.Detail,
		Challenge: w.Challenge,
		ExpiresIn: *w.ExpiresIn,
		Extra:     captureOverflow(root, oauthResponseFields),
	}
	if w.MFARequired != nil {
		decoded.MFARequired = *w.MFARequired
	}
	if w.AccessToken != nil {
		decoded.AccessToken = *w.AccessToken
		decoded.emptyAccessToken = *w.AccessToken == ""
	}
	if w.RefreshToken != nil {
		decoded.RefreshToken = *w.RefreshToken
	}

	*r = decoded
	return nil
}

// MarshalJSON encodes the known fields followed by the Extra fields.
func (r OAuthResponse) MarshalJSON() ([]byte, error) {
	var accessToken *string
	if r.HasAccessToken() {
		accessToken = &r.AccessToken
	}
	base, err := json.Marshal(oauthResponseKnown{
		Detail:       r.Detail,
		Challenge:    r.Challenge,
		MFARequired:  r.MFARequired,
		AccessToken:  accessToken,
		RefreshToken: r.RefreshToken,
		ExpiresIn:    r.ExpiresIn,
	})
	if err != nil {
		return nil, err
	}
	return emitOverflow(base, r.Extra, oauthResponseFields)
}

// HasAccessToken reports whether the response carried an access_token,
// even an empty one, and so completes authentication.
func (r *OAuthResponse) HasAccessToken() bool {
	return r.AccessToken != "" || r.emptyAccessToken
}

// HasChallenge reports whether the server is waiting for a challenge answer.
func (r *OAuthResponse) HasChallenge() bool {
	return r.Challenge != nil
}
