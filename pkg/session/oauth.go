package session

// Fixed values sent with every token request. They identify the client
// application and are never taken from caller input.
const (
	ClientID          = "c82SH0WZOsabOXGP2sxqcj34FxkvfnWRZBKlBjFS"
	ExpirationTime    = 734000 // requested token lifetime, seconds
	Scope             = "internal"
	GrantPassword     = "password"
	GrantRefreshToken = "refresh_token"
)

// OAuthLoginRequest is the body of a password grant.
// MFACode is empty on the first attempt and omitted from the wire.
type OAuthLoginRequest struct {
	ChallengeType ChallengeType `json:"challenge_type"`
	ClientID      string        `json:"client_id"`
	DeviceToken   string        `json:"device_token"`
	ExpiresIn     int64         `json:"expires_in"`
	GrantType     string        `json:"grant_type"`
	MFACode       string        `json:"mfa_code,omitempty"`
	Password      string        `json:"password"`
	Scope         string        `json:"scope"`
	Username      string        `json:"username"`
}

// NewLoginRequest builds the initial password grant request.
func NewLoginRequest(username, password string, challengeType ChallengeType, deviceToken string) OAuthLoginRequest {
	return OAuthLoginRequest{
		ChallengeType: challengeType,
		ClientID:      ClientID,
		DeviceToken:   deviceToken,
		ExpiresIn:     ExpirationTime,
		GrantType:     GrantPassword,
		Password:      password,
		Scope:         Scope,
		Username:      username,
	}
}

// WithMFACode returns a copy of r carrying the MFA code. r is unchanged.
func (r OAuthLoginRequest) WithMFACode(code string) OAuthLoginRequest {
	r.MFACode = code
	return r
}

// HasMFACode reports whether the request is an MFA retry.
func (r OAuthLoginRequest) HasMFACode() bool {
	return r.MFACode != ""
}

// OAuthRefreshRequest is the body of a refresh_token grant.
type OAuthRefreshRequest struct {
	ClientID     string `json:"client_id"`
	ExpiresIn    int64  `json:"expires_in"`
	GrantType    string `json:"grant_type"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

// NewRefreshRequest builds a refresh_token grant request.
func NewRefreshRequest(refreshToken string) OAuthRefreshRequest {
	return OAuthRefreshRequest{
		ClientID:     ClientID,
		ExpiresIn:    ExpirationTime,
		GrantType:    GrantRefreshToken,
		RefreshToken: refreshToken,
		Scope:        Scope,
	}
}
