package robinhood

import (
	"context"

	"github.com/aussiebroadwan/hoodauth/pkg/session"
)

// TokenPath is the OAuth token endpoint, relative to the base URL.
const TokenPath = "oauth2/token/"

// RequestToken posts a login or refresh request to the token endpoint.
//
// The body is parsed as an OAuthResponse whatever the status code, since the
// server reports challenges and MFA demands on 4xx responses. A non-2xx body
// that does not parse yields a transport or authentication failure.
func (c *Client) RequestToken(ctx context.Context, body any, headers map[string]string) (*session.OAuthResponse, error) {
	status, data, err := c.doRequest(ctx, TokenPath, body, headers)
	if err != nil {
		return nil, err
	}

	resp, err := session.ParseOAuthResponse(data)
	if err != nil {
		if isSuccess(status) {
			return nil, err
		}
		return nil, rejection(status, data)
	}
	return resp, nil
}

// Login sends a password-grant request.
func (c *Client) Login(ctx context.Context, req session.OAuthLoginRequest) (*session.OAuthResponse, error) {
	return c.RequestToken(ctx, req, nil)
}

// Resubmit sends the login request again after a challenge was answered.
func (c *Client) Resubmit(ctx context.Context, r *session.Resubmission) (*session.OAuthResponse, error) {
	return c.RequestToken(ctx, r.Request, r.Headers)
}

// Refresh sends a refresh-token grant request.
func (c *Client) Refresh(ctx context.Context, req session.OAuthRefreshRequest) (*session.OAuthResponse, error) {
	return c.RequestToken(ctx, req, nil)
}
