/*
Package robinhood is the HTTP side of the authentication flow: it sends the
requests built by package session to the Robinhood API and hands the parsed
responses back to a session.Machine.

# Client vs Authenticator

  - Client: stateless transport. Static headers, URL construction, the token
    endpoint and the challenge respond endpoint.
  - Authenticator: owns one session.Machine and runs the full flow over a
    Client, asking a Prompter for challenge and MFA codes.

Create a Client and an Authenticator, then log in:

	client := robinhood.NewClient(robinhood.DefaultBaseURL)
	auth := robinhood.NewAuthenticator(client, prompter)

	tokens, err := auth.Login(ctx, robinhood.Credentials{
		Username:      "user@example.com",
		Password:      password,
		ChallengeType: session.ChallengeTypeSMS,
		DeviceToken:   robinhood.NewDeviceToken(),
	})

# Challenges and MFA

When the token endpoint answers with a challenge, the Authenticator asks the
Prompter for the code, posts it to challenge/{id}/respond/ and resends the
same login request with the X-ROBINHOOD-CHALLENGE-RESPONSE-ID header. When it
answers with mfa_required, the Prompter supplies the MFA code and the login
request is resent with mfa_code set. TOTPPrompter derives MFA codes from an
authenticator seed.

# Refresh

Refresh exchanges the stored refresh token for a new pair. A refresh that
does not produce an access token fails the session; it never re-enters the
challenge or MFA prompts. TokenSource wraps the session as an
oauth2.TokenSource that refreshes shortly before the access token expires.

# Errors

Every failure is a *session.Error. Use errors.Is with session.ErrTransport,
session.ErrDeserialization or session.ErrAuthenticationFailed to tell them
apart. Nothing in this package retries.

# Thread Safety

Client is safe for concurrent use. An Authenticator serializes its own
operations; separate users need separate Authenticators.
*/
package robinhood
