package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseOAuthResponseMinimal(t *testing.T) {
	t.Parallel()

	resp, err := ParseOAuthResponse([]byte(`{"detail":"d","expires_in":100}`))
	require.NoError(t, err)
	require.Equal(t, &OAuthResponse{Detail: "d", ExpiresIn: 100}, resp)
	require.False(t, resp.MFARequired)
	require.False(t, resp.HasAccessToken())
	require.False(t, resp.HasChallenge())
}

func TestParseOAuthResponseFull(t *testing.T) {
	t.Parallel()

	resp, err := ParseOAuthResponse([]byte(`{
	  "detail": "Request blocked, challenge issued.",
	  "expires_in": 86400,
	  "mfa_required": false,
	  "token_type": "Bearer",
	  "backup_code": null,
	  "challenge": {
	    "id": "c-1",
	    "user": "u-1",
	    "type": "sms",
	    "status": "issued",
	    "remaining_attempts": 3,
	    "remaining_retries": 2,
	    "expires_at": "2023-10-18T10:59:50.159306Z",
	    "updated_at": "2023-10-18T10:54:50Z"
	  }
	}`))
	require.NoError(t, err)

	require.Equal(t, "Request blocked, challenge issued.", resp.Detail)
	require.EqualValues(t, 86400, resp.ExpiresIn)
	require.True(t, resp.HasChallenge())
	require.Equal(t, "c-1", resp.Challenge.ID)
	require.Equal(t, ChallengeTypeSMS, resp.Challenge.Type)
	require.Equal(t, Overflow{"updated_at": json.RawMessage(`"2023-10-18T10:54:50Z"`)}, resp.Challenge.Extra)
	require.Equal(t, Overflow{
		"token_type":  json.RawMessage(`"Bearer"`),
		"backup_code": json.RawMessage(`null`),
	}, resp.Extra)
}

func TestParseOAuthResponseFailures(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"malformed json":     `{"detail": "d",`,
		"missing detail":     `{"expires_in":100}`,
		"missing expires_in": `{"detail":"d"}`,
		"wrong expires type": `{"detail":"d","expires_in":"soon"}`,
		"wrong mfa type":     `{"detail":"d","expires_in":1,"mfa_required":"yes"}`,
		"bad challenge":      `{"detail":"d","expires_in":1,"challenge":{"id":"c","user":"u","type":"voice","status":"issued","expires_at":"2023-10-18T10:59:50Z"}}`,
		"challenge no id":    `{"detail":"d","expires_in":1,"challenge":{"user":"u","type":"sms","status":"issued","expires_at":"2023-10-18T10:59:50Z"}}`,
		"not an object":      `"detail"`,
		"empty body":         ``,
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			resp, err := ParseOAuthResponse([]byte(data))
			require.Nil(t, resp)
			require.ErrorIs(t, err, ErrDeserialization)

			var domainErr *Error
			require.ErrorAs(t, err, &domainErr)
			require.Equal(t, KindDeserialization, domainErr.Kind)
		})
	}
}

func TestOAuthResponseRoundTrip(t *testing.T) {
	t.Parallel()

	original := &OAuthResponse{
		Detail:       "ok",
		MFARequired:  true,
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresIn:    100,
		Challenge: &Challenge{
			ID:        "c",
			User:      "u",
			Type:      ChallengeTypeEmail,
			Status:    ChallengeStatusValidated,
			ExpiresAt: mustTime(t, "2023-10-18T10:59:50Z"),
			Extra:     Overflow{"flow_id": json.RawMessage(`"f"`)},
		},
		Extra: Overflow{
			"scope":       json.RawMessage(`"internal"`),
			"backup_code": json.RawMessage(`null`),
			"nested":      json.RawMessage(`{"a":[1,2,{"b":null}]}`),
			"":            json.RawMessage(`"v"`),
			"0":           json.RawMessage(`0`),
			`a"b`:         json.RawMessage(`[true]`),
		},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	decoded, err := ParseOAuthResponse(data)
	require.NoError(t, err)
	require.Equal(t, original, decoded)
}

func TestOAuthResponseSerializeOmitsAbsentFields(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(OAuthResponse{Detail: "d", ExpiresIn: 5})
	require.NoError(t, err)
	require.JSONEq(t, `{"detail":"d","expires_in":5}`, string(data))
}

func TestOAuthResponseEmptyKeyOnly(t *testing.T) {
	t.Parallel()

	resp, err := ParseOAuthResponse([]byte(`{"detail":"d","expires_in":1,"":"v"}`))
	require.NoError(t, err)
	require.Equal(t, Overflow{"": json.RawMessage(`"v"`)}, resp.Extra)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	require.JSONEq(t, `{"detail":"d","expires_in":1,"":"v"}`, string(data))
}

func TestOAuthResponseEmptyAccessTokenIsPresent(t *testing.T) {
	t.Parallel()

	resp, err := ParseOAuthResponse([]byte(`{"detail":"d","expires_in":1,"access_token":""}`))
	require.NoError(t, err)
	require.True(t, resp.HasAccessToken())
	require.Empty(t, resp.AccessToken)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	require.JSONEq(t, `{"detail":"d","expires_in":1,"access_token":""}`, string(data))

	absent, err := ParseOAuthResponse([]byte(`{"detail":"d","expires_in":1}`))
	require.NoError(t, err)
	require.False(t, absent.HasAccessToken())
}
