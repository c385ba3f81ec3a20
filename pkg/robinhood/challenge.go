package robinhood

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"

	"github.com/aussiebroadwan/hoodauth/pkg/session"
)

// ChallengePath returns the respond endpoint for a challenge id.
func ChallengePath(id string) string {
	return "challenge/" + url.PathEscape(id) + "/respond/"
}

// RespondToChallenge submits the user's code for challenge and returns the
// challenge as updated by the server. A rejected code comes back as a
// challenge with status failed or fewer remaining attempts, not as an error.
func (c *Client) RespondToChallenge(ctx context.Context, challenge *session.Challenge, answer session.ChallengeResponse) (*session.Challenge, error) {
	if challenge == nil {
		return nil, session.NewError(session.KindInvalidState, "no challenge to respond to")
	}

	status, data, err := c.doRequest(ctx, ChallengePath(challenge.ID), answer, nil)
	if err != nil {
		return nil, err
	}

	var updated session.Challenge
	if err := json.Unmarshal(data, &updated); err != nil {
		if !isSuccess(status) {
			return nil, rejection(status, data)
		}
		var serr *session.Error
		if errors.As(err, &serr) {
			return nil, serr
		}
		return nil, session.DeserializationError(err)
	}
	return &updated, nil
}
