package prompt

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/hoodauth/pkg/session"
)

func TestAsk(t *testing.T) {
	t.Parallel()

	t.Run("reads trimmed lines in order", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		term := New(strings.NewReader("  alice \nsecret\n"), &out)

		first, err := term.Ask(context.Background(), "Username")
		require.NoError(t, err)
		require.Equal(t, "alice", first)

		second, err := term.Ask(context.Background(), "Password")
		require.NoError(t, err)
		require.Equal(t, "secret", second)

		require.Equal(t, "Username: Password: ", out.String())
	})

	t.Run("last line without newline", func(t *testing.T) {
		t.Parallel()

		term := New(strings.NewReader("123456"), io.Discard)
		code, err := term.MFACode(context.Background())
		require.NoError(t, err)
		require.Equal(t, "123456", code)
	})

	t.Run("end of input", func(t *testing.T) {
		t.Parallel()

		term := New(strings.NewReader(""), io.Discard)
		_, err := term.MFACode(context.Background())
		require.ErrorIs(t, err, ErrNoInput)
	})

	t.Run("cancelled", func(t *testing.T) {
		t.Parallel()

		pr, pw := io.Pipe()
		t.Cleanup(func() { _ = pw.Close() })

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		term := New(pr, io.Discard)
		_, err := term.Ask(ctx, "Username")
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestChallengeCode(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	term := New(strings.NewReader("424242\n"), &out)

	challenge := &session.Challenge{
		ID:                "challenge-42",
		Type:              session.ChallengeTypeEmail,
		Status:            session.ChallengeStatusIssued,
		RemainingAttempts: 3,
		ExpiresAt:         time.Now().Add(5 * time.Minute),
	}

	code, err := term.ChallengeCode(context.Background(), challenge)
	require.NoError(t, err)
	require.Equal(t, "424242", code)
	require.Contains(t, out.String(), "Code sent by email (3 attempts left")
}

func TestAskAfterCancel(t *testing.T) {
	t.Parallel()

	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })
	term := New(pr, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := term.Ask(ctx, "Username")
	require.ErrorIs(t, err, context.Canceled)

	go func() {
		_, _ = io.WriteString(pw, "alice\nsecret\n")
	}()

	first, err := term.Ask(context.Background(), "Username")
	require.NoError(t, err)
	require.Equal(t, "alice", first)

	second, err := term.Ask(context.Background(), "Password")
	require.NoError(t, err)
	require.Equal(t, "secret", second)
}
