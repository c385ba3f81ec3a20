// Package prompt reads credentials and verification codes from a terminal.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/hoodauth/pkg/session"
)

// ErrNoInput is returned when the input ends before a line was entered.
var ErrNoInput = errors.New("prompt: no input")

// Terminal asks questions on out and reads one line per answer from in.
// Input is echoed; run it on a terminal you trust.
type Terminal struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer

	// pending is a read left running by a cancelled Ask. The next Ask
	// takes its line, so only one goroutine ever reads in.
	pending chan readResult
}

type readResult struct {
	line string
	err  error
}

func New(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

// Ask prints label and returns the trimmed line typed in reply. It gives up
// when ctx is done; the line typed after that answers the next Ask.
func (t *Terminal) Ask(ctx context.Context, label string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := fmt.Fprintf(t.out, "%s: ", label); err != nil {
		return "", err
	}

	lines := t.pending
	t.pending = nil
	if lines == nil {
		lines = make(chan readResult, 1)
		go func() {
			line, err := t.in.ReadString('\n')
			lines <- readResult{line: line, err: err}
		}()
	}

	select {
	case <-ctx.Done():
		t.pending = lines
		return "", ctx.Err()
	case r := <-lines:
		line := strings.TrimSpace(r.line)
		if r.err != nil {
			if errors.Is(r.err, io.EOF) && line != "" {
				return line, nil
			}
			if errors.Is(r.err, io.EOF) {
				return "", ErrNoInput
			}
			return "", r.err
		}
		return line, nil
	}
}

// ChallengeCode asks for the code delivered for challenge.
func (t *Terminal) ChallengeCode(ctx context.Context, challenge *session.Challenge) (string, error) {
	label := "Verification code"
	if challenge != nil {
		label = fmt.Sprintf("Code sent by %s (%d attempts left, expires %s)",
			challenge.Type, challenge.RemainingAttempts, challenge.ExpiresAt.Local().Format(time.Kitchen))
	}
	return t.Ask(ctx, label)
}

// MFACode asks for the code shown by the user's authenticator app.
func (t *Terminal) MFACode(ctx context.Context) (string, error) {
	return t.Ask(ctx, "MFA code")
}
