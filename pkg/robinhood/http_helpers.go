package robinhood

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/tidwall/gjson"

	"github.com/aussiebroadwan/hoodauth/pkg/session"
)

// maxErrorBody caps how much of an unparseable body ends up in an error message.
const maxErrorBody = 256

// doRequest posts body as JSON to path with the standard headers plus extra.
// It returns the status code and the decoded response body.
func (c *Client) doRequest(ctx context.Context, path string, body any, extra map[string]string) (int, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	for name, values := range StandardHeaders() {
		req.Header[name] = values
	}
	for name, value := range extra {
		req.Header.Set(name, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, session.TransportError(err)
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return resp.StatusCode, nil, session.TransportError(fmt.Errorf("failed to read response: %w", err))
	}
	return resp.StatusCode, data, nil
}

// readBody reads the whole response body, undoing gzip or deflate content
// encoding. Deflate bodies are tried as zlib streams first, then raw.
func readBody(resp *http.Response) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "", "identity":
		return io.ReadAll(resp.Body)
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case "deflate":
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			defer zr.Close()
			if data, err := io.ReadAll(zr); err == nil {
				return data, nil
			}
		}
		fr := flate.NewReader(bytes.NewReader(raw))
		defer fr.Close()
		return io.ReadAll(fr)
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// rejection maps a non-2xx body that did not parse as the expected model.
// A body carrying a detail string is an authentication failure, anything
// else is reported as a transport failure with the status code.
func rejection(status int, data []byte) *session.Error {
	if detail := gjson.GetBytes(data, "detail"); detail.Type == gjson.String {
		return session.AuthenticationFailedError(detail.String())
	}
	return session.TransportError(fmt.Errorf("unexpected status %d: %s", status, truncate(data)))
}

func truncate(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
