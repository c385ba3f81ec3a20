package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/hoodauth/pkg/idx"
)

// RequestIDHeader is set on outbound requests that do not carry one yet.
const RequestIDHeader = "X-Request-ID"

// Transport logs every outbound request made through it. Bodies and headers
// are never logged; they carry credentials.
type Transport struct {
	// Base performs the request, http.DefaultTransport when nil.
	Base http.RoundTripper

	// Logger is used when the request context carries no logger.
	Logger *slog.Logger
}

// NewTransport wraps base with request logging.
func NewTransport(base http.RoundTripper, logger *slog.Logger) *Transport {
	return &Transport{Base: base, Logger: logger}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	reqID := req.Header.Get(RequestIDHeader)
	if reqID == "" {
		reqID = idx.New().String()
		// RoundTrippers must not modify the caller's request.
		req = req.Clone(req.Context())
		req.Header.Set(RequestIDHeader, reqID)
	}

	logger := t.logger(req).With(
		"req_id", reqID,
		"method", req.Method,
		"host", req.URL.Host,
		"path", req.URL.Path,
	)

	resp, err := t.base().RoundTrip(req)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		logger.Warn("http_request_failed", "duration_ms", duration, "error", err)
		return nil, err
	}

	logger.Info("http_request",
		"status", resp.StatusCode,
		"duration_ms", duration,
		"content_encoding", resp.Header.Get("Content-Encoding"),
	)
	return resp, nil
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) logger(req *http.Request) *slog.Logger {
	if l, ok := req.Context().Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}
