package robinhood

import (
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/hoodauth/pkg/slogx"
)

// DefaultBaseURL is the production API host.
const DefaultBaseURL = "https://api.robinhood.com"

// DefaultTimeout bounds a single HTTP exchange.
const DefaultTimeout = 10 * time.Second

// Client sends authentication requests to the Robinhood API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client for baseURL (DefaultBaseURL when empty) whose
// HTTP client logs every request through slogx.Transport.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: slogx.NewTransport(nil, nil),
		},
	}
}

// url joins the base URL and an API path. Leading slashes on path are dropped.
func (c *Client) url(path string) string {
	return c.BaseURL + "/" + strings.TrimLeft(path, "/")
}

// API returns the production URL for path, e.g. API("oauth2/token/").
func API(path string) string {
	return DefaultBaseURL + "/" + strings.TrimLeft(path, "/")
}
