// Package portal is a typed client for the yoga-portal REST API.
package portal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrTransport is returned when the portal could not be reached at all.
	ErrTransport = errors.New("portal unreachable")
	// ErrUnauthorized is returned on 401; the stored token has already been cleared.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidPayload is returned when a request or response fails schema validation.
	ErrInvalidPayload = errors.New("invalid payload")
)

// APIError is a non-2xx response from the portal.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client talks to the portal API on behalf of the operator.
type Client struct {
	URL        string
	parsedURL  *url.URL
	httpClient *http.Client
	tokens     TokenStore
	captureDir string
	validate   *validator.Validate
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient creates a client for the API rooted at baseURL (e.g. http://localhost:5000/api).
func NewClient(baseURL string, tokens TokenStore, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid portal URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid portal URL %q: scheme must be http or https", baseURL)
	}
	if tokens == nil {
		tokens = NewMemoryTokenStore("")
	}
	c := &Client{
		URL:        parsed.String(),
		parsedURL:  parsed,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		tokens:     tokens,
		validate:   validator.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Tokens returns the store the client reads its bearer token from.
func (c *Client) Tokens() TokenStore {
	return c.tokens
}

// resolveURL builds a full URL from the base API URL and the given path segments.
// If the last segment contains a query string it is split so JoinPath only
// receives the path portion and the query is appended.
func (c *Client) resolveURL(pathSegments ...string) string {
	if len(pathSegments) == 0 {
		return c.parsedURL.String()
	}
	last := pathSegments[len(pathSegments)-1]
	if pathPart, query, ok := strings.Cut(last, "?"); ok {
		pathSegments[len(pathSegments)-1] = pathPart
		result := c.parsedURL.JoinPath(pathSegments...)
		result.RawQuery = query
		return result.String()
	}
	return c.parsedURL.JoinPath(pathSegments...).String()
}

// validatePayload runs struct validation on a request or response value.
func (c *Client) validatePayload(v any) error {
	if err := c.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return nil
}

// SetCaptureDir enables API response capturing to the specified directory.
// Pass an empty string to disable capturing.
func (c *Client) SetCaptureDir(dir string) error {
	if dir == "" {
		c.captureDir = ""
		return nil
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("could not create capture directory: %w", err)
	}
	c.captureDir = dir
	return nil
}

// captureResponse saves the API response body to a file if capturing is enabled.
func (c *Client) captureResponse(endpoint string, body []byte) {
	if c.captureDir == "" {
		return
	}

	filename := strings.ReplaceAll(endpoint, "/", "_")
	filename = strings.TrimPrefix(filename, "_")
	timestamp := time.Now().Format("20060102_150405")
	filename = fmt.Sprintf("%s_%s.json", filename, timestamp)

	path := filepath.Join(c.captureDir, filename)

	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, body, "", "  "); err == nil {
		body = prettyJSON.Bytes()
	}

	if err := os.WriteFile(path, body, 0600); err != nil {
		log.Printf("warning: failed to capture response to %s: %v", path, err)
	}
}
