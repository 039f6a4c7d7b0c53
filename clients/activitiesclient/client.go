// Package activitiesclient provides a client for the activities HTTP API.
//
// The API exposes three endpoints:
//
//	GET    /activities
//	POST   /activities/{name}/signup?email={email}
//	DELETE /activities/{name}/unregister?email={email}
//
// Example usage:
//
//	client, err := activitiesclient.New("http://localhost:8000")
//	if err != nil {
//	    return err
//	}
//	activities, err := client.List(ctx)
package activitiesclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nomis52/activityboard/activity"
)

// RequestIDHeader is the header used to correlate requests with the backend.
const RequestIDHeader = "X-Request-ID"

// ErrTransport is wrapped by every error that is not an application-level API error:
// the request could not be sent, or the response could not be read or decoded.
var ErrTransport = errors.New("activities API transport failure")

// APIError is returned when the API answers with a non-2xx status.
type APIError struct {
	StatusCode int
	// Detail is the server provided explanation, empty if the body had none.
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("activities API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("activities API returned status %d: %s", e.StatusCode, e.Detail)
}

// messageResponse is the body of a successful mutation.
type messageResponse struct {
	Message string `json:"message"`
}

// errorResponse is the body of a failed request.
type errorResponse struct {
	Detail string `json:"detail"`
}

// Client talks to the activities API.
type Client struct {
	Host   string
	Logger  *slog.Logger
	client  *http.Client
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used by the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.Logger = logger
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithTimeout bounds every request. Zero keeps the http.Client's own timeout.
// The timeout is applied to a copy of the http.Client, so a shared client such
// as http.DefaultClient is never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// New creates a Client for the API at host. The host must include the scheme.
func New(host string, opts ...Option) (*Client, error) {
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid host URL %q: %w", host, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("host URL must include scheme and host: %q", host)
	}

	c := &Client{
		Host:   strings.TrimRight(host, "/"),
		Logger: slog.Default(),
		client: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.client
		hc.Timeout = c.timeout
		c.client = &hc
	}
	return c, nil
}

// List fetches the full activity collection.
func (c *Client) List(ctx context.Context) (activity.Collection, error) {
	var out activity.Collection
	if err := c.do(ctx, http.MethodGet, "/activities", &out); err != nil {
		return activity.Collection{}, err
	}
	return out, nil
}

// Signup registers email for the named activity and returns the server message.
func (c *Client) Signup(ctx context.Context, name, email string) (string, error) {
	return c.mutate(ctx, http.MethodPost, name, "signup", email)
}

// Unregister removes email from the named activity and returns the server message.
func (c *Client) Unregister(ctx context.Context, name, email string) (string, error) {
	return c.mutate(ctx, http.MethodDelete, name, "unregister", email)
}

func (c *Client) mutate(ctx context.Context, method, name, action, email string) (string, error) {
	path := "/activities/" + EncodeComponent(name) + "/" + action + "?email=" + EncodeComponent(email)

	var resp messageResponse
	if err := c.do(ctx, method, path, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// do sends the request and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.Host+path, nil)
	if err != nil {
		return fmt.Errorf("%w: creating request: %w", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID(ctx))

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.Logger.Debug("activities API request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	c.Logger.Debug("activities API request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %w", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		if err := json.Unmarshal(body, &e); err != nil {
			return fmt.Errorf("%w: decoding error response (status %d): %w", ErrTransport, resp.StatusCode, err)
		}
		return &APIError{StatusCode: resp.StatusCode, Detail: e.Detail}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding response: %w", ErrTransport, err)
	}
	return nil
}

// EncodeComponent percent-encodes s for use as a single path segment or query value.
// Spaces become %20 rather than '+', so the result is valid in either position.
func EncodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

type requestIDKey struct{}

// WithRequestID returns a context carrying id, which is forwarded to the API.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

func requestID(ctx context.Context) string {
	if id, ok := RequestID(ctx); ok {
		return id
	}
	return uuid.NewString()
}
