package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type tokenKey struct{}

// WithBearerToken returns a context whose requests carry the given access token
func WithBearerToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

// BearerToken extracts the access token stored by WithBearerToken
func BearerToken(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// APIError is returned when an upstream answers with a non-success status
type APIError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// NetworkError is returned when the request never got an HTTP answer
type NetworkError struct {
	Service string
	Err     error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error or %s service unavailable", e.Service)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Client issues authenticated JSON requests against one upstream base URL
type Client struct {
	service        string
	baseURL        string
	defaultMessage string
	httpClient     *http.Client
}

// NewClient creates a client for the named service
func NewClient(service, baseURL string, timeout time.Duration) *Client {
	return &Client{
		service:        service,
		baseURL:        strings.TrimRight(baseURL, "/"),
		defaultMessage: fmt.Sprintf("%s request failed", service),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the upstream base URL without a trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get issues a GET and decodes the JSON answer into out
func (c *Client) Get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.Do(ctx, http.MethodGet, withQuery(path, query), nil, out)
}

// Post issues a POST with a JSON body
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT with a JSON body
func (c *Client) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

// Patch issues a PATCH with a JSON body
func (c *Client) Patch(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPatch, path, body, out)
}

// Delete issues a DELETE
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Do sends a JSON request. A nil body sends no payload; a nil out discards the answer.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", c.service, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

// DoMultipart sends a pre-encoded multipart body
func (c *Client) DoMultipart(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", contentType)

	return c.send(req, out)
}

// GetRaw fetches an absolute URL and returns the body as text. Used for health probes
// that live outside the API prefix and do not answer JSON.
func (c *Client) GetRaw(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &NetworkError{Service: c.service, Err: err}
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &NetworkError{Service: c.service, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", c.errorFrom(resp.StatusCode, resp.Status, text)
	}
	return string(text), nil
}

func (c *Client) send(req *http.Request, out interface{}) error {
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Service: c.service, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(resp.Body)
		return c.errorFrom(resp.StatusCode, resp.Status, text)
	}

	if resp.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to decode %s response: %w", c.service, err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if token := BearerToken(req.Context()); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// errorFrom prefers the upstream's message, then its details, then the generic message.
// Bodies that are not JSON fall back to "status <code>: <reason>".
func (c *Client) errorFrom(statusCode int, status string, body []byte) *APIError {
	apiErr := &APIError{Service: c.service, StatusCode: statusCode}

	var payload struct {
		Message string `json:"message"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		reason := strings.TrimSpace(strings.TrimPrefix(status, fmt.Sprintf("%d", statusCode)))
		if reason == "" {
			reason = http.StatusText(statusCode)
		}
		apiErr.Message = fmt.Sprintf("status %d: %s", statusCode, reason)
		return apiErr
	}

	switch {
	case payload.Message != "":
		apiErr.Message = payload.Message
	case payload.Details != "":
		apiErr.Message = payload.Details
	default:
		apiErr.Message = c.defaultMessage
	}
	return apiErr
}

func (c *Client) url(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func withQuery(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}
