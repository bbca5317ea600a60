package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/testwebinoue-debug/sept3/internal/infra/buildinfo"
	"github.com/testwebinoue-debug/sept3/internal/server/httpserver/handler"
)

// DefaultTimeout bounds one request.
const DefaultTimeout = 30 * time.Second

// Server paths.
const (
	PathToken   = "/api/csrf-token"
	PathContact = "/api/contact"
	PathHealth  = "/health"
	PathReady   = "/ready"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "server returned %d", e.Status)
	if e.Code != "" {
		fmt.Fprintf(&b, " [%s]", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	return b.String()
}

// HTTPClient provides HTTP communication with the server.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for server. A bare host:port gets http://.
func NewHTTPClient(server string, timeout time.Duration) *HTTPClient {
	baseURL := strings.TrimRight(server, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// cookiejar.New only fails with a non-nil PublicSuffixList.
	jar, _ := cookiejar.New(nil)
	return &HTTPClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
	}
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(data))
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent("contact-cli"))
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.client.Do(req)
}

// SessionCookie returns the value of the named cookie the server set, or
// empty when none is held.
func (c *HTTPClient) SessionCookie(name string) string {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return ""
	}
	for _, ck := range c.client.Jar.Cookies(req.URL) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

// FetchToken calls the token endpoint.
func (c *HTTPClient) FetchToken(ctx context.Context) (*handler.TokenResponse, error) {
	resp, err := c.Get(ctx, PathToken)
	if err != nil {
		return nil, err
	}
	var tr handler.TokenResponse
	if err := ParseResponse(resp, &tr); err != nil {
		return nil, err
	}
	return &tr, nil
}

// Submit posts body to the contact endpoint. A rejection is returned as
// both the decoded result and a *StatusError.
func (c *HTTPClient) Submit(ctx context.Context, body any) (*handler.Result, error) {
	resp, err := c.Post(ctx, PathContact, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var res handler.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return &res, &StatusError{
			Status:  resp.StatusCode,
			Code:    resp.Header.Get("X-Error-Code"),
			Message: res.Message,
		}
	}
	return &res, nil
}

// Health calls path (PathHealth or PathReady). The body is returned even
// for 503 so callers can show the reported error.
func (c *HTTPClient) Health(ctx context.Context, path string) (*handler.HealthResponse, error) {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var hr handler.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &hr, &StatusError{Status: resp.StatusCode, Message: hr.Error}
	}
	return &hr, nil
}

// ParseResponse decodes a JSON body into target and closes it. Non-2xx
// responses become a *StatusError carrying the server's message.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		se := &StatusError{Status: resp.StatusCode, Code: resp.Header.Get("X-Error-Code")}
		var res handler.Result
		if err := json.NewDecoder(resp.Body).Decode(&res); err == nil {
			se.Message = res.Message
		}
		return se
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}

// IsStatus reports whether err is a *StatusError with the given status.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}
