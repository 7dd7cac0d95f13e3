// Package client talks to a relay backend over HTTP. It implements both
// the entity store and the analysis operations the session controller
// needs, so the TUI and CLI can run against a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/balkashynov/relay/internal/apitypes"
	"github.com/balkashynov/relay/internal/models"
)

const defaultTimeout = 60 * time.Second

// Client is a relay backend client
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zap.Logger
}

// New creates a client for the backend at baseURL. token may be empty
// when the server runs without auth.
func New(baseURL, token string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		log:     log.Named("client"),
	}
}

// Health checks that the backend is up
func (c *Client) Health(ctx context.Context) (*apitypes.HealthResponse, error) {
	var resp apitypes.HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("request done",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	var payload apitypes.ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	if payload.Error == "" {
		payload.Error = resp.Status
	}
	return &APIError{StatusCode: resp.StatusCode, Code: payload.Code, Message: payload.Error}
}

// APIError is a non-2xx response from the backend
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

// Unwrap maps the response onto the shared sentinels so callers can use
// errors.Is(err, models.ErrNotFound) and friends
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized &&
		(e.Code == apitypes.CodeAuthExpired || strings.Contains(strings.ToLower(e.Message), "expired")):
		return models.ErrAuthExpired
	case e.StatusCode == http.StatusNotFound:
		return models.ErrNotFound
	case e.StatusCode == http.StatusBadRequest:
		return models.ErrInvalid
	}
	return nil
}

func escape(id string) string {
	return url.PathEscape(id)
}
