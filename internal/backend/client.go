// Package backend is the HTTP client for the trading backend API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Fantasim/p2pads/internal/config"
)

// ConfigurationError means the client cannot issue any request at all.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string { return "configuration error: " + e.Err.Error() }
func (e *ConfigurationError) Unwrap() error { return e.Err }

// NetworkError is a transport failure: the backend was never reached or the
// connection broke before a response arrived.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error (%s %s): %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() []error { return []error{config.ErrBackendNetwork, e.Err} }

// HTTPError is a non-2xx response. Message is the backend's "detail" when it
// sent one, otherwise a generic "Request failed (METHOD path)".
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string { return e.Message }
func (e *HTTPError) Unwrap() error { return config.ErrBackendRequest }

// Client talks to the trading backend with a bearer token.
type Client struct {
	http      *http.Client
	baseURL   string
	token     string
	slowAfter time.Duration
}

// NewClient creates a Client. Missing values are not rejected here; every
// request checks them first and fails with a ConfigurationError.
//
// The underlying http.Client has no timeout: requests end when they complete
// or when ctx is cancelled.
func NewClient(baseURL, token string) *Client {
	c := &Client{
		http:      &http.Client{},
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		slowAfter: config.SlowRequestWarnAfter,
	}

	slog.Info("backend client initialized",
		"baseURL", c.baseURL,
		"hasToken", token != "",
	)

	return c
}

// SetSlowRequestWarning changes the delay after which a still-pending request
// is reported in the log. Zero disables the warning.
func (c *Client) SetSlowRequestWarning(d time.Duration) {
	c.slowAfter = d
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get issues a GET and decodes the JSON response into out (may be nil).
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with a JSON body and decodes the response into out (may be nil).
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Delete issues a DELETE and decodes the response into out (may be nil).
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) checkConfig() error {
	if c.baseURL == "" {
		return &ConfigurationError{Err: config.ErrMissingBaseURL}
	}
	if c.token == "" {
		return &ConfigurationError{Err: config.ErrMissingAccessToken}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.checkConfig(); err != nil {
		slog.Error("backend request rejected", "method", method, "path", path, "error", err)
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create %s %s request: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	slog.Debug("backend request", "method", method, "path", path)

	start := time.Now()
	var pending *time.Timer
	if c.slowAfter > 0 {
		pending = time.AfterFunc(c.slowAfter, func() {
			slog.Warn("backend request still pending",
				"method", method,
				"path", path,
				"after", c.slowAfter,
			)
		})
	}
	resp, err := c.http.Do(req)
	if pending != nil {
		pending.Stop()
	}
	if err != nil {
		slog.Error("backend network error",
			"method", method,
			"path", path,
			"error", err,
			"elapsed", time.Since(start).Round(time.Millisecond),
		)
		return &NetworkError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		slog.Debug("backend request complete",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"elapsed", time.Since(start).Round(time.Millisecond),
		)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("backend response read failed",
			"method", method,
			"path", path,
			"error", err,
		)
		return &NetworkError{Method: method, Path: path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := &HTTPError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data, method, path),
		}
		slog.Error("backend error response",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"message", httpErr.Message,
			"elapsed", time.Since(start).Round(time.Millisecond),
		)
		return httpErr
	}

	slog.Debug("backend request complete",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"bytes", len(data),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		slog.Error("backend response decode failed",
			"method", method,
			"path", path,
			"error", err,
		)
		return fmt.Errorf("%w: %s %s: %v", config.ErrBackendDecode, method, path, err)
	}
	return nil
}

// errorMessage extracts "detail" from an error body. A string detail is used
// as-is; a validation error list is reduced to its "msg" fields.
func errorMessage(data []byte, method, path string) string {
	fallback := fmt.Sprintf("Request failed (%s %s)", method, path)

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil || len(envelope.Detail) == 0 {
		return fallback
	}

	var detail string
	if err := json.Unmarshal(envelope.Detail, &detail); err == nil {
		if detail == "" {
			return fallback
		}
		return detail
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return fallback
}

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
