// client/client.go
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

	"localesync/internal/api"
	"localesync/internal/coverage"
)

// Client talks to the read-side API of a running watcher
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
	}
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status: %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the server
func IsNotFound(err error) bool {
	se, ok := err.(*StatusError)
	return ok && se.Code == http.StatusNotFound
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &StatusError{Code: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) Status(ctx context.Context) (*api.StatusResponse, error) {
	var resp api.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Key returns the value of namespace.key for every locale
func (c *Client) Key(ctx context.Context, namespace, key string) (*api.KeyResponse, error) {
	var resp api.KeyResponse
	path := fmt.Sprintf("/api/keys/%s/%s", url.PathEscape(namespace), url.PathEscape(key))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Coverage returns the report of one namespace, or of all when namespace
// is empty
func (c *Client) Coverage(ctx context.Context, namespace string) ([]coverage.Report, error) {
	if namespace == "" {
		var reports []coverage.Report
		if err := c.do(ctx, http.MethodGet, "/api/coverage", nil, &reports); err != nil {
			return nil, err
		}
		return reports, nil
	}

	var report coverage.Report
	if err := c.do(ctx, http.MethodGet, "/api/coverage/"+url.PathEscape(namespace), nil, &report); err != nil {
		return nil, err
	}
	return []coverage.Report{report}, nil
}

// SetDisabled pauses or resumes event handling, for one category or all
func (c *Client) SetDisabled(ctx context.Context, category string, disabled bool) error {
	return c.do(ctx, http.MethodPut, "/api/disabled", api.ToggleRequest{Disabled: disabled, Category: category}, nil)
}
