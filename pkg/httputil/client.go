package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/matzehuels/pipecheck/pkg/buildinfo"
	"github.com/matzehuels/pipecheck/pkg/errors"
)

// DefaultTimeout bounds a single request attempt.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Client posts JSON documents to a pipecheck server.
type Client struct {
	BaseURL  string
	HTTP     *http.Client
	Attempts int           // Total attempts per request; defaults to 3
	Delay    time.Duration // Initial backoff; defaults to 1s
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) (*Client, error) {
	if err := errors.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		HTTP:     &http.Client{Timeout: DefaultTimeout},
		Attempts: 3,
		Delay:    time.Second,
	}, nil
}

// PostJSON encodes in, posts it to path and decodes a 2xx response into out.
//
// Network failures, 429 and 5xx responses are retried. Any other non-2xx
// response fails immediately: a {"detail": ...} body becomes an
// INVALID_INPUT error carrying the detail, anything else a NETWORK_ERROR.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	url := c.BaseURL + path

	return Retry(ctx, c.Attempts, c.Delay, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "build request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "pipecheck/"+buildinfo.Version)

		resp, err := c.HTTP.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "POST %s", url)}
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if out == nil {
				return nil
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return errors.Wrap(errors.ErrCodeNetwork, err, "decode response")
			}
			return nil
		}

		serr := statusError(resp)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return &RetryableError{Err: serr}
		}
		return serr
	})
}

// statusError converts a non-2xx response into a coded error.
func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(data, &body) == nil && body.Detail != "" && resp.StatusCode < 500 {
		return errors.New(errors.ErrCodeInvalidInput, "%s", body.Detail)
	}
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return errors.New(errors.ErrCodeNetwork, "server returned %d: %s", resp.StatusCode, msg)
}
