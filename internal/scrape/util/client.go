package util

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxBody = 16 << 20

// StatusError is returned for upstream responses >= 400.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d url=%s body=%s", e.Status, e.URL, e.Body)
}

// Client is the shared upstream HTTP client: per-host rate limit, user agent, size cap.
type Client struct {
	HC        *http.Client
	Limiter   *HostLimiter
	UserAgent string
}

func NewClient(timeout time.Duration, limiter *HostLimiter, userAgent string) *Client {
	return &Client{
		HC:        &http.Client{Timeout: timeout},
		Limiter:   limiter,
		UserAgent: userAgent,
	}
}

// WithHTTP returns a copy that sends through hc (e.g. one with a cookie jar).
func (c *Client) WithHTTP(hc *http.Client) *Client {
	cp := *c
	cp.HC = hc
	return &cp
}

func (c *Client) httpClient() *http.Client {
	if c.HC == nil {
		return http.DefaultClient
	}
	return c.HC
}

// Do sends req and returns the body. Non-2xx statuses come back as *StatusError.
func (c *Client) Do(req *http.Request) ([]byte, error) {
	if req.Header.Get("User-Agent") == "" && c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if c.Limiter != nil {
		if err := c.Limiter.WaitURL(req.Context(), req.URL.String()); err != nil {
			return nil, err
		}
	}

	res, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	b, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 400 {
		return b, &StatusError{URL: req.URL.String(), Status: res.StatusCode, Body: Truncate(string(b), 240)}
	}
	return b, nil
}

func (c *Client) GetBytes(ctx context.Context, rawURL string, hdr http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range hdr {
		req.Header[k] = vs
	}
	return c.Do(req)
}

func (c *Client) GetJSON(ctx context.Context, rawURL string, out any) error {
	b, err := c.GetBytes(ctx, rawURL, http.Header{"Accept": {"application/json"}})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode: %w body=%s", err, Truncate(string(b), 240))
	}
	return nil
}

func (c *Client) PostJSON(ctx context.Context, rawURL string, body, out any, hdr http.Header) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range hdr {
		req.Header[k] = vs
	}
	b, err := c.Do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode: %w body=%s", err, Truncate(string(b), 240))
	}
	return nil
}
