// Package web is the HTTP GET helper shared by the upstream fetchers.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bakkerme/manifest-watch/internal/core"
	"github.com/bakkerme/manifest-watch/internal/retry"
)

const defaultUserAgent = "Mozilla/5.0 (compatible; manifest-watch/1.0)"

// ErrBadStatus marks a non-2xx response that is neither transient nor a refusal.
var ErrBadStatus = errors.New("unexpected upstream status")

type Options struct {
	Timeout     time.Duration
	UserAgent   string
	MaxBodySize int64
	Attempts    int
}

type Client struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	retry       retry.Config
}

func NewClient(options Options) *Client {
	if options.Timeout <= 0 {
		options.Timeout = 8 * time.Second
	}
	if strings.TrimSpace(options.UserAgent) == "" {
		options.UserAgent = defaultUserAgent
	}
	if options.MaxBodySize <= 0 {
		options.MaxBodySize = 10 << 20 // 10 MiB
	}
	if options.Attempts <= 0 {
		options.Attempts = 2
	}
	return &Client{
		client:      &http.Client{Timeout: options.Timeout},
		userAgent:   options.UserAgent,
		maxBodySize: options.MaxBodySize,
		retry:       retry.Config{Attempts: options.Attempts, BaseDelay: 250 * time.Millisecond},
	}
}

// WithTransport swaps the underlying transport. Used by tests.
func (c *Client) WithTransport(rt http.RoundTripper) *Client {
	clone := *c
	clone.client = &http.Client{Timeout: c.client.Timeout, Transport: rt}
	return &clone
}

// Get fetches url and returns the body. Timeouts wrap core.ErrTimeout, 401/403 wrap
// core.ErrForbidden, and other non-2xx responses wrap ErrBadStatus. 429, 5xx and
// connection errors are retried.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("web: url is required")
	}

	var body []byte
	err := retry.Do(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			if isTimeout(err) {
				return retry.Permanent(fmt.Errorf("%w: %v", core.ErrTimeout, err))
			}
			if ctx.Err() != nil {
				return retry.Permanent(err)
			}
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return retry.Permanent(fmt.Errorf("%w: %s", core.ErrForbidden, resp.Status))
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return retry.Permanent(fmt.Errorf("%w: %s", ErrBadStatus, resp.Status))
		}

		limited := io.LimitReader(resp.Body, c.maxBodySize+1)
		data, err := io.ReadAll(limited)
		if err != nil {
			if isTimeout(err) {
				return retry.Permanent(fmt.Errorf("%w: %v", core.ErrTimeout, err))
			}
			return err
		}
		if int64(len(data)) > c.maxBodySize {
			return retry.Permanent(fmt.Errorf("web: response too large"))
		}
		body = data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
