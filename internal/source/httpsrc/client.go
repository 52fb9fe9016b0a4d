// Package httpsrc fetches legacy dumps over HTTP.
//
// Dump exports frequently sit behind flaky legacy panels, so the client
// retries transient failures (5xx, 429, transport errors) with exponential
// backoff and respects context cancellation during requests and waits. Tests
// inject a custom RoundTripper and sleep function to stay fast and
// deterministic.
package httpsrc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"dumpmigrate/internal/source"
)

// Config configures the dump fetcher. Zero values get defaults:
// Timeout 30s, MaxAttempts 3, InitialBackoff 200ms, MaxBackoff 5s,
// MaxBytes source.DefaultMaxBytes.
type Config struct {
	// Timeout is the per-request timeout applied at the http.Client level.
	Timeout time.Duration

	// MaxAttempts is the total number of attempts, the first try included.
	MaxAttempts int

	// InitialBackoff is the wait before the first retry; each further retry
	// doubles it up to MaxBackoff.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential backoff.
	MaxBackoff time.Duration

	// MaxBytes rejects responses whose advertised Content-Length exceeds it.
	// The guard is advisory; the authoritative cap is applied by the reader
	// draining the body.
	MaxBytes int64

	// Transport overrides the default http.RoundTripper when non-nil.
	Transport http.RoundTripper
}

// Client downloads dump text with retry and backoff.
type Client struct {
	httpClient     *http.Client
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	maxBytes       int64

	// sleep is injectable so tests can observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient constructs a Client from cfg, applying defaults for zero values.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = source.DefaultMaxBytes
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		maxBytes:       cfg.MaxBytes,
		sleep:          sleepCtx,
	}
}

// Fetch downloads the dump at url and returns its body for streaming. Any
// non-2xx final status is an error; a Content-Length beyond the configured
// cap is rejected before the body is read. The caller must close the
// returned reader.
func (c *Client) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	resp, err := c.get(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("httpsrc: unexpected status %d fetching %s", resp.StatusCode, url)
	}
	if resp.ContentLength > c.maxBytes {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("httpsrc: dump at %s advertises %d bytes, cap is %d", url, resp.ContentLength, c.maxBytes)
	}
	return resp.Body, nil
}

// Peek retrieves up to n bytes of the dump using a Range request, falling
// back to a client-side cap when the server ignores Range. Useful for
// sniffing whether a URL actually serves SQL text before committing to the
// full download.
func (c *Client) Peek(ctx context.Context, url string, n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("httpsrc: peek size must be > 0")
	}

	h := make(http.Header)
	h.Set("Range", fmt.Sprintf("bytes=0-%d", n-1))

	resp, err := c.get(ctx, url, h)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("httpsrc: unexpected status %d peeking %s", resp.StatusCode, url)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(io.LimitReader(resp.Body, int64(n))); err != nil {
		return nil, fmt.Errorf("httpsrc: peek %s: %w", url, err)
	}
	return buf.Bytes(), nil
}

// get performs a GET with retry and backoff. It returns the first response
// with a non-retryable status, whatever that status is; callers decide what
// counts as success. On exhaustion it returns the last transient error.
func (c *Client) get(ctx context.Context, url string, headers http.Header) (*http.Response, error) {
	if url == "" {
		return nil, fmt.Errorf("httpsrc: url must not be empty")
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("httpsrc: build request: %w", err)
		}
		for k, vs := range headers {
			for _, v := range vs {
				req.Header.Set(k, v)
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else if retryableStatus(resp.StatusCode) {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("httpsrc: retryable status %d from %s", resp.StatusCode, url)
		} else {
			return resp, nil
		}

		if attempt+1 >= c.maxAttempts {
			return nil, lastErr
		}
		if err := c.sleep(ctx, backoffFor(c.initialBackoff, attempt, c.maxBackoff)); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// retryableStatus reports whether code should trigger a retry. 5xx and 429
// are transient; everything else is final.
func retryableStatus(code int) bool {
	if code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

// backoffFor returns initial * 2^attempt clamped to max, attempt being the
// 0-based retry index.
func backoffFor(initial time.Duration, attempt int, max time.Duration) time.Duration {
	d := initial
	if attempt > 0 {
		d = initial << attempt
	}
	if d > max {
		return max
	}
	return d
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
