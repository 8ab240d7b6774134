package recon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	fetchTimeout        = 10 * time.Second
	fetchMaxBody        = 5 * 1024 * 1024 // 5MB
	defaultMaxRetryWait = 30 * time.Second
)

// RateLimitError is returned for HTTP 429 and 503 responses.
type RateLimitError struct {
	StatusCode int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (%d), retry after %s", e.StatusCode, e.RetryAfter)
	}
	return fmt.Sprintf("rate limited (%d)", e.StatusCode)
}

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("returned status %d", e.StatusCode)
}

// Fetcher performs GET requests against provider APIs.
type Fetcher struct {
	Client    *http.Client
	UserAgent string
	Timeout   time.Duration
	// Limiter throttles outgoing requests. Nil disables throttling.
	Limiter *rate.Limiter
	// MaxRetryWait caps how long a Retry-After header can hold a call.
	MaxRetryWait time.Duration
}

// Fetch returns the response body for url. On a rate-limit response it waits
// for the advertised Retry-After (capped, and cut short by ctx) before
// returning the *RateLimitError.
func (f *Fetcher) Fetch(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	body, err := f.doRequest(ctx, url, headers)
	var rl *RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		wait := rl.RetryAfter
		if limit := f.maxRetryWait(); wait > limit {
			wait = limit
		}
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	}
	return body, err
}

func (f *Fetcher) doRequest(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = fetchTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		return nil, &RateLimitError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, fetchMaxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func (f *Fetcher) maxRetryWait() time.Duration {
	if f.MaxRetryWait > 0 {
		return f.MaxRetryWait
	}
	return defaultMaxRetryWait
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// keyConfigured reports whether an API key is set and not a placeholder.
func keyConfigured(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && !strings.HasPrefix(key, "YOUR_")
}
