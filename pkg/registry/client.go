// Package registry provides the shared HTTP layer for package registry
// clients: metadata response caching, transient-failure retries, and status
// code handling.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	httpTimeout = 30 * time.Second

	// Transient failures (connection errors, 5xx) are retried a few times
	// with a doubling delay; everything else is terminal on first sight.
	retryAttempts  = 3
	retryBaseDelay = time.Second
)

var (
	// ErrNotFound is returned when a package or resource doesn't exist in
	// the registry.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection
	// errors, 5xx responses).
	ErrNetwork = errors.New("network error")
)

// transientError marks a failure worth retrying: the registry may answer
// the same request successfully a moment later.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Client provides shared HTTP functionality for registry API clients.
// All methods are safe for sequential use; one installer run is the only
// actor per client.
type Client struct {
	http   *http.Client
	cache  Cache
	prefix string
	ttl    time.Duration
}

// Cache is the subset of the cache backend the client needs.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// NewClient creates a Client that caches responses under prefix-qualified
// keys with the given TTL.
func NewClient(backend Cache, prefix string, ttl time.Duration) *Client {
	return &Client{
		http:   &http.Client{Timeout: httpTimeout},
		cache:  backend,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Cached retrieves a JSON value from cache or executes fetch and caches the
// result. If refresh is true, the cache is bypassed and fetch always runs.
// The fetch function should populate v; on success, v is stored in the cache.
func (c *Client) Cached(ctx context.Context, key string, refresh bool, v any, fetch func() error) error {
	key = c.prefix + key
	if !refresh {
		if data, ok, _ := c.cache.Get(ctx, key); ok {
			if err := json.Unmarshal(data, v); err == nil {
				return nil
			}
		}
	}
	if err := retry(ctx, retryAttempts, retryBaseDelay, fetch); err != nil {
		return err
	}
	if data, err := json.Marshal(v); err == nil {
		_ = c.cache.Set(ctx, key, data, c.ttl)
	}
	return nil
}

// GetJSON performs an HTTP GET request and JSON-decodes the response into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	body, err := c.doRequest(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()
	return json.NewDecoder(body).Decode(v)
}

// Download performs an HTTP GET request and returns the raw response body.
// Transient failures are retried with backoff.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	var data []byte
	err := retry(ctx, retryAttempts, retryBaseDelay, func() error {
		body, err := c.doRequest(ctx, url)
		if err != nil {
			return err
		}
		defer body.Close()
		data, err = io.ReadAll(body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Client) doRequest(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &transientError{err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}

	if err := checkStatus(resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500:
		return &transientError{err: fmt.Errorf("%w: status %d", ErrNetwork, code)}
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

// retry executes fn up to attempts times, doubling delay after each failed
// attempt. Only transient failures are retried; terminal errors (404, bad
// metadata) return immediately. Returns the last error if all attempts
// fail, or ctx.Err() on cancellation.
func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := 0; i < attempts; i++ {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !errors.As(err, new(*transientError)) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}
