// Package npm fetches packages and their dependencies from an npm registry.
package npm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/pakto/internal/cache"
	"github.com/fluxbase-eu/pakto/internal/observability"
	"github.com/fluxbase-eu/pakto/internal/ratelimit"
)

// DefaultRegistry is the public npm registry.
const DefaultRegistry = "https://registry.npmjs.org"

// abbreviatedAccept requests the install-only metadata document.
const abbreviatedAccept = "application/vnd.npm.install-v1+json; q=1.0, application/json; q=0.8, */*"

// Client talks to one npm registry.
type Client struct {
	// Registry is the registry base URL
	Registry string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// UserAgent to use for requests
	UserAgent string

	// AuthToken is sent as a bearer token when set
	AuthToken string

	// MaxAttempts bounds the requests made for one fetch, the first included
	MaxAttempts int

	limiter *ratelimit.Limiter
	cache   cache.Cache
	metrics *observability.Metrics
}

// ClientOption configures the client
type ClientOption func(*Client)

// NewClient creates a registry client. An empty registry means the public one.
func NewClient(registry string, opts ...ClientOption) *Client {
	if registry == "" {
		registry = DefaultRegistry
	}
	c := &Client{
		Registry: strings.TrimSuffix(registry, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		UserAgent:   "pakto/1.0",
		MaxAttempts: 3,
		cache:       cache.Nop{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.HTTPClient.Timeout = timeout
		}
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.UserAgent = ua
		}
	}
}

// WithAuthToken sets the registry token
func WithAuthToken(token string) ClientOption {
	return func(c *Client) {
		c.AuthToken = token
	}
}

// WithMaxAttempts sets how many requests one fetch may make before a
// transient failure is returned
func WithMaxAttempts(n int) ClientOption {
	return func(c *Client) {
		if n >= 1 {
			c.MaxAttempts = n
		}
	}
}

// WithLimiter throttles requests per registry host
func WithLimiter(l *ratelimit.Limiter) ClientOption {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithCache stores metadata and tarballs between runs
func WithCache(store cache.Cache) ClientOption {
	return func(c *Client) {
		if store != nil {
			c.cache = store
		}
	}
}

// WithMetrics records fetch counters
func WithMetrics(m *observability.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// Packument fetches the metadata document of a package.
func (c *Client) Packument(ctx context.Context, name string) (*Packument, error) {
	key := cache.MetadataKey(name)
	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("package", name).Msg("Cache read failed")
	}
	if ok {
		c.metrics.RecordCache("metadata", true)
	} else {
		c.metrics.RecordCache("metadata", false)
		data, err = c.get(ctx, name, c.Registry+"/"+escapeName(name), abbreviatedAccept)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Set(ctx, key, data); err != nil {
			log.Warn().Err(err).Str("package", name).Msg("Cache write failed")
		}
	}

	var p Packument
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &FetchError{Kind: ErrNetwork, Package: name, Err: fmt.Errorf("failed to decode metadata: %w", err)}
	}
	if p.Name == "" {
		p.Name = name
	}
	return &p, nil
}

// Tarball downloads a package archive.
func (c *Client) Tarball(ctx context.Context, name, version, tarballURL string) ([]byte, error) {
	key := cache.TarballKey(name, version)
	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("package", name).Msg("Cache read failed")
	}
	if ok {
		c.metrics.RecordCache("tarball", true)
		return data, nil
	}
	c.metrics.RecordCache("tarball", false)

	data, err = c.get(ctx, name+"@"+version, tarballURL, "application/octet-stream")
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, data); err != nil {
		log.Warn().Err(err).Str("package", name).Msg("Cache write failed")
	}
	return data, nil
}

// get performs a GET with retries. 404 maps to ErrNotFound and other client
// errors are not retried.
func (c *Client) get(ctx context.Context, pkg, rawURL, accept string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &FetchError{Kind: ErrNetwork, Package: pkg, Err: fmt.Errorf("invalid URL: %w", err)}
	}

	var body []byte
	attempt := 0
	operation := func() error {
		attempt++
		if err := c.limiter.Wait(ctx, u.Host); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Accept", accept)
		req.Header.Set("User-Agent", c.UserAgent)
		if c.AuthToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.AuthToken)
		}

		log.Debug().Str("url", u.String()).Int("attempt", attempt).Msg("Registry request")
		start := time.Now()
		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			c.metrics.RecordFetch(0, time.Since(start))
			return fmt.Errorf("request failed: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()
		c.metrics.RecordFetch(resp.StatusCode, time.Since(start))

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(&FetchError{Kind: ErrNotFound, Package: pkg})
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("registry responded with status %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("registry responded with status %d", resp.StatusCode))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = 0
	err = backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.MaxAttempts-1)), ctx))
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, fe
		}
		return nil, &FetchError{Kind: ErrNetwork, Package: pkg, Err: err}
	}
	return body, nil
}
