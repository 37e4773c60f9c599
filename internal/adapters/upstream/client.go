package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/okian/vaultsync/pkg/logger"
	"github.com/okian/vaultsync/pkg/metrics"
)

// Default transport settings.
const (
	DefaultRetryMax     = 3
	DefaultRetryWaitMin = 2 * time.Second
	DefaultRetryWaitMax = 30 * time.Second
	DefaultTimeout      = 10 * time.Second
	DefaultCooldown     = 5 * time.Minute

	maxBodyBytes = 8 << 20
)

// Client is a retrying HTTP client for one named source. Retries use bounded
// exponential backoff and honour Retry-After. A final 429 opens the cooldown
// breaker so later calls fail fast with ErrCircuitOpen.
type Client struct {
	name          string
	http          *retryablehttp.Client
	breaker       *Breaker
	logger        logger.Logger
	notFoundCodes map[int]struct{}
	now           func() time.Time

	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	timeout      time.Duration
	cooldown     time.Duration
	httpClient   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithRetryMax sets how many times a failed call is retried.
func WithRetryMax(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retryMax = n
		}
	}
}

// WithRetryWait sets the backoff bounds.
func WithRetryWait(minWait, maxWait time.Duration) Option {
	return func(c *Client) {
		if minWait > 0 && maxWait >= minWait {
			c.retryWaitMin = minWait
			c.retryWaitMax = maxWait
		}
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithCooldown sets how long the source is skipped after a rate limit.
func WithCooldown(d time.Duration) Option {
	return func(c *Client) {
		c.cooldown = d
	}
}

// WithLogger sets the logger used for request and retry logs.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithNotFoundCodes sets the statuses mapped to ErrNotFound. Default is 404.
func WithNotFoundCodes(codes ...int) Option {
	return func(c *Client) {
		c.notFoundCodes = make(map[int]struct{}, len(codes))
		for _, code := range codes {
			c.notFoundCodes[code] = struct{}{}
		}
	}
}

// WithClock overrides the breaker clock.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient creates a Client for the source called name.
func NewClient(name string, opts ...Option) *Client {
	c := &Client{
		name:          name,
		logger:        logger.Nop(),
		notFoundCodes: map[int]struct{}{http.StatusNotFound: {}},
		now:           time.Now,
		retryMax:      DefaultRetryMax,
		retryWaitMin:  DefaultRetryWaitMin,
		retryWaitMax:  DefaultRetryWaitMax,
		timeout:       DefaultTimeout,
		cooldown:      DefaultCooldown,
	}
	for _, opt := range opts {
		opt(c)
	}

	rc := retryablehttp.NewClient()
	if c.httpClient != nil {
		// The caller's client may be shared; only the copy gets our timeout.
		hc := *c.httpClient
		rc.HTTPClient = &hc
	}
	rc.HTTPClient.Timeout = c.timeout
	rc.Logger = logger.NewLeveled(c.logger.Named("http." + name))
	rc.RetryMax = c.retryMax
	rc.RetryWaitMin = c.retryWaitMin
	rc.RetryWaitMax = c.retryWaitMax
	rc.CheckRetry = retryablehttp.DefaultRetryPolicy
	rc.Backoff = retryablehttp.DefaultBackoff
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.http = rc
	c.breaker = NewBreaker(c.cooldown, c.now)
	return c
}

// Name returns the source name used in logs and metrics.
func (c *Client) Name() string { return c.name }

// Breaker exposes the cooldown breaker.
func (c *Client) Breaker() *Breaker { return c.breaker }

// Get issues a GET and returns the response body of a 2xx answer.
func (c *Client) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, nil, header)
}

// Post issues a POST with a JSON body and returns the response body of a 2xx
// answer.
func (c *Client) Post(ctx context.Context, url string, body []byte, header http.Header) ([]byte, error) {
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Type", "application/json")
	return c.do(ctx, http.MethodPost, url, body, header)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, header http.Header) ([]byte, error) {
	if err := c.breaker.Allow(); err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}

	var raw interface{}
	if body != nil {
		raw = bytes.NewReader(body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", c.name, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.RecordSourceLatency(c.name, float64(time.Since(start).Milliseconds()))
	if err != nil && resp == nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%s: %w: %v", c.name, ErrUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		metrics.RecordRateLimited(c.name)
		if c.breaker.Trip() {
			metrics.RecordCircuitOpen(c.name)
			c.logger.Warn(ctx, "source rate limited, cooling down",
				logger.String("source", c.name),
				logger.Any("until", c.breaker.OpenUntil()))
		}
		return nil, fmt.Errorf("%s: %w", c.name, ErrRateLimited)
	case c.isNotFound(resp.StatusCode):
		return nil, fmt.Errorf("%s: %w (status %d)", c.name, ErrNotFound, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%s: %w (status %d)", c.name, ErrUnavailable, resp.StatusCode)
	}
	if readErr != nil {
		return nil, fmt.Errorf("%s: %w: read body: %v", c.name, ErrUnavailable, readErr)
	}
	return payload, nil
}

func (c *Client) isNotFound(code int) bool {
	_, ok := c.notFoundCodes[code]
	return ok
}

// ResultFor converts a call error into a failed or no-data Result. A
// not-found answer is a "no data" outcome rather than a source error.
func ResultFor[T any](err error) Result[T] {
	if errors.Is(err, ErrNotFound) {
		return NoData[T]()
	}
	return Failed[T](err)
}
