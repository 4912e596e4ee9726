package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/unnipv/musync/internal/metrics"
	"github.com/unnipv/musync/internal/quota"
	"github.com/unnipv/musync/internal/shared"
)

const (
	DefaultMaxRetries = 3
	DefaultMinBackoff = time.Second

	// minBearerLength rejects placeholder or truncated tokens before they reach the network.
	minBearerLength = 10

	// maxRetryAfter caps a server-supplied Retry-After on plain throttling.
	maxRetryAfter = 30 * time.Second
)

// Request describes one logical remote call.
type Request struct {
	Method string
	URL    string
	Body   any
	Op     quota.OpType

	// ReadOnly marks endpoints that accept the static fallback key.
	ReadOnly bool
	// NoCache bypasses the response cache for GETs that must be live.
	NoCache bool
	// Invalidate drops cached GETs whose URL contains this string once the call succeeds.
	Invalidate string
	// MaxRetries overrides the client default when positive.
	MaxRetries int
}

// Response is a fully read remote response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Cached     bool
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Client is a quota-aware, retrying HTTP client for one platform.
type Client struct {
	platform    string
	httpClient  *http.Client
	quota       *quota.Tracker
	cache       *Cache
	breaker     *gobreaker.CircuitBreaker[*Response]
	fallbackKey string
	maxRetries  int
	minBackoff  time.Duration
	penalty     int
	logger      *log.Logger
	sleep       func(ctx context.Context, d time.Duration) error
	jitter      func(limit time.Duration) time.Duration
}

// Option configures a [Client].
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }

// WithCache shares a response cache between clients.
func WithCache(cache *Cache) Option { return func(c *Client) { c.cache = cache } }

// WithFallbackKey sets the static API key used for read-only calls when the bearer is unusable.
func WithFallbackKey(key string) Option { return func(c *Client) { c.fallbackKey = key } }

func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

func WithMinBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.minBackoff = d
		}
	}
}

// WithQuotaPenalty sets the units charged when the remote side reports quota exhaustion.
func WithQuotaPenalty(units int) Option { return func(c *Client) { c.penalty = units } }

func WithLogger(l *log.Logger) Option { return func(c *Client) { c.logger = l } }

// WithSleep replaces the context-aware sleep between attempts.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

// WithJitter replaces the random jitter source; fn returns a duration in [0, limit).
func WithJitter(fn func(limit time.Duration) time.Duration) Option {
	return func(c *Client) { c.jitter = fn }
}

// New creates a client for platform drawing from tracker.
func New(platform string, tracker *quota.Tracker, opts ...Option) *Client {
	c := &Client{
		platform:   platform,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		quota:      tracker,
		maxRetries: DefaultMaxRetries,
		minBackoff: DefaultMinBackoff,
		penalty:    quota.DefaultCosts[quota.ReadHeavy],
		logger:     shared.NewLogger(nil),
		sleep:      sleepContext,
		jitter:     randomJitter,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = NewCache(DefaultCacheTTL)
	}
	if c.quota == nil {
		c.quota = quota.New(platform)
	}
	c.breaker = newBreaker(platform, c.logger)
	return c
}

// Platform returns the platform label.
func (c *Client) Platform() string { return c.platform }

// Quota returns the tracker the client charges.
func (c *Client) Quota() *quota.Tracker { return c.quota }

// Cache returns the response cache.
func (c *Client) Cache() *Cache { return c.cache }

// Call performs req with bearer, returning the first 2xx response.
//
// It fails with [shared.ErrQuotaExceeded] without touching the network when the budget would be exceeded, and
// with a [*StatusError] or a wrapped [shared.ErrTransientNetwork] once retries are exhausted.
func (c *Client) Call(ctx context.Context, req Request, bearer string) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if req.Op == "" {
		req.Op = quota.ReadLight
	}
	maxRetries := c.maxRetries
	if req.MaxRetries > 0 {
		maxRetries = req.MaxRetries
	}

	cacheable := req.Method == http.MethodGet && !req.NoCache
	if cacheable {
		if resp, ok := c.cache.Get(req.URL); ok {
			metrics.RemoteCacheHits.WithLabelValues(c.platform).Inc()
			return resp, nil
		}
	}

	if err := c.quota.CheckBeforeOperation(req.Op, 1); err != nil {
		return nil, err
	}

	useFallback := false
	if len(bearer) < minBearerLength {
		if !c.canFallback(req) {
			return nil, fmt.Errorf("%w: %s bearer credential missing", shared.ErrAuthFailed, c.platform)
		}
		useFallback = true
	}
	fallbackTried := useFallback

	logger := c.logger.With("platform", c.platform, "method", req.Method, "op", req.Op)
	var (
		lastErr error
		delay   time.Duration
	)

	for attempt := 0; attempt < maxRetries; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := c.attempt(ctx, req, bearer, useFallback)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return nil, fmt.Errorf("%w: %s circuit open: %v", shared.ErrServiceUnavailable, c.platform, err)
			}
			if resp == nil {
				lastErr = fmt.Errorf("%w: %s: %v", shared.ErrTransientNetwork, c.platform, err)
				attempt++
				if err := c.backoff(ctx, logger, attempt, maxRetries, "network", 0, &delay); err != nil {
					return nil, err
				}
				continue
			}
		}

		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			c.quota.RecordUsage(req.Op, 1)
			if cacheable {
				c.cache.Set(req.URL, resp)
			}
			if req.Invalidate != "" {
				c.cache.Invalidate(req.Invalidate)
			}
			return resp, nil
		}

		reason, message := classify(resp.Body)
		status := resp.StatusCode

		switch {
		case isQuota(status, reason, message):
			c.quota.RecordUnits(max(c.penalty, c.quota.Cost(req.Op, 1)))
			lastErr = newStatusError(c.platform, status, reason, message, shared.ErrQuotaExceeded)
			logger.Warn("remote quota exhausted", "status", status, "reason", reason, "attempt", attempt+1)
			attempt++
			if err := c.backoff(ctx, logger, attempt, maxRetries, "quota", 0, &delay); err != nil {
				return nil, err
			}

		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			if !fallbackTried && c.canFallback(req) {
				fallbackTried, useFallback = true, true
				metrics.RemoteRetries.WithLabelValues(c.platform, "auth_fallback").Inc()
				logger.Debug("bearer rejected, retrying with fallback key", "status", status)
				continue
			}
			return nil, newStatusError(c.platform, status, reason, message, shared.ErrAuthFailed)

		case status == http.StatusTooManyRequests || status >= 500:
			lastErr = newStatusError(c.platform, status, reason, message, shared.ErrTransientNetwork)
			attempt++
			if err := c.backoff(ctx, logger, attempt, maxRetries, "server", retryAfter(resp.Header), &delay); err != nil {
				return nil, err
			}

		default:
			return nil, newStatusError(c.platform, status, reason, message, sentinelFor(status))
		}
	}

	return nil, lastErr
}

// attempt issues one HTTP request through the circuit breaker. Server errors count as breaker failures
// but still return the response so the caller can classify it.
func (c *Client) attempt(ctx context.Context, req Request, bearer string, useFallback bool) (*Response, error) {
	return c.breaker.Execute(func() (*Response, error) {
		httpReq, err := c.build(ctx, req, bearer, useFallback)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			metrics.RecordRemoteRequest(c.platform, string(req.Op), 0, time.Since(start))
			return nil, err
		}
		defer httpResp.Body.Close()

		body, err := io.ReadAll(httpResp.Body)
		metrics.RecordRemoteRequest(c.platform, string(req.Op), httpResp.StatusCode, time.Since(start))
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		resp := &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: body}
		if resp.StatusCode >= 500 {
			return resp, fmt.Errorf("server error: status %d", resp.StatusCode)
		}
		return resp, nil
	})
}

func (c *Client) build(ctx context.Context, req Request, bearer string, useFallback bool) (*http.Request, error) {
	target := req.URL
	if useFallback {
		u, err := url.Parse(req.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid request URL: %w", err)
		}
		q := u.Query()
		q.Set("key", c.fallbackKey)
		u.RawQuery = q.Encode()
		target = u.String()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if !useFallback {
		httpReq.Header.Set("Authorization", "Bearer "+bearer)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}

func (c *Client) canFallback(req Request) bool {
	return c.fallbackKey != "" && req.ReadOnly
}

// backoff sleeps before the next attempt unless attempts are exhausted. prev holds the delay of the
// previous sleep in this call; a server-requested floor raises it and later sleeps never go below it.
func (c *Client) backoff(ctx context.Context, logger *log.Logger, attempt, maxRetries int, reason string, floor time.Duration, prev *time.Duration) error {
	if attempt >= maxRetries {
		return nil
	}
	delay := max(c.Delay(attempt-1), floor, *prev)
	*prev = delay
	metrics.RemoteRetries.WithLabelValues(c.platform, reason).Inc()
	logger.Debug("retrying remote call", "reason", reason, "attempt", attempt+1, "max", maxRetries, "delay", delay)
	return c.sleep(ctx, delay)
}

// Delay is min_backoff * 2^attempt plus jitter below min_backoff, so successive delays never shrink.
func (c *Client) Delay(attempt int) time.Duration {
	base := c.minBackoff * time.Duration(1<<attempt)
	j := c.jitter(c.minBackoff)
	if j < 0 || j >= c.minBackoff {
		j = 0
	}
	return base + j
}

func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return min(time.Duration(secs)*time.Second, maxRetryAfter)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(limit)))
}
