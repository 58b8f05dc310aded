package internal

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	pkgerrs "github.com/jamesprial/go-topgg/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const instrumentationName = "github.com/jamesprial/go-topgg"

// Client manages communication with the Top.gg API.
type Client struct {
	client    *http.Client
	BaseURL   *url.URL
	UserAgent string
	token     string
	logger    *slog.Logger
	tracer    trace.Tracer
	parser    *Parser

	limiter        *rate.Limiter
	mu             sync.Mutex
	forceWaitUntil time.Time
}

// RateLimitConfig controls how requests are throttled before reaching Top.gg.
type RateLimitConfig struct {
	// RequestsPerMinute caps steady-state throughput. Defaults to 60 if zero.
	RequestsPerMinute float64
	// Burst allows short spikes above the steady-state rate. Defaults to 10 if zero.
	Burst int
}

const (
	DefaultRequestsPerMinute = 60
	DefaultRateLimitBurst    = 10
	SecondsPerMinute         = 60.0
	ParseFloatBitSize        = 64

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 4 << 20
)

// NewClient returns a new Top.gg API client.
// If a nil httpClient is provided, http.DefaultClient will be used.
// A nil logger discards output and a nil tracer provider falls back to the
// global OpenTelemetry provider.
func NewClient(httpClient *http.Client, authToken, baseURL, userAgent string, rateCfg *RateLimitConfig, logger *slog.Logger, tp trace.TracerProvider) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "BaseURL", Message: err.Error()}
	}
	if !strings.HasSuffix(parsedURL.Path, "/") {
		parsedURL.Path += "/"
	}

	if rateCfg == nil {
		rateCfg = &RateLimitConfig{}
	}

	return &Client{
		client:    httpClient,
		BaseURL:   parsedURL,
		UserAgent: userAgent,
		token:     authToken,
		logger:    logger,
		tracer:    tp.Tracer(instrumentationName),
		parser:    NewParser(),
		limiter:   buildLimiter(*rateCfg),
	}, nil
}

// NewRequest creates an API request. A relative URL can be provided in path,
// in which case it is resolved relative to the BaseURL of the Client.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u, err := c.BaseURL.Parse(path)
	if err != nil {
		return nil, &pkgerrs.RequestError{Operation: method, URL: path, Message: "invalid path", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, &pkgerrs.RequestError{Operation: method, URL: u.String(), Err: err}
	}

	req.Header.Set("Authorization", c.token)
	req.Header.Set("User-Agent", c.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// Do sends an API request and JSON decodes a successful response body into v.
// Non-2xx responses are mapped onto the pkg/errors taxonomy.
func (c *Client) Do(req *http.Request, v any) (*http.Response, error) {
	resp, body, err := c.send(req)
	if err != nil {
		return resp, err
	}

	if v != nil && len(body) > 0 {
		if err := json.Unmarshal(body, v); err != nil {
			return resp, &pkgerrs.ParseError{Operation: req.Method + " " + req.URL.Path, Err: err}
		}
	}

	return resp, nil
}

// DoRaw sends an API request and returns the raw body of a successful response.
func (c *Client) DoRaw(req *http.Request) ([]byte, error) {
	_, body, err := c.send(req)
	return body, err
}

func (c *Client) send(req *http.Request) (*http.Response, []byte, error) {
	ctx, span := c.tracer.Start(req.Context(), "topgg "+req.Method+" "+req.URL.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.URL.Path),
		),
	)
	defer span.End()

	resp, body, err := c.roundTrip(req.WithContext(ctx))
	if resp != nil {
		span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return resp, body, err
}

func (c *Client) roundTrip(req *http.Request) (*http.Response, []byte, error) {
	if err := c.waitForRateLimit(req.Context()); err != nil {
		return nil, nil, &pkgerrs.RequestError{Operation: req.Method, URL: req.URL.String(), Message: "rate limiter wait aborted", Err: err}
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("Top.gg request failed", "method", req.Method, "path", req.URL.Path, "error", err)
		return nil, nil, &pkgerrs.RequestError{Operation: req.Method, URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp, nil, &pkgerrs.RequestError{Operation: req.Method, URL: req.URL.String(), Message: "failed to read response body", Err: err}
	}

	c.logger.Debug("Top.gg request completed",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	c.applyRateHeaders(resp)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, body, nil
	}

	return resp, body, c.statusError(req, resp, body)
}

// statusError maps a non-2xx response to a typed error.
func (c *Client) statusError(req *http.Request, resp *http.Response, body []byte) error {
	message := c.parser.ParseErrorMessage(body)
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	resource := strings.TrimPrefix(req.URL.Path, c.BaseURL.Path)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &pkgerrs.AuthError{StatusCode: resp.StatusCode, Message: message, Body: string(body)}
	case http.StatusNotFound:
		return &pkgerrs.NotFoundError{Resource: resource, Message: message}
	case http.StatusTooManyRequests:
		retryAfter, ok := c.parser.ParseRetryAfter(body)
		if !ok {
			retryAfter = parseRetryAfterHeader(resp.Header.Get("Retry-After"))
		}
		c.deferRequests(retryAfter)
		return &pkgerrs.RateLimitError{RetryAfter: retryAfter}
	default:
		return &pkgerrs.APIError{StatusCode: resp.StatusCode, Message: message}
	}
}

func buildLimiter(cfg RateLimitConfig) *rate.Limiter {
	requestsPerMinute := cfg.RequestsPerMinute
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = DefaultRateLimitBurst
	}

	limitPerSecond := rate.Limit(requestsPerMinute / SecondsPerMinute)
	if limitPerSecond <= 0 {
		limitPerSecond = rate.Limit(1)
	}

	return rate.NewLimiter(limitPerSecond, burst)
}

func (c *Client) waitForRateLimit(ctx context.Context) error {
	if err := c.waitForForcedDelay(ctx); err != nil {
		return err
	}

	if c.limiter == nil {
		return nil
	}

	return c.limiter.Wait(ctx)
}

func (c *Client) waitForForcedDelay(ctx context.Context) error {
	for {
		c.mu.Lock()
		waitUntil := c.forceWaitUntil
		c.mu.Unlock()

		if waitUntil.IsZero() {
			return nil
		}

		now := time.Now()
		if !now.Before(waitUntil) {
			c.clearForcedDelay(waitUntil)
			return nil
		}

		timer := time.NewTimer(waitUntil.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			c.clearForcedDelay(waitUntil)
		}
	}
}

func (c *Client) clearForcedDelay(previous time.Time) {
	c.mu.Lock()
	if previous.Equal(c.forceWaitUntil) {
		c.forceWaitUntil = time.Time{}
	}
	c.mu.Unlock()
}

func (c *Client) applyRateHeaders(resp *http.Response) {
	if resp.StatusCode == http.StatusTooManyRequests {
		// statusError defers using the body's retry-after, which takes precedence.
		return
	}
	if d := parseRetryAfterHeader(resp.Header.Get("Retry-After")); d > 0 {
		c.deferRequests(d)
	}
}

func (c *Client) deferRequests(d time.Duration) {
	if d <= 0 {
		return
	}

	until := time.Now().Add(d)

	c.mu.Lock()
	if until.After(c.forceWaitUntil) {
		c.forceWaitUntil = until
	}
	c.mu.Unlock()

	c.logger.Debug("Top.gg requests deferred", "retry_after", d)
}

func parseRetryAfterHeader(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.ParseFloat(value, ParseFloatBitSize)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
