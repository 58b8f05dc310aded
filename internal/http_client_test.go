package internal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	pkgerrs "github.com/jamesprial/go-topgg/pkg/errors"
	"github.com/jamesprial/go-topgg/pkg/types"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"
)

var fastLimits = &RateLimitConfig{RequestsPerMinute: 60000, Burst: 1000}

func newTestClient(t *testing.T, httpClient *http.Client, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(httpClient, "token", baseURL, "agent", fastLimits, nil, noop.NewTracerProvider())
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

func TestNewClient_DefaultRateLimiter(t *testing.T) {
	client, err := NewClient(nil, "token", "https://top.gg/api/", "agent", nil, nil, nil)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	if client.limiter == nil {
		t.Fatalf("expected limiter to be initialized")
	}

	if got := client.limiter.Limit(); got != rate.Limit(1) {
		t.Errorf("expected default limit 1 req/sec, got %v", got)
	}
	if got := client.limiter.Burst(); got != 10 {
		t.Errorf("expected default burst of 10, got %d", got)
	}
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	_, err := NewClient(nil, "token", "://bad", "agent", nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for invalid base URL")
	}

	var configErr *pkgerrs.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected ConfigError, got %T", err)
	}
	if configErr.Field != "BaseURL" {
		t.Errorf("expected field BaseURL, got %q", configErr.Field)
	}
}

func TestNewClient_CustomLimiterConfig(t *testing.T) {
	client, err := NewClient(nil, "token", "https://top.gg/api", "agent", &RateLimitConfig{RequestsPerMinute: 120, Burst: 5}, nil, nil)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	if got := client.BaseURL.String(); got != "https://top.gg/api/" {
		t.Fatalf("expected base URL to gain trailing slash, got %q", got)
	}

	if got := client.limiter.Limit(); got != rate.Limit(2) {
		t.Errorf("expected limit of 2 req/sec, got %v", got)
	}
	if got := client.limiter.Burst(); got != 5 {
		t.Errorf("expected burst of 5, got %d", got)
	}
}

func TestClient_NewRequestSetsHeaders(t *testing.T) {
	c, err := NewClient(&http.Client{}, "token-value", "https://top.gg/api", "my-agent", fastLimits, nil, nil)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	req, err := c.NewRequest(context.Background(), http.MethodGet, "bots/1", nil)
	if err != nil {
		t.Fatalf("NewRequest returned error: %v", err)
	}

	if got := req.Header.Get("Authorization"); got != "token-value" {
		t.Errorf("expected raw token in Authorization header, got %q", got)
	}
	if got := req.Header.Get("User-Agent"); got != "my-agent" {
		t.Errorf("expected User-Agent 'my-agent', got %q", got)
	}
	if got := req.Header.Get("Content-Type"); got != "" {
		t.Errorf("expected no Content-Type without a body, got %q", got)
	}
	if req.URL.String() != "https://top.gg/api/bots/1" {
		t.Errorf("unexpected request URL: %s", req.URL)
	}
}

func TestClient_NewRequestInvalidPath(t *testing.T) {
	c := newTestClient(t, nil, "https://top.gg/api/")

	_, err := c.NewRequest(context.Background(), http.MethodGet, "%zz", nil)
	if err == nil {
		t.Fatal("expected error constructing request with invalid path")
	}

	var requestErr *pkgerrs.RequestError
	if !errors.As(err, &requestErr) {
		t.Fatalf("expected RequestError, got %T", err)
	}
}

func TestClient_NewRequestPreservesBody(t *testing.T) {
	c := newTestClient(t, nil, "https://top.gg/api/")

	body := []byte(`{"server_count":1}`)
	req, err := c.NewRequest(context.Background(), http.MethodPost, "bots/1/stats", bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("NewRequest returned error: %v", err)
	}
	defer req.Body.Close()

	if got := req.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("expected JSON content type, got %q", got)
	}
	got, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatalf("failed reading request body: %v", err)
	}
	if string(got) != string(body) {
		t.Fatalf("expected body %q, got %q", body, got)
	}
}

func TestClient_DoDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"server_count":42,"shards":[20,22]}`))
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server.Client(), server.URL+"/")

	req, err := c.NewRequest(context.Background(), http.MethodGet, "bots/1/stats", nil)
	if err != nil {
		t.Fatalf("NewRequest returned error: %v", err)
	}

	var stats types.BotStats
	if _, err := c.Do(req, &stats); err != nil {
		t.Fatalf("Do returned error: %v", err)
	}

	if stats.ServerCount == nil || *stats.ServerCount != 42 {
		t.Errorf("expected server count 42, got %v", stats.ServerCount)
	}
	if len(stats.Shards) != 2 {
		t.Errorf("expected 2 shards, got %v", stats.Shards)
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestClient_DoTransportErrorWrapped(t *testing.T) {
	expectedErr := errors.New("boom")
	httpClient := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return nil, expectedErr
	})}

	c := newTestClient(t, httpClient, "https://top.gg/api/")

	req, err := c.NewRequest(context.Background(), http.MethodGet, "weekend", nil)
	if err != nil {
		t.Fatalf("NewRequest returned error: %v", err)
	}

	_, err = c.Do(req, nil)
	if err == nil {
		t.Fatal("expected transport error")
	}

	var requestErr *pkgerrs.RequestError
	if !errors.As(err, &requestErr) {
		t.Fatalf("expected RequestError, got %T", err)
	}
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected wrapped error %v, got %v", expectedErr, err)
	}
}

func TestClient_DoStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		header map[string]string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"error":"Unauthorized"}`,
			check: func(t *testing.T, err error) {
				var authErr *pkgerrs.AuthError
				if !errors.As(err, &authErr) {
					t.Fatalf("expected AuthError, got %T", err)
				}
				if authErr.StatusCode != http.StatusUnauthorized || authErr.Message != "Unauthorized" {
					t.Errorf("unexpected AuthError: %+v", authErr)
				}
			},
		},
		{
			name:   "forbidden",
			status: http.StatusForbidden,
			check: func(t *testing.T, err error) {
				var authErr *pkgerrs.AuthError
				if !errors.As(err, &authErr) {
					t.Fatalf("expected AuthError, got %T", err)
				}
			},
		},
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   `{"message":"Not Found"}`,
			check: func(t *testing.T, err error) {
				var notFound *pkgerrs.NotFoundError
				if !errors.As(err, &notFound) {
					t.Fatalf("expected NotFoundError, got %T", err)
				}
				if notFound.Resource != "bots/1" {
					t.Errorf("expected resource bots/1, got %q", notFound.Resource)
				}
				if notFound.Message != "Not Found" {
					t.Errorf("expected message Not Found, got %q", notFound.Message)
				}
			},
		},
		{
			name:   "rate limited with body",
			status: http.StatusTooManyRequests,
			body:   `{"retry-after":30}`,
			check: func(t *testing.T, err error) {
				var rl *pkgerrs.RateLimitError
				if !errors.As(err, &rl) {
					t.Fatalf("expected RateLimitError, got %T", err)
				}
				if rl.RetryAfter != 30*time.Second {
					t.Errorf("expected 30s retry, got %v", rl.RetryAfter)
				}
			},
		},
		{
			name:   "rate limited with header",
			status: http.StatusTooManyRequests,
			header: map[string]string{"Retry-After": "12"},
			check: func(t *testing.T, err error) {
				var rl *pkgerrs.RateLimitError
				if !errors.As(err, &rl) {
					t.Fatalf("expected RateLimitError, got %T", err)
				}
				if rl.RetryAfterSeconds() != 12 {
					t.Errorf("expected 12s retry, got %v", rl.RetryAfter)
				}
			},
		},
		{
			name:   "server error",
			status: http.StatusBadGateway,
			check: func(t *testing.T, err error) {
				var apiErr *pkgerrs.APIError
				if !errors.As(err, &apiErr) {
					t.Fatalf("expected APIError, got %T", err)
				}
				if apiErr.StatusCode != http.StatusBadGateway || apiErr.Message != "Bad Gateway" {
					t.Errorf("unexpected APIError: %+v", apiErr)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(server.Close)

			c := newTestClient(t, server.Client(), server.URL+"/")
			req, err := c.NewRequest(context.Background(), http.MethodGet, "bots/1", nil)
			if err != nil {
				t.Fatalf("NewRequest returned error: %v", err)
			}

			resp, err := c.Do(req, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if resp == nil {
				t.Fatal("expected response to be returned alongside error")
			}
			tt.check(t, err)
		})
	}
}

func TestClient_DoRateLimitDefersNextRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"retry_after":"30"}`))
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server.Client(), server.URL+"/")
	req, err := c.NewRequest(context.Background(), http.MethodPost, "bots/1/stats", nil)
	if err != nil {
		t.Fatalf("NewRequest returned error: %v", err)
	}
	if _, err := c.Do(req, nil); err == nil {
		t.Fatal("expected rate limit error")
	}

	c.mu.Lock()
	until := c.forceWaitUntil
	c.mu.Unlock()
	if wait := time.Until(until); wait < 29*time.Second || wait > 30*time.Second {
		t.Fatalf("expected requests deferred by ~30s, got %v", wait)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	next, err := c.NewRequest(ctx, http.MethodGet, "bots/1/stats", nil)
	if err != nil {
		t.Fatalf("NewRequest returned error: %v", err)
	}
	if _, err := c.Do(next, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deferred request to hit deadline, got %v", err)
	}
}

func TestClient_DoJSONDecodeErrorWrapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"bad json"`))
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server.Client(), server.URL+"/")

	req, err := c.NewRequest(context.Background(), http.MethodGet, "bots/1", nil)
	if err != nil {
		t.Fatalf("NewRequest returned error: %v", err)
	}

	var bot types.Bot
	_, err = c.Do(req, &bot)
	if err == nil {
		t.Fatal("expected decode error")
	}

	var parseErr *pkgerrs.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %T", err)
	}
}

func TestClient_DoRawReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"is_weekend":true}`))
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server.Client(), server.URL+"/")

	req, err := c.NewRequest(context.Background(), http.MethodGet, "weekend", nil)
	if err != nil {
		t.Fatalf("NewRequest returned error: %v", err)
	}

	body, err := c.DoRaw(req)
	if err != nil {
		t.Fatalf("DoRaw returned error: %v", err)
	}
	if string(body) != `{"is_weekend":true}` {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestClient_DoEnforcesRetryAfter(t *testing.T) {
	var (
		mu        sync.Mutex
		callCount int
		firstHit  time.Time
		secondHit time.Time
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		callCount++
		if callCount == 1 {
			firstHit = time.Now()
			w.Header().Set("Retry-After", "0.1")
		} else {
			secondHit = time.Now()
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server.Client(), server.URL+"/")

	ctx := context.Background()
	req1, err := c.NewRequest(ctx, http.MethodGet, "first", nil)
	if err != nil {
		t.Fatalf("NewRequest returned error: %v", err)
	}
	if _, err := c.Do(req1, nil); err != nil {
		t.Fatalf("Do on first request returned error: %v", err)
	}

	req2, err := c.NewRequest(ctx, http.MethodGet, "second", nil)
	if err != nil {
		t.Fatalf("NewRequest returned error: %v", err)
	}

	start := time.Now()
	if _, err := c.Do(req2, nil); err != nil {
		t.Fatalf("Do on second request returned error: %v", err)
	}
	elapsed := time.Since(start)

	mu.Lock()
	s := secondHit
	f := firstHit
	n := callCount
	mu.Unlock()

	if n != 2 {
		t.Fatalf("expected 2 calls to server, got %d", n)
	}
	if diff := s.Sub(f); diff < 90*time.Millisecond {
		t.Fatalf("expected at least 90ms between requests, got %v", diff)
	}
	if elapsed < 90*time.Millisecond {
		t.Fatalf("expected Do call to take at least 90ms due to rate limit, took %v", elapsed)
	}
}

func TestClient_DoHonorsCanceledContextBeforeSend(t *testing.T) {
	transportCalled := false
	httpClient := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		transportCalled = true
		return nil, errors.New("unexpected transport call")
	})}

	c := newTestClient(t, httpClient, "https://top.gg/api/")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, err := c.NewRequest(ctx, http.MethodGet, "weekend", nil)
	if err != nil {
		t.Fatalf("NewRequest returned error: %v", err)
	}

	_, err = c.Do(req, nil)
	if err == nil {
		t.Fatal("expected error due to canceled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if transportCalled {
		t.Fatal("transport should not be invoked when context already canceled")
	}
}

func TestClient_WaitForForcedDelayBlocksAndClears(t *testing.T) {
	c := &Client{}
	c.forceWaitUntil = time.Now().Add(30 * time.Millisecond)

	start := time.Now()
	if err := c.waitForForcedDelay(context.Background()); err != nil {
		t.Fatalf("waitForForcedDelay returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Fatalf("expected waitForForcedDelay to block, elapsed %v", elapsed)
	}
	if !c.forceWaitUntil.IsZero() {
		t.Fatal("expected forced delay to be cleared after waiting")
	}
}

func TestClient_WaitForForcedDelayContextCanceled(t *testing.T) {
	c := &Client{}
	c.forceWaitUntil = time.Now().Add(100 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.waitForForcedDelay(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled error, got %v", err)
	}
	if c.forceWaitUntil.IsZero() {
		t.Fatalf("forced delay should remain until cleared on successful wait")
	}
}

func TestClient_DeferRequestsExtendsDelay(t *testing.T) {
	c := newTestClient(t, nil, "https://top.gg/api/")

	c.deferRequests(-time.Second)
	if !c.forceWaitUntil.IsZero() {
		t.Fatal("negative duration should not set forced delay")
	}

	c.deferRequests(20 * time.Millisecond)
	first := c.forceWaitUntil
	if first.IsZero() {
		t.Fatal("expected forced delay to be set")
	}

	c.deferRequests(5 * time.Millisecond)
	if second := c.forceWaitUntil; !second.Equal(first) {
		t.Fatalf("shorter defer should not reduce wait: first=%v second=%v", first, second)
	}

	c.deferRequests(40 * time.Millisecond)
	if third := c.forceWaitUntil; !third.After(first) {
		t.Fatalf("longer defer should extend wait: first=%v third=%v", first, third)
	}
}

func TestParseRetryAfterHeader(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{value: "", want: 0},
		{value: "garbage", want: 0},
		{value: "-1", want: 0},
		{value: "2", want: 2 * time.Second},
		{value: "0.5", want: 500 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := parseRetryAfterHeader(tt.value); got != tt.want {
			t.Errorf("parseRetryAfterHeader(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
