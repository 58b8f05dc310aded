package topgg_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	topgg "github.com/jamesprial/go-topgg"
	"github.com/jamesprial/go-topgg/internal"
	pkgerrs "github.com/jamesprial/go-topgg/pkg/errors"
	"github.com/jamesprial/go-topgg/test_helpers"
	"go.opentelemetry.io/otel/trace/noop"
)

func newLimitedClient(t *testing.T, server *test_helpers.TopggMockServer, rl *internal.RateLimitConfig) *topgg.Client {
	t.Helper()
	client, err := topgg.NewClient(&topgg.Config{
		Token:          "test-token",
		BotID:          test_helpers.TestBotID,
		BaseURL:        server.URL(),
		HTTPClient:     server.Client(),
		RateLimit:      rl,
		TracerProvider: noop.NewTracerProvider(),
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

// TestBurstCapacityHandling checks requests beyond the burst wait for tokens
func TestBurstCapacityHandling(t *testing.T) {
	server := test_helpers.NewTopggMockServer(test_helpers.TestBotID)
	defer server.Close()

	// 10 requests per second with a burst of 2: the 3rd and 4th requests
	// wait roughly 100ms each.
	client := newLimitedClient(t, server, &internal.RateLimitConfig{RequestsPerMinute: 600, Burst: 2})

	start := time.Now()
	for i := 0; i < 4; i++ {
		if _, err := client.IsWeekend(context.Background()); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("4 requests took %v, expected the limiter to hold back the last two", elapsed)
	}
}

// TestConcurrentRateLimiting checks concurrent callers share one limiter
func TestConcurrentRateLimiting(t *testing.T) {
	server := test_helpers.NewTopggMockServer(test_helpers.TestBotID)
	defer server.Close()

	client := newLimitedClient(t, server, &internal.RateLimitConfig{RequestsPerMinute: 1200, Burst: 5})

	const callers = 10
	var wg sync.WaitGroup
	errs := make(chan error, callers)

	start := time.Now()
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.IsWeekend(context.Background()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("request failed: %v", err)
	}
	// 5 requests beyond the burst at 20 per second
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
		t.Errorf("%d concurrent requests took %v, expected at least 200ms", callers, elapsed)
	}
	if got := server.GetCallCount(http.MethodGet, "/weekend"); got != callers {
		t.Errorf("server saw %d requests, want %d", got, callers)
	}
}

// TestRateLimitRecoveryPatterns checks the client waits out a 429 and then
// carries on normally
func TestRateLimitRecoveryPatterns(t *testing.T) {
	client, server := test_helpers.NewTestClient(nil)
	defer server.Close()

	server.SetResponse(http.MethodPost, server.StatsPath(), &test_helpers.MockResponse{
		Status: http.StatusTooManyRequests,
		Body:   `{"retry-after":0.5}`,
	})

	err := client.PostServerCount(context.Background(), 5)
	var rl *pkgerrs.RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rl.RetryAfter != 500*time.Millisecond {
		t.Errorf("RetryAfter = %v, want 500ms", rl.RetryAfter)
	}

	server.SetResponse(http.MethodPost, server.StatsPath(), &test_helpers.MockResponse{Status: http.StatusOK, Body: `{}`})

	start := time.Now()
	if err := client.PostServerCount(context.Background(), 6); err != nil {
		t.Fatalf("post after recovery failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
		t.Errorf("post went out after %v, before the retry delay ended", elapsed)
	}

	posted := server.PostedStats()
	if len(posted) != 2 || posted[1].ServerCount != 6 {
		t.Errorf("posted = %+v, want the rejected and the recovered post", posted)
	}
}

// TestRetryAfterHeaderOnSuccess checks a Retry-After on a 2xx response still
// spaces out the next request
func TestRetryAfterHeaderOnSuccess(t *testing.T) {
	client, server := test_helpers.NewTestClient(nil)
	defer server.Close()

	server.SetResponse(http.MethodGet, "/weekend", &test_helpers.MockResponse{
		Status:  http.StatusOK,
		Body:    `{"is_weekend":false}`,
		Headers: map[string]string{"Retry-After": "0.25"},
	})

	if _, err := client.IsWeekend(context.Background()); err != nil {
		t.Fatalf("first request: %v", err)
	}

	start := time.Now()
	if _, err := client.IsWeekend(context.Background()); err != nil {
		t.Fatalf("second request: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("second request went out after %v, expected the Retry-After delay", elapsed)
	}
}
