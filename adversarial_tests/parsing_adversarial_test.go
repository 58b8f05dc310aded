package adversarial_tests

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jamesprial/go-topgg/adversarial_tests/helpers"
	"github.com/jamesprial/go-topgg/internal"
	pkgerrs "github.com/jamesprial/go-topgg/pkg/errors"
	"github.com/jamesprial/go-topgg/pkg/types"
	"github.com/jamesprial/go-topgg/test_helpers"
)

func TestMalformedVoteCheck(t *testing.T) {
	gen := helpers.NewJSONGenerator()

	for _, body := range gen.GenerateMalformedVoteChecks() {
		t.Run(body, func(t *testing.T) {
			client, server := test_helpers.NewTestClient(nil)
			defer server.Close()

			server.SetResponse(http.MethodGet, "/bots/"+test_helpers.TestBotID.String()+"/check", &test_helpers.MockResponse{
				Status: http.StatusOK,
				Body:   body,
			})

			voted, err := client.HasVoted(context.Background(), test_helpers.TestBotID)
			var parseErr *pkgerrs.ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected ParseError, got voted=%v err=%v", voted, err)
			}
			if voted {
				t.Error("a malformed check must not report a vote")
			}
		})
	}
}

func TestMalformedWeekend(t *testing.T) {
	gen := helpers.NewJSONGenerator()

	for _, body := range gen.GenerateMalformedWeekend() {
		t.Run(body, func(t *testing.T) {
			client, server := test_helpers.NewTestClient(nil)
			defer server.Close()

			server.SetResponse(http.MethodGet, "/weekend", &test_helpers.MockResponse{
				Status: http.StatusOK,
				Body:   body,
			})

			_, err := client.IsWeekend(context.Background())
			var parseErr *pkgerrs.ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected ParseError, got %v", err)
			}
		})
	}
}

func TestMalformedBotListings(t *testing.T) {
	gen := helpers.NewJSONGenerator()

	for _, body := range gen.GenerateMalformedBotListings() {
		t.Run(body, func(t *testing.T) {
			client, server := test_helpers.NewTestClient(nil)
			defer server.Close()

			server.SetResponse(http.MethodGet, "/bots", &test_helpers.MockResponse{
				Status: http.StatusOK,
				Body:   body,
			})

			resp, err := client.GetBots(context.Background(), nil)
			var parseErr *pkgerrs.ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected ParseError, got resp=%+v err=%v", resp, err)
			}
		})
	}
}

func TestOddBotListings(t *testing.T) {
	gen := helpers.NewJSONGenerator()

	for name, tc := range gen.GenerateOddBotListings() {
		t.Run(name, func(t *testing.T) {
			client, server := test_helpers.NewTestClient(nil)
			defer server.Close()

			server.SetResponse(http.MethodGet, "/bots", &test_helpers.MockResponse{
				Status: http.StatusOK,
				Body:   tc.Body,
			})

			bots, err := client.NewBotIterator(context.Background(), nil).Collect(0)
			if err != nil {
				t.Fatalf("Collect() error = %v", err)
			}
			if len(bots) != tc.Want {
				t.Errorf("Collect() returned %d bots, want %d", len(bots), tc.Want)
			}
			for i, bot := range bots {
				if bot == nil {
					t.Errorf("bot %d is nil", i)
				}
			}
		})
	}
}

func TestLargeListingIsCapped(t *testing.T) {
	const pageSize = 250
	gen := helpers.NewJSONGenerator()

	client, server := test_helpers.NewTestClient(nil)
	defer server.Close()

	// The server ignores paging and always answers a full page. The offset
	// cap must still end the walk.
	server.SetResponse(http.MethodGet, "/bots", &test_helpers.MockResponse{
		Status: http.StatusOK,
		Body:   gen.GenerateLargeListing(pageSize, 10000),
	})

	bots, err := client.NewBotIterator(context.Background(), &types.BotsQuery{Limit: pageSize}).Collect(0)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(bots) != 2*pageSize {
		t.Errorf("Collect() returned %d bots, want %d", len(bots), 2*pageSize)
	}
	if calls := server.GetCallCount(http.MethodGet, "/bots"); calls != 2 {
		t.Errorf("server saw %d pages, want 2", calls)
	}
}

func TestRetryAfterBodies(t *testing.T) {
	gen := helpers.NewJSONGenerator()
	parser := internal.NewParser()

	for _, tc := range gen.GenerateRetryAfterBodies() {
		t.Run(tc.Body, func(t *testing.T) {
			got, ok := parser.ParseRetryAfter([]byte(tc.Body))
			if ok != tc.OK {
				t.Fatalf("ParseRetryAfter() ok = %v, want %v", ok, tc.OK)
			}
			want := time.Duration(tc.Seconds * float64(time.Second))
			if ok && got != want {
				t.Errorf("ParseRetryAfter() = %v, want %v", got, want)
			}
		})
	}
}

// TestRetryAfterHeaderFallback checks the Retry-After header is used when
// the 429 body carries no delay
func TestRetryAfterHeaderFallback(t *testing.T) {
	client, server := test_helpers.NewTestClient(nil)
	defer server.Close()

	server.SetResponse(http.MethodPost, server.StatsPath(), &test_helpers.MockResponse{
		Status:  http.StatusTooManyRequests,
		Body:    `{"retry-after":"soon"}`,
		Headers: map[string]string{"Retry-After": "2"},
	})

	err := client.PostServerCount(context.Background(), 10)

	var rl *pkgerrs.RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rl.RetryAfter != 2*time.Second {
		t.Errorf("RetryAfter = %v, want 2s", rl.RetryAfter)
	}
}

// TestRateLimitDefersFollowingRequests checks a 429 holds back the next
// request until the delay has passed or the caller gives up
func TestRateLimitDefersFollowingRequests(t *testing.T) {
	client, server := test_helpers.NewTestClient(nil)
	defer server.Close()
	server.SetupRateLimit(time.Hour)

	if err := client.PostServerCount(context.Background(), 1); err == nil {
		t.Fatal("expected rate limit error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.IsWeekend(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected the deferred request to time out, got %v", err)
	}
	if calls := server.GetCallCount(http.MethodGet, "/weekend"); calls != 0 {
		t.Errorf("server saw %d weekend requests during the delay, want 0", calls)
	}
}
