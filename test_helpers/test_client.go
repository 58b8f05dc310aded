package test_helpers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"
	topgg "github.com/jamesprial/go-topgg"
	"github.com/jamesprial/go-topgg/internal"
	"go.opentelemetry.io/otel/trace/noop"
)

// TestBotID is the bot the default test client acts for.
const TestBotID = snowflake.ID(264811613708746752)

// MockClientConfig configures NewTestClient.
type MockClientConfig struct {
	BotID     snowflake.ID
	Token     string
	UserAgent string
	Timeout   time.Duration
	Logger    *slog.Logger
}

// DefaultMockClientConfig returns a configuration with sensible test defaults
func DefaultMockClientConfig() MockClientConfig {
	return MockClientConfig{
		BotID:     TestBotID,
		Token:     "test-token",
		UserAgent: "go-topgg-test/1.0",
		Timeout:   5 * time.Second,
	}
}

// NewTestClient creates a Top.gg client talking to a fresh mock server.
// Client-side throttling is effectively disabled so tests run quickly.
func NewTestClient(config *MockClientConfig) (*topgg.Client, *TopggMockServer) {
	if config == nil {
		defaultConfig := DefaultMockClientConfig()
		config = &defaultConfig
	}

	server := NewTopggMockServer(config.BotID)

	httpClient := server.Client()
	httpClient.Timeout = config.Timeout

	client, err := topgg.NewClient(&topgg.Config{
		Token:          config.Token,
		BotID:          config.BotID,
		BaseURL:        server.URL(),
		UserAgent:      config.UserAgent,
		HTTPClient:     httpClient,
		RateLimit:      &internal.RateLimitConfig{RequestsPerMinute: 60000, Burst: 1000},
		Logger:         config.Logger,
		TracerProvider: noop.NewTracerProvider(),
	})
	if err != nil {
		server.Close()
		panic(fmt.Sprintf("failed to create topgg client: %v", err))
	}

	return client, server
}
