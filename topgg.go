package topgg

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jamesprial/go-topgg/internal"
	pkgerrs "github.com/jamesprial/go-topgg/pkg/errors"
	"github.com/jamesprial/go-topgg/pkg/types"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultBaseURL is the default Top.gg API base URL
	DefaultBaseURL = "https://top.gg/api/"
	// DefaultUserAgent is the default user agent string
	DefaultUserAgent = "go-topgg/1.0 (+https://github.com/jamesprial/go-topgg)"
	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second
)

// Config holds the configuration for the Top.gg client.
//
// Only Token is required:
//
//	config := &topgg.Config{
//		Token: os.Getenv("TOPGG_TOKEN"),
//	}
type Config struct {
	// Token is the bot's Top.gg API token, found on the bot's webhooks page.
	Token string

	// BotID is the Discord ID of the bot the token belongs to.
	// Optional. Derived from the token's payload when zero.
	BotID snowflake.ID

	// BaseURL for the Top.gg API.
	// Defaults to DefaultBaseURL if not specified. Usually doesn't need to be changed.
	BaseURL string

	// UserAgent string to identify your application to Top.gg.
	// Defaults to DefaultUserAgent if not specified.
	UserAgent string

	// HTTPClient to use for requests.
	// Defaults to a client with DefaultTimeout if not specified.
	HTTPClient *http.Client

	// RateLimit controls client-side throttling. Defaults to Top.gg's global
	// limit of 60 requests per minute with a burst of 10.
	RateLimit *internal.RateLimitConfig

	// Logger for structured diagnostics.
	// Optional. If provided, debug information will be logged during API calls.
	Logger *slog.Logger

	// TracerProvider supplies the tracer used to wrap each request in a span.
	// Optional. Defaults to the global OpenTelemetry provider.
	TracerProvider trace.TracerProvider
}

// HTTPClient defines the behavior required from the internal HTTP client.
// This interface allows for easy testing and customization of HTTP behavior.
type HTTPClient interface {
	// NewRequest creates a new HTTP request with authentication headers.
	// The path is relative to the configured base URL.
	NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error)

	// Do executes an HTTP request and decodes the JSON response into v.
	Do(req *http.Request, v any) (*http.Response, error)

	// DoRaw executes an HTTP request and returns the raw response bytes.
	DoRaw(req *http.Request) ([]byte, error)
}

// StatsPoster is the one capability the autoposter needs from a client.
type StatsPoster interface {
	PostStats(ctx context.Context, stats types.Stats) error
}

// Client is the Top.gg API client. It is safe for concurrent use.
//
// Example usage:
//
//	client, err := topgg.NewClient(&topgg.Config{Token: token})
//	if err != nil {
//		return err
//	}
//
//	bot, err := client.GetBot(ctx, botID)
type Client struct {
	client    HTTPClient
	config    *Config
	botID     snowflake.ID
	parser    *internal.Parser
	validator *internal.Validator
	logger    *slog.Logger
}

// NewClient creates a new Top.gg client with the provided configuration.
//
// Returns an error if:
//   - config is nil
//   - Token is missing
//   - BotID is zero and cannot be read from the token
//   - BaseURL or UserAgent are invalid
//
// No request is made; an invalid token surfaces as an *errors.AuthError on
// the first call.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, &ClientError{Op: "NewClient", Err: &pkgerrs.ConfigError{Message: "config cannot be nil"}}
	}
	if config.Token == "" {
		return nil, &ClientError{Op: "NewClient", Err: &pkgerrs.ConfigError{Field: "Token", Message: "token is required"}}
	}

	cfg := *config
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	validator := internal.NewValidator()
	if err := validator.ValidateUserAgent(cfg.UserAgent); err != nil {
		return nil, &ClientError{Op: "NewClient", Err: &pkgerrs.ConfigError{Field: "UserAgent", Message: err.Error()}}
	}

	botID := cfg.BotID
	if botID == 0 {
		claims, err := internal.ParseToken(cfg.Token)
		if err != nil {
			return nil, &ClientError{Op: "NewClient", Err: err}
		}
		botID = claims.BotID
	}

	httpClient, err := internal.NewClient(
		cfg.HTTPClient,
		cfg.Token,
		cfg.BaseURL,
		cfg.UserAgent,
		cfg.RateLimit,
		cfg.Logger,
		cfg.TracerProvider,
	)
	if err != nil {
		return nil, &ClientError{Op: "NewClient", Err: err}
	}

	return &Client{
		client:    httpClient,
		config:    &cfg,
		botID:     botID,
		parser:    internal.NewParser(),
		validator: validator,
		logger:    cfg.Logger,
	}, nil
}

// BotID returns the ID of the bot this client acts for.
func (c *Client) BotID() snowflake.ID {
	return c.botID
}

// StatsPoster returns c. It lets *Client be handed straight to an autoposter.
func (c *Client) StatsPoster() StatsPoster {
	return c
}

// GetUser fetches a Top.gg user profile.
//
// Returns an *errors.NotFoundError if the user has never logged in to Top.gg.
func (c *Client) GetUser(ctx context.Context, id snowflake.ID) (*types.User, error) {
	if err := c.validator.ValidateID("id", id); err != nil {
		return nil, &ClientError{Op: "GetUser", Err: err}
	}

	var user types.User
	if err := c.get(ctx, "users/"+id.String(), &user); err != nil {
		return nil, &ClientError{Op: "GetUser", Err: err}
	}
	return &user, nil
}

// GetBot fetches a bot listed on Top.gg.
//
// Returns an *errors.NotFoundError if the bot is not listed.
func (c *Client) GetBot(ctx context.Context, id snowflake.ID) (*types.Bot, error) {
	if err := c.validator.ValidateID("id", id); err != nil {
		return nil, &ClientError{Op: "GetBot", Err: err}
	}

	var bot types.Bot
	if err := c.get(ctx, "bots/"+id.String(), &bot); err != nil {
		return nil, &ClientError{Op: "GetBot", Err: err}
	}
	return &bot, nil
}

// GetBots searches Top.gg's bot listing. A nil query returns the first page
// with Top.gg's default ordering.
//
// Limit is clamped to 500 and Offset to 499. Use NewBotIterator to walk
// every page.
func (c *Client) GetBots(ctx context.Context, query *types.BotsQuery) (*types.BotsResponse, error) {
	if err := c.validator.ValidateBotsQuery(query); err != nil {
		return nil, &ClientError{Op: "GetBots", Err: err}
	}

	path := "bots"
	if params := c.validator.EncodeBotsQuery(query); len(params) > 0 {
		path += "?" + params.Encode()
	}

	req, err := c.client.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, &ClientError{Op: "GetBots", Err: err}
	}
	body, err := c.client.DoRaw(req)
	if err != nil {
		return nil, &ClientError{Op: "GetBots", Err: err}
	}

	resp, err := c.parser.ParseBots(body)
	if err != nil {
		return nil, &ClientError{Op: "GetBots", Err: &pkgerrs.ParseError{Operation: "GetBots", Err: err}}
	}
	return resp, nil
}

// GetStats fetches the statistics Top.gg currently holds for the bot.
func (c *Client) GetStats(ctx context.Context) (*types.BotStats, error) {
	var stats types.BotStats
	if err := c.get(ctx, c.botPath("stats"), &stats); err != nil {
		return nil, &ClientError{Op: "GetStats", Err: err}
	}
	return &stats, nil
}

// GetServerCount returns the server count Top.gg holds for the bot, or nil if
// none was ever posted.
func (c *Client) GetServerCount(ctx context.Context) (*int, error) {
	stats, err := c.GetStats(ctx)
	if err != nil {
		return nil, err
	}
	return stats.ServerCount, nil
}

// PostStats submits a statistics snapshot for the bot.
//
// Top.gg answers with an *errors.RateLimitError when posts arrive too often.
// The client then defers every request until the retry delay has passed.
func (c *Client) PostStats(ctx context.Context, stats types.Stats) error {
	if err := c.validator.ValidateStats(stats); err != nil {
		return &ClientError{Op: "PostStats", Err: err}
	}

	payload, err := json.Marshal(stats)
	if err != nil {
		return &ClientError{Op: "PostStats", Err: &pkgerrs.RequestError{Operation: "PostStats", Message: "failed to encode stats", Err: err}}
	}

	req, err := c.client.NewRequest(ctx, http.MethodPost, c.botPath("stats"), bytes.NewReader(payload))
	if err != nil {
		return &ClientError{Op: "PostStats", Err: err}
	}
	if _, err := c.client.Do(req, nil); err != nil {
		return &ClientError{Op: "PostStats", Err: err}
	}

	c.logger.Debug("Posted stats to Top.gg", "bot_id", c.botID, "server_count", stats.ServerCount)
	return nil
}

// PostServerCount submits a bare server count for the bot.
func (c *Client) PostServerCount(ctx context.Context, serverCount int) error {
	return c.PostStats(ctx, types.Stats{ServerCount: serverCount})
}

// GetVoters returns one page of users who voted for the bot in the last
// twelve hours, newest first. Pages start at 1 and hold up to 100 voters.
func (c *Client) GetVoters(ctx context.Context, page int) ([]types.Voter, error) {
	if err := c.validator.ValidatePage(page); err != nil {
		return nil, &ClientError{Op: "GetVoters", Err: err}
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))

	var voters []types.Voter
	if err := c.get(ctx, c.botPath("votes")+"?"+params.Encode(), &voters); err != nil {
		return nil, &ClientError{Op: "GetVoters", Err: err}
	}
	return voters, nil
}

// HasVoted reports whether the user voted for the bot in the last twelve hours.
func (c *Client) HasVoted(ctx context.Context, userID snowflake.ID) (bool, error) {
	if err := c.validator.ValidateID("userID", userID); err != nil {
		return false, &ClientError{Op: "HasVoted", Err: err}
	}

	params := url.Values{}
	params.Set("userId", userID.String())

	body, err := c.getRaw(ctx, c.botPath("check")+"?"+params.Encode())
	if err != nil {
		return false, &ClientError{Op: "HasVoted", Err: err}
	}

	voted, err := c.parser.ParseVoted(body)
	if err != nil {
		return false, &ClientError{Op: "HasVoted", Err: &pkgerrs.ParseError{Operation: "HasVoted", Err: err}}
	}
	return voted, nil
}

// IsWeekend reports whether Top.gg's weekend vote multiplier is active.
func (c *Client) IsWeekend(ctx context.Context) (bool, error) {
	body, err := c.getRaw(ctx, "weekend")
	if err != nil {
		return false, &ClientError{Op: "IsWeekend", Err: err}
	}

	weekend, err := c.parser.ParseWeekend(body)
	if err != nil {
		return false, &ClientError{Op: "IsWeekend", Err: &pkgerrs.ParseError{Operation: "IsWeekend", Err: err}}
	}
	return weekend, nil
}

func (c *Client) botPath(resource string) string {
	return "bots/" + c.botID.String() + "/" + resource
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := c.client.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	_, err = c.client.Do(req, v)
	return err
}

func (c *Client) getRaw(ctx context.Context, path string) ([]byte, error) {
	req, err := c.client.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return c.client.DoRaw(req)
}

// ClientError records the client operation that failed and the typed cause.
// Use errors.As to reach the cause, for example *errors.RateLimitError.
type ClientError struct {
	// Op is the client method that failed
	Op string
	// Err is the underlying typed error
	Err error
}

// Error implements the error interface for ClientError.
func (e *ClientError) Error() string {
	if e.Err == nil {
		return "topgg client error: " + e.Op
	}
	return "topgg client error: " + e.Op + ": " + e.Err.Error()
}

func (e *ClientError) Unwrap() error {
	return e.Err
}
