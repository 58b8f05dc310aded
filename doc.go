// Package topgg provides a Go client for the Top.gg bot listing API.
//
// # Overview
//
// The client fetches bot, user and voter data from Top.gg and submits a
// bot's statistics. The autoposter subpackage builds on it to keep Top.gg
// informed of a Discord bot's live server count in the background.
//
// # Features
//
//   - Typed API methods with typed errors from pkg/errors
//   - Built-in rate limiting matching Top.gg's global limit
//   - Retry-After handling that defers every request after a 429
//   - Structured logging via Go's slog package
//   - OpenTelemetry spans around every request
//   - Offset pagination over bot searches
//
// # Quick Start
//
// Only the API token is required. The bot ID is read from the token:
//
//	client, err := topgg.NewClient(&topgg.Config{
//		Token: os.Getenv("TOPGG_TOKEN"),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Common Operations
//
// Post the bot's server count:
//
//	if err := client.PostServerCount(ctx, 2048); err != nil {
//		log.Fatal(err)
//	}
//
// Look up a bot:
//
//	bot, err := client.GetBot(ctx, snowflake.ID(264811613708746752))
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("%s has %d votes this month\n", bot.Username, bot.MonthlyVotes)
//
// Search the listing:
//
//	it := client.NewBotIterator(ctx, &types.BotsQuery{
//		Sort:     types.SortByMonthlyVotes,
//		Username: "music",
//	})
//	bots, err := it.Collect(50)
//
// Check a vote:
//
//	voted, err := client.HasVoted(ctx, userID)
//
// # Error Handling
//
// Every method returns a *ClientError naming the failed operation. It unwraps
// to a typed cause from pkg/errors:
//
//	var rl *errors.RateLimitError
//	if errors.As(err, &rl) {
//		log.Printf("rate limited, retry in %s", rl.RetryAfter)
//	}
//
//   - *errors.ConfigError: invalid configuration or arguments
//   - *errors.AuthError: Top.gg rejected the token
//   - *errors.NotFoundError: the bot or user is not listed
//   - *errors.RateLimitError: too many requests
//   - *errors.APIError: any other non-2xx response
//   - *errors.RequestError: transport failure
//   - *errors.ParseError: malformed response body
//
// # Autoposting
//
// See the autoposter package. A *Client satisfies autoposter.AsClient:
//
//	poster := autoposter.New(client, handler, 30*time.Minute)
//	defer poster.Close()
//
// # Thread Safety
//
// The Client is safe for concurrent use. BotIterator is not.
package topgg
