package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/disgoorg/snowflake/v2"
	topgg "github.com/jamesprial/go-topgg"
	pkgerrs "github.com/jamesprial/go-topgg/pkg/errors"
	"github.com/jamesprial/go-topgg/pkg/types"
)

func main() {
	// Get the token from the environment; the bot ID is read from it
	token := os.Getenv("TOPGG_TOKEN")
	if token == "" {
		log.Fatal("TOPGG_TOKEN environment variable is required")
	}

	// Route structured logs to stdout; adjust the level as needed.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	client, err := topgg.NewClient(&topgg.Config{
		Token:     token,
		UserAgent: "topgg-example/1.0",
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	fmt.Printf("Acting for bot %s\n", client.BotID())

	// Look up our own listing
	bot, err := client.GetBot(ctx, client.BotID())
	if err != nil {
		var notFound *pkgerrs.NotFoundError
		if errors.As(err, &notFound) {
			log.Fatalf("Bot %s is not listed on Top.gg", client.BotID())
		}
		log.Fatalf("Failed to get bot: %v", err)
	}
	fmt.Printf("\n%s (%s)\n", bot.Username, bot.URL())
	fmt.Printf("Votes: %d total, %d this month\n", bot.Votes, bot.MonthlyVotes)

	// Post a server count if one was given
	if s := os.Getenv("SERVER_COUNT"); s != "" {
		count, err := strconv.Atoi(s)
		if err != nil {
			log.Fatalf("SERVER_COUNT must be a number: %v", err)
		}
		if err := client.PostServerCount(ctx, count); err != nil {
			var rl *pkgerrs.RateLimitError
			if errors.As(err, &rl) {
				log.Printf("Rate limited, retry in %s", rl.RetryAfter)
			} else {
				log.Printf("Failed to post server count: %v", err)
			}
		} else {
			fmt.Printf("Posted server count %d\n", count)
		}
	}

	// Read the stats back
	stats, err := client.GetStats(ctx)
	if err != nil {
		log.Printf("Failed to get stats: %v", err)
	} else if stats.ServerCount != nil {
		fmt.Printf("Listed server count: %d\n", *stats.ServerCount)
	}

	// Recent voters
	voters, err := client.GetVoters(ctx, 1)
	if err != nil {
		log.Printf("Failed to get voters: %v", err)
	} else {
		fmt.Printf("\nRecent voters (%d):\n", len(voters))
		for i, v := range voters {
			if i >= 5 {
				break
			}
			fmt.Printf("  - %s (%s)\n", v.Username, v.ID)
		}
	}

	// Check a single user's vote
	if s := os.Getenv("CHECK_USER"); s != "" {
		userID, err := snowflake.Parse(s)
		if err != nil {
			log.Fatalf("CHECK_USER is not a Discord ID: %v", err)
		}
		voted, err := client.HasVoted(ctx, userID)
		if err != nil {
			log.Printf("Failed to check vote: %v", err)
		} else {
			fmt.Printf("\nUser %s voted in the last 12 hours: %v\n", userID, voted)
		}
	}

	weekend, err := client.IsWeekend(ctx)
	if err != nil {
		log.Printf("Failed to check weekend multiplier: %v", err)
	} else {
		fmt.Printf("Weekend multiplier active: %v\n", weekend)
	}

	// Walk the top of the listing
	fmt.Println("\nTop bots by monthly votes:")
	it := client.NewBotIterator(ctx, &types.BotsQuery{
		Sort:  types.SortByMonthlyVotes,
		Limit: 10,
	})
	top, err := it.Collect(10)
	if err != nil {
		log.Printf("Failed to list bots: %v", err)
	}
	for i, b := range top {
		fmt.Printf("%2d. %s - %d votes this month\n", i+1, b.Username, b.MonthlyVotes)
	}
}
