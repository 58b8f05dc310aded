// Package config loads the autopost binary's settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	pkgerrs "github.com/jamesprial/go-topgg/pkg/errors"
)

// Env variable names
const (
	envTopggToken   = "TOPGG_TOKEN"
	envDiscordToken = "DISCORD_TOKEN"
	envPostInterval = "POST_INTERVAL" // Go duration string, e.g. "30m"
	envLogLevel     = "LOG_LEVEL"
	envMetricsAddr  = "METRICS_ADDR"
	envWebhookAddr  = "WEBHOOK_ADDR"
	envWebhookAuth  = "WEBHOOK_AUTH"
	envStateCache   = "DISCORD_STATE_CACHE"
)

// MinPostInterval mirrors the autoposter's lower bound so a bad interval is
// reported as a config error rather than a panic.
const MinPostInterval = 15 * time.Minute

// Config holds the runtime settings of the autopost binary.
type Config struct {
	TopggToken   string        // Top.gg API token, required
	DiscordToken string        // Discord bot token, required
	PostInterval time.Duration // time between posts, default 30m
	LogLevel     string        // debug, info, warn, error
	MetricsAddr  string        // Prometheus listen address, empty disables
	WebhookAddr  string        // vote webhook listen address, empty disables
	WebhookAuth  string        // vote webhook secret, required with WebhookAddr
	StateCache   bool          // count guilds from discordgo's state cache
}

var (
	defaultPostInterval = 30 * time.Minute
	defaultLogLevel     = "info"
	defaultMetricsAddr  = ":9090"
)

// MustLoad is Load that panics on error.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the environment, applies defaults and validates the result.
// Failures are *errors.ConfigError naming the offending variable.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		TopggToken:   getenv(envTopggToken),
		DiscordToken: getenv(envDiscordToken),
		PostInterval: defaultPostInterval,
		LogLevel:     get(envLogLevel, defaultLogLevel),
		MetricsAddr:  get(envMetricsAddr, defaultMetricsAddr),
		WebhookAddr:  getenv(envWebhookAddr),
		WebhookAuth:  getenv(envWebhookAuth),
	}

	if s := getenv(envPostInterval); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return Config{}, &pkgerrs.ConfigError{Field: envPostInterval, Message: err.Error()}
		}
		cfg.PostInterval = d
	}

	if s := getenv(envStateCache); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Config{}, &pkgerrs.ConfigError{Field: envStateCache, Message: err.Error()}
		}
		cfg.StateCache = b
	}

	if cfg.TopggToken == "" {
		return Config{}, &pkgerrs.ConfigError{Field: envTopggToken, Message: "is required"}
	}
	if cfg.DiscordToken == "" {
		return Config{}, &pkgerrs.ConfigError{Field: envDiscordToken, Message: "is required"}
	}
	if cfg.PostInterval < MinPostInterval {
		return Config{}, &pkgerrs.ConfigError{
			Field:   envPostInterval,
			Message: fmt.Sprintf("must be at least %s, got %s", MinPostInterval, cfg.PostInterval),
		}
	}
	if cfg.WebhookAddr != "" && cfg.WebhookAuth == "" {
		return Config{}, &pkgerrs.ConfigError{Field: envWebhookAuth, Message: "is required when " + envWebhookAddr + " is set"}
	}

	return cfg, nil
}
