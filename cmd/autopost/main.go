// Command autopost runs a Discord gateway session and keeps the bot's
// Top.gg server count current. It optionally serves Prometheus metrics and
// receives vote webhooks.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	topgg "github.com/jamesprial/go-topgg"
	"github.com/jamesprial/go-topgg/autoposter"
	"github.com/jamesprial/go-topgg/autoposter/discordgohandler"
	"github.com/jamesprial/go-topgg/internal/config"
	"github.com/jamesprial/go-topgg/internal/logger"
	"github.com/jamesprial/go-topgg/pkg/types"
	"github.com/jamesprial/go-topgg/webhook"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var votesReceived = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "topgg_webhook",
		Name:      "votes_total",
		Help:      "Votes delivered to the vote webhook",
	},
	[]string{"type"}, // type: upvote, test
)

func main() {
	// 1. Configuration
	cfg := config.MustLoad()

	// 2. Logging: zap for the binary, bridged to slog for the libraries
	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync(zl)
	log := zl.Sugar()
	slogger := logger.Slog(zl)

	// 3. Root context cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 4. Top.gg client
	client, err := topgg.NewClient(&topgg.Config{
		Token:  cfg.TopggToken,
		Logger: slogger.With("component", "topgg"),
	})
	if err != nil {
		log.Fatalw("invalid Top.gg configuration", "err", err)
	}
	log.Infow("starting autopost", "bot_id", client.BotID(), "interval", cfg.PostInterval, "state_cache", cfg.StateCache)

	// 5. Discord session and guild handler
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		log.Fatalw("invalid Discord configuration", "err", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds
	session.StateEnabled = cfg.StateCache

	handlerOpts := []discordgohandler.Option{discordgohandler.WithLogger(slogger.With("component", "discordgo"))}
	if cfg.StateCache {
		handlerOpts = append(handlerOpts, discordgohandler.WithCachedState())
	}
	handler := discordgohandler.New(handlerOpts...)
	// Register turns on session.SyncEvents so guild events apply in order
	detach := handler.Register(session)
	defer detach()

	// 6. Autoposter
	poster := autoposter.New(client, handler, cfg.PostInterval,
		autoposter.WithLogger(slogger),
		autoposter.WithRegisterer(prometheus.DefaultRegisterer),
	)
	defer poster.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := session.Open(); err != nil {
			return err
		}
		log.Info("discord session open")
		<-gctx.Done()
		return session.Close()
	})

	g.Go(func() error {
		for {
			result, err := poster.Recv(gctx)
			if err != nil {
				return nil
			}
			if result.Err == nil {
				log.Infow("posted server count", "server_count", result.Stats.ServerCount)
			}
		}
	})

	// 7. Optional HTTP endpoints
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		serve(g, gctx, log, "metrics", &http.Server{Addr: cfg.MetricsAddr, Handler: mux})
	}

	if cfg.WebhookAddr != "" {
		votes := webhook.New(cfg.WebhookAuth, func(_ context.Context, v types.Vote) {
			votesReceived.WithLabelValues(string(v.Type)).Inc()
			log.Infow("vote received", "user", v.User, "weekend", v.IsWeekend, "test", v.IsTest())
		}, webhook.WithLogger(slogger.With("component", "webhook")))

		mux := http.NewServeMux()
		mux.Handle("/votes", votes)
		serve(g, gctx, log, "webhook", &http.Server{Addr: cfg.WebhookAddr, Handler: mux})
	}

	// 8. Wait for a signal or a fatal error
	if err := g.Wait(); err != nil {
		log.Errorw("autopost stopped", "err", err)
	}
	log.Info("bye")
}

// serve runs srv until ctx is done, then shuts it down gracefully.
func serve(g *errgroup.Group, ctx context.Context, log *zap.SugaredLogger, name string, srv *http.Server) {
	g.Go(func() error {
		log.Infow("listening", "server", name, "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnw("server shutdown error", "server", name, "err", err)
		}
		return nil
	})
}
