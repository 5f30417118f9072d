package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/ponymod/derpiguard/tagmod/cachestore"
	"github.com/ponymod/derpiguard/tagmod/derpi"
	"github.com/ponymod/derpiguard/tagmod/discord"
	"github.com/ponymod/derpiguard/tagmod/engine"
	"github.com/ponymod/derpiguard/tagmod/policy"
	"github.com/ponymod/derpiguard/util"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	logger *slog.Logger
	engine *engine.Engine
	bot    *discord.Bot
}

type Config struct {
	DiscordToken     string
	DerpiHost        string
	DerpiAPIKey      string
	BannedTags       policy.BannedTags
	RedisURL         string
	CacheTTL         time.Duration
	ModLogWebhookURL string
	Engine           engine.Config
	Logger           *slog.Logger
}

// Builds an engine with its lookup client, cache, and mod log. The platform is left for the caller to attach.
func NewEngine(ctx context.Context, config Config, platform engine.Platform) (*engine.Engine, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	// the engine owns the retry policy; the transport only enforces a timeout
	dc := derpi.NewClient(config.DerpiHost, config.DerpiAPIKey, util.NewHTTPClient(config.Engine.LookupTimeout, 0))

	var cache cachestore.TagStore
	if config.RedisURL != "" {
		rts, err := cachestore.NewRedisTagStore(ctx, config.RedisURL, config.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis tag cache: %w", err)
		}
		cache = rts
	} else {
		cache = cachestore.NewMemTagStore(5_000, config.CacheTTL)
	}

	eng := engine.NewEngine(config.Engine, dc, policy.New(config.BannedTags), platform, logger)
	eng.Cache = cache

	if config.ModLogWebhookURL != "" {
		logger.Info("configuring mod log webhook")
		eng.ModLog = engine.NewWebhookNotifier(config.ModLogWebhookURL)
	}
	return eng, nil
}

func NewServer(ctx context.Context, config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	bot, err := discord.NewBot(config.DiscordToken, logger.With("system", "discord"))
	if err != nil {
		return nil, err
	}
	eng, err := NewEngine(ctx, config, bot)
	if err != nil {
		return nil, err
	}
	bot.Engine = eng

	return &Server{
		logger: logger,
		engine: eng,
		bot:    bot,
	}, nil
}

func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting moderation bot", "eval_mode", s.engine.Config.Mode, "lookup_attempts", s.engine.Config.LookupAttempts)
	return s.bot.Run(ctx)
}

func (s *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}
