package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ponymod/derpiguard/tagmod/derpi"
	"github.com/ponymod/derpiguard/tagmod/engine"
	"github.com/ponymod/derpiguard/tagmod/helpers"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "derpiguard",
		Usage:   "discord moderation bot (removes images with banned derpibooru tags)",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "path to JSON config file (banned tags and credentials)",
			Value:   "config.json",
			EnvVars: []string{"DERPIGUARD_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			Value:   "info",
			EnvVars: []string{"DERPIGUARD_LOG_LEVEL", "LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "derpi-host",
			Usage:   "method, hostname, and port of the derpibooru API",
			Value:   derpi.DefaultHost,
			EnvVars: []string{"DERPI_HOST"},
		},
		&cli.StringFlag{
			Name:    "derpi-api-key",
			Usage:   "derpibooru API key (overrides config file)",
			EnvVars: []string{"DERPI_API_KEY"},
		},
		&cli.Float64Flag{
			Name:    "fuzziness",
			Usage:   "reverse image search match distance",
			Value:   engine.DefaultConfig().Fuzziness,
			EnvVars: []string{"DERPIGUARD_FUZZINESS"},
		},
		&cli.IntFlag{
			Name:    "lookup-attempts",
			Usage:   "total tries per image lookup on transient errors (1 disables retries)",
			Value:   engine.DefaultConfig().LookupAttempts,
			EnvVars: []string{"DERPIGUARD_LOOKUP_ATTEMPTS"},
		},
		&cli.DurationFlag{
			Name:    "retry-backoff",
			Usage:   "linear backoff step between lookup retries",
			Value:   engine.DefaultConfig().RetryBackoff,
			EnvVars: []string{"DERPIGUARD_RETRY_BACKOFF"},
		},
		&cli.DurationFlag{
			Name:    "lookup-timeout",
			Usage:   "timeout for each derpibooru API request",
			Value:   engine.DefaultConfig().LookupTimeout,
			EnvVars: []string{"DERPIGUARD_LOOKUP_TIMEOUT"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL for the lookup cache (in-process cache if unset)",
			EnvVars: []string{"DERPIGUARD_REDIS_URL", "REDIS_URL"},
		},
		&cli.DurationFlag{
			Name:    "cache-ttl",
			Usage:   "how long successful tag lookups are cached",
			Value:   30 * time.Minute,
			EnvVars: []string{"DERPIGUARD_CACHE_TTL"},
		},
	}

	app.Before = func(cctx *cli.Context) error {
		logger, err := configLogger(cctx.String("log-level"))
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	}

	app.Commands = []*cli.Command{
		runCmd,
		checkCmd,
	}

	return app.Run(args)
}

func configLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	})), nil
}

// Shared between commands: loads the config file, applies overrides, and assembles the server config.
func configFromCLI(cctx *cli.Context, needToken bool) (Config, error) {
	fc, err := LoadFileConfig(cctx.String("config"))
	if err != nil {
		return Config{}, err
	}
	if err := fc.Resolve(cctx.String("discord-token"), cctx.String("derpi-api-key"), needToken); err != nil {
		return Config{}, err
	}

	ec := engine.DefaultConfig()
	ec.Fuzziness = cctx.Float64("fuzziness")
	ec.LookupAttempts = cctx.Int("lookup-attempts")
	ec.RetryBackoff = cctx.Duration("retry-backoff")
	ec.LookupTimeout = cctx.Duration("lookup-timeout")
	if ec.LookupAttempts < 1 {
		return Config{}, fmt.Errorf("lookup-attempts must be at least 1")
	}
	if cctx.IsSet("eval-mode") {
		mode, err := engine.ParseEvalMode(cctx.String("eval-mode"))
		if err != nil {
			return Config{}, err
		}
		ec.Mode = mode
	}
	if cctx.IsSet("attachment-delay") {
		ec.AttachmentDelay = cctx.Duration("attachment-delay")
	}

	return Config{
		DiscordToken:     fc.Discord.Token,
		DerpiHost:        cctx.String("derpi-host"),
		DerpiAPIKey:      fc.Derpi.ApiKey,
		BannedTags:       fc.Derpi.BannedTags,
		RedisURL:         cctx.String("redis-url"),
		CacheTTL:         cctx.Duration("cache-ttl"),
		ModLogWebhookURL: cctx.String("modlog-webhook-url"),
		Engine:           ec,
		Logger:           slog.Default(),
	}, nil
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "connect to discord and moderate messages",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "discord-token",
			Usage:   "discord bot token (overrides config file)",
			EnvVars: []string{"DISCORD_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "eval-mode",
			Usage:   "how images in a message are checked: 'sequential' (stop at first banned) or 'concurrent'",
			Value:   string(engine.EvalSequential),
			EnvVars: []string{"DERPIGUARD_EVAL_MODE"},
		},
		&cli.DurationFlag{
			Name:    "attachment-delay",
			Usage:   "wait before checking messages, so uploads are reachable by the tag service",
			Value:   engine.DefaultConfig().AttachmentDelay,
			EnvVars: []string{"DERPIGUARD_ATTACHMENT_DELAY"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3998",
			EnvVars: []string{"DERPIGUARD_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "modlog-webhook-url",
			Usage:   "slack-compatible webhook notified of each deletion",
			EnvVars: []string{"DERPIGUARD_MODLOG_WEBHOOK_URL", "SLACK_WEBHOOK_URL"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		logger := slog.Default()

		shutdownTracing, err := configOTEL(ctx, "derpiguard")
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := shutdownTracing(ctx); err != nil {
				logger.Error("failed to shutdown trace exporter", "error", err)
			}
		}()

		config, err := configFromCLI(cctx, true)
		if err != nil {
			return err
		}

		srv, err := NewServer(ctx, config)
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("failed to run moderation bot: %w", err)
		}
		return nil
	},
}

var checkCmd = &cli.Command{
	Name:      "check",
	Usage:     "look up a single image URL and print the moderation decision",
	ArgsUsage: "<url>",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "nsfw",
			Usage: "evaluate as if posted in an NSFW channel",
		},
		&cli.BoolFlag{
			Name:  "refresh",
			Usage: "drop any cached result for this image before looking it up",
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		raw := cctx.Args().First()
		if raw == "" {
			return fmt.Errorf("need to provide an image URL as an argument")
		}

		config, err := configFromCLI(cctx, false)
		if err != nil {
			return err
		}
		eng, err := NewEngine(ctx, config, nil)
		if err != nil {
			return err
		}

		ref, ok := helpers.NormalizeImageURL(raw)
		if !ok {
			fmt.Println("not an image URL, would be skipped")
			return nil
		}
		if ref.IsDirect() {
			fmt.Printf("image id: %s\n", ref.ImageID)
		} else {
			fmt.Printf("normalized URL: %s\n", ref.URL)
		}

		if cctx.Bool("refresh") {
			if err := eng.ForgetTags(ctx, ref); err != nil {
				return fmt.Errorf("clearing cached tags: %w", err)
			}
		}

		sets, err := eng.LookupTags(ctx, slog.Default(), ref)
		if err != nil {
			return fmt.Errorf("tag lookup failed: %w", err)
		}
		fmt.Printf("matching images: %d\n", len(sets))
		for i, tags := range sets {
			fmt.Printf("  [%d] %s\n", i, strings.Join(tags, ", "))
		}

		banned := eng.Policy.Evaluate(cctx.Bool("nsfw"), sets...)
		if len(banned) > 0 {
			fmt.Printf("decision: DELETE (banned tags: %s)\n", strings.Join(banned, ", "))
		} else {
			fmt.Println("decision: allow")
		}
		return nil
	},
}
