// Command muhbot runs the channel bot: it authenticates to the server,
// joins the configured channel, and answers triggers, mentions and
// prefixed commands until the admin sends the exit phrase.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/muhbot/muhbot/internal/analysis"
	"github.com/muhbot/muhbot/internal/bot"
	"github.com/muhbot/muhbot/internal/cloud"
	"github.com/muhbot/muhbot/internal/config"
	"github.com/muhbot/muhbot/internal/copypasta"
	"github.com/muhbot/muhbot/internal/store"
	"github.com/muhbot/muhbot/internal/tables"
	"github.com/muhbot/muhbot/internal/telemetry"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load .env if present (local dev convenience; production relies on real env)
	_ = godotenv.Load()

	initLogging()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()
	if cfg.MetricsAddr != "" {
		go func() {
			slog.Info("metrics enabled", slog.String("addr", cfg.MetricsAddr))
			if err := telemetry.Serve(cfg.MetricsAddr); err != nil {
				slog.Error("metrics server exited", slog.Any("err", err))
			}
		}()
	}

	users, err := store.Open(cfg.UserDBPath, cfg.UserLogSize)
	if err != nil {
		slog.Error("failed to open user store", slog.String("path", cfg.UserDBPath), slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := users.Close(); err != nil {
			slog.Error("failed to close user store", slog.Any("err", err))
		}
	}()

	snaps, err := tables.NewReloader(cfg.DataDir, cfg.AdminName, cfg.Nick,
		cfg.CommandPrefix, cfg.ReloadInterval)
	if err != nil {
		// The bot still runs with empty tables; triggers and mention
		// responses come back on the next successful reload.
		slog.Warn("initial table load failed", slog.String("dir", cfg.DataDir), slog.Any("err", err))
	}

	artifacts := &cloud.Generator{
		FontFile: cfg.WordcloudFont,
		MaskFile: cfg.WordcloudMask,
	}
	if cfg.ImgurClientID != "" {
		artifacts.Uploader = cloud.NewImgur(cfg.ImgurClientID)
	} else {
		slog.Info("IMGUR_CLIENT_ID unset, wordcloud uploads disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go snaps.Run(ctx)

	sup := bot.New(cfg, users, snaps, analysis.NewVader(), artifacts,
		copypasta.NewClient(), version)
	slog.Info("starting bot",
		slog.String("server", cfg.Server),
		slog.String("channel", cfg.Channel),
		slog.String("nick", cfg.Nick),
		slog.String("version", version))

	if err := sup.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("bot exited with error", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("shutting down")
}

// initLogging configures slog from LOG_LEVEL and LOG_FORMAT.
// Defaults: level=info, format=text.
func initLogging() {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
}
