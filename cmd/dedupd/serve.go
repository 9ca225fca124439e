package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-chat-dedup/internal/app"
	"github.com/tbourn/go-chat-dedup/internal/config"
	"github.com/tbourn/go-chat-dedup/internal/observability"
	"github.com/tbourn/go-chat-dedup/internal/sysutil"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the duplicate filter.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	sysutil.SetLogLevel(cfg.LogLevel)
	sysutil.ConfigureLogger(os.Stdout, cfg.LogPretty, cfg.OTEL.ServiceName)

	ver := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver, observability.DedupAttributes(cfg.Dedup)...)
	if err != nil {
		log.Warn().Err(err).Msg("otel disabled")
		shutdownOTel = func(context.Context) error { return nil }
	}
	defer func() {
		if err := shutdownOTel(context.Background()); err != nil {
			log.Error().Err(err).Msg("otel shutdown")
		}
	}()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	log.Info().
		Str("version", ver).
		Str("db_driver", cfg.DB.Driver).
		Bool("redis", cfg.Redis.Enabled()).
		Float64("threshold", cfg.Dedup.Threshold).
		Dur("window", cfg.Dedup.Window).
		Msg("dedupd starting")

	return a.Run(ctx)
}
