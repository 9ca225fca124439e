package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-chat-dedup/internal/app"
	"github.com/tbourn/go-chat-dedup/internal/config"
	"github.com/tbourn/go-chat-dedup/internal/services"
	"github.com/tbourn/go-chat-dedup/internal/sysutil"
)

var purgeOlderThan time.Duration

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete fingerprints older than a cutoff and exit.",
	Long: "Delete fingerprints older than --older-than. The cutoff defaults to " +
		"FINGERPRINT_RETENTION and may never be shorter than DEDUP_WINDOW.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		sysutil.SetLogLevel(cfg.LogLevel)
		sysutil.ConfigureLogger(os.Stderr, cfg.LogPretty, cfg.OTEL.ServiceName)

		age := purgeOlderThan
		if age == 0 {
			age = cfg.Retention.FingerprintTTL
		}
		if age <= 0 {
			return fmt.Errorf("nothing to do: set --older-than or FINGERPRINT_RETENTION")
		}
		if age < cfg.Dedup.Window {
			return fmt.Errorf("--older-than %s is shorter than the dedup window %s", age, cfg.Dedup.Window)
		}

		db, err := app.OpenDB(cfg)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}

		svc := &services.RetentionService{DB: db, TTL: age}
		n, err := svc.Purge(cmd.Context())
		if err != nil {
			return err
		}
		log.Info().Int64("deleted", n).Dur("older_than", age).Msg("purge complete")
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d fingerprints\n", n)
		return nil
	},
}

func init() {
	purgeCmd.Flags().DurationVar(&purgeOlderThan, "older-than", 0, "fingerprint age cutoff (e.g. 24h)")
}
