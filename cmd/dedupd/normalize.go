package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-chat-dedup/internal/config"
	"github.com/tbourn/go-chat-dedup/internal/textsim"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [text...]",
	Short: "Print the normalized form and tokens of a message.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		n := textsim.Normalize(strings.Join(args, " "))
		tokens := textsim.TokenizeMin(n, cfg.Dedup.MinTokenRunes)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "normalized: %q\n", n)
		fmt.Fprintf(out, "tokens (%d): %s\n", len(tokens), strings.Join(tokens, " "))
		return nil
	},
}
