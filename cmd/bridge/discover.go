package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"zeptrion-bridge/internal/adapters/output/discovery"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Browse the local network for zeptrion hubs and print them as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, closer, err := initLogging()
		if err != nil {
			return err
		}
		defer closer.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		hubs, err := discovery.NewBrowser(logger).Discover(ctx, viper.GetDuration("discover-wait"))
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(hubs)
	},
}
