package main

import (
	"context"
	"os"
	"os/signal"
	"zeptrion-bridge/internal/adapters/input/mcp"
	"zeptrion-bridge/internal/domain/service"

	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the hub's channels as MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout is the MCP transport; initLogging writes to stderr.
		logger, closer, err := initLogging()
		if err != nil {
			return err
		}
		defer closer.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		host, err := resolveHost(ctx, "", logger)
		if err != nil {
			return err
		}
		coordinator := service.NewCoordinator(service.WithLogger(logger))
		if err := setupWithRetry(ctx, coordinator, dialer(logger)(host), setupBackOff(), logger); err != nil {
			return err
		}

		logger.Info().Str("host", host).Msg("Starting MCP server on stdio")
		return mcp.NewServer(coordinator, Version).ServeStdio()
	},
}
