package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"subdetx/internal/history"
	"subdetx/internal/mcpserver"
)

func newMCPCommand(ctx *commandContext) *cobra.Command {
	var noHistory bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve conversion tools over the Model Context Protocol (stdio)",
		Long: "mcp speaks MCP on stdin/stdout so agents can call convert_subtitles and\n" +
			"list_conversions. Logs go to stderr.",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			converter, err := ctx.converter(logger, false)
			if err != nil {
				return err
			}

			var store mcpserver.HistoryStore
			if !noHistory {
				opened, err := history.Open(cfg.HistoryPath())
				if err != nil {
					return fmt.Errorf("open history: %w", err)
				}
				defer opened.Close()
				store = opened
			}

			srv := mcpserver.New(converter, store, logger, cmd.Root().Version)
			return srv.ServeStdio(signalCtx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record conversions in history")
	return cmd
}
