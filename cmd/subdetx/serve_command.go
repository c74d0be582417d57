package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"subdetx/internal/convert"
	"subdetx/internal/history"
	"subdetx/internal/logging"
	"subdetx/internal/preflight"
	"subdetx/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP upload server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), ctx, strings.TrimSpace(bind))
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override server.bind (host:port)")
	return cmd
}

func runServer(cmdCtx context.Context, ctx *commandContext, bind string) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if bind != "" {
		cfg.Server.Bind = bind
	}

	logger, logPath, err := logging.NewServiceLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if logPath != "" {
		logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, logging.ServiceLogPattern)
	}

	if failed := preflight.Failed(preflight.RunAll(signalCtx, cfg)); len(failed) > 0 {
		for _, check := range failed {
			logging.ErrorWithContext(logger, "preflight check failed", "preflight_failed",
				logging.String("check", check.Name),
				logging.String("detail", check.Detail),
			)
		}
		return fmt.Errorf("%d preflight check(s) failed; run `subdetx status` for details", len(failed))
	}

	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		logger.Error("open history store", logging.Error(err))
		return err
	}
	defer store.Close()

	policy, err := convert.ParsePolicy(cfg.DETX.TimecodePolicy)
	if err != nil {
		return err
	}
	converter := convert.New(cfg.DETXOptions(), policy, logger)

	srv, err := server.New(cfg, converter, store, logger)
	if err != nil {
		return err
	}
	logger.Info("subdetx server starting",
		logging.String("bind", cfg.Server.Bind),
		logging.String("log_file", logPath),
		logging.String("history", store.Path()),
	)
	return srv.Run(signalCtx, nil)
}
