package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/edgard/helpdeskbot/internal/config"
	"github.com/edgard/helpdeskbot/internal/logger"
	"github.com/edgard/helpdeskbot/internal/telegram"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Receive webhooks and run the helpdesk workflow",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, configPath(cmd))
		},
	}
}

func serve(ctx context.Context, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	a, err := newApp(ctx, cfg, log, nil)
	if err != nil {
		log.Error("Failed to initialize service", "error", err)
		return err
	}

	if cfg.HTTP.SetWebhooksOnStart {
		if err := telegram.SetWebhooks(ctx, a.clients, endpoints(cfg.Bots), cfg.HTTP.PublicURL, cfg.HTTP.WebhookPath, log); err != nil {
			log.Warn("Some webhooks could not be set", "error", err)
		}
	}

	log.Info("Starting helpdesk bot")
	if err := a.bot.Run(ctx); err != nil {
		return fmt.Errorf("bot stopped: %w", err)
	}
	return nil
}
