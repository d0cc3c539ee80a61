package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edgard/helpdeskbot/internal/config"
	"github.com/edgard/helpdeskbot/internal/logger"
	"github.com/edgard/helpdeskbot/internal/telegram"
)

func newWebhooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhooks",
		Short: "Manage Telegram webhook registrations",
	}
	cmd.AddCommand(newWebhooksSetCmd())
	cmd.AddCommand(newWebhooksURLCmd())
	return cmd
}

func loadWithPublicURL(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath(cmd))
	if err != nil {
		return nil, err
	}
	if cfg.HTTP.PublicURL == "" {
		return nil, fmt.Errorf("%w: http.public_url is required", config.ErrConfiguration)
	}
	return cfg, nil
}

func newWebhooksSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set",
		Short: "Register the webhook URL of every configured bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadWithPublicURL(cmd)
			if err != nil {
				return err
			}
			log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)

			clients, err := newClients(cfg.Bots, log)
			if err != nil {
				return err
			}
			return telegram.SetWebhooks(cmd.Context(), clients, endpoints(cfg.Bots), cfg.HTTP.PublicURL, cfg.HTTP.WebhookPath, log)
		},
	}
}

func newWebhooksURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "url",
		Short: "Print the webhook URL of every configured bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadWithPublicURL(cmd)
			if err != nil {
				return err
			}
			for _, ep := range endpoints(cfg.Bots) {
				u, err := telegram.WebhookURL(cfg.HTTP.PublicURL, cfg.HTTP.WebhookPath, ep.Username, ep.Secret)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", ep.Username, u)
			}
			return nil
		},
	}
}
