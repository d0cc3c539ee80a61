// Package telegram wraps the go-telegram/bot client behind the narrow
// outbound interface the workflow and callbacks use.
package telegram

import (
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
)

// NewTelegramBot creates a new Telegram bot instance using the go-telegram/bot library.
// Updates arrive over webhooks, so the instance is never polled and skips getMe at startup.
func NewTelegramBot(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	opts = append([]bot.Option{bot.WithSkipGetMe()}, opts...)
	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Info("Telegram bot instance created successfully", "token_prefix", tokenPrefix(token))
	return b, nil
}

func tokenPrefix(token string) string {
	if len(token) <= 8 {
		return "..."
	}
	return token[:8] + "..."
}
