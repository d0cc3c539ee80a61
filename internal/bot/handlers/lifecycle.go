package handlers

import (
	"context"

	"github.com/go-telegram/bot/models"
)

// Membership events that only need a log line.

func logBlocked(deps HandlerDeps) func(context.Context, *models.Update) error {
	log := deps.logger("pm_blocked")
	return func(ctx context.Context, update *models.Update) error {
		m := update.MyChatMember
		log.InfoContext(ctx, "Bot blocked in private chat", "user_id", m.From.ID, "username", m.From.Username, "first_name", m.From.FirstName)
		return nil
	}
}

func logLeft(deps HandlerDeps, where string) func(context.Context, *models.Update) error {
	log := deps.logger(where + "_leave")
	return func(ctx context.Context, update *models.Update) error {
		m := update.MyChatMember
		log.InfoContext(ctx, "Bot removed from "+where, "chat_id", m.Chat.ID, "title", m.Chat.Title, "by_user_id", m.From.ID, "by_username", m.From.Username)
		return nil
	}
}
