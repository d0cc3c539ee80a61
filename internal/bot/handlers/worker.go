package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/helpdeskbot/internal/event"
	"github.com/edgard/helpdeskbot/internal/registry"
	"github.com/edgard/helpdeskbot/internal/telegram"
)

// WorkerCallbacks returns the echo bot's callbacks: it greets new
// conversations and repeats what it is told.
func WorkerCallbacks(deps HandlerDeps) registry.Callbacks {
	send := func(ctx context.Context, chatID int64, text string) error {
		_, err := deps.Client.SendMessage(ctx, telegram.SendParams{ChatID: chatID, Text: text})
		return err
	}

	return registry.Callbacks{
		event.KindPMJoin: func(ctx context.Context, u *models.Update) error {
			return send(ctx, u.Message.Chat.ID, "begin private message chat with "+deps.Username)
		},
		event.KindPMMessage: func(ctx context.Context, u *models.Update) error {
			return send(ctx, u.Message.Chat.ID, u.Message.Text)
		},
		event.KindPMBlocked: logBlocked(deps),
		event.KindGroupJoin: func(ctx context.Context, u *models.Update) error {
			return send(ctx, u.Message.Chat.ID, "begin group message chat with "+deps.Username)
		},
		event.KindGroupMessage: func(ctx context.Context, u *models.Update) error {
			return send(ctx, u.Message.Chat.ID, u.Message.Text)
		},
		event.KindGroupLeave: logLeft(deps, "group"),
		event.KindChannelJoin: func(ctx context.Context, u *models.Update) error {
			return send(ctx, u.MyChatMember.Chat.ID, "begin channel with "+deps.Username)
		},
		event.KindChannelMessage: func(ctx context.Context, u *models.Update) error {
			return send(ctx, u.ChannelPost.Chat.ID, fmt.Sprintf("@%s says %s", deps.Username, u.ChannelPost.Text))
		},
		event.KindChannelLeave: logLeft(deps, "channel"),
	}
}
