package handlers

import (
	"context"
	"errors"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/helpdeskbot/internal/event"
	"github.com/edgard/helpdeskbot/internal/registry"
	"github.com/edgard/helpdeskbot/internal/telegram"
)

const (
	privateChatNotice = "This bot is meant to be used only in a specific group. Messages sent here will be ignored."
	channelNotice     = "This bot is not designed to be used in a channel and will leave the channel shortly."
)

// AdminCallbacks returns the admin bot's callbacks. Group messages are
// routed to the admin or support side of the workflow; support-group
// messages are skipped when deps.SupportDelegated is set.
func AdminCallbacks(deps HandlerDeps) registry.Callbacks {
	callbacks := groupOnly(deps)
	log := deps.logger("admin_group")

	callbacks[event.KindGroupJoin] = func(ctx context.Context, u *models.Update) error {
		fields := []any{"chat_id", u.Message.Chat.ID, "title", u.Message.Chat.Title}
		if u.Message.From != nil {
			fields = append(fields, "by_user_id", u.Message.From.ID, "by_username", u.Message.From.Username)
		}
		log.InfoContext(ctx, "Bot added to group", fields...)
		_, err := deps.Workflow.HandleAdminJoin(ctx, u)
		return err
	}
	callbacks[event.KindGroupMessage] = func(ctx context.Context, u *models.Update) error {
		chat := u.Message.Chat
		switch {
		case deps.Workflow.IsAdminGroup(ctx, chat):
			return deps.Workflow.HandleAdminMessage(ctx, u)
		case deps.Workflow.IsSupportGroup(chat):
			if deps.SupportDelegated {
				return nil
			}
			_, err := deps.Workflow.HandleSupportMessage(ctx, u)
			return err
		default:
			log.DebugContext(ctx, "Ignoring message from unrelated group", "chat_id", chat.ID, "title", chat.Title)
			return nil
		}
	}
	return callbacks
}

// SupportCallbacks returns the callbacks of a bot that only listens in
// the support group and feeds what it hears into the workflow.
func SupportCallbacks(deps HandlerDeps) registry.Callbacks {
	callbacks := groupOnly(deps)
	log := deps.logger("support_group")

	callbacks[event.KindGroupJoin] = func(ctx context.Context, u *models.Update) error {
		log.InfoContext(ctx, "Bot added to group", "chat_id", u.Message.Chat.ID, "title", u.Message.Chat.Title)
		return nil
	}
	callbacks[event.KindGroupMessage] = func(ctx context.Context, u *models.Update) error {
		if !deps.Workflow.IsSupportGroup(u.Message.Chat) {
			return nil
		}
		_, err := deps.Workflow.HandleSupportMessage(ctx, u)
		return err
	}
	return callbacks
}

// groupOnly turns away private chats and channels.
func groupOnly(deps HandlerDeps) registry.Callbacks {
	log := deps.logger("lifecycle")

	noticeAndLeave := func(ctx context.Context, chatID int64, notice string) error {
		_, sendErr := deps.Client.SendMessage(ctx, telegram.SendParams{ChatID: chatID, Text: notice})
		leaveErr := deps.Client.LeaveChat(ctx, chatID)
		return errors.Join(sendErr, leaveErr)
	}

	return registry.Callbacks{
		event.KindPMJoin: func(ctx context.Context, u *models.Update) error {
			return noticeAndLeave(ctx, u.Message.Chat.ID, privateChatNotice)
		},
		event.KindPMMessage: func(ctx context.Context, u *models.Update) error {
			log.WarnContext(ctx, "Bot used in private chat", "chat_id", u.Message.Chat.ID, "username", u.Message.Chat.Username)
			return nil
		},
		event.KindPMBlocked: logBlocked(deps),
		event.KindGroupLeave: logLeft(deps, "group"),
		event.KindChannelJoin: func(ctx context.Context, u *models.Update) error {
			return noticeAndLeave(ctx, u.MyChatMember.Chat.ID, channelNotice)
		},
		event.KindChannelMessage: func(ctx context.Context, u *models.Update) error {
			log.WarnContext(ctx, "Bot used in channel", "chat_id", u.ChannelPost.Chat.ID, "title", u.ChannelPost.Chat.Title)
			return nil
		},
		event.KindChannelLeave: logLeft(deps, "channel"),
	}
}
