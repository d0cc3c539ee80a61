// Package event classifies raw Telegram updates into the fixed set of
// semantic events the bots react to.
package event

import (
	"github.com/go-telegram/bot/models"
)

// Kind is the semantic event an update maps to.
type Kind int

const (
	// KindNone marks updates that carry no actionable event. They are dropped.
	KindNone Kind = iota
	KindPMJoin
	KindPMBlocked
	KindPMMessage
	KindGroupJoin
	KindGroupLeave
	KindGroupMessage
	KindChannelJoin
	KindChannelLeave
	KindChannelMessage
)

var kindNames = map[Kind]string{
	KindNone:           "none",
	KindPMJoin:         "pm_join",
	KindPMBlocked:      "pm_blocked",
	KindPMMessage:      "pm_message",
	KindGroupJoin:      "group_join",
	KindGroupLeave:     "group_leave",
	KindGroupMessage:   "group_message",
	KindChannelJoin:    "channel_join",
	KindChannelLeave:   "channel_leave",
	KindChannelMessage: "channel_message",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Kinds returns every actionable kind, in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindPMJoin, KindPMBlocked, KindPMMessage,
		KindGroupJoin, KindGroupLeave, KindGroupMessage,
		KindChannelJoin, KindChannelLeave, KindChannelMessage,
	}
}

const startCommand = "/start"

// ChatType reports the chat type of an update, looking at message, then
// my_chat_member, then channel_post. The first non-empty value wins.
func ChatType(update *models.Update) models.ChatType {
	if update == nil {
		return ""
	}
	if update.Message != nil && update.Message.Chat.Type != "" {
		return update.Message.Chat.Type
	}
	if update.MyChatMember != nil && update.MyChatMember.Chat.Type != "" {
		return update.MyChatMember.Chat.Type
	}
	if update.ChannelPost != nil && update.ChannelPost.Chat.Type != "" {
		return update.ChannelPost.Chat.Type
	}
	return ""
}

// ChatID reports the conversation an update belongs to, using the same
// lookup order as ChatType. A zero id counts as absent.
func ChatID(update *models.Update) (int64, bool) {
	if update == nil {
		return 0, false
	}
	if update.Message != nil && update.Message.Chat.ID != 0 {
		return update.Message.Chat.ID, true
	}
	if update.MyChatMember != nil && update.MyChatMember.Chat.ID != 0 {
		return update.MyChatMember.Chat.ID, true
	}
	if update.ChannelPost != nil && update.ChannelPost.Chat.ID != 0 {
		return update.ChannelPost.Chat.ID, true
	}
	return 0, false
}

// Classify maps an update to its semantic event for the bot identified by
// botUsername. The first matching rule wins; see the per-chat-type helpers.
func Classify(update *models.Update, botUsername string) Kind {
	switch ChatType(update) {
	case models.ChatTypePrivate:
		return classifyPrivate(update)
	case models.ChatTypeGroup, models.ChatTypeSupergroup:
		return classifyGroup(update, botUsername)
	case models.ChatTypeChannel:
		return classifyChannel(update)
	default:
		return KindNone
	}
}

func classifyPrivate(update *models.Update) Kind {
	text := messageText(update)
	switch {
	case text == startCommand:
		return KindPMJoin
	case memberStatus(update) == models.ChatMemberTypeBanned:
		return KindPMBlocked
	case text != "":
		return KindPMMessage
	default:
		return KindNone
	}
}

func classifyGroup(update *models.Update, botUsername string) Kind {
	switch {
	case joinedBy(update, botUsername):
		return KindGroupJoin
	case memberStatus(update) == models.ChatMemberTypeLeft:
		return KindGroupLeave
	case messageText(update) != "":
		return KindGroupMessage
	default:
		return KindNone
	}
}

func classifyChannel(update *models.Update) Kind {
	switch memberStatus(update) {
	case models.ChatMemberTypeAdministrator:
		return KindChannelJoin
	case models.ChatMemberTypeLeft:
		return KindChannelLeave
	}
	if update.ChannelPost != nil && update.ChannelPost.Text != "" {
		return KindChannelMessage
	}
	return KindNone
}

func messageText(update *models.Update) string {
	if update.Message == nil {
		return ""
	}
	return update.Message.Text
}

func memberStatus(update *models.Update) models.ChatMemberType {
	if update.MyChatMember == nil {
		return ""
	}
	return update.MyChatMember.NewChatMember.Type
}

func joinedBy(update *models.Update, botUsername string) bool {
	if update.Message == nil || botUsername == "" {
		return false
	}
	for _, member := range update.Message.NewChatMembers {
		if member.Username == botUsername {
			return true
		}
	}
	return false
}
