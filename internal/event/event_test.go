package event_test

import (
	"encoding/json"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/helpdeskbot/internal/event"
)

const botUsername = "helpdesk_bot"

func decode(t *testing.T, raw string) *models.Update {
	t.Helper()
	var update models.Update
	require.NoError(t, json.Unmarshal([]byte(raw), &update))
	return &update
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want event.Kind
	}{
		{
			name: "private start",
			raw:  `{"update_id":1,"message":{"message_id":1,"chat":{"id":10,"type":"private"},"text":"/start"}}`,
			want: event.KindPMJoin,
		},
		{
			name: "private blocked",
			raw:  `{"update_id":2,"my_chat_member":{"chat":{"id":10,"type":"private"},"from":{"id":10,"first_name":"A"},"date":1,"old_chat_member":{"status":"member","user":{"id":1}},"new_chat_member":{"status":"kicked","user":{"id":1}}}}`,
			want: event.KindPMBlocked,
		},
		{
			name: "private text",
			raw:  `{"update_id":3,"message":{"message_id":2,"chat":{"id":10,"type":"private"},"text":"hi"}}`,
			want: event.KindPMMessage,
		},
		{
			name: "private without text",
			raw:  `{"update_id":4,"message":{"message_id":3,"chat":{"id":10,"type":"private"}}}`,
			want: event.KindNone,
		},
		{
			name: "group join by this bot",
			raw:  `{"update_id":5,"message":{"message_id":4,"chat":{"id":-20,"type":"group","title":"G"},"new_chat_members":[{"id":7,"first_name":"x","username":"someone"},{"id":8,"is_bot":true,"first_name":"b","username":"helpdesk_bot"}]}}`,
			want: event.KindGroupJoin,
		},
		{
			name: "group join by another member",
			raw:  `{"update_id":6,"message":{"message_id":5,"chat":{"id":-20,"type":"group"},"new_chat_members":[{"id":7,"first_name":"x","username":"someone"}]}}`,
			want: event.KindNone,
		},
		{
			name: "group leave",
			raw:  `{"update_id":7,"my_chat_member":{"chat":{"id":-20,"type":"group"},"from":{"id":10,"first_name":"A"},"date":1,"old_chat_member":{"status":"member","user":{"id":1}},"new_chat_member":{"status":"left","user":{"id":1}}}}`,
			want: event.KindGroupLeave,
		},
		{
			name: "group text",
			raw:  `{"update_id":8,"message":{"message_id":6,"chat":{"id":-20,"type":"group"},"text":"hello"}}`,
			want: event.KindGroupMessage,
		},
		{
			name: "supergroup text",
			raw:  `{"update_id":9,"message":{"message_id":7,"chat":{"id":-100,"type":"supergroup"},"text":"hello"}}`,
			want: event.KindGroupMessage,
		},
		{
			name: "channel join",
			raw:  `{"update_id":10,"my_chat_member":{"chat":{"id":-300,"type":"channel"},"from":{"id":10,"first_name":"A"},"date":1,"old_chat_member":{"status":"left","user":{"id":1}},"new_chat_member":{"status":"administrator","user":{"id":1}}}}`,
			want: event.KindChannelJoin,
		},
		{
			name: "channel leave",
			raw:  `{"update_id":11,"my_chat_member":{"chat":{"id":-300,"type":"channel"},"from":{"id":10,"first_name":"A"},"date":1,"old_chat_member":{"status":"administrator","user":{"id":1}},"new_chat_member":{"status":"left","user":{"id":1}}}}`,
			want: event.KindChannelLeave,
		},
		{
			name: "channel post",
			raw:  `{"update_id":12,"channel_post":{"message_id":9,"chat":{"id":-300,"type":"channel"},"text":"news"}}`,
			want: event.KindChannelMessage,
		},
		{
			name: "no chat type fields",
			raw:  `{"update_id":13}`,
			want: event.KindNone,
		},
		{
			name: "unknown chat type",
			raw:  `{"update_id":14,"message":{"message_id":10,"chat":{"id":1,"type":"sender"},"text":"x"}}`,
			want: event.KindNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			update := decode(t, tt.raw)
			assert.Equal(t, tt.want, event.Classify(update, botUsername))
			// Pure: classifying again gives the same result.
			assert.Equal(t, tt.want, event.Classify(update, botUsername))
		})
	}
}

func TestClassifyNilUpdate(t *testing.T) {
	t.Parallel()
	assert.Equal(t, event.KindNone, event.Classify(nil, botUsername))
}

func TestChatTypeFallbackOrder(t *testing.T) {
	t.Parallel()

	update := &models.Update{
		MyChatMember: &models.ChatMemberUpdated{Chat: models.Chat{ID: -5, Type: models.ChatTypeChannel}},
		ChannelPost:  &models.Message{Chat: models.Chat{ID: -6, Type: models.ChatTypePrivate}},
	}
	assert.Equal(t, models.ChatTypeChannel, event.ChatType(update))

	id, ok := event.ChatID(update)
	require.True(t, ok)
	assert.Equal(t, int64(-5), id)

	update.Message = &models.Message{Chat: models.Chat{ID: 42, Type: models.ChatTypeGroup}}
	assert.Equal(t, models.ChatTypeGroup, event.ChatType(update))
	id, ok = event.ChatID(update)
	require.True(t, ok)
	assert.Equal(t, int64(42), id)
}

func TestChatIDAbsent(t *testing.T) {
	t.Parallel()
	_, ok := event.ChatID(&models.Update{ID: 1})
	assert.False(t, ok)
}

func TestKindString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "pm_join", event.KindPMJoin.String())
	assert.Equal(t, "channel_message", event.KindChannelMessage.String())
	assert.Equal(t, "unknown", event.Kind(99).String())
	assert.Len(t, event.Kinds(), 9)
}
