package telegram_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/helpdeskbot/internal/telegram"
	"github.com/edgard/helpdeskbot/internal/telegram/telegramtest"
)

func TestWebhookURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		publicURL string
		want      string
		wantErr   bool
	}{
		{name: "bare host", publicURL: "https://bots.example.com", want: "https://bots.example.com/webhooks/telegram/help_bot/s3cr3t"},
		{name: "trailing slash", publicURL: "https://bots.example.com/", want: "https://bots.example.com/webhooks/telegram/help_bot/s3cr3t"},
		{name: "base path", publicURL: "https://example.com/tg", want: "https://example.com/tg/webhooks/telegram/help_bot/s3cr3t"},
		{name: "relative", publicURL: "/nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := telegram.WebhookURL(tt.publicURL, "/webhooks/telegram", "help_bot", "s3cr3t")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetWebhooksContinuesAfterFailure(t *testing.T) {
	t.Parallel()

	good := telegramtest.New()
	bad := telegramtest.New()
	bad.Err["SetWebhook"] = errors.New("unauthorized")

	clients := telegram.Clients{"a_bot": bad, "b_bot": good}
	endpoints := []telegram.Endpoint{{Username: "b_bot", Secret: "2"}, {Username: "a_bot", Secret: "1"}, {Username: "ghost", Secret: "x"}}

	err := telegram.SetWebhooks(context.Background(), clients, endpoints, "https://h.example", "/hooks", nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, "a_bot")
	assert.ErrorContains(t, err, "ghost")

	calls := good.Calls("SetWebhook")
	require.Len(t, calls, 1)
	assert.Equal(t, "https://h.example/hooks/b_bot/2", calls[0].URL)
}

type apiCall struct {
	path       string
	chatID     string
	fromChatID string
	messageID  string
}

func newAPIServer(t *testing.T, status int, body string) (*httptest.Server, func() []apiCall) {
	t.Helper()

	var (
		mu    sync.Mutex
		calls []apiCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(1 << 20)
		mu.Lock()
		calls = append(calls, apiCall{
			path:       r.URL.Path,
			chatID:     r.FormValue("chat_id"),
			fromChatID: r.FormValue("from_chat_id"),
			messageID:  r.FormValue("message_id"),
		})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []apiCall {
		mu.Lock()
		defer mu.Unlock()
		return append([]apiCall(nil), calls...)
	}
}

func TestBotClientForwardMessage(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, calls := newAPIServer(t, http.StatusOK,
		`{"ok":true,"result":{"message_id":77,"date":0,"chat":{"id":-100,"type":"supergroup"}}}`)

	b, err := telegram.NewTelegramBot("123:abc", log, bot.WithServerURL(srv.URL))
	require.NoError(t, err)
	client := telegram.NewBotClient(b, "help_bot", log)

	id, err := client.ForwardMessage(context.Background(), telegram.ForwardParams{ChatID: -100, FromChatID: -5, MessageID: 9})
	require.NoError(t, err)
	assert.Equal(t, 77, id)

	got := calls()
	require.Len(t, got, 1)
	assert.Equal(t, "/bot123:abc/forwardMessage", got[0].path)
	assert.Equal(t, "-100", got[0].chatID)
	assert.Equal(t, "-5", got[0].fromChatID)
	assert.Equal(t, "9", got[0].messageID)
}

func TestBotClientForwardMessageFailure(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, _ := newAPIServer(t, http.StatusBadRequest,
		`{"ok":false,"error_code":400,"description":"message to forward not found"}`)

	b, err := telegram.NewTelegramBot("123:abc", log, bot.WithServerURL(srv.URL))
	require.NoError(t, err)
	client := telegram.NewBotClient(b, "help_bot", log)

	_, err = client.ForwardMessage(context.Background(), telegram.ForwardParams{ChatID: -100, FromChatID: -5, MessageID: 9})
	require.Error(t, err)
	assert.ErrorIs(t, err, bot.ErrorBadRequest)
	assert.ErrorContains(t, err, "failed to forward message 9 from chat -5")
}
