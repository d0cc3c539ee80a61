package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// SendParams describes a text message. ReplyTo is the message id being
// answered, or 0 for a standalone message.
type SendParams struct {
	ChatID  int64
	Text    string
	ReplyTo int
}

// CopyParams copies an existing message into another chat.
type CopyParams struct {
	ChatID     int64
	FromChatID int64
	MessageID  int
	ReplyTo    int
}

// ForwardParams forwards an existing message into another chat.
type ForwardParams struct {
	ChatID     int64
	FromChatID int64
	MessageID  int
}

// Client is the outbound side of one bot identity. Send-like methods return
// the id of the message that was created.
type Client interface {
	SendMessage(ctx context.Context, p SendParams) (int, error)
	CopyMessage(ctx context.Context, p CopyParams) (int, error)
	ForwardMessage(ctx context.Context, p ForwardParams) (int, error)
	LeaveChat(ctx context.Context, chatID int64) error
	SetWebhook(ctx context.Context, url string) error
}

// Clients maps bot usernames to their outbound clients.
type Clients map[string]Client

// BotClient adapts *bot.Bot to Client.
type BotClient struct {
	b   *bot.Bot
	log *slog.Logger
}

// NewBotClient wraps b.
func NewBotClient(b *bot.Bot, username string, logger *slog.Logger) *BotClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &BotClient{b: b, log: logger.With("component", "telegram_client", "bot", username)}
}

func replyParams(id int) *models.ReplyParameters {
	if id == 0 {
		return nil
	}
	return &models.ReplyParameters{MessageID: id}
}

func (c *BotClient) SendMessage(ctx context.Context, p SendParams) (int, error) {
	msg, err := c.b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          p.ChatID,
		Text:            p.Text,
		ReplyParameters: replyParams(p.ReplyTo),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to send message to chat %d: %w", p.ChatID, err)
	}
	c.log.Debug("Sent message", "chat_id", p.ChatID, "message_id", msg.ID)
	return msg.ID, nil
}

func (c *BotClient) CopyMessage(ctx context.Context, p CopyParams) (int, error) {
	id, err := c.b.CopyMessage(ctx, &bot.CopyMessageParams{
		ChatID:          p.ChatID,
		FromChatID:      p.FromChatID,
		MessageID:       p.MessageID,
		ReplyParameters: replyParams(p.ReplyTo),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to copy message %d from chat %d: %w", p.MessageID, p.FromChatID, err)
	}
	return id.ID, nil
}

func (c *BotClient) ForwardMessage(ctx context.Context, p ForwardParams) (int, error) {
	msg, err := c.b.ForwardMessage(ctx, &bot.ForwardMessageParams{
		ChatID:     p.ChatID,
		FromChatID: p.FromChatID,
		MessageID:  p.MessageID,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to forward message %d from chat %d: %w", p.MessageID, p.FromChatID, err)
	}
	return msg.ID, nil
}

func (c *BotClient) LeaveChat(ctx context.Context, chatID int64) error {
	if _, err := c.b.LeaveChat(ctx, &bot.LeaveChatParams{ChatID: chatID}); err != nil {
		return fmt.Errorf("failed to leave chat %d: %w", chatID, err)
	}
	c.log.Info("Left chat", "chat_id", chatID)
	return nil
}

func (c *BotClient) SetWebhook(ctx context.Context, webhookURL string) error {
	if _, err := c.b.SetWebhook(ctx, &bot.SetWebhookParams{URL: webhookURL}); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	return nil
}

// WebhookURL builds the address Telegram posts updates to for one bot.
func WebhookURL(publicURL, prefix, username, secret string) (string, error) {
	u, err := url.Parse(publicURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse public url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("public url %q must be absolute", publicURL)
	}
	u.Path = path.Join("/", u.Path, prefix, url.PathEscape(username), url.PathEscape(secret))
	u.RawPath = ""
	return strings.TrimSuffix(u.String(), "/"), nil
}

// Endpoint is one bot's webhook registration input.
type Endpoint struct {
	Username string
	Secret   string
}

// SetWebhooks registers the webhook URL of every endpoint that has a client.
// It keeps going after a failure and returns every error joined.
func SetWebhooks(ctx context.Context, clients Clients, endpoints []Endpoint, publicURL, prefix string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "webhook_setup")

	endpoints = append([]Endpoint(nil), endpoints...)
	sort.Slice(endpoints, func(i, j int) bool { return endpoints[i].Username < endpoints[j].Username })

	var errs []error
	for _, ep := range endpoints {
		client, ok := clients[ep.Username]
		if !ok {
			errs = append(errs, fmt.Errorf("no client for bot %s", ep.Username))
			continue
		}
		hookURL, err := WebhookURL(publicURL, prefix, ep.Username, ep.Secret)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := client.SetWebhook(ctx, hookURL); err != nil {
			log.Error("Failed to set webhook", "bot", ep.Username, "error", err)
			errs = append(errs, fmt.Errorf("bot %s: %w", ep.Username, err))
			continue
		}
		log.Info("Webhook set", "bot", ep.Username)
	}
	return errors.Join(errs...)
}
