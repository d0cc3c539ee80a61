// Package webhook receives Telegram webhook deliveries and hands each update
// to its conversation lane.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/edgard/helpdeskbot/internal/dispatch"
	"github.com/edgard/helpdeskbot/internal/event"
	"github.com/edgard/helpdeskbot/internal/lane"
)

// Submitter routes a task to the lane of (bot, chat). *lane.Manager[dispatch.Task] implements it.
type Submitter interface {
	Submit(bot, secret string, chatID int64, task dispatch.Task) error
}

// Ingestor is the fire-and-forget entry point for updates. Nothing it does
// is reported back to the caller.
type Ingestor struct {
	lanes Submitter
	auth  lane.Authenticator
	log   *slog.Logger
	now   func() time.Time

	dedup *lru.Cache[string, struct{}]
}

// NewIngestor creates an Ingestor. Credentials are checked against auth
// before an update counts as delivered. dedupSize bounds the number of
// recently seen (bot, update id) pairs; 0 disables de-duplication.
func NewIngestor(lanes Submitter, auth lane.Authenticator, dedupSize int, logger *slog.Logger) (*Ingestor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	in := &Ingestor{
		lanes: lanes,
		auth:  auth,
		log:   logger.With("component", "ingestor"),
		now:   time.Now,
	}
	if dedupSize > 0 {
		cache, err := lru.New[string, struct{}](dedupSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create update dedup cache: %w", err)
		}
		in.dedup = cache
	}
	return in, nil
}

// Submit enqueues update on its conversation lane. Updates without a chat,
// repeated deliveries and refused credentials are logged and dropped.
func (i *Ingestor) Submit(ctx context.Context, bot, secret string, update *models.Update) {
	if update == nil {
		return
	}
	chatID, ok := event.ChatID(update)
	if !ok {
		i.log.DebugContext(ctx, "Dropping update without chat", "bot", bot, "update_id", update.ID)
		return
	}

	if !i.auth.Authenticate(bot, secret) {
		i.log.WarnContext(ctx, "Refused update", "bot", bot, "chat_id", chatID, "update_id", update.ID)
		return
	}

	key := bot + ":" + strconv.FormatInt(update.ID, 10)
	if i.seen(key, update.ID) {
		i.log.DebugContext(ctx, "Dropping repeated update", "bot", bot, "update_id", update.ID)
		return
	}

	task := dispatch.Task{
		ID:          uuid.NewString(),
		BotUsername: bot,
		BotSecret:   secret,
		ChatID:      chatID,
		Update:      update,
		ReceivedAt:  i.now(),
	}
	task.OnError = i.failureSink(task)

	if err := i.lanes.Submit(bot, secret, chatID, task); err != nil {
		if errors.Is(err, lane.ErrRefused) {
			i.log.WarnContext(ctx, "Refused update", "bot", bot, "chat_id", chatID, "update_id", update.ID)
			return
		}
		i.log.ErrorContext(ctx, "Failed to enqueue update", "bot", bot, "chat_id", chatID, "update_id", update.ID, "error", err)
		return
	}
	i.log.DebugContext(ctx, "Update enqueued", "task_id", task.ID, "bot", bot, "chat_id", chatID, "update_id", update.ID)
}

// seen marks key as delivered and reports whether it already was.
func (i *Ingestor) seen(key string, updateID int64) bool {
	if i.dedup == nil || updateID == 0 {
		return false
	}
	ok, _ := i.dedup.ContainsOrAdd(key, struct{}{})
	return ok
}

func (i *Ingestor) failureSink(task dispatch.Task) func(error) {
	return func(err error) {
		attrs := []any{"task_id", task.ID, "bot", task.BotUsername, "chat_id", task.ChatID, "update_id", task.Update.ID, "error", err}
		var pe *dispatch.PanicError
		if errors.As(err, &pe) {
			attrs = append(attrs, "stack", string(pe.Stack))
		}
		i.log.Error("Update callback failed", attrs...)
	}
}
