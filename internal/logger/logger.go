// Package logger provides structured logging for the bots.
// It uses Go's slog package with configurable levels and formats.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/edgard/helpdeskbot/internal/dispatch"
)

// NewLogger creates a new slog Logger with the specified level and format.
// If jsonOutput is true, logs will be formatted as JSON, otherwise as text.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	return newLogger(os.Stdout, levelStr, jsonOutput)
}

func newLogger(w io.Writer, levelStr string, jsonOutput bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(levelStr),
	}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Middleware creates a logging middleware for dispatched callbacks.
// It logs the update being processed and how long its callback took.
func Middleware(log *slog.Logger) dispatch.Middleware {
	return func(next dispatch.Handler) dispatch.Handler {
		return func(ctx context.Context, call dispatch.Call) error {
			startTime := time.Now()

			logEntry := log.With(
				"task_id", call.Task.ID,
				"bot", call.Task.BotUsername,
				"chat_id", call.Task.ChatID,
				"event", call.Kind.String(),
			)

			if update := call.Task.Update; update != nil {
				logEntry = logEntry.With("update_id", update.ID)
				switch {
				case update.Message != nil:
					logEntry = logEntry.With(
						"message_id", update.Message.ID,
						"text_preview", truncateString(update.Message.Text, 50),
					)
					if update.Message.From != nil {
						logEntry = logEntry.With("user_id", update.Message.From.ID)
					}
				case update.ChannelPost != nil:
					logEntry = logEntry.With(
						"message_id", update.ChannelPost.ID,
						"text_preview", truncateString(update.ChannelPost.Text, 50),
					)
				case update.MyChatMember != nil:
					logEntry = logEntry.With(
						"user_id", update.MyChatMember.From.ID,
						"new_status", string(update.MyChatMember.NewChatMember.Type),
					)
				}
			}
			if !call.Task.ReceivedAt.IsZero() {
				logEntry = logEntry.With("queued", startTime.Sub(call.Task.ReceivedAt))
			}

			logEntry.DebugContext(ctx, "Processing update")

			err := next(ctx, call)

			duration := time.Since(startTime)
			if err != nil {
				logEntry.WarnContext(ctx, "Finished processing update with error", "duration", duration, "error", err)
				return err
			}
			logEntry.InfoContext(ctx, "Finished processing update", "duration", duration)
			return nil
		}
	}
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(r[:maxLen-3]) + "..."
}
