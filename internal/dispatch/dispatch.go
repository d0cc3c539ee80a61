// Package dispatch turns tasks taken off a lane into callback invocations:
// classify the update, look up the bot's callback for the event and run it.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/helpdeskbot/internal/event"
	"github.com/edgard/helpdeskbot/internal/registry"
)

// Task is one inbound update addressed to one bot. It is consumed once.
type Task struct {
	ID          string
	BotUsername string
	BotSecret   string
	ChatID      int64
	Update      *models.Update
	ReceivedAt  time.Time
	// OnError receives the callback failure for this task, if any.
	OnError func(err error)
}

// Lookuper resolves a bot's callbacks.
type Lookuper interface {
	Lookup(username string) (registry.Callbacks, bool)
}

// Middleware wraps every callback the dispatcher runs.
type Middleware func(next Handler) Handler

// Handler is a callback enriched with the classified event and the bot it
// runs for, which middleware can use for logging.
type Handler func(ctx context.Context, call Call) error

// Call describes one callback invocation.
type Call struct {
	Task Task
	Kind event.Kind
}

// PanicError reports a callback that panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("callback panicked: %v", e.Value)
}

// Dispatcher runs callbacks for tasks, one task per call.
type Dispatcher struct {
	bots   Lookuper
	log    *slog.Logger
	invoke Handler
}

// New creates a dispatcher. Middleware is applied in order, so the first one
// is the outermost.
func New(bots Lookuper, logger *slog.Logger, mws ...Middleware) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	d := &Dispatcher{
		bots: bots,
		log:  logger.With("component", "dispatcher"),
	}
	h := d.call
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	d.invoke = h
	return d
}

// Process classifies task and runs the matching callback, waiting for it to
// finish. Failures go to task.OnError and never escape, so the lane moves on.
func (d *Dispatcher) Process(ctx context.Context, task Task) {
	kind := event.Classify(task.Update, task.BotUsername)
	if kind == event.KindNone {
		d.log.DebugContext(ctx, "Update not classified, dropping", "bot", task.BotUsername, "chat_id", task.ChatID, "task_id", task.ID)
		return
	}

	if err := d.invoke(ctx, Call{Task: task, Kind: kind}); err != nil {
		d.report(ctx, task, kind, err)
	}
}

func (d *Dispatcher) call(ctx context.Context, c Call) (err error) {
	callbacks, ok := d.bots.Lookup(c.Task.BotUsername)
	if !ok {
		d.log.WarnContext(ctx, "No callbacks registered for bot", "bot", c.Task.BotUsername)
		return nil
	}
	h, ok := callbacks[c.Kind]
	if !ok {
		d.log.DebugContext(ctx, "Bot has no callback for event", "bot", c.Task.BotUsername, "event", c.Kind.String())
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return h(ctx, c.Task.Update)
}

func (d *Dispatcher) report(ctx context.Context, task Task, kind event.Kind, err error) {
	if task.OnError != nil {
		task.OnError(err)
		return
	}
	d.log.ErrorContext(ctx, "Callback failed", "bot", task.BotUsername, "chat_id", task.ChatID, "event", kind.String(), "task_id", task.ID, "error", err)
}
