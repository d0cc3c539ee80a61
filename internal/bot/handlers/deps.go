package handlers

import (
	"log/slog"

	"github.com/edgard/helpdeskbot/internal/telegram"
	"github.com/edgard/helpdeskbot/internal/workflow"
)

// HandlerDeps provides dependencies for one bot identity's callbacks.
type HandlerDeps struct {
	Logger   *slog.Logger
	Username string
	// Client is this bot's own outbound client.
	Client telegram.Client
	// Workflow is shared by the admin and support bots; nil for workers.
	Workflow *workflow.Workflow
	// SupportDelegated is set when a support bot owns the support group, so
	// the admin bot leaves those messages to it.
	SupportDelegated bool
}

func (d HandlerDeps) logger(handler string) *slog.Logger {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	return log.With("handler", handler, "bot", d.Username)
}
