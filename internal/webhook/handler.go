package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-telegram/bot/models"
	"github.com/labstack/echo/v4"
)

// LaneCounter reports how many conversation lanes are live.
type LaneCounter interface {
	Len() int
}

// ingestor is the part of Ingestor the HTTP handler needs.
type ingestor interface {
	Submit(ctx context.Context, bot, secret string, update *models.Update)
}

// Handler serves the Telegram webhook endpoint.
type Handler struct {
	logger       *slog.Logger
	ingest       ingestor
	lanes        LaneCounter
	path         string
	maxBodyBytes int64
}

// NewHandler mounts updates under {path}/:bot_username/:bot_secret.
func NewHandler(log *slog.Logger, ingest ingestor, lanes LaneCounter, path string, maxBodyBytes int64) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 << 20
	}
	return &Handler{
		logger:       log.With(slog.String("handler", "telegram_webhook")),
		ingest:       ingest,
		lanes:        lanes,
		path:         path,
		maxBodyBytes: maxBodyBytes,
	}
}

// Register registers webhook and health routes.
func (h *Handler) Register(e *echo.Echo) {
	e.POST(h.path+"/:bot_username/:bot_secret", h.Handle)
	e.GET("/healthz", h.Health)
}

// Handle accepts one update. It always answers 200 so Telegram never
// retries a delivery because of how it was routed.
func (h *Handler) Handle(c echo.Context) error {
	bot := c.Param("bot_username")
	secret := c.Param("bot_secret")

	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, h.maxBodyBytes+1))
	if err != nil {
		h.logger.Warn("Failed to read webhook body", "bot", bot, "error", err)
		return c.NoContent(http.StatusOK)
	}
	if int64(len(payload)) > h.maxBodyBytes {
		h.logger.Warn("Webhook payload too large", "bot", bot, "max_bytes", h.maxBodyBytes)
		return c.NoContent(http.StatusOK)
	}

	var update models.Update
	if err := json.Unmarshal(payload, &update); err != nil {
		h.logger.Warn("Failed to decode webhook update", "bot", bot, "error", err)
		return c.NoContent(http.StatusOK)
	}

	h.ingest.Submit(c.Request().Context(), bot, secret, &update)
	return c.NoContent(http.StatusOK)
}

// Health reports liveness and the current lane count.
func (h *Handler) Health(c echo.Context) error {
	resp := map[string]any{"status": "ok"}
	if h.lanes != nil {
		resp["lanes"] = h.lanes.Len()
	}
	return c.JSON(http.StatusOK, resp)
}
