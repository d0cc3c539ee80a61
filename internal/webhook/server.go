package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Registrar mounts routes on an echo instance.
type Registrar interface {
	Register(e *echo.Echo)
}

// Server is the HTTP front door.
type Server struct {
	echo            *echo.Echo
	addr            string
	shutdownTimeout time.Duration
	log             *slog.Logger
}

// NewServer builds the echo instance with recovery and request logging.
// Only the route pattern is logged so bot secrets never reach the logs.
func NewServer(addr string, shutdownTimeout time.Duration, logger *slog.Logger, handlers ...Registrar) *Server {
	if addr == "" {
		addr = ":3000"
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "http_server")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogRoutePath: true,
		LogMethod:    true,
		LogLatency:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Debug("HTTP request",
				slog.String("method", v.Method),
				slog.String("route", v.RoutePath),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", c.RealIP()),
			)
			return nil
		},
	}))
	for _, h := range handlers {
		if h != nil {
			h.Register(e)
		}
	}

	return &Server{echo: e, addr: addr, shutdownTimeout: shutdownTimeout, log: log}
}

// Echo exposes the underlying router, mainly for tests.
func (s *Server) Echo() *echo.Echo { return s.echo }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", s.addr)
		errCh <- s.echo.Start(s.addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.log.Info("Shutting down HTTP server")
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}
