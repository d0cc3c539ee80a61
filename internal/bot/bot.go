// Package bot wires the helpdesk components together and manages their lifecycle.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Server is a long-running component that stops when ctx is cancelled.
type Server interface {
	Run(ctx context.Context) error
}

// Lanes is the part of the lane manager needed for shutdown.
type Lanes interface {
	Close()
	Wait(ctx context.Context) error
}

// Closer releases a resource such as the store.
type Closer interface {
	Close() error
}

// Bot runs the webhook server and the scheduler until shutdown.
type Bot struct {
	logger       *slog.Logger
	server       Server
	scheduler    *Scheduler
	lanes        Lanes
	store        Closer
	drainTimeout time.Duration
}

// NewBot creates the orchestrator. scheduler, lanes and store may be nil.
func NewBot(logger *slog.Logger, server Server, scheduler *Scheduler, lanes Lanes, store Closer, drainTimeout time.Duration) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	if drainTimeout <= 0 {
		drainTimeout = 10 * time.Second
	}
	return &Bot{
		logger:       logger.With("component", "bot_orchestrator"),
		server:       server,
		scheduler:    scheduler,
		lanes:        lanes,
		store:        store,
		drainTimeout: drainTimeout,
	}
}

// Run blocks until ctx is cancelled or a component fails, then shuts
// everything down: the server first, then the scheduler, the lanes and the store.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := b.server.Run(gCtx); err != nil {
			return err
		}
		if gCtx.Err() == nil {
			return errors.New("webhook server stopped unexpectedly")
		}
		return nil
	})

	if b.scheduler != nil {
		g.Go(func() error {
			if err := b.scheduler.Start(gCtx); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}
			<-gCtx.Done()
			if err := b.scheduler.Stop(); err != nil {
				b.logger.Error("Error stopping scheduler", "error", err)
			}
			return nil
		})
	}

	runErr := g.Wait()
	shutdownErr := b.shutdown()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", runErr)
		return errors.Join(runErr, shutdownErr)
	}
	if shutdownErr != nil {
		return shutdownErr
	}
	b.logger.Info("Bot orchestrator stopped gracefully")
	return nil
}

func (b *Bot) shutdown() error {
	if b.lanes != nil {
		b.lanes.Close()
		ctx, cancel := context.WithTimeout(context.Background(), b.drainTimeout)
		defer cancel()
		if err := b.lanes.Wait(ctx); err != nil {
			b.logger.Warn("Timed out waiting for lanes to drain", "timeout", b.drainTimeout)
			if b.store != nil {
				b.logger.Warn("Leaving store open: lanes still running")
			}
			return fmt.Errorf("failed to drain lanes: %w", err)
		}
	}
	var errs []error
	if b.store != nil {
		if err := b.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close store: %w", err))
		}
	}
	return errors.Join(errs...)
}
