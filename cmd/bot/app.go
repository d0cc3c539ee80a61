package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/edgard/helpdeskbot/internal/bot"
	"github.com/edgard/helpdeskbot/internal/bot/handlers"
	"github.com/edgard/helpdeskbot/internal/bot/tasks"
	"github.com/edgard/helpdeskbot/internal/config"
	"github.com/edgard/helpdeskbot/internal/database"
	"github.com/edgard/helpdeskbot/internal/dispatch"
	"github.com/edgard/helpdeskbot/internal/lane"
	"github.com/edgard/helpdeskbot/internal/logger"
	"github.com/edgard/helpdeskbot/internal/nlu"
	"github.com/edgard/helpdeskbot/internal/registry"
	"github.com/edgard/helpdeskbot/internal/telegram"
	"github.com/edgard/helpdeskbot/internal/webhook"
	"github.com/edgard/helpdeskbot/internal/workflow"
)

// app holds the wired service.
type app struct {
	clients  telegram.Clients
	registry *registry.Registry
	lanes    *lane.Manager[dispatch.Task]
	server   *webhook.Server
	bot      *bot.Bot
}

// newApp builds every component from cfg. clients lets tests inject fakes;
// when nil a go-telegram bot is created per configured identity.
func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger, clients telegram.Clients) (*app, error) {
	store, err := newStore(cfg, log)
	if err != nil {
		return nil, err
	}

	a, err := wire(ctx, cfg, log, store, clients)
	if err != nil {
		if closeErr := store.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
		return nil, err
	}
	return a, nil
}

func wire(ctx context.Context, cfg *config.Config, log *slog.Logger, store database.Store, clients telegram.Clients) (*app, error) {
	classifier, err := newClassifier(ctx, cfg.NLU, log)
	if err != nil {
		return nil, err
	}

	if clients == nil {
		clients, err = newClients(cfg.Bots, log)
		if err != nil {
			return nil, err
		}
	}

	var wf *workflow.Workflow
	if admin, ok := cfg.AdminBot(); ok {
		wf = workflow.New(store, classifier, clients[admin.Username], workflowConfig(cfg.Workflow), log)
	}

	supportDelegated := len(cfg.BotsByRole(config.RoleSupport)) > 0

	reg := registry.New()
	err = handlers.RegisterAll(reg, cfg.Bots, func(b config.BotConfig) handlers.HandlerDeps {
		return handlers.HandlerDeps{
			Logger:           log,
			Username:         b.Username,
			Client:           clients[b.Username],
			Workflow:         wf,
			SupportDelegated: supportDelegated,
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register bots: %w", err)
	}
	log.Info("Registered bots", "bots", reg.Usernames())

	d := dispatch.New(reg, log, logger.Middleware(log))
	mgr := lane.NewManager[dispatch.Task](reg, d.Process, lane.Options{
		IdleTimeout: cfg.Lanes.IdleTimeout,
		MaxLanes:    cfg.Lanes.MaxLanes,
		TaskTimeout: cfg.Lanes.TaskTimeout,
		Logger:      log,
	})

	ingest, err := webhook.NewIngestor(mgr, reg, cfg.Dedup.Size, log)
	if err != nil {
		mgr.Close()
		return nil, err
	}
	handler := webhook.NewHandler(log, ingest, mgr, cfg.HTTP.WebhookPath, cfg.HTTP.MaxBodyBytes)
	server := webhook.NewServer(cfg.HTTP.ListenAddr, cfg.HTTP.ShutdownTimeout, log, handler)

	taskMap := tasks.RegisterAllTasks(tasks.TaskDeps{Logger: log, Store: store, Lanes: mgr})
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, taskMap)
	if err != nil {
		mgr.Close()
		return nil, err
	}

	return &app{
		clients:  clients,
		registry: reg,
		lanes:    mgr,
		server:   server,
		bot:      bot.NewBot(log, server, sched, mgr, store, cfg.HTTP.ShutdownTimeout),
	}, nil
}

func newStore(cfg *config.Config, log *slog.Logger) (database.Store, error) {
	switch cfg.Store.Backend {
	case "sqlite":
		db, err := database.NewDB(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		return database.NewStore(db, log, cfg.Workflow.AdminGroupID), nil
	case "memory", "":
		log.Warn("Using in-memory store; labels and responses are lost on restart")
		return database.NewMemoryStore(cfg.Workflow.AdminGroupID), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func newClassifier(ctx context.Context, cfg config.NLUConfig, log *slog.Logger) (nlu.Classifier, error) {
	c, err := newBackend(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if _, ok := c.(nlu.Noop); ok || cfg.Breaker.MaxFailures == 0 {
		return c, nil
	}
	return nlu.NewBreaker(c, nlu.BreakerConfig{
		Name:        cfg.Backend,
		MaxFailures: cfg.Breaker.MaxFailures,
		OpenTimeout: cfg.Breaker.OpenTimeout,
	}, log), nil
}

func newBackend(ctx context.Context, cfg config.NLUConfig, log *slog.Logger) (nlu.Classifier, error) {
	switch cfg.Backend {
	case "rasa":
		c, err := nlu.NewRasaClient(nlu.RasaConfig{
			BaseURL:    cfg.Rasa.BaseURL,
			Timeout:    cfg.Rasa.Timeout,
			MaxRetries: cfg.Rasa.MaxRetries,
			RetryDelay: cfg.Rasa.RetryDelay,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create rasa client: %w", err)
		}
		return c, nil
	case "gemini":
		c, err := nlu.NewGeminiClient(ctx, nlu.GeminiConfig{
			APIKey:          cfg.Gemini.APIKey,
			ModelName:       cfg.Gemini.ModelName,
			Temperature:     cfg.Gemini.Temperature,
			Intents:         cfg.Gemini.Intents,
			RetrievalPrefix: cfg.Gemini.RetrievalPrefix,
			MaxRetries:      cfg.Gemini.MaxRetries,
			RetryDelay:      time.Duration(cfg.Gemini.RetryDelaySeconds) * time.Second,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		return c, nil
	case "none", "":
		log.Warn("No NLU backend configured; every support message is recorded without a prediction")
		return nlu.Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown nlu backend %q", cfg.Backend)
	}
}

func newClients(bots []config.BotConfig, log *slog.Logger) (telegram.Clients, error) {
	clients := make(telegram.Clients, len(bots))
	for _, b := range bots {
		tg, err := telegram.NewTelegramBot(b.Token, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create telegram bot %s: %w", b.Username, err)
		}
		clients[b.Username] = telegram.NewBotClient(tg, b.Username, log)
	}
	return clients, nil
}

func workflowConfig(cfg config.WorkflowConfig) workflow.Config {
	return workflow.Config{
		AdminGroup:          workflow.Criteria{Username: cfg.AdminGroup.Username, Title: cfg.AdminGroup.Title},
		SupportGroup:        workflow.Criteria{Username: cfg.SupportGroup.Username, Title: cfg.SupportGroup.Title},
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		IntentPrefixLength:  cfg.IntentPrefixLength,
	}
}

func endpoints(bots []config.BotConfig) []telegram.Endpoint {
	eps := make([]telegram.Endpoint, 0, len(bots))
	for _, b := range bots {
		eps = append(eps, telegram.Endpoint{Username: b.Username, Secret: b.Secret})
	}
	return eps
}
