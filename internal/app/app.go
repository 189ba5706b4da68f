// Package app wires configuration, session, backend client and the quiz
// controllers into one object a front end can drive.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/SAP-F-2025/portfolio-quiz/internal/cache"
	"github.com/SAP-F-2025/portfolio-quiz/internal/client"
	"github.com/SAP-F-2025/portfolio-quiz/internal/config"
	"github.com/SAP-F-2025/portfolio-quiz/internal/events"
	"github.com/SAP-F-2025/portfolio-quiz/internal/services"
	"github.com/SAP-F-2025/portfolio-quiz/internal/session"
	"github.com/SAP-F-2025/portfolio-quiz/internal/utils"
	"github.com/SAP-F-2025/portfolio-quiz/pkg"
	"github.com/redis/go-redis/v9"
	"k8s.io/utils/clock"
)

const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

type App struct {
	Config    *config.Config
	Logger    utils.Logger
	Publisher events.EventPublisher
	Notifier  *events.Notifier
	Session   *session.Provider
	Watcher   *session.Watcher
	Client    *client.Client

	clock clock.WithTicker
	redis *redis.Client
}

type Option func(*App)

// WithClock replaces the real clock, mostly for tests.
func WithClock(c clock.WithTicker) Option {
	return func(a *App) { a.clock = c }
}

// WithPublisher skips publisher construction from config.
func WithPublisher(p events.EventPublisher) Option {
	return func(a *App) { a.Publisher = p }
}

// New builds the application and restores any persisted session.
func New(ctx context.Context, cfg *config.Config, logger utils.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = utils.NewLogger(cfg.Environment, cfg.LogLevel)
	}
	a := &App{Config: cfg, Logger: logger, clock: clock.RealClock{}}
	for _, opt := range opts {
		opt(a)
	}

	if a.Publisher == nil {
		publisher, err := cfg.Events.CreateEventPublisher(utils.ToSlogLogger(logger))
		if err != nil {
			logger.Error("Failed to create event publisher", "error", err)
			publisher = events.NewMockEventPublisher(utils.ToSlogLogger(logger))
		}
		a.Publisher = publisher
	}
	a.Notifier = events.NewNotifier(a.Publisher, a.clock, logger)

	store, err := a.sessionCache(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Session = session.NewProvider(session.NewCacheStore(store, session.DefaultKey, 0), a.Notifier, logger)
	if err := a.Session.Load(ctx); err != nil {
		logger.Warn("Failed to restore session", "error", err)
	}

	a.Client, err = client.New(client.Config{BaseURL: cfg.APIBaseURL, Timeout: cfg.HTTPTimeout}, a.Session, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Watcher = session.NewWatcher(a.Session, a.Client, a.clock, logger)

	logger.Info("Portfolio quiz client initialized",
		"api", cfg.APIBaseURL,
		"session_store", cfg.SessionStore,
		"events", cfg.Events.Publisher)
	return a, nil
}

func (a *App) sessionCache(ctx context.Context) (cache.CacheService, error) {
	switch a.Config.SessionStore {
	case SessionStoreRedis:
		rdb, err := pkg.NewRedisClient(ctx, a.Config)
		if err != nil {
			return nil, err
		}
		a.redis = rdb
		return cache.NewRedisCache(rdb, a.Logger), nil
	case SessionStoreMemory, "":
		return cache.NewMemoryCache(a.clock), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", a.Config.SessionStore)
	}
}

// Editor returns a fresh quiz editor bound to the current session.
func (a *App) Editor() *services.Editor {
	return services.NewEditor(a.Client, a.Session, a.Notifier, a.Logger)
}

// Attempt returns a fresh attempt session. A nil confirmer accepts every prompt.
func (a *App) Attempt(confirmer services.Confirmer) *services.AttemptSession {
	if confirmer == nil {
		confirmer = services.AlwaysConfirm
	}
	return services.NewAttemptSession(a.Client, a.Session, confirmer, a.Notifier, a.clock, a.Config.AttemptTick, a.Logger)
}

func (a *App) Grading() *services.GradingConsole {
	return services.NewGradingConsole(a.Client, a.Session, a.Notifier, a.clock, a.Config.RefreshThrottle, a.Logger)
}

// WatchSession runs the session watcher until the session expires or ctx
// is cancelled.
func (a *App) WatchSession(ctx context.Context) error {
	err := a.Watcher.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) Close() error {
	var errs []error
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close event publisher: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
