package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"salon-portal/internal/config"
	"salon-portal/internal/database"
	"salon-portal/internal/gate"
	"salon-portal/internal/gateway"
	"salon-portal/internal/handler"
	"salon-portal/internal/middleware"
	"salon-portal/internal/router"
	"salon-portal/internal/session"
)

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	sessions, cleanup, err := newSessionStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	api := gateway.New(cfg.UpstreamURL, sessions,
		gateway.WithHTTPClient(&http.Client{Timeout: cfg.UpstreamTimeout}),
		gateway.WithOnUnauthorized(func(_ context.Context, sid string) {
			slog.Info("session invalidated by upstream", "sid", sid)
		}),
	)

	accessGate := gate.New(sessions, api)
	rotation := gate.NewRotationInterceptor(sessions, api,
		gate.WithPolling(cfg.RotationPollInterval, cfg.RotationPollTimeout))
	gateMiddleware := middleware.NewGateMiddleware(accessGate)

	appRouter := router.New(cfg, sessions, gateMiddleware, router.Handlers{
		Auth:         handler.NewAuthHandler(api, rotation),
		Public:       handler.NewPublicHandler(api),
		Staff:        handler.NewStaffHandler(api),
		Services:     handler.NewServicesHandler(api),
		WorkingHours: handler.NewWorkingHoursHandler(api),
		Users:        handler.NewUsersHandler(api),
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server:       server,
		cleanupFuncs: []func(){cleanup},
	}, nil
}

func newSessionStore(cfg *config.Config) (session.Store, func(), error) {
	noop := func() {}

	switch cfg.SessionBackend {
	case config.SessionBackendMemory:
		return session.NewMemoryStore(), noop, nil

	case config.SessionBackendFile:
		store, err := session.NewFileStore(cfg.SessionFile)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil

	case config.SessionBackendPostgres:
		slog.Info("connecting to PostgreSQL")
		db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, nil, err
		}
		store := session.NewPostgresStore(db.Pool)
		if err := store.EnsureSchema(context.Background()); err != nil {
			db.Close()
			return nil, nil, err
		}
		slog.Info("database ready")
		return store, db.Close, nil

	case config.SessionBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return session.NewRedisStore(client, cfg.SessionTTL), func() { _ = client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
