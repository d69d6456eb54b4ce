// Package internal provides the main application initialization and runtime logic.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/sheaf/internal/api"
	"github.com/starford/sheaf/internal/export"
	"github.com/starford/sheaf/internal/index"
	"github.com/starford/sheaf/internal/noteservice"
	"github.com/starford/sheaf/internal/share"
	"github.com/starford/sheaf/internal/sse"
	"github.com/starford/sheaf/internal/storage"
)

// App holds the wired components shared by the server and the CLI commands.
type App struct {
	Config   *Config
	Logger   *slog.Logger
	Store    storage.Provider
	DB       *index.DB
	Notes    *noteservice.Service
	Blobs    *export.Blobs
	Exporter *export.Exporter
}

// Open builds the application from opts and runs the initial index sync.
// The caller must Close the returned App.
func Open(opts ...Option) (*App, error) {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		// Initialize structured JSON logger.
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("share_origin", cfg.Share.Origin),
		slog.Bool("remote_share_store", cfg.Share.RemoteURL != ""),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	// Initialize storage.
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	// Initialize SQLite index.
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	// Run initial sync.
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	shareStore, lookup, views := shareBackends(cfg.Share, db)
	publisher := share.NewPublisher(shareStore, cfg.Share.Origin, logger)
	resolver := share.DefaultResolver(lookup, logger)

	svc := noteservice.NewService(store, db, publisher, resolver, views)
	blobs := export.NewBlobs("/blobs", cfg.Export.BlobTTL)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		DB:       db,
		Notes:    svc,
		Blobs:    blobs,
		Exporter: export.New(svc, blobs, logger),
	}, nil
}

// Close releases the index.
func (a *App) Close() error {
	return a.DB.Close()
}

// shareBackends picks the remote store when one is configured and the local
// shares tables otherwise.
func shareBackends(cfg ShareConfig, db *index.DB) (share.Store, share.Lookup, share.ViewCounter) {
	if cfg.RemoteURL != "" {
		client := share.NewClient(cfg.RemoteURL, cfg.Timeout)
		return client, client, client
	}
	local := index.LocalShares{DB: db}
	return local, local, local
}

// Handler builds the HTTP handler: health checks, the authenticated API under
// /api, the public share store under /shares and export blobs under /blobs.
func (a *App) Handler(broker *sse.Broker) http.Handler {
	cfg := a.Config

	apiRouter := api.NewRouter(a.Notes, a.Exporter, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)
	shareRouter := api.NewShareRouter(a.DB, broker.PublishShareViewed)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api; SSE is served at /api/events.
	r.Mount("/api", apiRouter)

	// Share store protocol and export blobs are public.
	r.Mount("/shares", shareRouter)
	r.Get("/blobs/{id}", a.Blobs.ServeHTTP)

	return r
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := Open(opts...)
	if err != nil {
		return err
	}
	defer app.Close()

	cfg := app.Config
	logger := app.Logger

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: app.Handler(broker),
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher; every change drops the cached preview and is
	// broadcast over SSE.
	g.Go(func() error {
		err := index.Watch(gCtx, app.DB, app.Store, cfg.Vault.Path, logger, func(kind, id string) {
			app.Notes.Invalidate(id)
			broker.PublishNoteEvent(kind, id)
		})
		if err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		stop()
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
