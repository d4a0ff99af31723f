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

	"github.com/starford/raido/internal/resources"
	"github.com/starford/raido/internal/sse"
	"github.com/starford/raido/internal/stub"
)

// RunStub starts the development stub backend with the given options and
// blocks until the context is cancelled or a shutdown signal arrives.
func RunStub(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("stub_address", cfg.Stub.Address()),
		slog.String("sqlite_path", cfg.Stub.SQLitePath),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Resource registry: compiled-in defaults, optionally overridden from file.
	reg := resources.Default()
	if cfg.Resources.Path != "" {
		var err error
		reg, err = resources.Load(cfg.Resources.Path)
		if err != nil {
			return fmt.Errorf("load resource registry: %w", err)
		}
	}

	// Fixture store.
	store, err := stub.Open(cfg.Stub.SQLitePath)
	if err != nil {
		return fmt.Errorf("init fixture store: %w", err)
	}
	defer store.Close()

	if cfg.Stub.Seed {
		if err := stub.Seed(store); err != nil {
			logger.Warn("seeding failed", slog.String("error", err.Error()))
		}
	}

	// SSE broker for record change events.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoint (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/", stub.NewRouter(store, reg, cfg.Stub.Token, logger, broker))

	httpServer := &http.Server{
		Addr:    cfg.Stub.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the registry file for edits.
	if cfg.Resources.Path != "" && cfg.Resources.Watch {
		g.Go(func() error {
			reg.Watch(gCtx, logger)
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting stub server", slog.String("address", cfg.Stub.Address()))
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
