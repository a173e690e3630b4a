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

	"github.com/recursa-hq/recursa/internal/api"
	"github.com/recursa-hq/recursa/internal/mcpserver"
	"github.com/recursa-hq/recursa/internal/pageservice"
	"github.com/recursa-hq/recursa/internal/sse"
	"github.com/recursa-hq/recursa/internal/storage"
	"github.com/recursa-hq/recursa/internal/vcs"
	"github.com/recursa-hq/recursa/internal/watcher"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("graph_path", cfg.Graph.Path),
		slog.Bool("mcp_enabled", cfg.MCP.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure the graph root exists.
	if err := os.MkdirAll(cfg.Graph.Path, 0o755); err != nil {
		return fmt.Errorf("create graph dir: %w", err)
	}

	// Initialize sandboxed storage.
	store, err := storage.NewFS(cfg.Graph.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// Initialize the version-control backend.
	git := vcs.New(store.Root(), cfg.Git.Timeout())
	if cfg.Git.AutoInit {
		if err := git.EnsureRepo(ctx); err != nil {
			return fmt.Errorf("init repository: %w", err)
		}
	}

	svc := pageservice.NewService(store, git)

	// SSE broker for graph change events.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Build the HTTP surface.
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, http.HandlerFunc(broker.ServeHTTP))

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

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start the graph watcher with the SSE callback.
	g.Go(func() error {
		return watcher.Watch(gCtx, store.Root(), logger, func(kind, path string) {
			broker.PublishPageEvent(kind, path)
		})
	})

	// Start the HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Serve the MCP tool adapter on stdio when enabled.
	if cfg.MCP.Enabled {
		g.Go(func() error {
			logger.Info("Starting MCP stdio server")
			if err := mcpserver.New(svc).ServeStdio(); err != nil {
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		})
	}

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
