// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/starford/recipebox/internal/api"
	"github.com/starford/recipebox/internal/auth"
	"github.com/starford/recipebox/internal/library"
	"github.com/starford/recipebox/internal/recipeservice"
	"github.com/starford/recipebox/internal/sse"
	"github.com/starford/recipebox/internal/storage"
	"github.com/starford/recipebox/internal/store"
)

// core holds the components shared by the server and the CLI subcommands.
type core struct {
	logger *slog.Logger
	db     *store.DB
	svc    *recipeservice.Service
	lib    *library.Library // nil when no library is configured
}

func (c *core) Close() error {
	return c.db.Close()
}

// newCore builds the logger, store, service and library from cfg. Logs go
// to logOut so stdio transports can keep stdout clean.
func newCore(app *application, logOut io.Writer, svcOpts ...recipeservice.Option) (*core, error) {
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	svcOpts = append(svcOpts, recipeservice.WithMaxServings(cfg.Scaling.MaxServings))
	svc := recipeservice.NewService(db, svcOpts...)

	c := &core{logger: logger, db: db, svc: svc}

	if cfg.Library.Enabled() {
		if err := os.MkdirAll(cfg.Library.Path, 0o755); err != nil {
			db.Close()
			return nil, fmt.Errorf("create library dir: %w", err)
		}
		files, err := storage.NewFS(cfg.Library.Path)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("init library storage: %w", err)
		}
		c.lib = library.New(files, db, svc, logger)
	}

	return c, nil
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	c, err := newCore(app, os.Stdout, recipeservice.WithNotifier(broker))
	if err != nil {
		return err
	}
	defer c.Close()

	cfg := app.config
	logger := c.logger

	logger.Info("Configuration loaded",
		slog.String("version", app.version),
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("library_path", cfg.Library.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if c.lib != nil {
		res, err := c.lib.Sync(ctx)
		if err != nil {
			logger.Warn("initial library sync failed", slog.String("error", err.Error()))
		} else {
			logger.Info("library synced", slog.Any("result", res))
		}
	}

	gate := auth.NewGate(cfg.Auth.Password)
	apiRouter := api.NewRouter(c.svc, gate, api.RouterConfig{
		RequirePassword: cfg.Auth.PasswordRequired(),
		VerifyPerMinute: cfg.Auth.VerifyRate,
		PublicURL:       cfg.App.PublicURL,
		Events:          broker,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(api.RealIP(cfg.App.HTTP.TrustedPrefixes()))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsHandler(cfg.App.CORS).Handler)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := c.db.Ping(req.Context()); err != nil {
			logger.Error("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	if c.lib != nil && cfg.Library.Watch {
		g.Go(func() error {
			if err := c.lib.Watch(gCtx); err != nil {
				logger.Error("library watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
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

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the errgroup so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

func newApplication(opts []Option) *application {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

func corsHandler(cfg CORSConfig) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"Content-Type", "Authorization", api.PasswordHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})
}
