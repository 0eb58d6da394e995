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
	"golang.org/x/sync/errgroup"

	"github.com/starford/archiver/internal/api"
	"github.com/starford/archiver/internal/auth"
	"github.com/starford/archiver/internal/clock"
	"github.com/starford/archiver/internal/confwatch"
	"github.com/starford/archiver/internal/mcpserver"
	"github.com/starford/archiver/internal/registry"
	"github.com/starford/archiver/internal/sse"
	"github.com/starford/archiver/internal/store"
	pkgconfig "github.com/starford/archiver/pkg/config"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// NewLogger returns a JSON logger writing to w whose level follows level.
func NewLogger(w io.Writer, level *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewClock returns the logical clock named by cfg, continuing after the
// newest created_at already in the archive.
func NewClock(cfg ClockConfig, last uint64) (clock.Logical, error) {
	switch cfg.Mode {
	case ClockModeSequence:
		return clock.NewSequence(last), nil
	case ClockModeUnix:
		return clock.NewUnix(last), nil
	default:
		return nil, fmt.Errorf("unknown clock mode %q", cfg.Mode)
	}
}

// NewAuthenticator returns the HTTP authenticator named by cfg.
func NewAuthenticator(cfg AuthConfig) (auth.Authenticator, error) {
	switch cfg.Mode {
	case AuthModeDisabled, "":
		return auth.Disabled{Identity: auth.Identity(cfg.Identity)}, nil
	case AuthModeToken:
		return auth.StaticToken{Token: cfg.Token, Identity: auth.Identity(cfg.Identity)}, nil
	case AuthModeJWT:
		return auth.NewJWT([]byte(cfg.JWTSecret)), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}
}

// OpenRegistry opens the configured store and builds a registry over it.
// The caller owns the returned store and must close it.
func OpenRegistry(ctx context.Context, cfg *Config, logger *slog.Logger, sink registry.EventSink) (*registry.Registry, store.Store, error) {
	st, err := store.Open(ctx, cfg.Storage.StoreConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("init store: %w", err)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("read store stats: %w", err)
	}

	clk, err := NewClock(cfg.Clock, stats.LastCreatedAt)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	opts := []registry.Option{registry.WithLogger(logger)}
	if sink != nil {
		opts = append(opts, registry.WithSink(sink))
	}

	logger.Info("Store opened",
		slog.String("driver", cfg.Storage.Driver),
		slog.Int64("records", stats.Records),
		slog.Uint64("last_created_at", stats.LastCreatedAt))

	return registry.New(st, clk, opts...), st, nil
}

// reloadLogLevel re-reads the config file and applies its log level. Other
// settings need a restart.
func reloadLogLevel(path string, level *slog.LevelVar, logger *slog.Logger) confwatch.ReloadFunc {
	return func() error {
		cfg := NewDefaultConfig()
		if err := pkgconfig.Load(path, cfg); err != nil {
			return err
		}
		if prev := level.Level(); prev != cfg.App.LogLevel {
			level.Set(cfg.App.LogLevel)
			logger.Info("Log level changed",
				slog.String("from", prev.String()),
				slog.String("to", cfg.App.LogLevel.String()))
		}
		return nil
	}
}

// NewHandler assembles the HTTP handler: health probes at the root and the
// authenticated API, event stream included, under /api.
func NewHandler(reg *registry.Registry, authn auth.Authenticator, events http.Handler) http.Handler {
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
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		stats, err := reg.Stats(req.Context())
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprintf(w, `{"status":"unavailable","error":%q}`, err.Error())
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"ok","records":%d,"last_created_at":%d}`, stats.Records, stats.LastCreatedAt)
	})

	// Mount API routes under /api.
	r.Mount("/api", api.NewRouter(reg, authn, events))

	return r
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	out := app.logOutput
	if out == nil {
		out = os.Stdout
	}

	// Initialize structured JSON logger.
	level := new(slog.LevelVar)
	level.Set(cfg.App.LogLevel)
	logger := NewLogger(out, level)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("clock_mode", cfg.Clock.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(cfg.Events.KeepAlive)
	defer broker.Close()

	reg, st, err := OpenRegistry(ctx, cfg, logger, broker)
	if err != nil {
		return err
	}
	defer st.Close()

	authn, err := NewAuthenticator(cfg.Auth)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           NewHandler(reg, authn, broker),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Follow log level edits in the config file.
	if app.configPath != "" {
		g.Go(func() error {
			err := confwatch.Watch(gCtx, app.configPath, confwatch.DefaultDebounce, logger,
				reloadLogLevel(app.configPath, level, logger))
			if err != nil {
				logger.Warn("config watcher disabled", slog.String("error", err.Error()))
			}
			return nil
		})
	}

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
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Ends open event streams so Shutdown does not wait on them.
		broker.Close()

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

	logger.Info("Server stopped successfully", slog.Uint64("sse_dropped", broker.Dropped()))
	return nil
}

// errShutdown cancels the group so background watchers stop with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the archive over MCP on stdin/stdout until the client
// disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	out := app.logOutput
	if out == nil {
		out = os.Stderr
	}
	level := new(slog.LevelVar)
	level.Set(cfg.App.LogLevel)
	logger := NewLogger(out, level)
	slog.SetDefault(logger)

	reg, st, err := OpenRegistry(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	logger.Info("MCP server starting", slog.String("identity", cfg.MCP.Identity))
	return mcpserver.New(reg, auth.Identity(cfg.MCP.Identity), app.version).ServeStdio()
}
