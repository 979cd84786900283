package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tabeth/concreteoci/config"
	"github.com/tabeth/concreteoci/service"
	"github.com/tabeth/concreteoci/store"
	"github.com/tabeth/concreteoci/ttl"
)

func init() {
	middleware.RequestIDHeader = "Opc-Request-Id"
}

// NewRouter builds the chi router with middleware, service routes, /health and /metrics.
func NewRouter(app *App, metrics *Metrics, requestTimeout time.Duration) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestIDHeader)
	if app.Logger != nil {
		r.Use(RequestLogger(app.Logger))
	}
	r.Use(middleware.Recoverer)
	if metrics != nil {
		r.Use(metrics.Middleware)
	}
	r.Use(TimeoutMiddleware(requestTimeout))

	r.Get("/health", HealthHandler)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	app.RegisterNoSQLHandlers(r)
	app.RegisterObjectStorageHandlers(r)
	return r
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "concreteoci: %v\n", err)
		os.Exit(1)
	}

	// Define and parse the port flag; it overrides file and environment settings.
	port := flag.Int("port", cfg.Port, "Port for the HTTP server to listen on")
	flag.Parse()
	cfg.Port = *port

	level := new(slog.LevelVar)
	if err := setLevel(level, cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "concreteoci: %v\n", err)
		os.Exit(1)
	}
	logger, err := newLogger(os.Stdout, level, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "concreteoci: %v\n", err)
		os.Exit(1)
	}
	if path := os.Getenv(config.EnvConfigFile); path != "" {
		watcher, err := watchConfig(path, level, logger)
		if err != nil {
			logger.Warn("config file will not be watched", "path", path, "error", err)
		} else {
			defer watcher.Close()
		}
	}

	tableStore := store.NewMemoryStore()
	objectStore := store.NewMemoryObjectStore(cfg.Namespace)
	app := &App{
		Tables:  service.NewTableService(tableStore),
		Objects: service.NewObjectStorageService(objectStore),
		Logger:  logger,
	}
	metrics := NewMetrics(tableStore.Stats)

	// Start Background Jobs
	ttlWorker := ttl.NewTTLWorker(tableStore, cfg.TTLInterval, logger.With("component", "ttl"))
	ttlWorker.Start()
	defer ttlWorker.Stop()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: NewRouter(app, metrics, cfg.RequestTimeout),

		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", slog.Int("port", cfg.Port), slog.String("namespace", cfg.Namespace))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("could not start server", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
