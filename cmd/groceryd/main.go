package main

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

	"github.com/SherClockHolmes/webpush-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"family-groceries/config"
	"family-groceries/internal/api"
	"family-groceries/internal/app"
	"family-groceries/internal/logger"
	"family-groceries/internal/metrics"
	"family-groceries/internal/notification"
	"family-groceries/internal/session"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, configPath, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		return 1
	}
	log := logger.SetupDefault(os.Stdout, cfg.Log.Level)
	log.Info("configuration loaded", "path", configPath, "driver", cfg.Database.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := app.NewBackend(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize backend", "error", err)
		return 1
	}
	defer backend.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewCollector(reg)

	var (
		webpushOptions *webpush.Options
		announcer      session.Announcer
	)
	if cfg.Push.Enabled {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, backend.Store, webpushOptions, log, rec)
		pool.Start(ctx)
		announcer = pool
		log.Info("push notifications enabled", "workers", cfg.WorkerPool.Size)
	}

	manager := session.NewManager(ctx, backend.SessionDeps(announcer, rec), session.OptionsFromConfig(cfg), cfg.Server.SessionIdle)
	defer manager.Shutdown()

	handler := api.NewHandler(manager, backend.Store, backend.Ranker, webpushOptions, cfg.List.SuggestionLimit)
	router := api.NewRouter(handler, api.RouterOptions{
		RateLimit: rate.Limit(cfg.Server.RateLimitPerSec),
		Burst:     cfg.Server.RateLimitBurst,
		CacheTTL:  cfg.Server.CacheTTL,
		Gatherer:  reg,
	})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, stopping services")
	case err := <-serveErr:
		if err != nil {
			log.Error("HTTP server stopped", "error", err)
			return 1
		}
	}

	// Open event streams end when their sessions close.
	manager.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown", "error", err)
		return 1
	}

	log.Info("server gracefully stopped")
	return 0
}

// loadConfig reads CONFIG_PATH, falling back to defaults when the file does
// not exist.
func loadConfig() (*config.Config, string, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("config file not found, using defaults", "path", configPath)
		return config.Default(), configPath, nil
	}
	return cfg, configPath, err
}
