package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/neexbeast/city-infos/internal/api"
	"github.com/neexbeast/city-infos/internal/cache"
	"github.com/neexbeast/city-infos/internal/cities"
	"github.com/neexbeast/city-infos/internal/recipes"
)

// snapshotCache is what both cache backends offer the server.
type snapshotCache interface {
	Get(ctx context.Context, cityID string) (*cities.Snapshot, error)
	Set(ctx context.Context, cityID string, snap *cities.Snapshot) error
	Delete(ctx context.Context, cityID string) error
	Ping(ctx context.Context) error
}

func main() {
	// A missing .env is fine; the environment may already be populated.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("loading .env", "err", err)
		os.Exit(1)
	}

	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config, log *slog.Logger) error {
	ctx := context.Background()

	var snapshots snapshotCache
	if cfg.RedisURL != "" {
		redisClient, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer func() { _ = redisClient.Close() }()
		snapshots = cache.NewRedis(redisClient, cfg.CacheTTL)
		log.Info("using redis snapshot cache", "ttl", cfg.CacheTTL.String())
	} else {
		snapshots = cache.NewMemory(cfg.CacheTTL)
		log.Info("using in-memory snapshot cache", "ttl", cfg.CacheTTL.String())
	}

	// Wire dependencies.
	client := cities.NewClientWithURL(cfg.CitiesAPIURL, cfg.APIKey, cfg.UpstreamTimeout)
	store := recipes.NewStore()
	aggregator := cities.NewAggregator(client, snapshots, store, log, cities.WithLocation(cfg.Location))
	handlers := api.NewHandlers(aggregator, aggregator, store, log)
	router := api.NewRouter(handlers, snapshots, log)

	srv := &http.Server{
		Addr:              cfg.addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.UpstreamTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("server goroutine panicked", "recover", r)
				errCh <- fmt.Errorf("server panicked: %v", r)
			}
		}()
		log.Info("server starting",
			"addr", srv.Addr,
			"upstream", cfg.CitiesAPIURL,
			"timezone", cfg.Location.String(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listening: %w", err)
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server shut down cleanly")
	return nil
}
