// Package main is the entry point for the Sin & Grace game server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/MRamiBalles/SinAndGrace/server/internal/api"
	"github.com/MRamiBalles/SinAndGrace/server/internal/infra/cache"
	"github.com/MRamiBalles/SinAndGrace/server/internal/infra/storage"
	"github.com/MRamiBalles/SinAndGrace/server/internal/network"
	"github.com/MRamiBalles/SinAndGrace/server/internal/platform/config"
	"github.com/MRamiBalles/SinAndGrace/server/internal/platform/logger"
	"github.com/MRamiBalles/SinAndGrace/server/internal/platform/metrics"
	"github.com/MRamiBalles/SinAndGrace/server/internal/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "sinandgrace-server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadServer()
	if err != nil {
		return err
	}
	appLogger := logger.New(os.Stdout, cfg.LogLevel)
	appLogger.Info("Initializing 'Sin & Grace' authoritative server...")

	rules, err := config.LoadRules()
	if err != nil {
		return err
	}
	cat, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}
	tuning, err := config.TuningFor(cfg.TuningProfile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, eventRepo, snapRepo, err := openStorage(ctx, cfg, tuning, appLogger)
	if err != nil {
		return err
	}
	defer db.Close()

	collector := metrics.Get()
	snapshots := cache.NewSnapshotCache(cfg.SnapshotCacheSize, cfg.SnapshotCacheTTL)
	collector.CacheStats = snapshots.Stats

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(appLogger, collector, tuning.BroadcastBuffer)
	go hub.Run(ctx)

	appLogger.Info("Bootstrapping session manager...")
	manager := session.NewManager(session.Deps{
		Rules:       rules,
		Catalog:     cat,
		Events:      eventRepo,
		Snapshots:   snapRepo,
		Cache:       snapshots,
		Metrics:     collector,
		Logger:      appLogger,
		Broadcaster: hub,
	}, session.Settings{
		TickInterval:   cfg.TickInterval,
		BroadcastEvery: cfg.BroadcastEvery,
		CommandBuffer:  tuning.CommandBuffer,
		MaxLobbies:     tuning.MaxLobbies,
	})

	server := api.NewServer(api.Deps{
		Manager: manager,
		Hub:     hub,
		Events:  eventRepo,
		Cache:   snapshots,
		Metrics: collector,
		Logger:  appLogger,
		WS: network.Options{
			Rate:       rate.Limit(cfg.ClientRate),
			Burst:      cfg.ClientBurst,
			SendBuffer: tuning.ClientSendBuffer,
			MaxClients: tuning.MaxClientsPerLobby,
		},
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		appLogger.Info("HTTP API & WS server listening on " + cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	appLogger.Info("Shutting down...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Err(err, "HTTP shutdown failed")
	}
	manager.Shutdown()
	cancel()
	return nil
}

func openStorage(ctx context.Context, cfg config.Server, tuning config.Tuning, log *logger.Logger) (*sql.DB, storage.EventRepository, storage.SnapshotRepository, error) {
	switch cfg.DBDriver {
	case "postgres":
		log.Info("Connecting to PostgreSQL...")
		db, err := storage.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		db.SetMaxOpenConns(tuning.DBMaxOpenConns)
		db.SetMaxIdleConns(tuning.DBMaxIdleConns)
		return db, storage.NewPostgresEventRepository(db), storage.NewPostgresSnapshotRepository(db), nil
	default:
		log.Info(fmt.Sprintf("Initializing SQLite database '%s'...", cfg.DBPath))
		db, err := storage.InitSQLite(cfg.DBPath)
		if err != nil {
			return nil, nil, nil, err
		}
		return db, storage.NewSQLiteEventRepository(db), storage.NewSQLiteSnapshotRepository(db), nil
	}
}
