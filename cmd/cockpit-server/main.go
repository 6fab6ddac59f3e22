// The cockpit server answers the Event Engine Cockpit UI's read requests:
// the message box schema, aggregate lists, aggregate state and aggregate
// event histories, all served over HTTP from Postgres.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/event-engine/cockpit-backend-go/cockpit"
	"github.com/event-engine/cockpit-backend-go/cockpit/httpapi"
	"github.com/event-engine/cockpit-backend-go/cockpit/oteladapters"
	"github.com/event-engine/cockpit-backend-go/cockpit/postgresengine"
	"github.com/event-engine/cockpit-backend-go/config"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("cockpit server failed: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger := buildLogger(cfg)

	compiledConfig, err := loadMessageBox(cfg.MessageBoxPath)
	if err != nil {
		return fmt.Errorf("load message box: %w", err)
	}

	engine, cleanup, err := buildEngine(ctx, cfg, compiledConfig, logger)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer cleanup()

	api, err := httpapi.NewAPI(compiledConfig, engine, engine, httpapi.WithContextualLogger(logger))
	if err != nil {
		return fmt.Errorf("build api: %w", err)
	}

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	serverDone := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "cockpit server listening", "addr", cfg.HTTPAddr)
		serverDone <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.InfoContext(context.Background(), "shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
		defer cancel()

		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			return fmt.Errorf("shutdown http server: %w", shutdownErr)
		}

		<-serverDone

		return nil

	case serveErr := <-serverDone:
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", serveErr)
		}

		return nil
	}
}

func buildLogger(cfg config.Config) *oteladapters.SlogBridgeLogger {
	level := slog.LevelInfo
	if parseErr := level.UnmarshalText([]byte(cfg.LogLevel)); parseErr != nil {
		level = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})

	return oteladapters.NewSlogBridgeLoggerWithHandler(handler)
}

func loadMessageBox(path string) (cockpit.CompiledConfig, error) {
	file, openErr := os.Open(path)
	if openErr != nil {
		return cockpit.CompiledConfig{}, openErr
	}
	defer func() { _ = file.Close() }()

	return cockpit.DecodeCompiledConfig(file)
}

func buildEngine(
	ctx context.Context,
	cfg config.Config,
	compiledConfig cockpit.CompiledConfig,
	logger cockpit.ContextualLogger,
) (postgresengine.Engine, func(), error) {

	noop := func() {}

	switch cfg.AdapterType {
	case config.AdapterPGX:
		return buildPGXEngine(ctx, cfg, compiledConfig, logger)

	case config.AdapterSQL:
		db, openErr := config.OpenSQLDB(cfg.DatabaseURL)
		if openErr != nil {
			return postgresengine.Engine{}, noop, openErr
		}

		engine, engineErr := postgresengine.NewEngineFromSQLDB(
			db, compiledConfig.AggregateDescriptions, postgresengine.WithContextualLogger(logger))
		if engineErr != nil {
			_ = db.Close()
			return postgresengine.Engine{}, noop, engineErr
		}

		return engine, func() { _ = db.Close() }, nil

	case config.AdapterSQLX:
		db, openErr := config.OpenSQLX(cfg.DatabaseURL)
		if openErr != nil {
			return postgresengine.Engine{}, noop, openErr
		}

		engine, engineErr := postgresengine.NewEngineFromSQLX(
			db, compiledConfig.AggregateDescriptions, postgresengine.WithContextualLogger(logger))
		if engineErr != nil {
			_ = db.Close()
			return postgresengine.Engine{}, noop, engineErr
		}

		return engine, func() { _ = db.Close() }, nil
	}

	return postgresengine.Engine{}, noop, fmt.Errorf("unsupported adapter type: %s", cfg.AdapterType)
}

// buildPGXEngine builds the pgx-backed engine, sending reads to a replica
// pool when one is configured.
func buildPGXEngine(
	ctx context.Context,
	cfg config.Config,
	compiledConfig cockpit.CompiledConfig,
	logger cockpit.ContextualLogger,
) (postgresengine.Engine, func(), error) {

	noop := func() {}

	pool, poolErr := openPGXPool(ctx, cfg.DatabaseURL)
	if poolErr != nil {
		return postgresengine.Engine{}, noop, poolErr
	}

	if !cfg.HasReplica() {
		engine, engineErr := postgresengine.NewEngineFromPGXPool(
			pool, compiledConfig.AggregateDescriptions, postgresengine.WithContextualLogger(logger))
		if engineErr != nil {
			pool.Close()
			return postgresengine.Engine{}, noop, engineErr
		}

		return engine, pool.Close, nil
	}

	replica, replicaErr := openPGXPool(ctx, cfg.ReplicaDatabaseURL)
	if replicaErr != nil {
		pool.Close()
		return postgresengine.Engine{}, noop, replicaErr
	}

	cleanup := func() {
		replica.Close()
		pool.Close()
	}

	engine, engineErr := postgresengine.NewEngineFromPGXPoolWithReplica(
		pool, replica, compiledConfig.AggregateDescriptions, postgresengine.WithContextualLogger(logger))
	if engineErr != nil {
		cleanup()
		return postgresengine.Engine{}, noop, engineErr
	}

	return engine, cleanup, nil
}

func openPGXPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, configErr := config.PostgresPGXPoolConfig(databaseURL)
	if configErr != nil {
		return nil, configErr
	}

	return pgxpool.NewWithConfig(ctx, poolConfig)
}
