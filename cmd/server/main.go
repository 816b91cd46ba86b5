package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/06sarv/Parameter-Visualiser/internal/config"
	"github.com/06sarv/Parameter-Visualiser/internal/core"
	"github.com/06sarv/Parameter-Visualiser/internal/history"
	"github.com/06sarv/Parameter-Visualiser/internal/logging"
	"github.com/06sarv/Parameter-Visualiser/internal/store"
	"github.com/06sarv/Parameter-Visualiser/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_driver", cfg.Database.Driver,
		"history_backend", cfg.History.Backend,
		"history_size", cfg.History.Size,
	)

	ctx := context.Background()

	datasets, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open dataset store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	recent, err := openHistory(ctx, cfg)
	if err != nil {
		slog.Error("failed to open history index", "error", err)
		os.Exit(1)
	}

	service := core.NewService(datasets, recent)
	server := web.NewServer(service, cfg)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}

// openStore opens the configured dataset store and returns it with a
// cleanup func for main's defer.
func openStore(ctx context.Context, cfg *config.Config) (core.Store, func(), error) {
	switch cfg.Database.Driver {
	case "postgres":
		poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		poolConfig.MaxConns = int32(cfg.Database.MaxConns)
		poolConfig.MinConns = int32(cfg.Database.MinConns)

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}

		st, err := store.NewPostgres(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		slog.Info("connected to postgres dataset store")
		return st, pool.Close, nil

	default:
		st, err := store.OpenSQLite(cfg.Database.Path)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("opened sqlite dataset store", "path", cfg.Database.Path)
		return st, func() { _ = st.Close() }, nil
	}
}

// openHistory opens the configured history index.
func openHistory(ctx context.Context, cfg *config.Config) (core.History, error) {
	if cfg.History.Backend == "redis" {
		opts, err := redis.ParseURL(cfg.History.RedisURL)
		if err != nil {
			return nil, err
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		slog.Info("connected to redis history index")
		return history.NewRedis(client, cfg.History.Size), nil
	}
	return history.NewRing(cfg.History.Size), nil
}
