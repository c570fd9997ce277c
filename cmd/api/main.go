package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/userIssa/BLCKCHN-VRFCTN/internal/config"
	"github.com/userIssa/BLCKCHN-VRFCTN/internal/infra"
	"github.com/userIssa/BLCKCHN-VRFCTN/internal/logging"
	"github.com/userIssa/BLCKCHN-VRFCTN/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.AppName)
	logging.InstallSDKLogger(logger)

	ctx := context.Background()

	shutdownTracing, err := infra.NewTracerProvider(ctx, cfg.TraceEndpoint, cfg.AppName)
	if err != nil {
		logger.Error("init tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("shutdown tracing", "error", err)
		}
	}()

	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.AppName)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg.RedisURL, cfg.AppName)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	}

	store, err := infra.NewWalletStore(ctx, cfg, db)
	if err != nil {
		logger.Error("open wallet", "backend", cfg.Wallet.Backend, "error", err)
		os.Exit(1)
	}

	connector, err := infra.NewConnector(cfg, store, logger)
	if err != nil {
		logger.Error("configure gateway", "error", err)
		os.Exit(1)
	}

	srv, err := server.New(cfg, server.Options{DB: db, Cache: cache, Store: store, Connector: connector}, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "address", cfg.Address(), "channel", cfg.Fabric.Channel, "contract", cfg.Fabric.Contract)
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
