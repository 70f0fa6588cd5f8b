package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/chainsafe/bridge-core/pkg/api"
	apphttp "github.com/chainsafe/bridge-core/pkg/app/http"
	"github.com/chainsafe/bridge-core/pkg/bridge"
	"github.com/chainsafe/bridge-core/pkg/config"
	"github.com/chainsafe/bridge-core/pkg/store"
)

var (
	configPath     = flag.String("config", "config.yaml", "Path to configuration file")
	mirrorInterval = flag.Duration("mirror-interval", 15*time.Second, "Interval between database mirror syncs")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting bridge node")

	core, err := bridge.NewCore(cfg.Bridge.Genesis(), logger)
	if err != nil {
		logger.Fatal("Failed to initialize bridge core", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The database mirror is optional; without it the node runs purely
	// in memory.
	if cfg.Database.Enabled() {
		db, err := store.Connect(ctx, &cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := store.CreateSchema(ctx, db); err != nil {
			logger.Fatal("Failed to create database schema", zap.Error(err))
		}
		logger.Info("Database mirror enabled", zap.Duration("interval", *mirrorInterval))

		mirror := store.NewMirror(db, logger)
		go mirror.Run(ctx, core, *mirrorInterval)
	}

	router := api.NewHandler(core, logger).Router()
	if cfg.Monitoring.Enabled {
		router.Handle("/metrics", promhttp.Handler())
		logger.Info("Metrics enabled")
	}

	if err := apphttp.ServeAndWait(ctx, router, logger, &cfg.Server); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
