// Command migrate creates the bridge mirror schema in the configured
// database. Safe to run repeatedly; existing tables are left alone.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/chainsafe/bridge-core/pkg/config"
	"github.com/chainsafe/bridge-core/pkg/store"
)

var configPath = flag.String("config", "config.yaml", "Path to configuration file")

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

	if !cfg.Database.Enabled() {
		logger.Fatal("No database configured; set database.host")
	}

	ctx := context.Background()
	db, err := store.Connect(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := store.CreateSchema(ctx, db); err != nil {
		logger.Fatal("Failed to create schema", zap.Error(err))
	}
	logger.Info("Schema created", zap.String("database", cfg.Database.Database))
}
