// Command migrate applies or rolls back the battle store schema.
package main

import (
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/observability"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	dir := flag.String("dir", "migrations", "directory holding the SQL migrations")
	direction := flag.String("direction", "up", "up or down")
	steps := flag.Int("steps", 0, "number of migrations to apply; 0 applies all")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	if *direction != "up" && *direction != "down" {
		logger.Fatal("invalid direction", zap.String("direction", *direction))
	}

	res, err := postgres.Migrate(cfg.Database.DSN(), *dir, *direction == "down", *steps)
	if err != nil {
		logger.Fatal("migration failed",
			zap.String("direction", *direction),
			zap.String("dir", *dir),
			zap.Error(err),
		)
	}
	logger.Info("schema migrated",
		zap.String("direction", *direction),
		zap.Bool("changed", res.Changed),
		zap.Uint("version", res.Version),
		zap.Bool("dirty", res.Dirty),
		zap.Duration("elapsed", time.Since(start)),
	)
}
