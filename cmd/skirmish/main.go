// Command skirmish fights one configured arena battle, logs the round-by-round
// results and optionally stores the battle in PostgreSQL.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/arena"
	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/inventory"
	"github.com/cory-johannsen/skirmish/internal/observability"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	root := flag.String("root", ".", "directory relative content paths are resolved against")
	seed := flag.Uint64("seed", 0, "override rng.seed; 0 keeps the configured seed")
	save := flag.Bool("save", false, "store the battle and its loot in PostgreSQL")
	resume := flag.String("resume", "", "ID of a stored battle to resume; implies -save")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *seed != 0 {
		cfg.RNG.Seed = *seed
	}
	cfg.Content = cfg.Content.WithRoot(*root)

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := initializeArena(&cfg, logger)
	if err != nil {
		logger.Fatal("building arena", zap.Error(err))
	}
	defer cleanup()

	var repo *postgres.BattleRepository
	if *save || *resume != "" {
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		if err := pool.Health(ctx, 5*time.Second); err != nil {
			logger.Fatal("database health check", zap.Error(err))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Int32("conns", pool.Usage().Total),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		repo = postgres.NewBattleRepository(pool.DB())
		a.SetStore(repo)
	}

	var rep arena.Report
	if *resume != "" {
		rec, getErr := repo.Get(ctx, *resume)
		if getErr != nil {
			logger.Fatal("loading battle", zap.String("battle", *resume), zap.Error(getErr))
		}
		rep, err = a.Resume(ctx, rec.Snapshot)
	} else {
		rep, err = a.Run(ctx)
	}
	if err != nil {
		logger.Error("battle interrupted", zap.Error(err))
	}

	fmt.Fprintf(os.Stdout, "%s after %d rounds (battle %s, %s seed %d) [%s]\n",
		rep.Outcome, rep.Rounds, rep.BattleID, rep.Algorithm, rep.Seed, time.Since(start))
	if len(rep.Survivors) > 0 {
		fmt.Fprintf(os.Stdout, "survivors: %v\n", rep.Survivors)
	}
	if rep.Loot.Currency > 0 || len(rep.Loot.Items) > 0 {
		fmt.Fprintf(os.Stdout, "loot: %s", inventory.FormatCoins(rep.Loot.Currency))
		for _, item := range rep.Loot.Items {
			fmt.Fprintf(os.Stdout, ", %s x%d", item.ItemDefID, item.Quantity)
		}
		fmt.Fprintln(os.Stdout)
	}
}
