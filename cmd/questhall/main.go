package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stonelantern/questhall/internal/config"
	"github.com/stonelantern/questhall/internal/database"
	"github.com/stonelantern/questhall/internal/logger"
	"github.com/stonelantern/questhall/internal/quest"
	"github.com/stonelantern/questhall/internal/server"
)

func main() {
	configFile := flag.String("config", "data/server.yaml", "Path to server config YAML file")
	loggingConfig := flag.String("logging", "data/logging.yaml", "Path to logging config YAML file")
	flag.Parse()

	logCfg, err := logger.LoadConfig(*loggingConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load logging config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Initialize(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Error("Failed to load server config", "path", *configFile, "error", err)
		os.Exit(1)
	}

	var db *database.Database
	switch cfg.Database.Dialect {
	case "postgres":
		db, err = database.OpenPostgres(cfg.Database.DSN)
	default:
		db, err = database.Open(cfg.Database.Path)
	}
	if err != nil {
		logger.Error("Failed to open database", "dialect", cfg.Database.Dialect, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()

	store := quest.NewStore(db)
	if err := store.Load(ctx); err != nil {
		logger.Error("Failed to load quest catalog", "error", err)
		os.Exit(1)
	}

	journal := quest.NewJournal()
	if records, err := db.LoadJournals(ctx); err != nil {
		logger.Error("Failed to load participant journals", "error", err)
		os.Exit(1)
	} else if err := journal.Import(records); err != nil {
		logger.Error("Failed to restore participant journals", "error", err)
		os.Exit(1)
	}
	journal.AttachSaver(db)

	// The gateway doubles as the event publisher, so it is built first
	// and bound to the engine once the engine exists.
	gateway := server.New(cfg)
	relay := server.NewEffectRelay(gateway)

	world := quest.Collaborators{
		Roster:        relay,
		Inventory:     relay,
		Currency:      relay,
		Experience:    relay,
		Reputation:    relay,
		Relationships: relay,
		Titles:        relay,
		Flags:         db,
		Handouts:      relay,
	}

	engine := quest.NewEngine(store, journal, world,
		quest.WithAbandonment(cfg.Features.AllowAbandon),
		quest.WithPublisher(gateway),
	)
	tracker := quest.NewTracker(engine)
	scheduler := quest.NewScheduler(engine)
	gateway.Bind(engine, tracker, scheduler)

	// Seed an empty catalog from authored content.
	if store.Count() == 0 && cfg.Content.QuestsDir != "" {
		if _, statErr := os.Stat(cfg.Content.QuestsDir); statErr == nil {
			catalog, loadErr := quest.LoadCatalogFromDirectory(cfg.Content.QuestsDir)
			if loadErr != nil {
				logger.Error("Failed to load quest content", "dir", cfg.Content.QuestsDir, "error", loadErr)
				os.Exit(1)
			}
			for _, q := range catalog.BuildQuests() {
				if _, createErr := engine.CreateQuest(ctx, q); createErr != nil {
					logger.Error("Failed to seed quest", "quest", q.ID, "error", createErr)
					os.Exit(1)
				}
			}
			logger.Info("Seeded quest catalog", "quests", store.Count())
		}
	}

	// Periodic repeatable-quest sweep.
	interval := time.Duration(cfg.Features.RepeatableCheckMinutes) * time.Minute
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	stopSweep := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := scheduler.CheckRepeatableQuests(ctx); err != nil {
					logger.Error("Repeatable sweep failed", "error", err)
				}
			case <-stopSweep:
				return
			}
		}
	}()

	go func() {
		if err := gateway.Start(); err != nil {
			logger.Error("Gateway stopped", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	close(stopSweep)

	// Final journal sweep; lifecycle operations already flush the actors
	// they touch, and the catalog is saved on every mutation.
	if err := journal.Flush(ctx); err != nil {
		logger.Error("Failed to flush journals", "error", err)
	}
	logger.Info("Shutdown complete")
}
