package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"productstudio/internal/app"
	"productstudio/internal/infra"
	"productstudio/internal/metrics"
	"productstudio/internal/storage"
)

func main() {
	_ = godotenv.Load(".env.local", ".env")

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	if cfg.StoreBackend == "memory" {
		logger.Fatal().Msg("worker: STORE_BACKEND=memory has nothing to clean up across processes")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to initialise services")
	}
	defer container.Close()

	logger.Info().Dur("interval", cfg.CleanupInterval).Dur("retention", cfg.TaskRetention).Msg("worker: started")
	runCleanupLoop(ctx, container.Store, cfg.CleanupInterval, cfg.TaskRetention, logger)
	logger.Info().Msg("worker: stopped")
}

// runCleanupLoop removes expired tasks immediately and then on every tick
// until ctx is cancelled.
func runCleanupLoop(ctx context.Context, store *storage.TaskStore, interval, retention time.Duration, logger infra.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		removed, err := store.CleanupOldTasks(ctx, retention)
		switch {
		case err != nil && ctx.Err() == nil:
			logger.Error().Err(err).Msg("worker: cleanup failed")
		case removed > 0:
			metrics.TasksCleaned.Add(float64(removed))
			logger.Info().Int("removed", removed).Msg("worker: cleanup complete")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
