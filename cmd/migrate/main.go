// Command migrate applies the embedded SQL schema to the configured
// database and exits.
package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"innotour.org/internal/config"
	"innotour.org/internal/migrate"
	"innotour.org/internal/obs"
)

func main() {
	cfg := config.Load()
	log := obs.InitLogger(cfg.Development())
	defer log.Sync()

	if cfg.DatabaseURL == "" {
		log.Fatal("INNOTOUR_PG_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := migrate.Up(ctx, cfg.DatabaseURL); err != nil {
		log.Fatal("apply migrations", zap.Error(err))
	}
	log.Info("migrations applied")
}
