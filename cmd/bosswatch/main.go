// Command bosswatch runs the boss spawn dashboard and answers schedule queries.
//
// Usage:
//
//	bosswatch serve
//	bosswatch next
//	bosswatch upcoming --limit 5
//	bosswatch bosses --hour 9 --sort next-spawn
//	bosswatch profile export > profile.json
//	bosswatch profile import profile.json
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/noahxzhu/bosswatch/internal/config"
	"github.com/noahxzhu/bosswatch/internal/logging"
	"github.com/noahxzhu/bosswatch/internal/model"
	"github.com/noahxzhu/bosswatch/internal/offsets"
	"github.com/noahxzhu/bosswatch/internal/schedule"
	"github.com/noahxzhu/bosswatch/internal/storage"
)

var configPath string

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "bosswatch",
		Short:         "Boss spawn countdown and notifications",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "Config file")

	root.AddCommand(serveCmd())
	root.AddCommand(nextCmd())
	root.AddCommand(upcomingCmd())
	root.AddCommand(bossesCmd())
	root.AddCommand(profileCmd())

	if err := root.Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// env is what every command needs.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	bosses []model.Boss
}

func loadEnv() (*env, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	bosses, err := schedule.LoadFile(cfg.Schedule.File)
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	return &env{cfg: cfg, logger: logger, bosses: bosses}, nil
}

func (e *env) openStore(ctx context.Context) (*storage.Store, error) {
	var backend storage.Backend
	switch e.cfg.Storage.Backend {
	case config.BackendSQLite:
		b, err := storage.OpenSQLite(ctx, e.cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		backend = b
	default:
		backend = storage.NewFileBackend(e.cfg.Storage.Dir)
	}
	store := storage.NewStore(backend, storage.Options{Debounce: e.cfg.Storage.SaveDebounce, Logger: e.logger})
	if err := store.Load(); err != nil {
		return nil, err
	}
	if !store.Persistent() {
		e.logger.Warn("Profile storage unavailable, changes will not be saved")
	}
	return store, nil
}

func (e *env) newProvider() *offsets.Provider {
	return offsets.NewProvider(offsets.Config{
		Endpoint: e.cfg.Offsets.Endpoint,
		Timeout:  e.cfg.Offsets.Timeout,
		Retries:  e.cfg.Offsets.Retries,
	}, e.logger, nil)
}
