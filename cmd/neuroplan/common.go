package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/metalagman/neuroplan/internal/config"
	"github.com/metalagman/neuroplan/internal/db"
	"github.com/metalagman/neuroplan/internal/jsonstore"
	"github.com/metalagman/neuroplan/internal/org"
	"github.com/metalagman/neuroplan/internal/remind"
	"github.com/metalagman/neuroplan/internal/task"
)

func loadConfig() (config.Config, error) {
	defaults := config.Default()
	viper.SetDefault("data_dir", defaults.DataDir)
	viper.SetDefault("storage", defaults.Storage)
	viper.SetDefault("check_interval", defaults.CheckInterval.String())
	viper.SetDefault("reminders.lead_minutes", defaults.Reminders.LeadMinutes)
	viper.SetDefault("reminders.persist", defaults.Reminders.Persist)
	viper.SetDefault("web.addr", defaults.Web.Addr)

	if err := viper.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			return config.Config{}, fmt.Errorf("read config: %w", err)
		}
		// Missing config file: run on defaults.
	}
	if err := config.ValidateSettings(viper.AllSettings()); err != nil {
		return config.Config{}, err
	}

	var cfg config.Config
	if err := viper.Unmarshal(&cfg, viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc())); err != nil {
		return config.Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func openManager() (*task.Manager, error) {
	var storage task.Storage
	switch cfg.Storage {
	case config.StorageJSON:
		storage = jsonstore.NewStore(filepath.Join(cfg.DataDir, "tasks.json"))
	case config.StorageOrg, "":
		store, err := org.NewStore(filepath.Join(cfg.DataDir, "org"))
		if err != nil {
			return nil, err
		}
		storage = store
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
	return task.NewManager(storage)
}

func openLedger() (remind.Ledger, func(), error) {
	if !cfg.Reminders.Persist {
		return remind.NewMemoryLedger(), func() {}, nil
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	handle, err := db.Open(filepath.Join(cfg.DataDir, "neuroplan.db"))
	if err != nil {
		return nil, nil, err
	}
	return db.NewLedger(handle), func() { _ = handle.Close() }, nil
}
