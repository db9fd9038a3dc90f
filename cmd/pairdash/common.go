package main

import (
	"context"
	"fmt"

	"github.com/newthinker/pairdash/internal/app"
	"github.com/newthinker/pairdash/internal/config"
	"github.com/newthinker/pairdash/internal/logger"
	"go.uber.org/zap"
)

// loadConfig reads --config, or defaults plus environment when unset.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	lc := logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		Encoding:    cfg.Log.Encoding,
	}
	if debug {
		lc.Level = "debug"
		lc.Development = true
	}
	return logger.New(lc)
}

// withApp builds the app on the persisted store, restores the saved session
// and runs fn against it.
func withApp(fn func(ctx context.Context, a *app.App, log *zap.Logger) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if err := a.Restore(ctx); err != nil {
		return err
	}
	return fn(ctx, a, log)
}
