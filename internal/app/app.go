// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the CLI commands.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/agdata/tractorcrawl/internal/config"
	"github.com/agdata/tractorcrawl/internal/logging"
	"github.com/agdata/tractorcrawl/internal/metrics"
)

// App holds the shared services built once at startup: the validated
// configuration and the logger. Commands construct their own domain
// components from these.
type App struct {
	cfg    config.Config
	logger *zap.Logger
}

// New loads configuration, builds the logger, and registers the metrics
// collectors. It fails fast if the configuration is unusable.
func New(cfgFile string) (*App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	metrics.Init()

	logger.Info("application services initialized",
		zap.Bool("development", cfg.Logging.Development),
		zap.String("level", cfg.Logging.Level))
	return &App{cfg: cfg, logger: logger}, nil
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Close flushes the logger buffer. Sync failures are ignored; stderr on
// most platforms is not syncable.
func (a *App) Close() {
	_ = a.logger.Sync()
}
