// Package app ties configuration loading, validation, hot reload and
// scheduling together for long-running operation.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ferralda/mailsift/internal/config"
	"github.com/ferralda/mailsift/internal/logger"
	"github.com/ferralda/mailsift/internal/run"
	"github.com/ferralda/mailsift/internal/scheduler"
	"github.com/ferralda/mailsift/internal/types"
	"github.com/ferralda/mailsift/internal/validation"
)

// App represents the main application
type App struct {
	logger    *slog.Logger
	scheduler *scheduler.Scheduler
	configs   []*types.Config
	configDir string
	configID  string
	watcher   *config.Watcher
	wg        sync.WaitGroup
}

// New creates a new application instance
func New(logger *slog.Logger, configDir string, configID string) (*App, error) {
	app := &App{
		logger:    logger,
		configDir: configDir,
		configID:  configID,
	}

	// Load initial configurations
	if err := config.LoadConfigs(configDir); err != nil {
		return nil, fmt.Errorf("failed to load configs: %w", err)
	}

	// Get configurations based on configID
	configs, err := app.selectConfigs()
	if err != nil {
		return nil, err
	}
	app.configs = configs

	for _, cfg := range app.configs {
		if err := validation.ValidateConfig(cfg); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", cfg.Meta.ID, err)
		}
	}

	// Initialize scheduler
	app.scheduler = scheduler.NewScheduler(logger)

	return app, nil
}

// RunOnce executes a single retrieval pass for every selected configuration
// and returns the first error encountered, after trying all configs.
func (a *App) RunOnce(ctx context.Context) error {
	var firstErr error
	for _, cfg := range a.configs {
		runner, err := run.New(ctx, cfg, logger.Setup(cfg))
		if err == nil {
			_, err = runner.Run(ctx)
		}
		if err != nil {
			a.logger.Error("run failed",
				"config_id", cfg.Meta.ID,
				"error", err,
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("run failed for config %s: %w", cfg.Meta.ID, err)
			}
		}
	}
	return firstErr
}

// Start starts all application services
func (a *App) Start() error {
	// Start configuration watcher
	watcher, err := config.StartWatcher(a.configDir, a.logger)
	if err != nil {
		return fmt.Errorf("failed to start config watcher: %w", err)
	}
	a.watcher = watcher

	// Start scheduler
	a.scheduler.Start()

	// Schedule jobs for initial configurations
	for _, cfg := range a.configs {
		if err := a.startServices(cfg); err != nil {
			return err
		}
	}

	// Watch for configuration changes
	a.wg.Add(1)
	go a.watchConfigs()

	return nil
}

// Stop gracefully stops all application services
func (a *App) Stop() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	a.wg.Wait()
}

func (a *App) selectConfigs() ([]*types.Config, error) {
	if a.configID != "" {
		cfg, err := config.GetConfig(a.configID)
		if err != nil {
			return nil, fmt.Errorf("failed to get config %s: %w", a.configID, err)
		}
		return []*types.Config{cfg}, nil
	}
	return config.GetEnabledConfigs(), nil
}

func (a *App) startServices(cfg *types.Config) error {
	// Update scheduler with configuration
	if err := a.scheduler.UpdateJob(cfg); err != nil {
		a.logger.Error("failed to update scheduler",
			"error", err,
			"id", cfg.Meta.ID,
		)
		return err
	}

	a.logger.Info("started services for configuration",
		"id", cfg.Meta.ID,
		"name", cfg.Meta.Name,
	)

	return nil
}

func (a *App) watchConfigs() {
	defer a.wg.Done()

	for range a.watcher.ReloadChan() {
		a.logger.Info("reloading services due to configuration change")

		newConfigs, err := a.selectConfigs()
		if err != nil {
			a.logger.Error("failed to get updated configs", "error", err)
			continue
		}
		a.configs = newConfigs

		// Update services with new configurations
		for _, cfg := range newConfigs {
			if err := validation.ValidateConfig(cfg); err != nil {
				a.logger.Error("skipping invalid config after reload",
					"config_id", cfg.Meta.ID,
					"error", err,
				)
				continue
			}
			if err := a.startServices(cfg); err != nil {
				a.logger.Error("failed to update services",
					"config_id", cfg.Meta.ID,
					"error", err,
				)
			}
		}
	}
}
