package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/chrissnell/rainevents/internal/log"
	"github.com/chrissnell/rainevents/internal/managers"
	"github.com/chrissnell/rainevents/internal/report"
	"github.com/chrissnell/rainevents/pkg/config"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// Run analyses every configured station. When serve is set, or the
// configuration has a rest section, it then serves the results until
// shutdown.
func (a *App) Run(ctx context.Context, serve bool) error {
	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	cfg.ApplyEnv()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	serve = serve || cfg.REST != nil

	var registry *report.Registry
	if serve {
		registry = report.NewRegistry()
	}

	storageManager, err := managers.NewStorageManager(cfg.Output, registry, a.logger)
	if err != nil {
		return err
	}
	defer storageManager.Close()

	sm := managers.NewStationManager(cfg, storageManager, a.logger)
	if err := sm.AnalyzeAll(ctx); err != nil {
		if !serve {
			return err
		}
		log.Errorf("serving partial results: %v", err)
	}

	if !serve {
		log.Infof("reports written to %s", cfg.Output.Dir)
		return nil
	}

	rc := config.RESTServerData{}
	if cfg.REST != nil {
		rc = *cfg.REST
	}
	return a.serve(ctx, rc, registry, storageManager)
}

// serve runs the results API and blocks until shutdown
func (a *App) serve(ctx context.Context, rc config.RESTServerData, registry *report.Registry, storageManager *managers.StorageManager) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cm, err := managers.NewControllerManager(ctx, &wg, rc, registry, storageManager, a.logger)
	if err != nil {
		return err
	}
	if err := cm.StartControllers(); err != nil {
		return err
	}

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}
