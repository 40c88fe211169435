package managers

import (
	"context"
	"errors"
	"fmt"

	"github.com/chrissnell/rainevents/internal/report"
	"github.com/chrissnell/rainevents/internal/storage/sqlite"
	"github.com/chrissnell/rainevents/pkg/config"
	"go.uber.org/zap"
)

// StorageManager holds our active report sinks
type StorageManager struct {
	Engines []StorageEngine
	archive *sqlite.Store
	logger  *zap.SugaredLogger
}

// StorageEngine is a named report sink
type StorageEngine struct {
	Name   string
	Engine report.Sink
}

// NewStorageManager creates a StorageManager populated with every configured
// sink. CSV output is always enabled; the SQLite archive only when a path is
// configured. registry may be nil when the API is not served.
func NewStorageManager(output config.OutputData, registry *report.Registry, logger *zap.SugaredLogger) (*StorageManager, error) {
	s := &StorageManager{logger: logger}

	s.AddEngine("csv", report.NewCSVWriter(output.Dir, logger))

	if output.SQLitePath != "" {
		store, err := sqlite.Open(output.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("could not add SQLite archive: %w", err)
		}
		s.archive = store
		s.AddEngine("sqlite", store)
	}

	if registry != nil {
		s.AddEngine("registry", registry)
	}

	return s, nil
}

// AddEngine adds a sink to the fan-out
func (s *StorageManager) AddEngine(name string, engine report.Sink) {
	s.Engines = append(s.Engines, StorageEngine{Name: name, Engine: engine})
}

// Archive returns the SQLite archive, or nil when none is configured
func (s *StorageManager) Archive() *sqlite.Store {
	return s.archive
}

// Write hands a run to every sink. A failing sink does not stop the others;
// all failures are returned together.
func (s *StorageManager) Write(ctx context.Context, run report.Run) error {
	var errs []error
	for _, e := range s.Engines {
		if err := e.Engine.Write(ctx, run); err != nil {
			s.logger.Errorw("sink failed", "sink", e.Name, "station", run.Station, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases the archive
func (s *StorageManager) Close() error {
	if s.archive != nil {
		return s.archive.Close()
	}
	return nil
}
