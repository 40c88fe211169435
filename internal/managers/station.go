package managers

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/chrissnell/rainevents/internal/rainfall"
	"github.com/chrissnell/rainevents/internal/report"
	"github.com/chrissnell/rainevents/internal/source"
	"github.com/chrissnell/rainevents/pkg/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SourceFactory builds the source of a station
type SourceFactory func(config.StationData, *zap.SugaredLogger) (source.Source, error)

// StationManager runs the event analysis of every configured station
type StationManager struct {
	config    *config.ConfigData
	storage   *StorageManager
	logger    *zap.SugaredLogger
	newSource SourceFactory
}

// NewStationManager creates a StationManager writing through storage
func NewStationManager(cfg *config.ConfigData, storage *StorageManager, logger *zap.SugaredLogger) *StationManager {
	return &StationManager{
		config:    cfg,
		storage:   storage,
		logger:    logger,
		newSource: source.New,
	}
}

// AnalyzeAll processes the stations concurrently. Stations are independent:
// one failing does not stop the others. The first failure is returned once
// every station has finished.
func (m *StationManager) AnalyzeAll(ctx context.Context) error {
	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed []string
	)
	g.SetLimit(runtime.NumCPU())

	for _, st := range m.config.Stations {
		g.Go(func() error {
			if err := m.AnalyzeStation(ctx, st); err != nil {
				m.logger.Errorw("station analysis failed", "station", st.Name, "error", err)
				mu.Lock()
				failed = append(failed, st.Name)
				mu.Unlock()
				return fmt.Errorf("station %s: %w", st.Name, err)
			}
			return nil
		})
	}

	err := g.Wait()
	m.logger.Infof("analyzed %d stations, %d failed", len(m.config.Stations), len(failed))
	return err
}

// AnalyzeStation loads, analyses and stores one station. Nothing is written
// when loading or analysis fails.
func (m *StationManager) AnalyzeStation(ctx context.Context, st config.StationData) error {
	logger := m.logger.With("station", st.Name)

	src, err := m.newSource(st, logger)
	if err != nil {
		return err
	}
	defer src.Close()

	series, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading series: %w", err)
	}
	if series.Coerced > 0 {
		logger.Warnf("coerced %d unusable depth values to 0", series.Coerced)
	}

	params := AnalysisParams(m.config.StationAnalysis(st))
	a, err := rainfall.Analyze(series.Samples, params, logger)
	if err != nil {
		return fmt.Errorf("analyzing series: %w", err)
	}

	stats := a.Stats()
	logger.Infof("identified %d rainfall events", a.Events)
	logger.Infow("events retained",
		"retained", stats.RetainedEvents,
		"degenerate", stats.DegenerateCount,
		"total_rainfall_in", stats.TotalDepth,
		"max_event_rainfall_in", stats.MaxDepth,
	)

	run := report.NewRun(st.Name, series.Origin, series.Coerced, a)
	if err := m.storage.Write(ctx, run); err != nil {
		return fmt.Errorf("writing run: %w", err)
	}
	return nil
}

// AnalysisParams converts configured thresholds to engine parameters
func AnalysisParams(a config.AnalysisData) rainfall.Params {
	return rainfall.Params{
		RainfallThreshold:   a.RainfallThreshold,
		CumulativeThreshold: a.CumulativeThreshold,
		DurationThreshold:   a.DurationThreshold,
		GapHours:            a.GapHours,
		KeepTrailingGaps:    a.KeepTrailingGaps,
	}
}
