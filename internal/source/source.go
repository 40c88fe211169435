// Package source loads hourly precipitation series for the event analysis.
package source

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/chrissnell/rainevents/internal/rainfall"
	"github.com/chrissnell/rainevents/pkg/config"
	"go.uber.org/zap"
)

// ErrMalformedSample is returned when a row's timestamp cannot be parsed
var ErrMalformedSample = errors.New("malformed sample")

// MalformedSampleError locates an unparseable timestamp in the input
type MalformedSampleError struct {
	Origin string
	Line   int
	Value  string
	Err    error
}

func (e *MalformedSampleError) Error() string {
	return fmt.Sprintf("%s line %d: unparseable timestamp %q: %v", e.Origin, e.Line, e.Value, e.Err)
}

// Unwrap lets errors.Is match ErrMalformedSample
func (e *MalformedSampleError) Unwrap() error {
	return ErrMalformedSample
}

// Series is a time-sorted precipitation series ready for segmentation
type Series struct {
	Origin  string
	Samples []rainfall.Sample

	// Coerced counts depth values that were missing, non-numeric or negative
	Coerced int
}

// Source supplies the precipitation series of one station
type Source interface {
	Load(ctx context.Context) (*Series, error)
	Close() error
}

// New builds the source configured for a station
func New(station config.StationData, logger *zap.SugaredLogger) (Source, error) {
	switch station.Source {
	case config.SourceCSV:
		if station.CSV == nil {
			return nil, fmt.Errorf("station %s: no csv settings", station.Name)
		}
		return NewCSV(*station.CSV, logger)
	case config.SourceTimescaleDB:
		if station.TimescaleDB == nil {
			return nil, fmt.Errorf("station %s: no timescaledb settings", station.Name)
		}
		return NewTimescaleDB(*station.TimescaleDB, logger)
	default:
		return nil, fmt.Errorf("station %s: unsupported source type %q", station.Name, station.Source)
	}
}

// coerceDepth maps missing or unusable depths to zero
func coerceDepth(v float64, ok bool) (float64, bool) {
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, true
	}
	return v, false
}

// sortSamples orders samples by time, keeping input order for equal timestamps
func sortSamples(samples []rainfall.Sample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Time.Before(samples[j].Time)
	})
}
