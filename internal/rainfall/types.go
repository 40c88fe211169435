package rainfall

import (
	"errors"
	"fmt"
	"time"
)

// Sample is a single hourly precipitation reading
type Sample struct {
	Time  time.Time
	Depth float64
}

// EventID identifies a rainfall event within one analysis run. Ids start at 1.
type EventID int

// NoEvent marks a sample that belongs to no event
const NoEvent EventID = 0

// Assignment maps each sample index to the event it belongs to
type Assignment []EventID

// EventSummary holds the aggregate statistics for one event
type EventSummary struct {
	EventID       EventID   `json:"event_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	DurationHours float64   `json:"duration_hr"`
	TotalDepth    float64   `json:"total_rainfall_in"`
}

// NormalizedPoint is one sample of an event's dimensionless cumulative curve
type NormalizedPoint struct {
	EventID                EventID `json:"event_id"`
	PercentDuration        float64 `json:"percent_duration"`
	PercentCumulativeDepth float64 `json:"percent_cumulative_rainfall"`
}

// Params are the thresholds that drive segmentation and filtering
type Params struct {
	RainfallThreshold   float64 // minimum depth for a wet hour
	CumulativeThreshold float64 // minimum event total depth
	DurationThreshold   float64 // minimum inclusive event duration, hours
	GapHours            int     // dry hours tolerated inside one event

	// KeepTrailingGaps attaches tolerated dry hours that follow an event's
	// last wet hour to the event, extending its duration.
	KeepTrailingGaps bool
}

// DefaultParams returns the thresholds used for inch-per-hour station data
func DefaultParams() Params {
	return Params{
		RainfallThreshold:   0.04,
		CumulativeThreshold: 2.85,
		DurationThreshold:   6,
		GapHours:            1,
	}
}

// Validate reports whether the parameters can drive an analysis
func (p Params) Validate() error {
	if p.GapHours < 0 {
		return fmt.Errorf("gap_hours must be >= 0, got %d", p.GapHours)
	}
	if p.RainfallThreshold < 0 {
		return fmt.Errorf("rainfall_threshold must be >= 0, got %g", p.RainfallThreshold)
	}
	return nil
}

var (
	// ErrEmptyEventGroup means an event id was allocated but no sample carries it
	ErrEmptyEventGroup = errors.New("event id has no samples")

	// ErrAssignmentLength means the assignment does not cover the sample slice
	ErrAssignmentLength = errors.New("assignment length does not match sample count")

	// ErrDegenerateEvent means an event has zero duration span or zero total depth
	// and cannot be expressed as a normalized curve
	ErrDegenerateEvent = errors.New("degenerate event")
)

// IsWet reports whether depth meets the wet-hour threshold
func IsWet(depth, threshold float64) bool {
	return depth >= threshold
}
