package restserver

import (
	"time"

	"github.com/chrissnell/rainevents/internal/rainfall"
	"github.com/chrissnell/rainevents/internal/storage/sqlite"
)

// StationRun is the summary of the latest run of one station
type StationRun struct {
	Station   string         `json:"station"`
	RunID     string         `json:"run_id"`
	Origin    string         `json:"origin"`
	CreatedAt time.Time      `json:"created_at"`
	Samples   int            `json:"samples"`
	Coerced   int            `json:"coerced_samples"`
	Events    int            `json:"events"`
	Params    ParamsResponse `json:"params"`
	Stats     rainfall.Stats `json:"stats"`
}

// ParamsResponse mirrors rainfall.Params with wire names
type ParamsResponse struct {
	RainfallThreshold   float64 `json:"rainfall_threshold"`
	CumulativeThreshold float64 `json:"cumulative_threshold"`
	DurationThreshold   float64 `json:"duration_threshold"`
	GapHours            int     `json:"gap_hours"`
	KeepTrailingGaps    bool    `json:"keep_trailing_gaps"`
}

// SampleResponse is one hourly reading of an event
type SampleResponse struct {
	Time       time.Time `json:"time"`
	Depth      float64   `json:"prcp"`
	Cumulative float64   `json:"cumulative"`
}

// EventResponse is a retained event with its raw and cumulative series.
// Curve is nil for degenerate events.
type EventResponse struct {
	Summary    rainfall.EventSummary `json:"summary"`
	Samples    []SampleResponse      `json:"samples"`
	Curve      *rainfall.Curve       `json:"curve,omitempty"`
	Degenerate bool                  `json:"degenerate"`
}

// ArchivedEventResponse is an archived event with its stored series
type ArchivedEventResponse struct {
	Summary rainfall.EventSummary `json:"summary"`
	Samples []sqlite.SampleRecord `json:"samples"`
}
