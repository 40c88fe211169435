package rainfall

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"go.uber.org/zap"
)

// Analysis is the complete result of one station run
type Analysis struct {
	Params     Params
	Samples    int
	Events     int            // events found before filtering
	Summaries  []EventSummary // all events
	Retained   []EventSeries  // events passing the thresholds, with their samples
	Curves     []Curve        // normalized curves of the non-degenerate retained events
	Degenerate []EventID      // retained events left out of the curves
}

// Stats summarises the retained events of an analysis
type Stats struct {
	RetainedEvents  int     `json:"retained_events"`
	TotalDepth      float64 `json:"total_rainfall_in"`
	MeanDepth       float64 `json:"mean_event_rainfall_in"`
	MaxDepth        float64 `json:"max_event_rainfall_in"`
	MeanDuration    float64 `json:"mean_duration_hr"`
	DegenerateCount int     `json:"degenerate_events"`
}

// Analyze runs segmentation, aggregation, filtering and normalization over a
// time-sorted sample slice. It has no side effects apart from logging.
func Analyze(samples []Sample, p Params, logger *zap.SugaredLogger) (*Analysis, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	assignment := SegmentParams(samples, p)

	summaries, err := Aggregate(samples, assignment)
	if err != nil {
		return nil, fmt.Errorf("aggregate events: %w", err)
	}

	filtered := Filter(summaries, p.CumulativeThreshold, p.DurationThreshold)

	retained := make([]EventSeries, 0, len(filtered))
	for _, s := range filtered {
		retained = append(retained, EventSeries{
			Summary: s,
			Samples: assignment.Samples(samples, s.EventID),
		})
	}

	curves, degenerate, err := NormalizeEvents(retained)
	if err != nil {
		return nil, fmt.Errorf("normalize events: %w", err)
	}

	if logger != nil {
		logger.Debugw("segmented rainfall series",
			"samples", len(samples),
			"events", len(summaries),
			"retained", len(retained))
		if len(degenerate) > 0 {
			logger.Warnw("degenerate events excluded from normalized output",
				"count", len(degenerate),
				"event_ids", degenerate)
		}
	}

	return &Analysis{
		Params:     p,
		Samples:    len(samples),
		Events:     len(summaries),
		Summaries:  summaries,
		Retained:   retained,
		Curves:     curves,
		Degenerate: degenerate,
	}, nil
}

// RetainedSummaries returns the summaries of the retained events
func (a *Analysis) RetainedSummaries() []EventSummary {
	out := make([]EventSummary, len(a.Retained))
	for i, ev := range a.Retained {
		out[i] = ev.Summary
	}
	return out
}

// NormalizedPoints returns the rounded comparison table across all curves
func (a *Analysis) NormalizedPoints() []NormalizedPoint {
	return FlattenCurves(a.Curves)
}

// Stats computes aggregate figures over the retained events
func (a *Analysis) Stats() Stats {
	st := Stats{
		RetainedEvents:  len(a.Retained),
		DegenerateCount: len(a.Degenerate),
	}
	if len(a.Retained) == 0 {
		return st
	}

	depths := make([]float64, len(a.Retained))
	durations := make([]float64, len(a.Retained))
	for i, ev := range a.Retained {
		depths[i] = ev.Summary.TotalDepth
		durations[i] = ev.Summary.DurationHours
	}

	st.TotalDepth = floats.Sum(depths)
	st.MeanDepth = stat.Mean(depths, nil)
	st.MaxDepth = floats.Max(depths)
	st.MeanDuration = stat.Mean(durations, nil)
	return st
}
