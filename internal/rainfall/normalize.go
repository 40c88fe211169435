package rainfall

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// displayPrecision is the number of decimals kept in emitted normalized points
const displayPrecision = 2

// CurvePoint is a full-precision sample of an event's cumulative curve
type CurvePoint struct {
	Time                   time.Time `json:"time"`
	Depth                  float64   `json:"prcp"`
	Cumulative             float64   `json:"cumulative"`
	PercentDuration        float64   `json:"percent_duration"`
	PercentCumulativeDepth float64   `json:"percent_cumulative_rainfall"`
}

// Curve is the normalized cumulative-rainfall curve of one event
type Curve struct {
	EventID EventID      `json:"event_id"`
	Samples []CurvePoint `json:"samples"`
}

// Cumulative returns the running depth total of samples, in order
func Cumulative(samples []Sample) []float64 {
	cum := make([]float64, len(samples))
	if len(samples) == 0 {
		return cum
	}
	depths := make([]float64, len(samples))
	for i, s := range samples {
		depths[i] = s.Depth
	}
	return floats.CumSum(cum, depths)
}

// Normalize rescales an event's elapsed time and cumulative depth to percent of
// the event's span and total. Events with a zero time span or zero total depth
// return ErrDegenerateEvent.
func Normalize(id EventID, samples []Sample) (Curve, error) {
	if len(samples) == 0 {
		return Curve{}, fmt.Errorf("event %d has no samples: %w", id, ErrDegenerateEvent)
	}

	first, last := samples[0].Time, samples[len(samples)-1].Time
	span := last.Sub(first)
	if span <= 0 {
		return Curve{}, fmt.Errorf("event %d has zero duration span: %w", id, ErrDegenerateEvent)
	}

	cum := Cumulative(samples)
	total := cum[len(cum)-1]
	if total == 0 {
		return Curve{}, fmt.Errorf("event %d has zero total depth: %w", id, ErrDegenerateEvent)
	}

	curve := Curve{
		EventID: id,
		Samples: make([]CurvePoint, len(samples)),
	}
	for i, s := range samples {
		curve.Samples[i] = CurvePoint{
			Time:                   s.Time,
			Depth:                  s.Depth,
			Cumulative:             cum[i],
			PercentDuration:        float64(s.Time.Sub(first)) / float64(span) * 100,
			PercentCumulativeDepth: cum[i] / total * 100,
		}
	}
	return curve, nil
}

// Points returns the curve rounded to display precision
func (c Curve) Points() []NormalizedPoint {
	points := make([]NormalizedPoint, len(c.Samples))
	for i, p := range c.Samples {
		points[i] = NormalizedPoint{
			EventID:                c.EventID,
			PercentDuration:        round(p.PercentDuration, displayPrecision),
			PercentCumulativeDepth: round(p.PercentCumulativeDepth, displayPrecision),
		}
	}
	return points
}

// EventSeries is the raw sample slice of one retained event
type EventSeries struct {
	Summary EventSummary
	Samples []Sample
}

// NormalizeEvents normalizes every event independently. Degenerate events are
// left out of the curves and their ids are returned separately; any other
// error aborts.
func NormalizeEvents(events []EventSeries) (curves []Curve, degenerate []EventID, err error) {
	curves = make([]Curve, 0, len(events))
	for _, ev := range events {
		curve, err := Normalize(ev.Summary.EventID, ev.Samples)
		if errors.Is(err, ErrDegenerateEvent) {
			degenerate = append(degenerate, ev.Summary.EventID)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		curves = append(curves, curve)
	}
	return curves, degenerate, nil
}

// FlattenCurves concatenates the rounded points of all curves, grouped by event
func FlattenCurves(curves []Curve) []NormalizedPoint {
	var points []NormalizedPoint
	for _, c := range curves {
		points = append(points, c.Points()...)
	}
	return points
}

// round keeps decimals places; exact halves go to the even neighbour
func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.RoundToEven(v*p) / p
}
