package rainfall

import (
	"errors"
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	// 5 hour event: cumulative 0.5, 0.5, 1.5, 2.0, 2.0 of 2.0
	samples := hourly(0.5, 0, 1.0, 0.5, 0)

	curve, err := Normalize(7, samples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedDuration := []float64{0, 25, 50, 75, 100}
	expectedDepth := []float64{25, 25, 75, 100, 100}
	expectedCumulative := []float64{0.5, 0.5, 1.5, 2.0, 2.0}

	points := curve.Points()
	if len(points) != len(samples) {
		t.Fatalf("expected %d points, got %d", len(samples), len(points))
	}
	for i, p := range points {
		if p.EventID != 7 {
			t.Errorf("point %d: expected event 7, got %d", i, p.EventID)
		}
		if !almostEqual(p.PercentDuration, expectedDuration[i], 1e-9) {
			t.Errorf("point %d: expected duration %.2f%%, got %.2f%%", i, expectedDuration[i], p.PercentDuration)
		}
		if !almostEqual(p.PercentCumulativeDepth, expectedDepth[i], 1e-9) {
			t.Errorf("point %d: expected depth %.2f%%, got %.2f%%", i, expectedDepth[i], p.PercentCumulativeDepth)
		}
		if !almostEqual(curve.Samples[i].Cumulative, expectedCumulative[i], 1e-9) {
			t.Errorf("point %d: expected cumulative %.2f, got %.4f", i, expectedCumulative[i], curve.Samples[i].Cumulative)
		}
	}
}

func TestRoundHalfToEven(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.125, 0.12},
		{0.375, 0.38},
		{12.5, 12.5},
		{33.333333, 33.33},
		{66.666666, 66.67},
		{100, 100},
	}

	for _, tt := range tests {
		if got := round(tt.in, displayPrecision); got != tt.want {
			t.Errorf("round(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeRounding(t *testing.T) {
	// 4 samples: durations 0, 33.33.., 66.66.., 100
	samples := hourly(1, 1, 1, 1)

	curve, err := Normalize(1, samples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := curve.Samples[1].PercentDuration; almostEqual(got, 33.33, 1e-6) {
		t.Errorf("full precision curve should not be rounded, got %v", got)
	}

	points := curve.Points()
	if points[1].PercentDuration != 33.33 || points[2].PercentDuration != 66.67 {
		t.Errorf("expected rounded durations 33.33 and 66.67, got %v and %v", points[1].PercentDuration, points[2].PercentDuration)
	}
}

func TestNormalizeBounds(t *testing.T) {
	samples := hourly(0.2, 0.7, 0, 0.05, 1.3, 0.4, 0.09)
	curve, err := Normalize(1, samples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	points := curve.Points()
	first, last := points[0], points[len(points)-1]
	if first.PercentDuration != 0 {
		t.Errorf("expected first percent duration 0, got %v", first.PercentDuration)
	}
	if last.PercentDuration != 100 || last.PercentCumulativeDepth != 100 {
		t.Errorf("expected last point at 100/100, got %v/%v", last.PercentDuration, last.PercentCumulativeDepth)
	}

	for i := 1; i < len(points); i++ {
		if points[i].PercentDuration < points[i-1].PercentDuration {
			t.Errorf("percent duration decreased at %d", i)
		}
		if points[i].PercentCumulativeDepth < points[i-1].PercentCumulativeDepth {
			t.Errorf("percent cumulative depth decreased at %d", i)
		}
		if points[i].PercentCumulativeDepth > 100 {
			t.Errorf("percent cumulative depth above 100 at %d", i)
		}
	}
}

func TestNormalizeDegenerate(t *testing.T) {
	tests := []struct {
		name    string
		samples []Sample
	}{
		{name: "no samples", samples: nil},
		{name: "single sample", samples: hourly(0.4)},
		{name: "shared timestamp", samples: []Sample{{Time: hour(0), Depth: 0.2}, {Time: hour(0), Depth: 0.3}}},
		{name: "zero total depth", samples: hourly(0, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(1, tt.samples)
			if !errors.Is(err, ErrDegenerateEvent) {
				t.Errorf("expected ErrDegenerateEvent, got %v", err)
			}
		})
	}
}

func TestNormalizeEvents(t *testing.T) {
	events := []EventSeries{
		{Summary: EventSummary{EventID: 1}, Samples: hourly(0.1, 0.3)},
		{Summary: EventSummary{EventID: 2}, Samples: hourly(0.4)},
		{Summary: EventSummary{EventID: 3}, Samples: []Sample{
			{Time: hour(10), Depth: 0.2},
			{Time: hour(10).Add(30 * time.Minute), Depth: 0.2},
			{Time: hour(11), Depth: 0.0},
		}},
	}

	curves, degenerate, err := NormalizeEvents(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(curves) != 2 {
		t.Fatalf("expected 2 curves, got %d", len(curves))
	}
	if len(degenerate) != 1 || degenerate[0] != 2 {
		t.Errorf("expected event 2 to be degenerate, got %v", degenerate)
	}

	points := FlattenCurves(curves)
	if len(points) != 5 {
		t.Fatalf("expected 5 points, got %d", len(points))
	}
	if points[0].EventID != 1 || points[2].EventID != 3 {
		t.Errorf("points not grouped by event: %+v", points)
	}
	if points[3].PercentDuration != 50 || points[3].PercentCumulativeDepth != 100 {
		t.Errorf("expected half-hour sample at 50%%/100%%, got %v/%v", points[3].PercentDuration, points[3].PercentCumulativeDepth)
	}
}

func TestCumulative(t *testing.T) {
	cum := Cumulative(hourly(0.1, 0.2, 0, 0.3))
	expected := []float64{0.1, 0.3, 0.3, 0.6}
	for i := range expected {
		if !almostEqual(cum[i], expected[i], 1e-9) {
			t.Errorf("index %d: expected %.2f, got %.4f", i, expected[i], cum[i])
		}
	}

	if got := Cumulative(nil); len(got) != 0 {
		t.Errorf("expected empty cumulative series, got %v", got)
	}
}
