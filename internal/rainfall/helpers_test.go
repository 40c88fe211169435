package rainfall

import (
	"math"
	"time"
)

var seriesStart = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

// hourly builds one sample per hour starting at seriesStart
func hourly(depths ...float64) []Sample {
	samples := make([]Sample, len(depths))
	for i, d := range depths {
		samples[i] = Sample{Time: seriesStart.Add(time.Duration(i) * time.Hour), Depth: d}
	}
	return samples
}

func hour(n int) time.Time {
	return seriesStart.Add(time.Duration(n) * time.Hour)
}

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}
