package rainfall

// Filter keeps the events whose total depth and duration meet both thresholds.
// Both bounds are inclusive and the input order is preserved.
func Filter(summaries []EventSummary, cumulativeThreshold, durationThreshold float64) []EventSummary {
	retained := make([]EventSummary, 0, len(summaries))
	for _, s := range summaries {
		if s.TotalDepth >= cumulativeThreshold && s.DurationHours >= durationThreshold {
			retained = append(retained, s)
		}
	}
	return retained
}
