package rainfall

import "testing"

func TestFilter(t *testing.T) {
	summaries := []EventSummary{
		{EventID: 1, DurationHours: 6, TotalDepth: 2.85},
		{EventID: 2, DurationHours: 5, TotalDepth: 4.00},
		{EventID: 3, DurationHours: 12, TotalDepth: 2.84},
		{EventID: 4, DurationHours: 8, TotalDepth: 3.10},
	}

	retained := Filter(summaries, 2.85, 6)
	if len(retained) != 2 {
		t.Fatalf("expected 2 retained events, got %d", len(retained))
	}
	if retained[0].EventID != 1 || retained[1].EventID != 4 {
		t.Errorf("expected events [1 4] in order, got [%d %d]", retained[0].EventID, retained[1].EventID)
	}
}

func TestFilterIsMonotone(t *testing.T) {
	var summaries []EventSummary
	for i := 1; i <= 20; i++ {
		summaries = append(summaries, EventSummary{
			EventID:       EventID(i),
			DurationHours: float64(i % 9),
			TotalDepth:    float64(i%7) * 0.6,
		})
	}

	prev := len(summaries) + 1
	for depth := 0.0; depth <= 4.0; depth += 0.5 {
		n := len(Filter(summaries, depth, 2))
		if n > prev {
			t.Errorf("raising cumulative threshold to %.1f increased retained events from %d to %d", depth, prev, n)
		}
		prev = n
	}

	prev = len(summaries) + 1
	for hours := 0.0; hours <= 10; hours++ {
		n := len(Filter(summaries, 1.0, hours))
		if n > prev {
			t.Errorf("raising duration threshold to %.0f increased retained events from %d to %d", hours, prev, n)
		}
		prev = n
	}
}

func TestFilterEmpty(t *testing.T) {
	if retained := Filter(nil, 0, 0); len(retained) != 0 {
		t.Errorf("expected no events, got %d", len(retained))
	}
}
