package rainfall

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
)

type eventAccumulator struct {
	start  time.Time
	end    time.Time
	depths []float64
}

func (acc *eventAccumulator) add(s Sample) {
	if len(acc.depths) == 0 || s.Time.Before(acc.start) {
		acc.start = s.Time
	}
	if len(acc.depths) == 0 || s.Time.After(acc.end) {
		acc.end = s.Time
	}
	acc.depths = append(acc.depths, s.Depth)
}

// Aggregate reduces the samples of each event into an EventSummary.
// Summaries are returned in ascending event id order.
func Aggregate(samples []Sample, assignment Assignment) ([]EventSummary, error) {
	if len(samples) != len(assignment) {
		return nil, fmt.Errorf("%w: %d samples, %d assignments", ErrAssignmentLength, len(samples), len(assignment))
	}

	groups := make(map[EventID]*eventAccumulator)
	var highest EventID
	for i, id := range assignment {
		if id == NoEvent {
			continue
		}
		acc, ok := groups[id]
		if !ok {
			acc = &eventAccumulator{}
			groups[id] = acc
		}
		acc.add(samples[i])
		if id > highest {
			highest = id
		}
	}

	// Ids are allocated sequentially, so every id up to the highest must have samples
	for id := EventID(1); id <= highest; id++ {
		if acc, ok := groups[id]; !ok || len(acc.depths) == 0 {
			return nil, fmt.Errorf("aggregating event %d: %w", id, ErrEmptyEventGroup)
		}
	}

	ids := make([]EventID, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	summaries := make([]EventSummary, 0, len(ids))
	for _, id := range ids {
		acc := groups[id]
		summaries = append(summaries, EventSummary{
			EventID:       id,
			StartTime:     acc.start,
			EndTime:       acc.end,
			DurationHours: acc.end.Sub(acc.start).Hours() + 1,
			TotalDepth:    floats.Sum(acc.depths),
		})
	}

	return summaries, nil
}
