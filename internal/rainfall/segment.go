package rainfall

// segmenter carries the gap-tolerance state across one forward pass
type segmenter struct {
	threshold    float64
	gapHours     int
	keepTrailing bool

	open    bool    // an event has been opened
	current EventID // id of the most recently opened event
	dry     int     // consecutive dry samples since the last wet one

	// tolerated dry samples not yet followed by a wet sample
	pending []int
}

func (s *segmenter) step(a Assignment, i int, depth float64) {
	if IsWet(depth, s.threshold) {
		if !s.open || s.dry > s.gapHours {
			s.current++
			s.open = true
		}
		s.dry = 0
		s.pending = s.pending[:0]
		a[i] = s.current
		return
	}

	s.dry++
	if s.open && s.dry <= s.gapHours {
		a[i] = s.current
		s.pending = append(s.pending, i)
		return
	}
	s.release(a)
	a[i] = NoEvent
}

// release detaches the pending dry samples: they trail an event rather than
// bridge two wet hours
func (s *segmenter) release(a Assignment) {
	if !s.keepTrailing {
		for _, i := range s.pending {
			a[i] = NoEvent
		}
	}
	s.pending = s.pending[:0]
}

// Segment assigns every sample to a rainfall event or to NoEvent.
// Samples must already be sorted by time. A new event opens on a wet sample
// when no event is open yet or when more than gapHours dry samples precede it.
// Dry samples bridging two wet samples of the same event carry its id; dry
// samples before the first wet sample or after the last one of an event do not;
// use SegmentParams with Params.KeepTrailingGaps to keep the trailing ones.
func Segment(samples []Sample, rainfallThreshold float64, gapHours int) Assignment {
	return segment(samples, segmenter{threshold: rainfallThreshold, gapHours: gapHours})
}

// SegmentParams is Segment driven by a Params value. With KeepTrailingGaps set,
// tolerated dry hours after an event's last wet hour stay attached to it.
func SegmentParams(samples []Sample, p Params) Assignment {
	return segment(samples, segmenter{
		threshold:    p.RainfallThreshold,
		gapHours:     p.GapHours,
		keepTrailing: p.KeepTrailingGaps,
	})
}

func segment(samples []Sample, s segmenter) Assignment {
	assignment := make(Assignment, len(samples))
	for i, sample := range samples {
		s.step(assignment, i, sample.Depth)
	}
	s.release(assignment)
	return assignment
}

// EventCount returns the number of distinct events in the assignment
func (a Assignment) EventCount() int {
	var highest EventID
	for _, id := range a {
		if id > highest {
			highest = id
		}
	}
	return int(highest)
}

// Samples returns the samples carrying the given event id, in input order
func (a Assignment) Samples(samples []Sample, id EventID) []Sample {
	if id == NoEvent {
		return nil
	}
	var out []Sample
	for i, eid := range a {
		if eid == id && i < len(samples) {
			out = append(out, samples[i])
		}
	}
	return out
}
