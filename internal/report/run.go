// Package report persists the tables produced by a rainfall event analysis.
package report

import (
	"context"
	"time"

	"github.com/chrissnell/rainevents/internal/rainfall"
	"github.com/google/uuid"
)

// Run is one completed analysis of one station
type Run struct {
	ID        uuid.UUID
	Station   string
	Origin    string // where the series came from
	Coerced   int    // depths coerced to zero while loading
	CreatedAt time.Time
	Analysis  *rainfall.Analysis
}

// NewRun stamps an analysis with a fresh run id
func NewRun(station, origin string, coerced int, a *rainfall.Analysis) Run {
	return Run{
		ID:        uuid.New(),
		Station:   station,
		Origin:    origin,
		Coerced:   coerced,
		CreatedAt: time.Now().UTC(),
		Analysis:  a,
	}
}

// Sink receives completed runs
type Sink interface {
	Write(ctx context.Context, run Run) error
}
