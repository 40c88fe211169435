package report

import (
	"context"
	"sort"
	"sync"
)

// Registry keeps the latest run of every station in memory for the API
type Registry struct {
	mu   sync.RWMutex
	runs map[string]Run
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]Run)}
}

// Write replaces the station's run
func (r *Registry) Write(_ context.Context, run Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.Station] = run
	return nil
}

// Get returns the latest run of a station
func (r *Registry) Get(station string) (Run, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[station]
	return run, ok
}

// List returns the latest runs sorted by station name
func (r *Registry) List() []Run {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs := make([]Run, 0, len(r.runs))
	for _, run := range r.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Station < runs[j].Station })
	return runs
}
