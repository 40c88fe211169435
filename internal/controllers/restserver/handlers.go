package restserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/chrissnell/rainevents/internal/rainfall"
	"github.com/chrissnell/rainevents/internal/report"
	"github.com/chrissnell/rainevents/internal/storage/sqlite"
	"github.com/chrissnell/rainevents/pkg/responseformat"
	"github.com/gorilla/mux"
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// stationRun looks up the station named in the route, writing a 404 when it
// has no run
func (h *Handlers) stationRun(w http.ResponseWriter, req *http.Request) (report.Run, bool) {
	station := mux.Vars(req)["station"]
	run, ok := h.controller.registry.Get(station)
	if !ok || run.Analysis == nil {
		h.formatter.WriteError(w, req, http.StatusNotFound, "no analysis for station "+station)
		return report.Run{}, false
	}
	return run, true
}

// GetStations lists the latest run of every analysed station
func (h *Handlers) GetStations(w http.ResponseWriter, req *http.Request) {
	runs := h.controller.registry.List()
	stations := make([]StationRun, 0, len(runs))
	for _, run := range runs {
		if run.Analysis == nil {
			continue
		}
		stations = append(stations, toStationRun(run))
	}
	h.formatter.WriteResponse(w, req, stations)
}

// GetStation returns the run summary of one station
func (h *Handlers) GetStation(w http.ResponseWriter, req *http.Request) {
	run, ok := h.stationRun(w, req)
	if !ok {
		return
	}
	h.formatter.WriteResponse(w, req, toStationRun(run))
}

// GetEvents returns the retained events of a station. all=true includes the
// events that failed the thresholds.
func (h *Handlers) GetEvents(w http.ResponseWriter, req *http.Request) {
	run, ok := h.stationRun(w, req)
	if !ok {
		return
	}

	summaries := run.Analysis.RetainedSummaries()
	if req.URL.Query().Get("all") == "true" {
		summaries = run.Analysis.Summaries
	}
	if summaries == nil {
		summaries = []rainfall.EventSummary{}
	}
	h.formatter.WriteResponse(w, req, summaries)
}

// GetEvent returns one retained event with its hyetograph and cumulative series
func (h *Handlers) GetEvent(w http.ResponseWriter, req *http.Request) {
	run, ok := h.stationRun(w, req)
	if !ok {
		return
	}

	id, err := strconv.Atoi(mux.Vars(req)["id"])
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, "invalid event id")
		return
	}

	for _, ev := range run.Analysis.Retained {
		if ev.Summary.EventID != rainfall.EventID(id) {
			continue
		}
		h.formatter.WriteResponse(w, req, toEventResponse(run.Analysis, ev))
		return
	}

	h.formatter.WriteError(w, req, http.StatusNotFound, "event "+strconv.Itoa(id)+" was not retained")
}

// GetNormalized returns the rounded normalized points of all retained events
func (h *Handlers) GetNormalized(w http.ResponseWriter, req *http.Request) {
	run, ok := h.stationRun(w, req)
	if !ok {
		return
	}

	points := run.Analysis.NormalizedPoints()
	if points == nil {
		points = []rainfall.NormalizedPoint{}
	}
	h.formatter.WriteResponse(w, req, points)
}

// GetRuns lists archived runs, optionally for one station
func (h *Handlers) GetRuns(w http.ResponseWriter, req *http.Request) {
	runs, err := h.controller.archive.Runs(req.Context(), req.URL.Query().Get("station"))
	if err != nil {
		h.controller.logger.Errorf("error listing archived runs: %v", err)
		h.formatter.WriteError(w, req, http.StatusInternalServerError, "error listing archived runs")
		return
	}
	h.formatter.WriteResponse(w, req, runs)
}

// archivedRun looks up the run named in the route, writing a 404 when it is
// not archived
func (h *Handlers) archivedRun(w http.ResponseWriter, req *http.Request) (sqlite.RunRecord, bool) {
	id := mux.Vars(req)["run"]
	run, err := h.controller.archive.Run(req.Context(), id)
	if errors.Is(err, sqlite.ErrRunNotFound) {
		h.formatter.WriteError(w, req, http.StatusNotFound, "run "+id+" is not archived")
		return sqlite.RunRecord{}, false
	}
	if err != nil {
		h.controller.logger.Errorf("error fetching archived run %s: %v", id, err)
		h.formatter.WriteError(w, req, http.StatusInternalServerError, "error fetching archived run")
		return sqlite.RunRecord{}, false
	}
	return run, true
}

// GetRunEvents returns the retained events of an archived run
func (h *Handlers) GetRunEvents(w http.ResponseWriter, req *http.Request) {
	run, ok := h.archivedRun(w, req)
	if !ok {
		return
	}

	events, err := h.controller.archive.Events(req.Context(), run.ID)
	if err != nil {
		h.controller.logger.Errorf("error fetching archived events: %v", err)
		h.formatter.WriteError(w, req, http.StatusInternalServerError, "error fetching archived events")
		return
	}
	h.formatter.WriteResponse(w, req, events)
}

// GetRunEvent returns one archived event with its stored hourly series
func (h *Handlers) GetRunEvent(w http.ResponseWriter, req *http.Request) {
	run, ok := h.archivedRun(w, req)
	if !ok {
		return
	}

	id, err := strconv.Atoi(mux.Vars(req)["id"])
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, "invalid event id")
		return
	}

	events, err := h.controller.archive.Events(req.Context(), run.ID)
	if err != nil {
		h.controller.logger.Errorf("error fetching archived events: %v", err)
		h.formatter.WriteError(w, req, http.StatusInternalServerError, "error fetching archived events")
		return
	}

	for _, ev := range events {
		if ev.EventID != rainfall.EventID(id) {
			continue
		}
		samples, err := h.controller.archive.EventSamples(req.Context(), run.ID, ev.EventID)
		if err != nil {
			h.controller.logger.Errorf("error fetching archived samples of event %d: %v", id, err)
			h.formatter.WriteError(w, req, http.StatusInternalServerError, "error fetching archived samples")
			return
		}
		h.formatter.WriteResponse(w, req, ArchivedEventResponse{Summary: ev, Samples: samples})
		return
	}

	h.formatter.WriteError(w, req, http.StatusNotFound, "event "+strconv.Itoa(id)+" is not archived in run "+run.ID)
}

// GetRunNormalized returns the normalized points of an archived run
func (h *Handlers) GetRunNormalized(w http.ResponseWriter, req *http.Request) {
	run, ok := h.archivedRun(w, req)
	if !ok {
		return
	}

	points, err := h.controller.archive.NormalizedPoints(req.Context(), run.ID)
	if err != nil {
		h.controller.logger.Errorf("error fetching archived normalized points: %v", err)
		h.formatter.WriteError(w, req, http.StatusInternalServerError, "error fetching archived normalized points")
		return
	}
	h.formatter.WriteResponse(w, req, points)
}

func toStationRun(run report.Run) StationRun {
	a := run.Analysis
	return StationRun{
		Station:   run.Station,
		RunID:     run.ID.String(),
		Origin:    run.Origin,
		CreatedAt: run.CreatedAt,
		Samples:   a.Samples,
		Coerced:   run.Coerced,
		Events:    a.Events,
		Params: ParamsResponse{
			RainfallThreshold:   a.Params.RainfallThreshold,
			CumulativeThreshold: a.Params.CumulativeThreshold,
			DurationThreshold:   a.Params.DurationThreshold,
			GapHours:            a.Params.GapHours,
			KeepTrailingGaps:    a.Params.KeepTrailingGaps,
		},
		Stats: a.Stats(),
	}
}

func toEventResponse(a *rainfall.Analysis, ev rainfall.EventSeries) EventResponse {
	cumulative := rainfall.Cumulative(ev.Samples)
	samples := make([]SampleResponse, len(ev.Samples))
	for i, s := range ev.Samples {
		samples[i] = SampleResponse{Time: s.Time, Depth: s.Depth, Cumulative: cumulative[i]}
	}

	resp := EventResponse{Summary: ev.Summary, Samples: samples, Degenerate: true}
	for i := range a.Curves {
		if a.Curves[i].EventID == ev.Summary.EventID {
			resp.Curve = &a.Curves[i]
			resp.Degenerate = false
			break
		}
	}
	return resp
}
