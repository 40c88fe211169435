package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/chrissnell/rainevents/internal/rainfall"
	"go.uber.org/zap"
)

// Output file and directory names
const (
	EventsFile      = "rainfall_events_filtered.csv"
	NormalizedFile  = "normalized_event_comparison.csv"
	HyetographDir   = "Hyetographs"
	CumulativeDir   = "Cumulative Plots"
	timestampLayout = "2006-01-02 15:04:05"
)

// CSVWriter writes the tabular outputs of a run below <root>/<station>/
type CSVWriter struct {
	root   string
	logger *zap.SugaredLogger
}

// NewCSVWriter creates a CSV sink rooted at dir
func NewCSVWriter(dir string, logger *zap.SugaredLogger) *CSVWriter {
	return &CSVWriter{root: dir, logger: logger}
}

// StationDir returns the directory a station's reports are written to
func (w *CSVWriter) StationDir(station string) string {
	return filepath.Join(w.root, station)
}

// Write emits the filtered summary, per-event series and the normalized table
func (w *CSVWriter) Write(ctx context.Context, run Run) error {
	dir := w.StationDir(run.Station)
	for _, d := range []string{dir, filepath.Join(dir, HyetographDir), filepath.Join(dir, CumulativeDir)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", d, err)
		}
	}

	a := run.Analysis
	if err := writeCSV(filepath.Join(dir, EventsFile), eventRows(a.RetainedSummaries())); err != nil {
		return err
	}

	for _, ev := range a.Retained {
		if err := ctx.Err(); err != nil {
			return err
		}
		id := ev.Summary.EventID

		hyeto := filepath.Join(dir, HyetographDir, fmt.Sprintf("event_%d_data.csv", id))
		if err := writeCSV(hyeto, rawRows(ev.Samples)); err != nil {
			return err
		}

		cum := filepath.Join(dir, CumulativeDir, fmt.Sprintf("event_%d_cumulative.csv", id))
		if err := writeCSV(cum, cumulativeRows(ev.Samples)); err != nil {
			return err
		}
	}

	normalized := filepath.Join(dir, NormalizedFile)
	if err := writeCSV(normalized, normalizedRows(a.NormalizedPoints())); err != nil {
		return err
	}

	w.logger.Infow("reports written",
		"station", run.Station,
		"dir", dir,
		"events", len(a.Retained),
		"normalized_events", len(a.Curves))
	return nil
}

func eventRows(summaries []rainfall.EventSummary) [][]string {
	rows := [][]string{{"event_id", "start_time", "end_time", "duration_hr", "total_rainfall_in"}}
	for _, s := range summaries {
		rows = append(rows, []string{
			strconv.Itoa(int(s.EventID)),
			s.StartTime.Format(timestampLayout),
			s.EndTime.Format(timestampLayout),
			formatFloat(s.DurationHours),
			formatFloat(s.TotalDepth),
		})
	}
	return rows
}

func rawRows(samples []rainfall.Sample) [][]string {
	rows := [][]string{{"time", "prcp"}}
	for _, s := range samples {
		rows = append(rows, []string{formatTime(s.Time), formatFloat(s.Depth)})
	}
	return rows
}

func cumulativeRows(samples []rainfall.Sample) [][]string {
	cum := rainfall.Cumulative(samples)
	rows := [][]string{{"time", "prcp", "cumulative"}}
	for i, s := range samples {
		rows = append(rows, []string{formatTime(s.Time), formatFloat(s.Depth), formatFloat(cum[i])})
	}
	return rows
}

func normalizedRows(points []rainfall.NormalizedPoint) [][]string {
	rows := [][]string{{"event_id", "percent_duration", "percent_cumulative_rainfall"}}
	for _, p := range points {
		rows = append(rows, []string{
			strconv.Itoa(int(p.EventID)),
			formatFloat(p.PercentDuration),
			formatFloat(p.PercentCumulativeDepth),
		})
	}
	return rows
}

func writeCSV(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return file.Close()
}

func formatTime(t time.Time) string {
	return t.Format(timestampLayout)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
