// Package sqlite archives analysis runs in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/chrissnell/rainevents/internal/rainfall"
	"github.com/chrissnell/rainevents/internal/report"
	"github.com/chrissnell/rainevents/pkg/migrate"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// migrationTable tracks the applied archive schema version
const migrationTable = "schema_migrations"

// ErrRunNotFound is returned for a run id that is not archived
var ErrRunNotFound = errors.New("run not found")

// RunRecord is the archived header of a run
type RunRecord struct {
	ID        string    `json:"id"`
	Station   string    `json:"station"`
	Origin    string    `json:"origin"`
	CreatedAt time.Time `json:"created_at"`
	Samples   int       `json:"samples"`
	Events    int       `json:"events"`
	Retained  int       `json:"retained"`
}

// SampleRecord is one archived hour of an event
type SampleRecord struct {
	Time       time.Time `json:"time"`
	Depth      float64   `json:"prcp"`
	Cumulative float64   `json:"cumulative"`
}

// Store is a report.Sink backed by SQLite
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// Open opens or creates the archive at path
func Open(path string, logger *zap.SugaredLogger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	provider, err := migrate.NewFSProvider(migrations, "migrations", migrationTable)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate.NewMigrator(db, provider, logger).MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating archive schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Write archives a run in a single transaction
func (s *Store) Write(ctx context.Context, run report.Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	a := run.Analysis
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, station, origin, created_at, rainfall_threshold, cumulative_threshold,
		                  duration_threshold, gap_hours, keep_trailing_gaps, samples, events, retained, degenerate, coerced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.Station, run.Origin, formatTime(run.CreatedAt),
		a.Params.RainfallThreshold, a.Params.CumulativeThreshold, a.Params.DurationThreshold, a.Params.GapHours,
		a.Params.KeepTrailingGaps,
		a.Samples, a.Events, len(a.Retained), len(a.Degenerate), run.Coerced,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	for _, ev := range a.Retained {
		sum := ev.Summary
		_, err := tx.ExecContext(ctx, `
			INSERT INTO events (run_id, event_id, start_time, end_time, duration_hr, total_rainfall_in)
			VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID.String(), int(sum.EventID), formatTime(sum.StartTime), formatTime(sum.EndTime),
			sum.DurationHours, sum.TotalDepth,
		)
		if err != nil {
			return fmt.Errorf("inserting event %d: %w", sum.EventID, err)
		}

		cum := rainfall.Cumulative(ev.Samples)
		for i, sample := range ev.Samples {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO event_samples (run_id, event_id, time, prcp, cumulative)
				VALUES (?, ?, ?, ?, ?)`,
				run.ID.String(), int(sum.EventID), formatTime(sample.Time), sample.Depth, cum[i],
			)
			if err != nil {
				return fmt.Errorf("inserting sample of event %d: %w", sum.EventID, err)
			}
		}
	}

	for _, curve := range a.Curves {
		for i, p := range curve.Points() {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO normalized_points (run_id, event_id, seq, percent_duration, percent_cumulative_rainfall)
				VALUES (?, ?, ?, ?, ?)`,
				run.ID.String(), int(p.EventID), i, p.PercentDuration, p.PercentCumulativeDepth,
			)
			if err != nil {
				return fmt.Errorf("inserting normalized point of event %d: %w", p.EventID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}

	s.logger.Debugf("archived run %s for %s (%d events)", run.ID, run.Station, len(a.Retained))
	return nil
}

// Runs lists archived runs of a station, newest first. An empty station lists all runs.
func (s *Store) Runs(ctx context.Context, station string) ([]RunRecord, error) {
	query := `SELECT id, station, origin, created_at, samples, events, retained FROM runs`
	var args []any
	if station != "" {
		query += ` WHERE station = ?`
		args = append(args, station)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs failed: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		var r RunRecord
		var origin sql.NullString
		var created string
		if err := rows.Scan(&r.ID, &r.Station, &origin, &created, &r.Samples, &r.Events, &r.Retained); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		r.Origin = origin.String
		if r.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return runs, nil
}

// Run returns the header of one archived run
func (s *Store) Run(ctx context.Context, runID string) (RunRecord, error) {
	var r RunRecord
	var origin sql.NullString
	var created string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, station, origin, created_at, samples, events, retained
		FROM runs WHERE id = ?`, runID).
		Scan(&r.ID, &r.Station, &origin, &created, &r.Samples, &r.Events, &r.Retained)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("query run failed: %w", err)
	}
	r.Origin = origin.String
	if r.CreatedAt, err = parseTime(created); err != nil {
		return RunRecord{}, err
	}
	return r, nil
}

// EventSamples returns the hourly series of one archived event in time order
func (s *Store) EventSamples(ctx context.Context, runID string, eventID rainfall.EventID) ([]SampleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time, prcp, cumulative
		FROM event_samples WHERE run_id = ? AND event_id = ? ORDER BY rowid`, runID, int(eventID))
	if err != nil {
		return nil, fmt.Errorf("query event samples failed: %w", err)
	}
	defer rows.Close()

	samples := []SampleRecord{}
	for rows.Next() {
		var r SampleRecord
		var ts string
		if err := rows.Scan(&ts, &r.Depth, &r.Cumulative); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		if r.Time, err = parseTime(ts); err != nil {
			return nil, err
		}
		samples = append(samples, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return samples, nil
}

// Events returns the retained event summaries of a run
func (s *Store) Events(ctx context.Context, runID string) ([]rainfall.EventSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, start_time, end_time, duration_hr, total_rainfall_in
		FROM events WHERE run_id = ? ORDER BY event_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query events failed: %w", err)
	}
	defer rows.Close()

	events := []rainfall.EventSummary{}
	for rows.Next() {
		var e rainfall.EventSummary
		var id int
		var start, end string
		if err := rows.Scan(&id, &start, &end, &e.DurationHours, &e.TotalDepth); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		e.EventID = rainfall.EventID(id)
		if e.StartTime, err = parseTime(start); err != nil {
			return nil, err
		}
		if e.EndTime, err = parseTime(end); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return events, nil
}

// NormalizedPoints returns the comparison table of a run, grouped by event
func (s *Store) NormalizedPoints(ctx context.Context, runID string) ([]rainfall.NormalizedPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, percent_duration, percent_cumulative_rainfall
		FROM normalized_points WHERE run_id = ? ORDER BY event_id, seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query normalized points failed: %w", err)
	}
	defer rows.Close()

	points := []rainfall.NormalizedPoint{}
	for rows.Next() {
		var p rainfall.NormalizedPoint
		var id int
		if err := rows.Scan(&id, &p.PercentDuration, &p.PercentCumulativeDepth); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		p.EventID = rainfall.EventID(id)
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return points, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored time %q: %w", v, err)
	}
	return t, nil
}
