package config

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Schema creates the tables read by SQLiteProvider
const Schema = `
CREATE TABLE IF NOT EXISTS analysis (
	rainfall_threshold   REAL,
	cumulative_threshold REAL,
	duration_threshold   REAL,
	gap_hours            INTEGER,
	keep_trailing_gaps   INTEGER DEFAULT 0
);
CREATE TABLE IF NOT EXISTS stations (
	name              TEXT PRIMARY KEY,
	source            TEXT NOT NULL,
	csv_path          TEXT,
	time_column       TEXT,
	depth_column      TEXT,
	time_layout       TEXT,
	timezone          TEXT,
	connection_string TEXT,
	remote_station    TEXT,
	start_time        TEXT,
	end_time          TEXT
);
CREATE TABLE IF NOT EXISTS output (
	dir         TEXT,
	sqlite_path TEXT
);
CREATE TABLE IF NOT EXISTS rest (
	listen_addr TEXT,
	port        INTEGER
);
`

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// DB exposes the underlying connection, mainly for seeding configuration
func (s *SQLiteProvider) DB() *sql.DB {
	return s.db
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}

	analysis, err := s.GetAnalysis()
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis: %w", err)
	}
	config.Analysis = *analysis

	stations, err := s.GetStations()
	if err != nil {
		return nil, fmt.Errorf("failed to load stations: %w", err)
	}
	config.Stations = stations

	var dir, sqlitePath sql.NullString
	err = s.db.QueryRow(`SELECT dir, sqlite_path FROM output LIMIT 1`).Scan(&dir, &sqlitePath)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to load output config: %w", err)
	}
	config.Output.Dir = dir.String
	config.Output.SQLitePath = sqlitePath.String

	var listenAddr sql.NullString
	var port sql.NullInt64
	err = s.db.QueryRow(`SELECT listen_addr, port FROM rest LIMIT 1`).Scan(&listenAddr, &port)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, fmt.Errorf("failed to load rest config: %w", err)
	default:
		config.REST = &RESTServerData{
			ListenAddr: listenAddr.String,
			Port:       int(port.Int64),
		}
	}

	config.ApplyDefaults()
	return config, nil
}

// GetAnalysis returns the global thresholds, falling back to defaults for NULL columns
func (s *SQLiteProvider) GetAnalysis() (*AnalysisData, error) {
	a := DefaultAnalysis()

	var rainfall, cumulative, duration sql.NullFloat64
	var gap, keepTrailing sql.NullInt64
	err := s.db.QueryRow(`
		SELECT rainfall_threshold, cumulative_threshold, duration_threshold,
		       gap_hours, keep_trailing_gaps
		FROM analysis LIMIT 1
	`).Scan(&rainfall, &cumulative, &duration, &gap, &keepTrailing)
	if err == sql.ErrNoRows {
		return &a, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis: %w", err)
	}

	if rainfall.Valid {
		a.RainfallThreshold = rainfall.Float64
	}
	if cumulative.Valid {
		a.CumulativeThreshold = cumulative.Float64
	}
	if duration.Valid {
		a.DurationThreshold = duration.Float64
	}
	if gap.Valid {
		a.GapHours = int(gap.Int64)
	}
	a.KeepTrailingGaps = keepTrailing.Valid && keepTrailing.Int64 != 0

	return &a, nil
}

// GetStations returns station configurations from the database
func (s *SQLiteProvider) GetStations() ([]StationData, error) {
	rows, err := s.db.Query(`
		SELECT name, source, csv_path, time_column, depth_column, time_layout, timezone,
		       connection_string, remote_station, start_time, end_time
		FROM stations
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	var stations []StationData
	for rows.Next() {
		var station StationData
		var csvPath, timeColumn, depthColumn, timeLayout, timezone sql.NullString
		var connString, remoteStation, startTime, endTime sql.NullString

		err := rows.Scan(
			&station.Name, &station.Source, &csvPath, &timeColumn, &depthColumn,
			&timeLayout, &timezone, &connString, &remoteStation, &startTime, &endTime,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan station row: %w", err)
		}

		switch station.Source {
		case SourceCSV:
			station.CSV = &CSVSourceData{
				Path:        csvPath.String,
				TimeColumn:  timeColumn.String,
				DepthColumn: depthColumn.String,
				TimeLayout:  timeLayout.String,
				Timezone:    timezone.String,
			}
		case SourceTimescaleDB:
			station.TimescaleDB = &TimescaleDBSourceData{
				ConnectionString: connString.String,
				StationName:      remoteStation.String,
			}
			if station.TimescaleDB.Start, err = parseBound(startTime.String); err != nil {
				return nil, fmt.Errorf("station %s start_time: %w", station.Name, err)
			}
			if station.TimescaleDB.End, err = parseBound(endTime.String); err != nil {
				return nil, fmt.Errorf("station %s end_time: %w", station.Name, err)
			}
		}

		stations = append(stations, station)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return stations, nil
}

// SaveConfig replaces the stored configuration with cfg
func (s *SQLiteProvider) SaveConfig(cfg *ConfigData) error {
	if _, err := s.db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"analysis", "stations", "output", "rest"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	a := cfg.Analysis
	if _, err := tx.Exec(`
		INSERT INTO analysis (rainfall_threshold, cumulative_threshold, duration_threshold, gap_hours, keep_trailing_gaps)
		VALUES (?, ?, ?, ?, ?)
	`, a.RainfallThreshold, a.CumulativeThreshold, a.DurationThreshold, a.GapHours, a.KeepTrailingGaps); err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}

	for _, st := range cfg.Stations {
		var csvPath, timeColumn, depthColumn, timeLayout, timezone sql.NullString
		var connString, remoteStation, startTime, endTime sql.NullString
		if st.CSV != nil {
			csvPath = nullString(st.CSV.Path)
			timeColumn = nullString(st.CSV.TimeColumn)
			depthColumn = nullString(st.CSV.DepthColumn)
			timeLayout = nullString(st.CSV.TimeLayout)
			timezone = nullString(st.CSV.Timezone)
		}
		if st.TimescaleDB != nil {
			connString = nullString(st.TimescaleDB.ConnectionString)
			remoteStation = nullString(st.TimescaleDB.StationName)
			startTime = nullTime(st.TimescaleDB.Start)
			endTime = nullTime(st.TimescaleDB.End)
		}

		if st.Analysis != nil {
			// per-station thresholds have no column
			return fmt.Errorf("station %s: per-station analysis overrides are not supported by the SQLite backend", st.Name)
		}

		_, err := tx.Exec(`
			INSERT INTO stations (name, source, csv_path, time_column, depth_column, time_layout, timezone,
			                      connection_string, remote_station, start_time, end_time)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, st.Name, st.Source, csvPath, timeColumn, depthColumn, timeLayout, timezone,
			connString, remoteStation, startTime, endTime)
		if err != nil {
			return fmt.Errorf("failed to insert station %s: %w", st.Name, err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO output (dir, sqlite_path) VALUES (?, ?)`,
		nullString(cfg.Output.Dir), nullString(cfg.Output.SQLitePath)); err != nil {
		return fmt.Errorf("failed to insert output: %w", err)
	}

	if cfg.REST != nil {
		if _, err := tx.Exec(`INSERT INTO rest (listen_addr, port) VALUES (?, ?)`,
			nullString(cfg.REST.ListenAddr), cfg.REST.Port); err != nil {
			return fmt.Errorf("failed to insert rest: %w", err)
		}
	}

	return tx.Commit()
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

// IsReadOnly returns false since SQLite configuration can be modified
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
