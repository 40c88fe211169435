package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
analysis:
  cumulative_threshold: 1.5
  gap_hours: 2
stations:
  - name: "72658"
    csv:
      path: Downloads/72658_hourly.csv
  - name: backyard
    source: timescaledb
    timescaledb:
      connection_string: postgres://weather@localhost/weather
      start: 2024-04-01
      end: 2024-10-01T00:00:00Z
    analysis:
      duration_threshold: 3
output:
  dir: out
rest:
  port: 9090
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestYAMLProviderLoadConfig(t *testing.T) {
	provider := NewYAMLProvider(writeConfig(t, sampleYAML))
	defer provider.Close()

	cfg, err := provider.LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Omitted keys keep their defaults
	if cfg.Analysis.RainfallThreshold != DefaultRainfallThreshold {
		t.Errorf("expected default rainfall threshold, got %v", cfg.Analysis.RainfallThreshold)
	}
	if cfg.Analysis.CumulativeThreshold != 1.5 || cfg.Analysis.GapHours != 2 {
		t.Errorf("unexpected analysis: %+v", cfg.Analysis)
	}
	if cfg.Analysis.DurationThreshold != DefaultDurationThreshold {
		t.Errorf("expected default duration threshold, got %v", cfg.Analysis.DurationThreshold)
	}

	if len(cfg.Stations) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(cfg.Stations))
	}

	csvStation := cfg.Stations[0]
	if csvStation.Source != SourceCSV {
		t.Errorf("expected source inferred as csv, got %q", csvStation.Source)
	}
	if csvStation.CSV.TimeColumn != "time" || csvStation.CSV.DepthColumn != "prcp" {
		t.Errorf("expected default columns, got %q/%q", csvStation.CSV.TimeColumn, csvStation.CSV.DepthColumn)
	}

	dbStation := cfg.Stations[1]
	if dbStation.TimescaleDB.StationName != "backyard" {
		t.Errorf("expected remote station name to default to station name, got %q", dbStation.TimescaleDB.StationName)
	}
	if !dbStation.TimescaleDB.Start.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected start: %s", dbStation.TimescaleDB.Start)
	}

	override := cfg.StationAnalysis(dbStation)
	if override.DurationThreshold != 3 || override.CumulativeThreshold != 1.5 || override.GapHours != 2 {
		t.Errorf("station override should inherit global values, got %+v", override)
	}
	if got := cfg.StationAnalysis(csvStation); got != cfg.Analysis {
		t.Errorf("station without override should use global analysis, got %+v", got)
	}

	if cfg.Output.Dir != "out" {
		t.Errorf("expected output dir out, got %q", cfg.Output.Dir)
	}
	if cfg.REST == nil || cfg.REST.Port != 9090 || cfg.REST.ListenAddr != DefaultListenAddr {
		t.Errorf("unexpected rest config: %+v", cfg.REST)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestYAMLProviderMissingFile(t *testing.T) {
	provider := NewYAMLProvider(filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := provider.LoadConfig(); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "no stations",
			body:    "analysis:\n  gap_hours: 1\n",
			wantErr: "no stations",
		},
		{
			name:    "negative gap",
			body:    "analysis:\n  gap_hours: -1\nstations:\n  - name: a\n    csv:\n      path: a.csv\n",
			wantErr: "gap_hours",
		},
		{
			name:    "duplicate station",
			body:    "stations:\n  - name: a\n    csv:\n      path: a.csv\n  - name: a\n    csv:\n      path: b.csv\n",
			wantErr: "duplicate",
		},
		{
			name:    "missing csv path",
			body:    "stations:\n  - name: a\n    source: csv\n",
			wantErr: "csv.path",
		},
		{
			name:    "unknown source",
			body:    "stations:\n  - name: a\n    source: ftp\n",
			wantErr: "unsupported source",
		},
		{
			name:    "station name escapes output dir",
			body:    "stations:\n  - name: ../escaped\n    csv:\n      path: a.csv\n",
			wantErr: "path separators",
		},
		{
			name:    "station name is a parent dir",
			body:    "stations:\n  - name: \"..\"\n    csv:\n      path: a.csv\n",
			wantErr: "path separators",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewYAMLProvider(writeConfig(t, tt.body)).LoadConfig()
			if err != nil {
				t.Fatalf("unexpected load error: %v", err)
			}
			err = cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSQLiteProvider(t *testing.T) {
	provider, err := NewSQLiteProvider(filepath.Join(t.TempDir(), "config.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer provider.Close()

	if _, err := provider.DB().Exec(Schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	// Empty tables fall back to defaults
	analysis, err := provider.GetAnalysis()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *analysis != DefaultAnalysis() {
		t.Errorf("expected default analysis, got %+v", analysis)
	}

	seed := []string{
		`INSERT INTO analysis (rainfall_threshold, cumulative_threshold, duration_threshold, gap_hours)
		 VALUES (0.02, NULL, 4, 3)`,
		`INSERT INTO stations (name, source, csv_path) VALUES ('msp', 'csv', '/data/msp.csv')`,
		`INSERT INTO stations (name, source, connection_string, remote_station, start_time)
		 VALUES ('roof', 'timescaledb', 'postgres://localhost/weather', 'CSI', '2024-05-01')`,
		`INSERT INTO output (dir, sqlite_path) VALUES ('reports', 'reports/events.db')`,
	}
	for _, stmt := range seed {
		if _, err := provider.DB().Exec(stmt); err != nil {
			t.Fatalf("seeding: %v", err)
		}
	}

	cfg, err := provider.LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Analysis.RainfallThreshold != 0.02 || cfg.Analysis.GapHours != 3 || cfg.Analysis.DurationThreshold != 4 {
		t.Errorf("unexpected analysis: %+v", cfg.Analysis)
	}
	if cfg.Analysis.CumulativeThreshold != DefaultCumulativeThreshold {
		t.Errorf("NULL cumulative threshold should default, got %v", cfg.Analysis.CumulativeThreshold)
	}
	if len(cfg.Stations) != 2 || cfg.Stations[0].Name != "msp" || cfg.Stations[1].TimescaleDB.StationName != "CSI" {
		t.Errorf("unexpected stations: %+v", cfg.Stations)
	}
	if cfg.Stations[0].CSV.DepthColumn != DefaultDepthColumn {
		t.Errorf("expected default depth column, got %q", cfg.Stations[0].CSV.DepthColumn)
	}
	if cfg.Output.SQLitePath != "reports/events.db" {
		t.Errorf("unexpected output: %+v", cfg.Output)
	}
	if cfg.REST != nil {
		t.Errorf("expected no rest config, got %+v", cfg.REST)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := &ConfigData{Stations: []StationData{
		{Name: "msp", Source: SourceCSV, CSV: &CSVSourceData{Path: "msp.csv"}},
		{Name: "roof", Source: SourceTimescaleDB, TimescaleDB: &TimescaleDBSourceData{ConnectionString: "postgres://old"}},
	}}

	t.Setenv(EnvTimescaleDBDSN, "postgres://weather@db/weather")
	cfg.ApplyEnv()

	if got := cfg.Stations[1].TimescaleDB.ConnectionString; got != "postgres://weather@db/weather" {
		t.Errorf("expected overridden DSN, got %s", got)
	}
	if cfg.Stations[0].TimescaleDB != nil {
		t.Errorf("csv station should not gain a database source")
	}
}

func TestSQLiteProviderSaveConfig(t *testing.T) {
	yamlProvider := NewYAMLProvider(writeConfig(t, `
analysis:
  gap_hours: 2
  keep_trailing_gaps: true
stations:
  - name: msp
    csv:
      path: /data/msp.csv
      timezone: America/Chicago
  - name: roof
    timescaledb:
      connection_string: postgres://localhost/weather
      start: 2024-05-01
rest:
  port: 9090
`))
	cfg, err := yamlProvider.LoadConfig()
	if err != nil {
		t.Fatalf("loading yaml: %v", err)
	}

	provider, err := NewSQLiteProvider(filepath.Join(t.TempDir(), "config.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer provider.Close()

	if err := provider.SaveConfig(cfg); err != nil {
		t.Fatalf("saving: %v", err)
	}
	// saving twice replaces rather than appends
	if err := provider.SaveConfig(cfg); err != nil {
		t.Fatalf("saving again: %v", err)
	}

	got, err := provider.LoadConfig()
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	if got.Analysis != cfg.Analysis {
		t.Errorf("analysis: expected %+v, got %+v", cfg.Analysis, got.Analysis)
	}
	if len(got.Stations) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(got.Stations))
	}
	if got.Stations[0].CSV == nil || got.Stations[0].CSV.Timezone != "America/Chicago" {
		t.Errorf("unexpected csv station: %+v", got.Stations[0])
	}
	roof := got.Stations[1].TimescaleDB
	if roof == nil || roof.StationName != "roof" || !roof.Start.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected timescaledb station: %+v", roof)
	}
	if got.REST == nil || got.REST.Port != 9090 {
		t.Errorf("unexpected rest config: %+v", got.REST)
	}
}

func TestApplyDefaultsStationName(t *testing.T) {
	cfg := &ConfigData{Stations: []StationData{
		{CSV: &CSVSourceData{Path: "Downloads/72658_hourly.csv"}},
		{Name: "named", CSV: &CSVSourceData{Path: "Downloads/other.csv"}},
	}}
	cfg.ApplyDefaults()

	if got := cfg.Stations[0].Name; got != "72658_hourly" {
		t.Errorf("expected station named after its input file, got %q", got)
	}
	if got := cfg.Stations[1].Name; got != "named" {
		t.Errorf("expected explicit name to be kept, got %q", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}
