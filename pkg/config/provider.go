package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetStations() ([]StationData, error)
	GetAnalysis() (*AnalysisData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Analysis AnalysisData    `json:"analysis"`
	Stations []StationData   `json:"stations"`
	Output   OutputData      `json:"output"`
	REST     *RESTServerData `json:"rest,omitempty"`
	Log      LogData         `json:"log,omitempty"`
}

// AnalysisData holds the event detection thresholds
type AnalysisData struct {
	RainfallThreshold   float64 `json:"rainfall_threshold"`
	CumulativeThreshold float64 `json:"cumulative_threshold"`
	DurationThreshold   float64 `json:"duration_threshold"`
	GapHours            int     `json:"gap_hours"`
	KeepTrailingGaps    bool    `json:"keep_trailing_gaps,omitempty"`
}

// Source types
const (
	SourceCSV         = "csv"
	SourceTimescaleDB = "timescaledb"
)

// StationData describes one precipitation series to analyze
type StationData struct {
	Name        string                 `json:"name"`
	Source      string                 `json:"source"`
	CSV         *CSVSourceData         `json:"csv,omitempty"`
	TimescaleDB *TimescaleDBSourceData `json:"timescaledb,omitempty"`

	// Analysis overrides the global thresholds for this station
	Analysis *AnalysisData `json:"analysis,omitempty"`
}

// CSVSourceData locates an hourly CSV export
type CSVSourceData struct {
	Path        string `json:"path"`
	TimeColumn  string `json:"time_column,omitempty"`
	DepthColumn string `json:"depth_column,omitempty"`
	TimeLayout  string `json:"time_layout,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
}

// TimescaleDBSourceData selects hourly buckets from a remoteweather database
type TimescaleDBSourceData struct {
	ConnectionString string    `json:"connection_string"`
	StationName      string    `json:"station_name,omitempty"`
	Start            time.Time `json:"start,omitempty"`
	End              time.Time `json:"end,omitempty"`
}

// OutputData controls where reports are written
type OutputData struct {
	Dir        string `json:"dir"`
	SQLitePath string `json:"sqlite_path,omitempty"`
}

// RESTServerData configures the results API
type RESTServerData struct {
	ListenAddr string `json:"listen_addr,omitempty"`
	Port       int    `json:"port,omitempty"`
}

// LogData configures the optional log file
type LogData struct {
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
}

// Defaults used when a configuration source leaves a value unset
const (
	DefaultRainfallThreshold   = 0.04
	DefaultCumulativeThreshold = 2.85
	DefaultDurationThreshold   = 6.0
	DefaultGapHours            = 1
	DefaultOutputDir           = "ProcessedEvents"
	DefaultTimeColumn          = "time"
	DefaultDepthColumn         = "prcp"
	DefaultListenAddr          = "0.0.0.0"
	DefaultHTTPPort            = 8080
)

// DefaultAnalysis returns the thresholds used when none are configured
func DefaultAnalysis() AnalysisData {
	return AnalysisData{
		RainfallThreshold:   DefaultRainfallThreshold,
		CumulativeThreshold: DefaultCumulativeThreshold,
		DurationThreshold:   DefaultDurationThreshold,
		GapHours:            DefaultGapHours,
	}
}

// StationAnalysis returns the thresholds in effect for a station
func (c *ConfigData) StationAnalysis(s StationData) AnalysisData {
	if s.Analysis != nil {
		return *s.Analysis
	}
	return c.Analysis
}

// ApplyDefaults fills in unset output, REST and CSV column settings
func (c *ConfigData) ApplyDefaults() {
	if c.Output.Dir == "" {
		c.Output.Dir = DefaultOutputDir
	}
	if c.REST != nil {
		if c.REST.ListenAddr == "" {
			c.REST.ListenAddr = DefaultListenAddr
		}
		if c.REST.Port == 0 {
			c.REST.Port = DefaultHTTPPort
		}
	}
	for i := range c.Stations {
		s := &c.Stations[i]
		// An unnamed CSV station is named after its input file
		if s.Name == "" && s.CSV != nil && s.CSV.Path != "" {
			s.Name = strings.TrimSuffix(filepath.Base(s.CSV.Path), filepath.Ext(s.CSV.Path))
		}
		if s.Source == "" {
			switch {
			case s.CSV != nil:
				s.Source = SourceCSV
			case s.TimescaleDB != nil:
				s.Source = SourceTimescaleDB
			}
		}
		if s.CSV != nil {
			if s.CSV.TimeColumn == "" {
				s.CSV.TimeColumn = DefaultTimeColumn
			}
			if s.CSV.DepthColumn == "" {
				s.CSV.DepthColumn = DefaultDepthColumn
			}
		}
		if s.TimescaleDB != nil && s.TimescaleDB.StationName == "" {
			s.TimescaleDB.StationName = s.Name
		}
	}
}

// EnvTimescaleDBDSN overrides the connection string of every TimescaleDB station
const EnvTimescaleDBDSN = "RAINEVENTS_TIMESCALEDB_DSN"

// ApplyEnv applies overrides from the environment
func (c *ConfigData) ApplyEnv() {
	dsn := os.Getenv(EnvTimescaleDBDSN)
	if dsn == "" {
		return
	}
	for i := range c.Stations {
		if c.Stations[i].TimescaleDB != nil {
			c.Stations[i].TimescaleDB.ConnectionString = dsn
		}
	}
}

// Validate checks the configuration for settings the analysis cannot run with
func (c *ConfigData) Validate() error {
	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}

	if len(c.Stations) == 0 {
		return fmt.Errorf("no stations configured")
	}

	seen := make(map[string]bool)
	for _, s := range c.Stations {
		if s.Name == "" {
			return fmt.Errorf("station name is required")
		}
		// Names become directories below output.dir
		if s.Name == "." || s.Name == ".." || strings.ContainsAny(s.Name, `/\`) {
			return fmt.Errorf("station name %q must not contain path separators or be . or ..", s.Name)
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate station name: %s", s.Name)
		}
		seen[s.Name] = true

		switch s.Source {
		case SourceCSV:
			if s.CSV == nil || s.CSV.Path == "" {
				return fmt.Errorf("station %s: csv.path is required", s.Name)
			}
		case SourceTimescaleDB:
			if s.TimescaleDB == nil || s.TimescaleDB.ConnectionString == "" {
				return fmt.Errorf("station %s: timescaledb.connection_string is required", s.Name)
			}
		default:
			return fmt.Errorf("station %s: unsupported source type %q", s.Name, s.Source)
		}

		if s.Analysis != nil {
			if err := s.Analysis.Validate(); err != nil {
				return fmt.Errorf("station %s analysis: %w", s.Name, err)
			}
		}
	}

	return nil
}

// Validate checks the thresholds
func (a AnalysisData) Validate() error {
	if a.GapHours < 0 {
		return fmt.Errorf("gap_hours must be non-negative, got %d", a.GapHours)
	}
	if a.RainfallThreshold < 0 || a.CumulativeThreshold < 0 || a.DurationThreshold < 0 {
		return fmt.Errorf("thresholds must be non-negative")
	}
	return nil
}
