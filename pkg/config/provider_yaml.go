package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// analysisYAML uses pointers so an omitted key keeps its default
type analysisYAML struct {
	RainfallThreshold   *float64 `yaml:"rainfall_threshold"`
	CumulativeThreshold *float64 `yaml:"cumulative_threshold"`
	DurationThreshold   *float64 `yaml:"duration_threshold"`
	GapHours            *int     `yaml:"gap_hours"`
	KeepTrailingGaps    bool     `yaml:"keep_trailing_gaps"`
}

type stationYAML struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
	CSV    *struct {
		Path        string `yaml:"path"`
		TimeColumn  string `yaml:"time_column"`
		DepthColumn string `yaml:"depth_column"`
		TimeLayout  string `yaml:"time_layout"`
		Timezone    string `yaml:"timezone"`
	} `yaml:"csv,omitempty"`
	TimescaleDB *struct {
		ConnectionString string `yaml:"connection_string"`
		StationName      string `yaml:"station_name"`
		Start            string `yaml:"start"`
		End              string `yaml:"end"`
	} `yaml:"timescaledb,omitempty"`
	Analysis *analysisYAML `yaml:"analysis,omitempty"`
}

type configYAML struct {
	Analysis analysisYAML  `yaml:"analysis"`
	Stations []stationYAML `yaml:"stations"`
	Output   struct {
		Dir        string `yaml:"dir"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"output"`
	REST *struct {
		ListenAddr string `yaml:"listen_addr"`
		Port       int    `yaml:"port"`
	} `yaml:"rest,omitempty"`
	Log struct {
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
	} `yaml:"log"`
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	config, err := parseYAML(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", y.filename, err)
	}

	y.config = config
	return config, nil
}

func parseYAML(data []byte) (*ConfigData, error) {
	var yamlConfig configYAML
	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return nil, err
	}

	// Convert to our internal format
	config := &ConfigData{
		Analysis: yamlConfig.Analysis.toData(DefaultAnalysis()),
		Stations: make([]StationData, len(yamlConfig.Stations)),
		Output: OutputData{
			Dir:        yamlConfig.Output.Dir,
			SQLitePath: yamlConfig.Output.SQLitePath,
		},
		Log: LogData{
			File:       yamlConfig.Log.File,
			MaxSizeMB:  yamlConfig.Log.MaxSizeMB,
			MaxBackups: yamlConfig.Log.MaxBackups,
		},
	}

	if yamlConfig.REST != nil {
		config.REST = &RESTServerData{
			ListenAddr: yamlConfig.REST.ListenAddr,
			Port:       yamlConfig.REST.Port,
		}
	}

	for i, station := range yamlConfig.Stations {
		s := StationData{
			Name:   station.Name,
			Source: station.Source,
		}

		if station.CSV != nil {
			s.CSV = &CSVSourceData{
				Path:        station.CSV.Path,
				TimeColumn:  station.CSV.TimeColumn,
				DepthColumn: station.CSV.DepthColumn,
				TimeLayout:  station.CSV.TimeLayout,
				Timezone:    station.CSV.Timezone,
			}
		}

		if station.TimescaleDB != nil {
			var err error
			s.TimescaleDB = &TimescaleDBSourceData{
				ConnectionString: station.TimescaleDB.ConnectionString,
				StationName:      station.TimescaleDB.StationName,
			}
			if s.TimescaleDB.Start, err = parseBound(station.TimescaleDB.Start); err != nil {
				return nil, fmt.Errorf("station %s: timescaledb.start: %w", station.Name, err)
			}
			if s.TimescaleDB.End, err = parseBound(station.TimescaleDB.End); err != nil {
				return nil, fmt.Errorf("station %s: timescaledb.end: %w", station.Name, err)
			}
		}

		if station.Analysis != nil {
			a := station.Analysis.toData(config.Analysis)
			s.Analysis = &a
		}

		config.Stations[i] = s
	}

	config.ApplyDefaults()
	return config, nil
}

// toData overlays the keys present in the YAML onto base
func (a analysisYAML) toData(base AnalysisData) AnalysisData {
	if a.RainfallThreshold != nil {
		base.RainfallThreshold = *a.RainfallThreshold
	}
	if a.CumulativeThreshold != nil {
		base.CumulativeThreshold = *a.CumulativeThreshold
	}
	if a.DurationThreshold != nil {
		base.DurationThreshold = *a.DurationThreshold
	}
	if a.GapHours != nil {
		base.GapHours = *a.GapHours
	}
	if a.KeepTrailingGaps {
		base.KeepTrailingGaps = true
	}
	return base
}

func parseBound(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", v)
}

// GetStations returns station configurations
func (y *YAMLProvider) GetStations() ([]StationData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return y.config.Stations, nil
}

// GetAnalysis returns the global analysis thresholds
func (y *YAMLProvider) GetAnalysis() (*AnalysisData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Analysis, nil
}

// IsReadOnly returns true since YAML files are read-only through this interface
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}
