package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chrissnell/rainevents/internal/rainfall"
	"github.com/chrissnell/rainevents/pkg/config"
	"go.uber.org/zap"
)

// Layouts tried, in order, when no explicit time layout is configured
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04",
}

// CSV reads an hourly export with a time column and a depth column
type CSV struct {
	path        string
	timeColumn  string
	depthColumn string
	layout      string
	location    *time.Location
	logger      *zap.SugaredLogger
}

// NewCSV creates a CSV source
func NewCSV(cfg config.CSVSourceData, logger *zap.SugaredLogger) (*CSV, error) {
	c := &CSV{
		path:        cfg.Path,
		timeColumn:  cfg.TimeColumn,
		depthColumn: cfg.DepthColumn,
		layout:      cfg.TimeLayout,
		location:    time.UTC,
		logger:      logger,
	}
	if c.timeColumn == "" {
		c.timeColumn = config.DefaultTimeColumn
	}
	if c.depthColumn == "" {
		c.depthColumn = config.DefaultDepthColumn
	}
	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("loading timezone %q: %w", cfg.Timezone, err)
		}
		c.location = loc
	}
	return c, nil
}

// BaseName returns the file name without directory or extension
func (c *CSV) BaseName() string {
	return strings.TrimSuffix(filepath.Base(c.path), filepath.Ext(c.path))
}

// Load reads and sorts the whole file
func (c *CSV) Load(ctx context.Context) (*Series, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	series, err := c.Read(ctx, f)
	if err != nil {
		return nil, err
	}
	if series.Coerced > 0 {
		c.logger.Debugf("coerced %d missing or non-numeric depths to 0 in %s", series.Coerced, c.BaseName())
	}
	return series, nil
}

// Read parses CSV rows from r
func (c *CSV) Read(ctx context.Context, r io.Reader) (*Series, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", c.path, err)
	}

	timeIdx, depthIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case c.timeColumn:
			timeIdx = i
		case c.depthColumn:
			depthIdx = i
		}
	}
	if timeIdx < 0 || depthIdx < 0 {
		return nil, fmt.Errorf("%s: header must contain %q and %q columns", c.path, c.timeColumn, c.depthColumn)
	}

	series := &Series{Origin: c.path}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", c.path, err)
		}
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		raw := field(record, timeIdx)
		ts, err := c.parseTime(raw)
		if err != nil {
			return nil, &MalformedSampleError{Origin: c.path, Line: line, Value: raw, Err: err}
		}

		v, perr := strconv.ParseFloat(field(record, depthIdx), 64)
		depth, coerced := coerceDepth(v, perr == nil)
		if coerced {
			series.Coerced++
		}

		series.Samples = append(series.Samples, rainfall.Sample{Time: ts, Depth: depth})
	}

	sortSamples(series.Samples)
	return series, nil
}

func (c *CSV) parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("empty value")
	}
	if c.layout != "" {
		return time.ParseInLocation(c.layout, v, c.location)
	}
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(layout, v, c.location)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// Close is a no-op; the file is closed after each Load
func (c *CSV) Close() error {
	return nil
}

func field(record []string, idx int) string {
	if idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
