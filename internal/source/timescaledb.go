package source

import (
	"context"
	"fmt"
	"time"

	"github.com/chrissnell/rainevents/internal/database"
	"github.com/chrissnell/rainevents/internal/rainfall"
	"github.com/chrissnell/rainevents/pkg/config"
	"go.uber.org/zap"
)

// TimescaleDB reads the hourly rainfall aggregate of a remoteweather station
type TimescaleDB struct {
	client      *database.Client
	stationName string
	start, end  time.Time
}

// NewTimescaleDB connects to the database described by cfg
func NewTimescaleDB(cfg config.TimescaleDBSourceData, logger *zap.SugaredLogger) (*TimescaleDB, error) {
	client, err := database.Connect(cfg.ConnectionString, logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to TimescaleDB: %w", err)
	}
	return NewTimescaleDBWithClient(client, cfg), nil
}

// NewTimescaleDBWithClient reuses an existing database client
func NewTimescaleDBWithClient(client *database.Client, cfg config.TimescaleDBSourceData) *TimescaleDB {
	return &TimescaleDB{
		client:      client,
		stationName: cfg.StationName,
		start:       cfg.Start,
		end:         cfg.End,
	}
}

// Load fetches the station's hourly buckets
func (t *TimescaleDB) Load(ctx context.Context) (*Series, error) {
	buckets, err := t.client.HourlyRain(ctx, t.stationName, t.start, t.end)
	if err != nil {
		return nil, err
	}
	return bucketsToSeries("timescaledb:"+t.stationName, buckets), nil
}

func bucketsToSeries(origin string, buckets []database.HourlyRainBucket) *Series {
	series := &Series{
		Origin:  origin,
		Samples: make([]rainfall.Sample, len(buckets)),
	}
	for i, b := range buckets {
		depth, coerced := coerceDepth(b.PeriodRain.Float64, b.PeriodRain.Valid)
		if coerced {
			series.Coerced++
		}
		series.Samples[i] = rainfall.Sample{Time: b.Bucket, Depth: depth}
	}
	sortSamples(series.Samples)
	return series
}

// Close closes the database connection
func (t *TimescaleDB) Close() error {
	return t.client.Close()
}
