package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chrissnell/rainevents/internal/log"
	"go.uber.org/zap"
)

// Client holds the connection to a TimescaleDB database
type Client struct {
	DB     *gorm.DB // Exported so it can be accessed from other packages
	logger *zap.SugaredLogger
}

// NewClient wraps an open gorm connection
func NewClient(db *gorm.DB, logger *zap.SugaredLogger) *Client {
	return &Client{
		DB:     db,
		logger: logger,
	}
}

// Connect opens a TimescaleDB connection with the standard GORM configuration
func Connect(connectionString string, logger *zap.SugaredLogger) (*Client, error) {
	db, err := CreateConnection(connectionString)
	if err != nil {
		return nil, err
	}
	return NewClient(db, logger), nil
}

// HourlyRain returns the hourly rainfall buckets of a station in ascending time
// order. Zero start or end leaves that side of the range open.
func (c *Client) HourlyRain(ctx context.Context, stationName string, start, end time.Time) ([]HourlyRainBucket, error) {
	var buckets []HourlyRainBucket

	if err := c.hourlyRainQuery(ctx, stationName, start, end).Find(&buckets).Error; err != nil {
		return nil, fmt.Errorf("error querying hourly rainfall for %s: %w", stationName, err)
	}

	c.logger.Debugf("fetched %d hourly rain buckets for %s", len(buckets), stationName)
	return buckets, nil
}

func (c *Client) hourlyRainQuery(ctx context.Context, stationName string, start, end time.Time) *gorm.DB {
	q := c.DB.WithContext(ctx).
		Model(&HourlyRainBucket{}).
		Select("bucket, stationname, period_rain").
		Where("stationname = ?", stationName)
	if !start.IsZero() {
		q = q.Where("bucket >= ?", start)
	}
	if !end.IsZero() {
		q = q.Where("bucket < ?", end)
	}
	return q.Order("bucket")
}

// Close releases the underlying connection pool
func (c *Client) Close() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateConnection is a helper function to create a database connection with standard GORM configuration
func CreateConnection(connectionString string) (*gorm.DB, error) {
	// Create a logger for gorm
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logger.Warn, // Log level
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	log.Info("connecting to TimescaleDB...")
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		log.Warnf("warning: unable to create a TimescaleDB connection: %v", err)
		return nil, err
	}
	log.Info("TimescaleDB connection successful")

	return db, nil
}
