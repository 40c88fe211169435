package database

import (
	"database/sql"
	"time"
)

// HourlyRainBucket is one row of the hourly continuous aggregate
type HourlyRainBucket struct {
	Bucket      time.Time       `gorm:"column:bucket"`
	StationName string          `gorm:"column:stationname"`
	PeriodRain  sql.NullFloat64 `gorm:"column:period_rain"`
}

// TableName implements the Tabler interface for the HourlyRainBucket struct
func (HourlyRainBucket) TableName() string {
	return "weather_1h"
}
