package database

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func dryRunClient(t *testing.T) *Client {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost user=weather dbname=weather sslmode=disable"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	if err != nil {
		t.Fatalf("opening dry-run connection: %v", err)
	}
	return NewClient(db, zap.NewNop().Sugar())
}

func TestHourlyRainQuery(t *testing.T) {
	c := dryRunClient(t)

	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		contains []string
		excludes []string
	}{
		{
			name:     "open range",
			contains: []string{"weather_1h", "stationname = $1", "ORDER BY bucket"},
			excludes: []string{"bucket >=", "bucket <"},
		},
		{
			name:     "bounded range",
			start:    time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
			end:      time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
			contains: []string{"bucket >= $2", "bucket < $3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buckets []HourlyRainBucket
			stmt := c.hourlyRainQuery(context.Background(), "CSI", tt.start, tt.end).Find(&buckets).Statement
			sql := stmt.SQL.String()

			for _, want := range tt.contains {
				if !strings.Contains(sql, want) {
					t.Errorf("expected %q in query %q", want, sql)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(sql, unwanted) {
					t.Errorf("did not expect %q in query %q", unwanted, sql)
				}
			}
			if stmt.Vars[0] != "CSI" {
				t.Errorf("expected station bound first, got %v", stmt.Vars[0])
			}
		})
	}
}
