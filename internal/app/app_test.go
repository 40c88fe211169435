package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chrissnell/rainevents/internal/report"
	"github.com/chrissnell/rainevents/pkg/config"
	"go.uber.org/zap"
)

const hourlyCSV = `time,prcp
2024-06-01 00:00:00,0.5
2024-06-01 01:00:00,1.0
2024-06-01 02:00:00,0
2024-06-01 03:00:00,1.5
2024-06-01 04:00:00,0.5
2024-06-01 05:00:00,0
2024-06-01 06:00:00,0
`

func writeConfig(t *testing.T, dir, analysis string) string {
	t.Helper()
	input := filepath.Join(dir, "72658_hourly.csv")
	if err := os.WriteFile(input, []byte(hourlyCSV), 0o644); err != nil {
		t.Fatalf("writing input: %v", err)
	}

	body := fmt.Sprintf(`
analysis:
%s
stations:
  - name: "72658_hourly"
    csv:
      path: %s
output:
  dir: %s
  sqlite_path: %s
`, analysis, input, filepath.Join(dir, "out"), filepath.Join(dir, "runs.db"))

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestRunWritesReports(t *testing.T) {
	dir := t.TempDir()
	provider := config.NewYAMLProvider(writeConfig(t, dir, "  duration_threshold: 4\n  cumulative_threshold: 3"))
	defer provider.Close()

	if err := New(provider, zap.NewNop().Sugar()).Run(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stationDir := filepath.Join(dir, "out", "72658_hourly")
	for _, name := range []string{
		report.EventsFile,
		report.NormalizedFile,
		filepath.Join(report.HyetographDir, "event_1_data.csv"),
		filepath.Join(report.CumulativeDir, "event_1_cumulative.csv"),
	} {
		if _, err := os.Stat(filepath.Join(stationDir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "runs.db")); err != nil {
		t.Errorf("expected sqlite archive: %v", err)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	provider := config.NewYAMLProvider(writeConfig(t, dir, "  gap_hours: -1"))
	defer provider.Close()

	err := New(provider, zap.NewNop().Sugar()).Run(context.Background(), false)
	if err == nil || !strings.Contains(err.Error(), "gap_hours") {
		t.Fatalf("expected gap_hours validation error, got %v", err)
	}
}
