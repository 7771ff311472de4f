package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/khanhnv2901/webprof-cli/internal/profiler"
)

type telemetryRecord struct {
	Timestamp            time.Time `json:"timestamp"`
	Command              string    `json:"command"`
	TargetCount          int       `json:"target_count"`
	ResponseCount        int       `json:"response_count"`
	RestrictedCount      int       `json:"restricted_count"`
	DurationSeconds      float64   `json:"duration_seconds"`
	AvgDurationPerTarget float64   `json:"avg_duration_per_target"`
}

// recordTelemetry appends one JSONL record per run for later trend analysis.
func recordTelemetry(dir string, command string, profiles []*profiler.Profile, duration time.Duration) error {
	responseCount, restrictedCount := summarizeProfiles(profiles)
	total := len(profiles)

	avgDuration := 0.0
	if total > 0 {
		avgDuration = duration.Seconds() / float64(total)
	}

	record := telemetryRecord{
		Timestamp:            time.Now().UTC(),
		Command:              command,
		TargetCount:          total,
		ResponseCount:        responseCount,
		RestrictedCount:      restrictedCount,
		DurationSeconds:      duration.Seconds(),
		AvgDurationPerTarget: avgDuration,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}

	telemetryPath := filepath.Join(dir, "telemetry.jsonl")
	f, err := os.OpenFile(telemetryPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open telemetry file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write telemetry: %w", err)
	}

	return nil
}

func summarizeProfiles(profiles []*profiler.Profile) (responseCount, restrictedCount int) {
	for _, p := range profiles {
		if p == nil {
			continue
		}
		if p.StatusCode != nil {
			responseCount++
		}
		for _, res := range p.Restrictions {
			if res.Flag {
				restrictedCount++
				break
			}
		}
	}
	return responseCount, restrictedCount
}
