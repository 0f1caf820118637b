package advisor

import (
	"testing"
	"time"
)

func TestStale(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		fetchedAt string
		maxAge    time.Duration
		want      bool
	}{
		{"empty timestamp is always stale", "", time.Hour, true},
		{"garbage timestamp is always stale", "yesterday-ish", time.Hour, true},
		{"within max age", now.Add(-30 * time.Minute).Format(time.RFC3339), time.Hour, false},
		{"exactly at max age", now.Add(-time.Hour).Format(time.RFC3339), time.Hour, false},
		{"past max age", now.Add(-7 * time.Hour).Format(time.RFC3339), 6 * time.Hour, true},
		{"future timestamp is fresh", now.Add(time.Hour).Format(time.RFC3339), time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Stale(tt.fetchedAt, now, tt.maxAge); got != tt.want {
				t.Errorf("Stale(%q) = %v, want %v", tt.fetchedAt, got, tt.want)
			}
		})
	}
}

func TestWeatherStaleNilSnapshot(t *testing.T) {
	s := NewState("c1")
	if !WeatherStale(s, time.Now(), DefaultWeatherMaxAge) {
		t.Error("nil snapshot must be stale")
	}
	if !WebStale(s, time.Now(), DefaultWebMaxAge) {
		t.Error("nil web context must be stale")
	}
}

func TestWeatherStaleFreshSnapshot(t *testing.T) {
	now := time.Now()
	s := NewState("c1")
	s.Weather = &WeatherSnapshot{FetchedAt: UTCNow(now.Add(-time.Hour))}

	if WeatherStale(s, now, DefaultWeatherMaxAge) {
		t.Error("1h-old snapshot should be fresh under the 6h default")
	}
	if !WeatherStale(s, now.Add(6*time.Hour), DefaultWeatherMaxAge) {
		t.Error("7h-old snapshot should be stale under the 6h default")
	}
}
