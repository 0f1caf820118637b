package advisor

import "time"

// Default maximum ages for cached tool results.
const (
	DefaultWeatherMaxAge = 6 * time.Hour
	DefaultWebMaxAge     = 24 * time.Hour
)

// Freshness holds the staleness thresholds the router applies to cached tool
// results.
type Freshness struct {
	WeatherMaxAge time.Duration
	WebMaxAge     time.Duration
}

// DefaultFreshness returns the standard thresholds.
func DefaultFreshness() Freshness {
	return Freshness{
		WeatherMaxAge: DefaultWeatherMaxAge,
		WebMaxAge:     DefaultWebMaxAge,
	}
}

// Stale reports whether a snapshot fetched at fetchedAt (RFC3339) is older
// than maxAge at time now. An empty or unparseable timestamp is always stale.
func Stale(fetchedAt string, now time.Time, maxAge time.Duration) bool {
	if fetchedAt == "" {
		return true
	}
	t, err := time.Parse(time.RFC3339, fetchedAt)
	if err != nil {
		return true
	}
	return now.Sub(t) > maxAge
}

// WeatherStale reports whether the state's weather snapshot needs refreshing.
// A missing snapshot is stale.
func WeatherStale(s *State, now time.Time, maxAge time.Duration) bool {
	if s.Weather == nil {
		return true
	}
	return Stale(s.Weather.FetchedAt, now, maxAge)
}

// WebStale reports whether the state's web context needs refreshing.
func WebStale(s *State, now time.Time, maxAge time.Duration) bool {
	if s.Web == nil {
		return true
	}
	return Stale(s.Web.FetchedAt, now, maxAge)
}
