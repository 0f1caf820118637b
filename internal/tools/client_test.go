package tools

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNow() time.Time {
	return time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
}

// newTestClient builds a Client pointed at the given test servers with a
// fixed clock.
func newTestClient(t *testing.T, owURL, tvURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		OpenWeatherKey:     "ow-key",
		TavilyKey:          "tv-key",
		OpenWeatherBaseURL: owURL,
		TavilyBaseURL:      tvURL,
	})
	require.NoError(t, err)
	c.now = testNow
	return c
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{TavilyKey: "tv"})
	require.Error(t, err)

	_, err = NewClient(Config{OpenWeatherKey: "ow"})
	require.Error(t, err)

	c, err := NewClient(Config{OpenWeatherKey: "ow", TavilyKey: "tv"})
	require.NoError(t, err)
	assert.Equal(t, "metric", c.units)
	assert.Equal(t, defaultMaxResults, c.maxResults)
}

func TestGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geo/1.0/direct", r.URL.Path)
		assert.Equal(t, "Nagpur", r.URL.Query().Get("q"))
		assert.Equal(t, "ow-key", r.URL.Query().Get("appid"))
		json.NewEncoder(w).Encode([]map[string]any{
			{"name": "Nagpur", "state": "Maharashtra", "country": "IN", "lat": 21.15, "lon": 79.09},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	got, err := c.Geocode(t.Context(), "Nagpur")
	require.NoError(t, err)
	assert.Equal(t, 21.15, got.Lat)
	assert.Equal(t, 79.09, got.Lon)
	assert.Equal(t, "Nagpur, Maharashtra, IN", got.Name)
}

func TestGeocodeNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	_, err := c.Geocode(t.Context(), "Nowhereville")
	require.ErrorIs(t, err, ErrTool)
}

func TestGeocodeEmptyPlace(t *testing.T) {
	c := newTestClient(t, "http://unused", "http://unused")
	_, err := c.Geocode(t.Context(), "   ")
	require.ErrorIs(t, err, ErrTool)
}

func TestGeocodeHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	_, err := c.Geocode(t.Context(), "Nagpur")
	require.ErrorIs(t, err, ErrTool)
}

func TestFetchWeather(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/3.0/onecall", r.URL.Path)
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "minutely", r.URL.Query().Get("exclude"))

		daily := make([]map[string]any, 7)
		for i := range daily {
			daily[i] = map[string]any{
				"dt":       1749513600 + int64(i)*86400,
				"temp":     map[string]any{"min": 22.0, "max": 31.0},
				"humidity": 70,
				"rain":     4.5,
				"weather":  []map[string]any{{"description": "moderate rain"}},
			}
		}
		hourly := make([]map[string]any, 24)
		for i := range hourly {
			hourly[i] = map[string]any{
				"dt":      1749513600 + int64(i)*3600,
				"temp":    27.0,
				"weather": []map[string]any{{"description": "light rain"}},
				"rain":    map[string]any{"1h": 0.8},
			}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"current": map[string]any{
				"temp":     27.52,
				"humidity": 82,
				"weather":  []map[string]any{{"main": "Rain", "description": "light rain"}},
			},
			"hourly": hourly,
			"daily":  daily,
			"alerts": []map[string]any{
				{"event": "Thunderstorm Warning"},
				{"event": "Flood Watch"},
				{"event": "Wind Advisory"},
				{"event": "Heat Advisory"},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	snap, err := c.FetchWeather(t.Context(), 21.15, 79.09)
	require.NoError(t, err)

	assert.Equal(t, "openweather", snap.Source)
	assert.Equal(t, "2025-06-10T12:00:00Z", snap.FetchedAt)
	assert.Equal(t, "Rain: light rain | Temp 27.5°C | Humidity 82%", snap.Summary)
	assert.Equal(t, []string{"Thunderstorm Warning", "Flood Watch", "Wind Advisory"}, snap.Alerts)
	require.Len(t, snap.Daily, 5)
	assert.Equal(t, "2025-06-10", snap.Daily[0].Date)
	assert.Equal(t, 22.0, snap.Daily[0].TempMin)
	assert.Equal(t, 31.0, snap.Daily[0].TempMax)
	assert.Equal(t, 4.5, snap.Daily[0].RainMM)
	assert.Equal(t, "moderate rain", snap.Daily[0].Summary)
	assert.Len(t, snap.Hourly, 12)
	assert.Equal(t, 0.8, snap.Hourly[0].RainMM)
}

func TestFetchWeatherRejectsBadCoords(t *testing.T) {
	c := newTestClient(t, "http://unused", "http://unused")
	_, err := c.FetchWeather(t.Context(), 95, 10)
	require.ErrorIs(t, err, ErrTool)
}

func TestSearchWeb(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer tv-key", r.Header.Get("Authorization"))

		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "cotton vegetative farming best practices", req.Query)
		assert.Equal(t, "basic", req.SearchDepth)
		assert.Equal(t, "month", req.TimeRange)
		assert.False(t, req.IncludeRawContent)

		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"title": "Cotton IPM guide", "url": "https://example.org/ipm", "content": "Scout weekly for whitefly."},
				{"title": "", "url": "https://example.org/extension", "content": "Yellowing often means nitrogen deficiency."},
				{"title": "No content", "url": "", "content": ""},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	wc, err := c.SearchWeb(t.Context(), "cotton vegetative farming best practices", "month")
	require.NoError(t, err)

	assert.Equal(t, "tavily", wc.Source)
	assert.Equal(t, "2025-06-10T12:00:00Z", wc.FetchedAt)
	assert.Equal(t, []string{
		"Cotton IPM guide - Scout weekly for whitefly.",
		"Yellowing often means nitrogen deficiency.",
	}, wc.Snippets)
	assert.Equal(t, []string{"https://example.org/ipm", "https://example.org/extension"}, wc.URLs)
}

func TestSearchWebEmptyQuery(t *testing.T) {
	c := newTestClient(t, "http://unused", "http://unused")
	_, err := c.SearchWeb(t.Context(), "  ", "")
	require.ErrorIs(t, err, ErrTool)
}

func TestBuildSnippetTruncates(t *testing.T) {
	long := make([]byte, maxSnippetLen*2)
	for i := range long {
		long[i] = 'x'
	}
	got := buildSnippet("Title", string(long))
	assert.Len(t, got, maxSnippetLen)
}

func TestBuildSnippetTruncatesOnRuneBoundary(t *testing.T) {
	got := buildSnippet("कपास की देखभाल", strings.Repeat("ข", maxSnippetLen))
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, maxSnippetLen, utf8.RuneCountInString(got))
}
