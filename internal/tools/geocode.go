package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/cropsage/cropsage/internal/advisor"
)

// geoEntry is one OpenWeather direct-geocoding result.
type geoEntry struct {
	Name    string  `json:"name"`
	State   string  `json:"state"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Geocode resolves a free-text place name to coordinates via the OpenWeather
// direct geocoding API. An empty place or an unresolvable one is an error so
// the caller can stop re-trying the same text every turn.
func (c *Client) Geocode(ctx context.Context, place string) (*advisor.GeoResult, error) {
	place = strings.TrimSpace(place)
	if place == "" {
		return nil, fmt.Errorf("%w: geocode: empty place", ErrTool)
	}

	resp, err := c.doWithRetry(ctx, "geocode", func(ctx context.Context) (*resty.Response, error) {
		return c.weather.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"q":     place,
				"limit": "1",
				"appid": c.owKey,
			}).
			Get("/geo/1.0/direct")
	})
	if err != nil {
		return nil, err
	}

	var entries []geoEntry
	if err := json.Unmarshal(resp.Body(), &entries); err != nil {
		return nil, fmt.Errorf("%w: geocode: parsing response: %w", ErrTool, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: geocode: no match for %q", ErrTool, place)
	}

	top := entries[0]
	if !advisor.ValidCoords(top.Lat, top.Lon) {
		return nil, fmt.Errorf("%w: geocode: coordinates out of range for %q", ErrTool, place)
	}

	var parts []string
	for _, p := range []string{top.Name, top.State, top.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	c.logger.Debug("geocoded place", "place", place, "resolved", strings.Join(parts, ", "))
	return &advisor.GeoResult{
		Lat:  top.Lat,
		Lon:  top.Lon,
		Name: strings.Join(parts, ", "),
	}, nil
}
