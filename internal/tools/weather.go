package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/cropsage/cropsage/internal/advisor"
)

// oneCallResponse is the subset of the One Call 3.0 payload the snapshot
// keeps. Everything else is dropped to bound model context.
type oneCallResponse struct {
	Current struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
		Weather  []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
	} `json:"current"`
	Hourly []struct {
		Dt      int64   `json:"dt"`
		Temp    float64 `json:"temp"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Rain struct {
			OneHour float64 `json:"1h"`
		} `json:"rain"`
	} `json:"hourly"`
	Daily []struct {
		Dt   int64 `json:"dt"`
		Temp struct {
			Min float64 `json:"min"`
			Max float64 `json:"max"`
		} `json:"temp"`
		Humidity int     `json:"humidity"`
		Rain     float64 `json:"rain"`
		Weather  []struct {
			Description string `json:"description"`
		} `json:"weather"`
	} `json:"daily"`
	Alerts []struct {
		Event string `json:"event"`
	} `json:"alerts"`
}

// FetchWeather pulls a forecast for lat/lon from the One Call 3.0 API and
// condenses it into a snapshot: a one-line current summary, at most 3 alert
// events, 5 daily entries, and 12 hourly entries.
func (c *Client) FetchWeather(ctx context.Context, lat, lon float64) (*advisor.WeatherSnapshot, error) {
	if !advisor.ValidCoords(lat, lon) {
		return nil, fmt.Errorf("%w: weather: coordinates out of range", ErrTool)
	}

	resp, err := c.doWithRetry(ctx, "weather", func(ctx context.Context) (*resty.Response, error) {
		return c.weather.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"lat":     strconv.FormatFloat(lat, 'f', -1, 64),
				"lon":     strconv.FormatFloat(lon, 'f', -1, 64),
				"appid":   c.owKey,
				"units":   c.units,
				"exclude": "minutely",
				"lang":    "en",
			}).
			Get("/data/3.0/onecall")
	})
	if err != nil {
		return nil, err
	}

	var oc oneCallResponse
	if err := json.Unmarshal(resp.Body(), &oc); err != nil {
		return nil, fmt.Errorf("%w: weather: parsing response: %w", ErrTool, err)
	}

	snap := &advisor.WeatherSnapshot{
		Source:    "openweather",
		FetchedAt: advisor.UTCNow(c.now()),
		Summary:   c.summarizeCurrent(oc),
		Alerts:    alertEvents(oc),
		Daily:     dailyEntries(oc),
		Hourly:    hourlyEntries(oc),
	}
	c.logger.Debug("fetched weather",
		"summary", snap.Summary,
		"alerts", len(snap.Alerts),
		"daily", len(snap.Daily),
	)
	return snap, nil
}

// summarizeCurrent renders the one-line current-conditions summary, e.g.
// "Rain: light rain | Temp 27.5°C | Humidity 82%".
func (c *Client) summarizeCurrent(oc oneCallResponse) string {
	unit := "°C"
	switch c.units {
	case "imperial":
		unit = "°F"
	case "standard":
		unit = "K"
	}

	var parts []string
	if len(oc.Current.Weather) > 0 {
		w := oc.Current.Weather[0]
		switch {
		case w.Main != "" && w.Description != "":
			parts = append(parts, w.Main+": "+w.Description)
		case w.Main != "":
			parts = append(parts, w.Main)
		case w.Description != "":
			parts = append(parts, w.Description)
		}
	}
	parts = append(parts,
		fmt.Sprintf("Temp %.1f%s", oc.Current.Temp, unit),
		fmt.Sprintf("Humidity %d%%", oc.Current.Humidity),
	)

	out := parts[0]
	for _, p := range parts[1:] {
		out += " | " + p
	}
	return out
}

func alertEvents(oc oneCallResponse) []string {
	var out []string
	for _, a := range oc.Alerts {
		event := a.Event
		if event == "" {
			event = "Alert"
		}
		out = append(out, event)
		if len(out) == 3 {
			break
		}
	}
	return out
}

func dailyEntries(oc oneCallResponse) []advisor.DailyForecast {
	var out []advisor.DailyForecast
	for _, d := range oc.Daily {
		entry := advisor.DailyForecast{
			Date:        time.Unix(d.Dt, 0).UTC().Format("2006-01-02"),
			TempMin:     d.Temp.Min,
			TempMax:     d.Temp.Max,
			RainMM:      d.Rain,
			HumidityPct: d.Humidity,
		}
		if len(d.Weather) > 0 {
			entry.Summary = d.Weather[0].Description
		}
		out = append(out, entry)
		if len(out) == advisor.MaxDailyEntries {
			break
		}
	}
	return out
}

func hourlyEntries(oc oneCallResponse) []advisor.HourlyForecast {
	var out []advisor.HourlyForecast
	for _, h := range oc.Hourly {
		entry := advisor.HourlyForecast{
			Time:   time.Unix(h.Dt, 0).UTC().Format(time.RFC3339),
			Temp:   h.Temp,
			RainMM: h.Rain.OneHour,
		}
		if len(h.Weather) > 0 {
			entry.Summary = h.Weather[0].Description
		}
		out = append(out, entry)
		if len(out) == advisor.MaxHourlyEntries {
			break
		}
	}
	return out
}
