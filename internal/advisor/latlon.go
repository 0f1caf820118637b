package advisor

import (
	"regexp"
	"strconv"
)

// latLonRe matches either "lat 19.07 lon 72.87" (with optional ':' or '=')
// or a bare "19.07,72.87" pair.
var latLonRe = regexp.MustCompile(
	`(?i)lat\s*[:=]?\s*(-?\d+(?:\.\d+)?)[,\s]+lon\s*[:=]?\s*(-?\d+(?:\.\d+)?)` +
		`|(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)`)

// ExtractLatLon extracts a coordinate pair from free text. Both components
// must parse and be in valid lat/lon range, otherwise the whole extraction is
// discarded and (nil, nil) is returned.
func ExtractLatLon(text string) (*float64, *float64) {
	m := latLonRe.FindStringSubmatch(text)
	if m == nil {
		return nil, nil
	}

	latS, lonS := m[1], m[2]
	if latS == "" {
		latS, lonS = m[3], m[4]
	}

	lat, err := strconv.ParseFloat(latS, 64)
	if err != nil {
		return nil, nil
	}
	lon, err := strconv.ParseFloat(lonS, 64)
	if err != nil {
		return nil, nil
	}
	if !ValidCoords(lat, lon) {
		return nil, nil
	}
	return &lat, &lon
}
