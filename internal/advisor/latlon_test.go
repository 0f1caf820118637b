package advisor

import "testing"

func TestExtractLatLon(t *testing.T) {
	tests := []struct {
		name string
		text string
		lat  float64
		lon  float64
		ok   bool
	}{
		{"comma pair", "19.07,72.87", 19.07, 72.87, true},
		{"comma pair with spaces", "I'm at 19.07 , 72.87 right now", 19.07, 72.87, true},
		{"lat lon words", "lat 19.07 lon 72.87", 19.07, 72.87, true},
		{"lat lon with colons", "lat: -33.87, lon: 151.21", -33.87, 151.21, true},
		{"negative pair", "-33.87,151.21", -33.87, 151.21, true},
		{"lat out of range", "91.0,72.87", 0, 0, false},
		{"lon out of range", "19.07,181.0", 0, 0, false},
		{"no coordinates", "my field near the river", 0, 0, false},
		{"empty", "", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lat, lon := ExtractLatLon(tt.text)
			if !tt.ok {
				if lat != nil || lon != nil {
					t.Fatalf("ExtractLatLon(%q) = (%v, %v), want discarded", tt.text, lat, lon)
				}
				return
			}
			if lat == nil || lon == nil {
				t.Fatalf("ExtractLatLon(%q) returned nil, want (%v, %v)", tt.text, tt.lat, tt.lon)
			}
			if *lat != tt.lat || *lon != tt.lon {
				t.Errorf("ExtractLatLon(%q) = (%v, %v), want (%v, %v)", tt.text, *lat, *lon, tt.lat, tt.lon)
			}
		})
	}
}
