package advisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr(f float64) *float64 { return &f }

func TestNextStepPrecedence(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	fresh := DefaultFreshness()

	base := func() *State {
		s := NewState("c1")
		s.Context = FarmerContext{
			Crop:  "wheat",
			Stage: StageVegetative,
			Lat:   ptr(19.07),
			Lon:   ptr(72.87),
		}
		return s
	}

	t.Run("empty context asks", func(t *testing.T) {
		s := NewState("c1")
		assert.Equal(t, StepAsk, NextStep(s, now, fresh))
	})

	t.Run("location text alone satisfies the location gate", func(t *testing.T) {
		s := NewState("c1")
		s.Context.LocationText = "Nashik, Maharashtra"
		assert.Equal(t, StepAsk, NextStep(s, now, fresh), "still asks: crop missing")

		s.Context.Crop = "grape"
		assert.Equal(t, StepAsk, NextStep(s, now, fresh), "still asks: stage unknown")

		s.Context.Stage = StageFruiting
		// Text-only location still routes to weather: the weather node
		// geocodes before fetching.
		assert.Equal(t, StepWeather, NextStep(s, now, fresh))

		s.Weather = &WeatherSnapshot{FetchedAt: UTCNow(now.Add(-time.Hour))}
		assert.Equal(t, StepAdvice, NextStep(s, now, fresh))
	})

	t.Run("stale weather wins before web", func(t *testing.T) {
		s := base()
		s.Weather = &WeatherSnapshot{FetchedAt: UTCNow(now.Add(-7 * time.Hour))}
		s.Observation.Symptoms = []string{"yellowing leaves"}
		assert.Equal(t, StepWeather, NextStep(s, now, fresh))
	})

	t.Run("missing weather routes to weather", func(t *testing.T) {
		s := base()
		assert.Equal(t, StepWeather, NextStep(s, now, fresh))
	})

	t.Run("fresh weather with stale web routes to web", func(t *testing.T) {
		s := base()
		s.Weather = &WeatherSnapshot{FetchedAt: UTCNow(now.Add(-time.Hour))}
		s.Observation.Symptoms = []string{"yellowing leaves"}
		s.Web = &WebContext{FetchedAt: UTCNow(now.Add(-25 * time.Hour))}
		assert.Equal(t, StepWeb, NextStep(s, now, fresh))
	})

	t.Run("no symptoms skips web", func(t *testing.T) {
		s := base()
		s.Weather = &WeatherSnapshot{FetchedAt: UTCNow(now.Add(-time.Hour))}
		assert.Equal(t, StepAdvice, NextStep(s, now, fresh))
	})

	t.Run("everything fresh advises", func(t *testing.T) {
		s := base()
		s.Weather = &WeatherSnapshot{FetchedAt: UTCNow(now.Add(-time.Hour))}
		s.Observation.Symptoms = []string{"yellowing leaves"}
		s.Web = &WebContext{FetchedAt: UTCNow(now.Add(-2 * time.Hour))}
		assert.Equal(t, StepAdvice, NextStep(s, now, fresh))
	})
}

func TestNextStepMaskedTerminates(t *testing.T) {
	now := time.Now()
	fresh := DefaultFreshness()

	s := NewState("c1")
	s.Context = FarmerContext{Crop: "cotton", Stage: StageVegetative, Lat: ptr(19.07), Lon: ptr(72.87)}
	s.Observation.Symptoms = []string{"bollworm damage"}

	// Both snapshots missing: with both tools masked (already attempted and
	// failed this turn) the router must fall through to advice.
	assert.Equal(t, StepWeather, nextStepMasked(s, now, fresh, true, true))
	assert.Equal(t, StepWeb, nextStepMasked(s, now, fresh, false, true))
	assert.Equal(t, StepAdvice, nextStepMasked(s, now, fresh, false, false))
}
