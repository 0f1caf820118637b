package advisor

import (
	"strings"
	"time"
)

// Step is the router's decision about what the conversation needs next.
type Step string

const (
	StepAsk     Step = "ask"
	StepWeather Step = "weather"
	StepWeb     Step = "web"
	StepAdvice  Step = "advice"
)

// NextStep decides the next node from the current state. Rules are evaluated
// in order and the first match wins; the ordering encodes priority, not just
// correctness. Location, crop and stage gating always precede tool use, and
// weather wins over web when both are eligible in the same pass.
func NextStep(s *State, now time.Time, f Freshness) Step {
	return nextStepMasked(s, now, f, true, true)
}

// nextStepMasked is NextStep with per-turn tool gates. The turn controller
// masks a tool node after its first attempt in a turn so that a failed fetch
// that leaves a snapshot stale cannot loop forever.
func nextStepMasked(s *State, now time.Time, f Freshness, allowWeather, allowWeb bool) Step {
	c := s.Context

	if !c.HasLocation() {
		return StepAsk
	}
	if strings.TrimSpace(c.Crop) == "" {
		return StepAsk
	}
	if c.Stage == StageUnknown {
		return StepAsk
	}

	// Any location representation makes weather eligible: the weather node
	// geocodes free-text locations before fetching. Repeated geocoding
	// failure is handled by the per-turn mask, not here.
	if allowWeather && WeatherStale(s, now, f.WeatherMaxAge) {
		return StepWeather
	}
	if allowWeb && len(s.Observation.Symptoms) > 0 && WebStale(s, now, f.WebMaxAge) {
		return StepWeb
	}

	return StepAdvice
}
