package advisor

import "strings"

// Fixed outgoing texts for the deterministic nodes.
const (
	askLocation = "To guide you accurately, share your location:\n" +
		"• Village/City + District/State, OR\n" +
		"• Coordinates like: 19.07,72.87"
	askCrop  = "Which crop are you growing? (e.g., cotton, wheat, tomato)"
	askStage = "Which crop stage are you in?\n" +
		"Options: sowing, germination, vegetative, flowering, fruiting, maturity, harvest"
	askSymptomDetail = "Can you share 1-2 clear symptoms and how many days you've noticed them? " +
		"(Also mention irrigation frequency.)"
	askWhatChanged = "Share any recent changes (rain/irrigation/fertilizer) and I'll update your next actions."

	// adviceFallback is sent when advisory synthesis fails. Deterministic and
	// safe: asks for the three essential facts and ends the turn.
	adviceFallback = "I couldn't generate a reliable plan from the current details.\n" +
		"Please share crop + stage + location (village/district) and 1-2 symptoms."
)

// AskMessage returns the single most important question for the missing
// information, in fixed priority: location, crop, stage, symptom detail when
// symptoms exist without web context, then a generic what-changed prompt.
func AskMessage(s *State) string {
	c := s.Context
	if !c.HasCoords() && strings.TrimSpace(c.LocationText) == "" {
		return askLocation
	}
	if strings.TrimSpace(c.Crop) == "" {
		return askCrop
	}
	if c.Stage == StageUnknown {
		return askStage
	}
	if len(s.Observation.Symptoms) > 0 && s.Web == nil {
		return askSymptomDetail
	}
	return askWhatChanged
}
