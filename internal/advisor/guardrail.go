package advisor

import (
	"regexp"
	"strings"
)

// Guardrail reason and replacement texts.
const (
	reasonDosage   = "Contains potentially unsafe dosage/mixing-style details."
	reasonUrgency  = "High urgency reported; recommend expert verification."
	reasonAlerts   = "Weather alerts present; recommend extra caution."
	safeAction     = "Consult a local agriculture officer/extension worker for treatment options."
	safeDisclaimer = "Avoid chemical dosage/mixing without local expert guidance."
)

// Patterns that mark an advisory line as a dosage or mixing instruction:
// a number followed by a volume/mass unit, a per-unit phrase, or the literal
// words mix/dose/ppm.
var (
	dosageAmountRe = regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s*(ml|l|g|gm|kg)\b`)
	dosagePerRe    = regexp.MustCompile(`(?i)\b(per|/)\s*(l|liter|litre|kg)\b`)
	dosageWordRe   = regexp.MustCompile(`(?i)\bmix\b|\bdose\b|\bppm\b`)
)

func riskyLine(line string) bool {
	if line == "" {
		return false
	}
	return dosageAmountRe.MatchString(line) ||
		dosagePerRe.MatchString(line) ||
		dosageWordRe.MatchString(line)
}

// Evaluate scans a candidate advisory against the current state and flags it
// for human review when any unsafe signal holds: dosage-style text in the
// headline, actions or watch items; high observation urgency; or active
// weather alerts.
func Evaluate(a *Advisory, s *State) GuardrailResult {
	var reasons []string
	needsHuman := false

	parts := make([]string, 0, 1+len(a.ActionsNow)+len(a.WatchOutFor))
	parts = append(parts, a.Headline)
	parts = append(parts, a.ActionsNow...)
	parts = append(parts, a.WatchOutFor...)
	if riskyLine(strings.Join(parts, " ")) {
		reasons = append(reasons, reasonDosage)
		needsHuman = true
	}

	if s.Observation.Urgency == UrgencyHigh {
		reasons = append(reasons, reasonUrgency)
		needsHuman = true
	}

	if s.Weather != nil && len(s.Weather.Alerts) > 0 {
		reasons = append(reasons, reasonAlerts)
		needsHuman = true
	}

	return GuardrailResult{
		OK:               !needsHuman,
		Reasons:          reasons,
		NeedsHumanReview: needsHuman,
	}
}

// Sanitize applies the guardrail verdict to an advisory. When not flagged it
// is a no-op. Otherwise it removes every action line matching the dosage
// pattern, substitutes one safe escalation action if none remain, appends the
// fixed disclaimer plus up to two reasons to the safety notes, forces the
// human-review flag and drops confidence to low. Notes are appended only if
// absent, so sanitizing an already-sanitized advisory changes nothing.
//
// The synthesizer's raw output is never shown to the user without passing
// through here first.
func Sanitize(a Advisory, g GuardrailResult) Advisory {
	if !g.NeedsHumanReview {
		return a
	}

	actions := make([]string, 0, len(a.ActionsNow))
	for _, line := range a.ActionsNow {
		if !riskyLine(line) {
			actions = append(actions, line)
		}
	}
	if len(actions) == 0 {
		actions = []string{safeAction}
	}
	if len(actions) > MaxActions {
		actions = actions[:MaxActions]
	}

	notes := make([]string, len(a.SafetyNotes))
	copy(notes, a.SafetyNotes)
	notes = appendIfAbsent(notes, safeDisclaimer)
	for i, r := range g.Reasons {
		if i == 2 {
			break
		}
		notes = appendIfAbsent(notes, r)
	}
	if len(notes) > MaxSafetyNotes {
		notes = notes[:MaxSafetyNotes]
	}

	a.ActionsNow = actions
	a.SafetyNotes = notes
	a.NeedsHumanReview = true
	a.Confidence = ConfidenceLow
	return a
}

func appendIfAbsent(list []string, v string) []string {
	for _, e := range list {
		if e == v {
			return list
		}
	}
	return append(list, v)
}
