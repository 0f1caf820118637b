package advisor

import "strings"

// PartialUpdate is one turn's worth of freshly extracted facts. Every field
// is optional: an empty string or nil slice means "no new information", never
// "clear the old value".
type PartialUpdate struct {
	Crop         string   `json:"crop,omitempty"`
	Stage        string   `json:"stage,omitempty"`
	LocationText string   `json:"location_text,omitempty"`
	SowingDate   string   `json:"sowing_date,omitempty"`
	Irrigation   string   `json:"irrigation,omitempty"`
	SoilType     string   `json:"soil_type,omitempty"`
	Notes        string   `json:"notes,omitempty"`
	Symptoms     []string `json:"symptoms,omitempty"`
	Pests        []string `json:"pests_seen,omitempty"`
	Urgency      string   `json:"urgency,omitempty"`
}

// MergeContext folds a partial update into a farmer context. Present,
// non-blank fields overwrite; absent or blank fields leave the old value
// untouched. Malformed input is normalized, never rejected: the conversation
// must not crash on noisy natural-language extraction.
func MergeContext(old FarmerContext, upd PartialUpdate) FarmerContext {
	out := old
	if v := strings.TrimSpace(upd.Crop); v != "" {
		out.Crop = strings.ToLower(v)
	}
	if v := strings.TrimSpace(upd.Stage); v != "" {
		out.Stage = ParseStage(v)
	}
	if v := strings.TrimSpace(upd.LocationText); v != "" {
		out.LocationText = v
	}
	if v := strings.TrimSpace(upd.SowingDate); v != "" {
		out.SowingDate = v
	}
	if v := strings.TrimSpace(upd.Irrigation); v != "" {
		out.Irrigation = v
	}
	if v := strings.TrimSpace(upd.SoilType); v != "" {
		out.SoilType = v
	}
	if v := strings.TrimSpace(upd.Notes); v != "" {
		out.Notes = v
	}
	return out
}

// MergeObservation folds newly reported symptoms and pests into an
// observation. Lists are additive, de-duplicated case-insensitively with
// first-seen casing preserved. Urgency only ever rises.
func MergeObservation(old Observation, upd PartialUpdate) Observation {
	out := Observation{
		Symptoms: appendUnique(old.Symptoms, upd.Symptoms),
		Pests:    appendUnique(old.Pests, upd.Pests),
		Urgency:  old.Urgency,
	}
	if u, ok := ParseUrgency(upd.Urgency); ok {
		out.Urgency = MaxUrgency(old.Urgency, u)
	}
	return out
}

// appendUnique appends trimmed, non-blank entries from add that are not
// already present in base (case-insensitive), preserving first-seen order.
func appendUnique(base, add []string) []string {
	out := make([]string, len(base))
	copy(out, base)

	seen := make(map[string]bool, len(out))
	for _, v := range out {
		seen[strings.ToLower(v)] = true
	}
	for _, v := range add {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
