package advisor

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMessages bounds conversation history kept in state. Older messages are
// dropped after every mutation; this truncation is lossy and intentional.
const MaxMessages = 16

// Snapshot list caps. Tool adapters must respect these when building
// snapshots; Compact-style enforcement happens at construction, not later.
const (
	MaxDailyEntries  = 5
	MaxHourlyEntries = 12
	MaxWebSnippets   = 8
	MaxWebURLs       = 8
)

// Advisory list caps.
const (
	MaxActions       = 7
	MaxWatchItems    = 5
	MaxNextQuestions = 3
	MaxSafetyNotes   = 6
	MaxRationaleLen  = 600
	MinHeadlineLen   = 3
	MaxHeadlineLen   = 120
)

// Stage is the crop growth stage. Unrecognized input always normalizes to
// StageUnknown; stage values are never rejected.
type Stage string

const (
	StageUnknown     Stage = "unknown"
	StagePreSowing   Stage = "pre_sowing"
	StageSowing      Stage = "sowing"
	StageGermination Stage = "germination"
	StageVegetative  Stage = "vegetative"
	StageFlowering   Stage = "flowering"
	StageFruiting    Stage = "fruiting"
	StageMaturity    Stage = "maturity"
	StageHarvest     Stage = "harvest"
	StagePostHarvest Stage = "post_harvest"
)

var validStages = map[Stage]bool{
	StageUnknown:     true,
	StagePreSowing:   true,
	StageSowing:      true,
	StageGermination: true,
	StageVegetative:  true,
	StageFlowering:   true,
	StageFruiting:    true,
	StageMaturity:    true,
	StageHarvest:     true,
	StagePostHarvest: true,
}

// ParseStage normalizes free-text stage input. Anything outside the fixed
// enumeration maps to StageUnknown.
func ParseStage(s string) Stage {
	st := Stage(strings.ToLower(strings.TrimSpace(s)))
	if validStages[st] {
		return st
	}
	return StageUnknown
}

// Urgency is an observation severity level, ordered low < medium < high.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

var urgencyRank = map[Urgency]int{
	UrgencyLow:    0,
	UrgencyMedium: 1,
	UrgencyHigh:   2,
}

// ParseUrgency returns the urgency for s and whether s was a valid level.
func ParseUrgency(s string) (Urgency, bool) {
	u := Urgency(strings.ToLower(strings.TrimSpace(s)))
	_, ok := urgencyRank[u]
	return u, ok
}

// MaxUrgency returns the higher of a and b. Unknown values rank lowest, so a
// malformed level can never downgrade an existing one.
func MaxUrgency(a, b Urgency) Urgency {
	if urgencyRank[b] > urgencyRank[a] {
		return b
	}
	return a
}

// Confidence expresses how much trust to place in an advisory.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ParseConfidence normalizes free-text confidence; invalid input defaults to
// medium, matching the synthesizer's neutral prior.
func ParseConfidence(s string) Confidence {
	c := Confidence(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return c
	}
	return ConfidenceMedium
}

// Message is one conversation entry, most-recent-last in State.Messages.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// FarmerContext holds accumulated durable facts about the farmer's situation.
// Mutated only via MergeContext; never partially cleared.
type FarmerContext struct {
	Crop         string   `json:"crop,omitempty"`
	Stage        Stage    `json:"stage"`
	LocationText string   `json:"location_text,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
	Lon          *float64 `json:"lon,omitempty"`
	SowingDate   string   `json:"sowing_date,omitempty"`
	Irrigation   string   `json:"irrigation,omitempty"`
	SoilType     string   `json:"soil_type,omitempty"`
	Notes        string   `json:"notes,omitempty"`
}

// HasCoords reports whether both latitude and longitude are recorded.
func (c FarmerContext) HasCoords() bool {
	return c.Lat != nil && c.Lon != nil
}

// HasLocation reports whether any location representation exists, either
// coordinates or free-text.
func (c FarmerContext) HasLocation() bool {
	return c.HasCoords() || strings.TrimSpace(c.LocationText) != ""
}

// ValidCoords reports whether lat/lon are inside the valid WGS84 ranges.
func ValidCoords(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Observation is the transient-but-accumulating symptom record. Symptom and
// pest lists are ordered-unique with case-insensitive de-duplication; urgency
// is monotonically non-decreasing across merges.
type Observation struct {
	Symptoms []string `json:"symptoms,omitempty"`
	Pests    []string `json:"pests_seen,omitempty"`
	Urgency  Urgency  `json:"urgency"`
}

// NewObservation returns an empty observation at the lowest urgency.
func NewObservation() Observation {
	return Observation{Urgency: UrgencyLow}
}

// DailyForecast is one day of the weather snapshot.
type DailyForecast struct {
	Date        string  `json:"date"`
	Summary     string  `json:"summary,omitempty"`
	TempMin     float64 `json:"temp_min"`
	TempMax     float64 `json:"temp_max"`
	RainMM      float64 `json:"rain_mm,omitempty"`
	HumidityPct int     `json:"humidity_pct,omitempty"`
}

// HourlyForecast is one hour of the weather snapshot.
type HourlyForecast struct {
	Time    string  `json:"time"`
	Summary string  `json:"summary,omitempty"`
	Temp    float64 `json:"temp"`
	RainMM  float64 `json:"rain_mm,omitempty"`
}

// WeatherSnapshot is an immutable cached weather result. It is replaced
// wholesale on each successful fetch, never merged field-by-field.
type WeatherSnapshot struct {
	Source    string           `json:"source"`
	FetchedAt string           `json:"fetched_at_utc"`
	Summary   string           `json:"summary"`
	Alerts    []string         `json:"alerts,omitempty"`
	Daily     []DailyForecast  `json:"daily,omitempty"`
	Hourly    []HourlyForecast `json:"hourly,omitempty"`
}

// WebContext is an immutable cached web-search result, replaced wholesale.
type WebContext struct {
	Source    string   `json:"source"`
	FetchedAt string   `json:"fetched_at_utc"`
	Query     string   `json:"query"`
	Snippets  []string `json:"snippets,omitempty"`
	URLs      []string `json:"urls,omitempty"`
}

// Advisory is the recommendation surfaced to the user. Construction sites
// must call Normalize before handing an Advisory to anything else.
type Advisory struct {
	Headline         string     `json:"headline"`
	Stage            Stage      `json:"stage"`
	ActionsNow       []string   `json:"actions_now,omitempty"`
	WatchOutFor      []string   `json:"watch_out_for,omitempty"`
	NextQuestions    []string   `json:"next_questions,omitempty"`
	Rationale        string     `json:"rationale_brief,omitempty"`
	Confidence       Confidence `json:"confidence"`
	SafetyNotes      []string   `json:"safety_notes,omitempty"`
	NeedsHumanReview bool       `json:"needs_human_review"`
}

// Normalize enforces the advisory shape invariants: list fields lose
// empty/whitespace entries and are truncated to their caps, the rationale is
// clamped, and enum fields fall back to their defaults. This is part of
// construction, not optional cleanup.
func (a *Advisory) Normalize() {
	a.Headline = strings.TrimSpace(a.Headline)
	a.ActionsNow = cleanList(a.ActionsNow, MaxActions)
	a.WatchOutFor = cleanList(a.WatchOutFor, MaxWatchItems)
	a.NextQuestions = cleanList(a.NextQuestions, MaxNextQuestions)
	a.SafetyNotes = cleanList(a.SafetyNotes, MaxSafetyNotes)
	a.Rationale = truncateRunes(a.Rationale, MaxRationaleLen)
	if !validStages[a.Stage] {
		a.Stage = ParseStage(string(a.Stage))
	}
	a.Confidence = ParseConfidence(string(a.Confidence))
}

// Validate checks the constraints Normalize cannot repair. A failing advisory
// is treated as a synthesis failure by the caller.
func (a *Advisory) Validate() error {
	n := utf8.RuneCountInString(a.Headline)
	if n < MinHeadlineLen || n > MaxHeadlineLen {
		return ErrInvalidAdvisory
	}
	return nil
}

// truncateRunes clamps s to at most max runes, never splitting a rune.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// cleanList trims entries, drops blank ones and truncates to max, preserving
// order.
func cleanList(in []string, max int) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
		if len(out) == max {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// GuardrailResult is the verdict attached to one advisory evaluation.
type GuardrailResult struct {
	OK               bool     `json:"ok"`
	Reasons          []string `json:"reasons,omitempty"`
	NeedsHumanReview bool     `json:"needs_human_review"`
}

// Node names recorded in State.LastNode.
const (
	NodeIntake  = "intake"
	NodeAsk     = "ask"
	NodeWeather = "weather"
	NodeWeb     = "web"
	NodeAdvice  = "advice"
)

// State is the durable unit passed between turns of one conversation.
// It is owned by exactly one session; concurrent turns for the same session
// must be serialized by the caller (see session.Locker).
type State struct {
	ChatID      string           `json:"chat_id"`
	Messages    []Message        `json:"messages,omitempty"`
	Context     FarmerContext    `json:"context"`
	Observation Observation      `json:"observation"`
	Weather     *WeatherSnapshot `json:"weather,omitempty"`
	Web         *WebContext      `json:"web,omitempty"`
	Advisory    *Advisory        `json:"advisory,omitempty"`
	LastNode    string           `json:"last_node,omitempty"`
	TurnCount   int              `json:"turn_count"`
}

// NewState returns a fresh empty state for the given chat.
func NewState(chatID string) *State {
	return &State{
		ChatID:      chatID,
		Context:     FarmerContext{Stage: StageUnknown},
		Observation: NewObservation(),
	}
}

// Reset replaces all accumulated data, keeping only the chat identifier.
func (s *State) Reset() {
	*s = *NewState(s.ChatID)
}

// AddUser appends a user message and compacts history.
func (s *State) AddUser(text string) {
	s.Messages = append(s.Messages, Message{Role: RoleUser, Content: text})
	s.Compact()
}

// AddAssistant appends an assistant message and compacts history.
func (s *State) AddAssistant(text string) {
	s.Messages = append(s.Messages, Message{Role: RoleAssistant, Content: text})
	s.Compact()
}

// Compact truncates history to the most recent MaxMessages entries.
func (s *State) Compact() {
	if len(s.Messages) > MaxMessages {
		s.Messages = s.Messages[len(s.Messages)-MaxMessages:]
	}
}

// LastUserMessage returns the content of the most recent user message, or ""
// when none exists.
func (s *State) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

// LastAssistantMessage returns the content of the most recent assistant
// message, or "" when none exists.
func (s *State) LastAssistantMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i].Content
		}
	}
	return ""
}

// UTCNow formats t the way snapshot timestamps are stored.
func UTCNow(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
