package advisor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cropsage/cropsage/internal/log"
)

// FactExtractor turns one free-text user message into a structured partial
// update. Implementations own their retry policy; the engine only observes
// success or failure.
type FactExtractor interface {
	ExtractFacts(ctx context.Context, fc FarmerContext, obs Observation, message string) (PartialUpdate, error)
}

// GeoResult is a successful geocoding lookup.
type GeoResult struct {
	Lat  float64
	Lon  float64
	Name string
}

// Toolset bundles the external data tools a turn may invoke. Every method
// either returns a typed result or fails; failures are non-fatal to the turn.
type Toolset interface {
	Geocode(ctx context.Context, place string) (*GeoResult, error)
	FetchWeather(ctx context.Context, lat, lon float64) (*WeatherSnapshot, error)
	SearchWeb(ctx context.Context, query, timeRange string) (*WebContext, error)
}

// WeatherBundle is the weather slice of the synthesis context.
type WeatherBundle struct {
	Summary string          `json:"summary"`
	Alerts  []string        `json:"alerts,omitempty"`
	Daily   []DailyForecast `json:"daily,omitempty"`
}

// WebBundle is the web-search slice of the synthesis context.
type WebBundle struct {
	Query    string   `json:"query"`
	Snippets []string `json:"snippets,omitempty"`
}

// Bundle is the bounded context handed to the advisory synthesizer: durable
// facts, observations, and at most the top-3 daily forecasts and top-5 web
// snippets.
type Bundle struct {
	Context     FarmerContext  `json:"context"`
	Observation Observation    `json:"observation"`
	Weather     *WeatherBundle `json:"weather,omitempty"`
	Web         *WebBundle     `json:"web,omitempty"`
}

// Synthesizer produces a candidate advisory from accumulated context.
type Synthesizer interface {
	SynthesizeAdvisory(ctx context.Context, b Bundle) (*Advisory, error)
}

// EngineConfig collects the engine's dependencies.
type EngineConfig struct {
	Extractor   FactExtractor
	Synthesizer Synthesizer
	Tools       Toolset
	Logger      log.Logger

	// Freshness overrides the default staleness thresholds when non-zero.
	Freshness Freshness

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// Engine drives one user turn end-to-end: intake, routing, tool fetches,
// advisory synthesis and guardrails. One engine serves all sessions; all
// per-conversation data lives in State.
type Engine struct {
	extractor FactExtractor
	synth     Synthesizer
	tools     Toolset
	logger    log.Logger
	fresh     Freshness
	now       func() time.Time
}

// NewEngine validates dependencies and builds an engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Extractor == nil {
		return nil, errors.New("fact extractor is required")
	}
	if cfg.Synthesizer == nil {
		return nil, errors.New("synthesizer is required")
	}
	if cfg.Tools == nil {
		return nil, errors.New("toolset is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}

	fresh := cfg.Freshness
	if fresh.WeatherMaxAge <= 0 {
		fresh.WeatherMaxAge = DefaultWeatherMaxAge
	}
	if fresh.WebMaxAge <= 0 {
		fresh.WebMaxAge = DefaultWebMaxAge
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		extractor: cfg.Extractor,
		synth:     cfg.Synthesizer,
		tools:     cfg.Tools,
		logger:    cfg.Logger,
		fresh:     fresh,
		now:       now,
	}, nil
}

// RunTurn advances the conversation by one user message. It mutates s in
// place: appends the message, runs intake, then loops router decision → node
// action until a terminal node (ask or advice) has queued a reply. Adapter
// failures never propagate to the caller; each degrades to "keep prior data
// and continue" or to the deterministic fallback reply.
func (e *Engine) RunTurn(ctx context.Context, s *State, userText string) error {
	if s == nil {
		return errors.New("nil state")
	}

	s.AddUser(userText)
	s.TurnCount++

	e.runIntake(ctx, s)

	// Each tool node runs at most once per turn. A failed fetch leaves its
	// snapshot stale, so without the mask the router would select the same
	// node forever.
	allowWeather, allowWeb := true, true
	for {
		switch nextStepMasked(s, e.now(), e.fresh, allowWeather, allowWeb) {
		case StepAsk:
			e.runAsk(s)
			return nil
		case StepWeather:
			e.runWeather(ctx, s)
			allowWeather = false
		case StepWeb:
			e.runWeb(ctx, s)
			allowWeb = false
		case StepAdvice:
			e.runAdvice(ctx, s)
			return nil
		}
	}
}

// runIntake applies the deterministic updates first (coordinates from the raw
// text, short message adopted as location text), then asks the extractor for
// the rest. If extraction fails the deterministic updates are kept and the
// turn proceeds.
func (e *Engine) runIntake(ctx context.Context, s *State) {
	s.LastNode = NodeIntake
	msg := s.LastUserMessage()

	if lat, lon := ExtractLatLon(msg); lat != nil && lon != nil {
		if s.Context.Lat == nil {
			s.Context.Lat = lat
		}
		if s.Context.Lon == nil {
			s.Context.Lon = lon
		}
	}
	if strings.TrimSpace(s.Context.LocationText) == "" && msg != "" && len(msg) <= 120 {
		s.Context.LocationText = strings.TrimSpace(msg)
	}

	upd, err := e.extractor.ExtractFacts(ctx, s.Context, s.Observation, msg)
	if err != nil {
		e.logger.Warn("intake extraction failed, continuing with deterministic updates",
			"chat_id", s.ChatID, "error", err)
		return
	}

	s.Context = MergeContext(s.Context, upd)
	s.Observation = MergeObservation(s.Observation, upd)
}

// runAsk queues the single most important missing question. Terminal.
func (e *Engine) runAsk(s *State) {
	s.LastNode = NodeAsk
	s.Advisory = nil
	s.AddAssistant(AskMessage(s))
}

// runWeather geocodes when needed, then replaces the weather snapshot
// wholesale on success. Failures keep the prior snapshot.
func (e *Engine) runWeather(ctx context.Context, s *State) {
	s.LastNode = NodeWeather

	if !s.Context.HasCoords() && strings.TrimSpace(s.Context.LocationText) != "" {
		geo, err := e.tools.Geocode(ctx, s.Context.LocationText)
		switch {
		case err != nil:
			e.logger.Warn("geocoding failed", "chat_id", s.ChatID, "error", err)
		case geo != nil:
			lat, lon := geo.Lat, geo.Lon
			s.Context.Lat = &lat
			s.Context.Lon = &lon
			if geo.Name != "" && strings.TrimSpace(s.Context.LocationText) == "" {
				s.Context.LocationText = geo.Name
			}
		}
	}

	if !s.Context.HasCoords() {
		// Still nothing to fetch with; the router re-evaluates from here.
		return
	}

	snap, err := e.tools.FetchWeather(ctx, *s.Context.Lat, *s.Context.Lon)
	if err != nil {
		e.logger.Warn("weather fetch failed, keeping prior snapshot",
			"chat_id", s.ChatID, "error", err)
		return
	}
	s.Weather = snap
}

// runWeb searches for crop/stage/symptom context. Failures keep the prior
// web context.
func (e *Engine) runWeb(ctx context.Context, s *State) {
	s.LastNode = NodeWeb

	query := BuildSearchQuery(s)
	res, err := e.tools.SearchWeb(ctx, query, "month")
	if err != nil {
		e.logger.Warn("web search failed, keeping prior context",
			"chat_id", s.ChatID, "error", err)
		return
	}
	s.Web = res
}

// BuildSearchQuery joins crop, stage, fixed terms, up to three symptoms and
// the location text, skipping empty parts.
func BuildSearchQuery(s *State) string {
	crop := strings.TrimSpace(s.Context.Crop)
	if crop == "" {
		crop = "crop"
	}

	parts := []string{crop, string(s.Context.Stage), "farming", "best practices"}
	if n := len(s.Observation.Symptoms); n > 0 {
		symptoms := s.Observation.Symptoms
		if n > 3 {
			symptoms = symptoms[:3]
		}
		parts = append(parts, "symptoms", strings.Join(symptoms, ", "))
	}
	if loc := strings.TrimSpace(s.Context.LocationText); loc != "" {
		parts = append(parts, "in", loc)
	}

	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// runAdvice assembles the bounded synthesis bundle, invokes the synthesizer,
// passes the candidate through the guardrails and queues the sanitized
// summary. On synthesis failure it queues the deterministic fallback and
// persists no advisory. Terminal either way.
func (e *Engine) runAdvice(ctx context.Context, s *State) {
	s.LastNode = NodeAdvice

	adv, err := e.synth.SynthesizeAdvisory(ctx, e.buildBundle(s))
	if err != nil {
		e.logger.Warn("advisory synthesis failed, sending fallback",
			"chat_id", s.ChatID, "error", err)
		s.Advisory = nil
		s.AddAssistant(adviceFallback)
		return
	}

	guard := Evaluate(adv, s)
	clean := Sanitize(*adv, guard)
	s.Advisory = &clean

	if !guard.OK {
		e.logger.Info("advisory flagged for human review",
			"chat_id", s.ChatID, "reasons", guard.Reasons)
	}

	s.AddAssistant(RenderAdvisorySummary(&clean))
}

// buildBundle caps the tool context passed to the model: top-3 daily
// forecasts, top-5 snippets.
func (e *Engine) buildBundle(s *State) Bundle {
	b := Bundle{
		Context:     s.Context,
		Observation: s.Observation,
	}
	if s.Weather != nil {
		daily := s.Weather.Daily
		if len(daily) > 3 {
			daily = daily[:3]
		}
		b.Weather = &WeatherBundle{
			Summary: s.Weather.Summary,
			Alerts:  s.Weather.Alerts,
			Daily:   daily,
		}
	}
	if s.Web != nil {
		snippets := s.Web.Snippets
		if len(snippets) > 5 {
			snippets = snippets[:5]
		}
		b.Web = &WebBundle{
			Query:    s.Web.Query,
			Snippets: snippets,
		}
	}
	return b
}

// RenderAdvisorySummary renders a compact human-readable summary of a
// sanitized advisory for the conversation transcript.
func RenderAdvisorySummary(a *Advisory) string {
	lines := []string{a.Headline}
	if len(a.ActionsNow) > 0 {
		lines = append(lines, "Actions: "+joinFirst(a.ActionsNow, 4))
	}
	if len(a.WatchOutFor) > 0 {
		lines = append(lines, "Watch: "+joinFirst(a.WatchOutFor, 3))
	}
	if len(a.NextQuestions) > 0 {
		lines = append(lines, "Next: "+joinFirst(a.NextQuestions, 2))
	}
	if a.NeedsHumanReview {
		lines = append(lines, "Note: Recommend local expert review.")
	}
	return strings.Join(lines, "\n")
}

func joinFirst(items []string, n int) string {
	if len(items) > n {
		items = items[:n]
	}
	return strings.Join(items, "; ")
}
