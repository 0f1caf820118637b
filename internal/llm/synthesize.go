package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/cropsage/cropsage/internal/advisor"
)

// synthesisPrompt instructs the model to produce the final advisory as JSON
// matching the Advisory schema. Placeholders: schema JSON, the three list
// caps, and the bundle JSON.
const synthesisPrompt = `You are an agricultural advisor. Produce one practical advisory for the farmer from the context below.

Output ONLY a single JSON object matching this schema:
%s

Rules:
- "headline": one short sentence naming the main recommendation.
- "stage": repeat the crop stage from the context, or "unknown".
- "actions_now": at most %d concrete actions the farmer should take now, ordered by priority.
- "watch_out_for": at most %d specific things to monitor.
- "next_questions": at most %d questions that would most improve the next advisory.
- "rationale_brief": at most two sentences explaining the reasoning.
- "confidence": "low", "medium", or "high" based on how complete the context is.
- "safety_notes": chemical-safety or personal-safety caveats, or an empty list.
- "needs_human_review": true if the situation looks severe or ambiguous.
- Never include specific chemical dosages, mixing ratios, or concentrations.
- Ground every action in the context; do not invent weather or search findings.

Context (JSON):
%s

JSON:`

// Synthesizer produces validated advisories from a synthesis bundle.
type Synthesizer struct {
	client     *Client
	schemaJSON string
}

// NewSynthesizer creates a Synthesizer. The advisory JSON schema is derived
// once here and embedded in every prompt.
func NewSynthesizer(client *Client) (*Synthesizer, error) {
	schema, err := jsonschema.For[advisor.Advisory](nil)
	if err != nil {
		return nil, fmt.Errorf("schema for advisory: %w", err)
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encoding advisory schema: %w", err)
	}
	return &Synthesizer{client: client, schemaJSON: string(raw)}, nil
}

// SynthesizeAdvisory asks the model for an advisory over b and returns it
// normalized and validated. Failures wrap advisor.ErrSynthesis so the engine
// can fall back to a safe reply.
func (s *Synthesizer) SynthesizeAdvisory(ctx context.Context, b advisor.Bundle) (*advisor.Advisory, error) {
	bundleJSON, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding bundle: %w", advisor.ErrSynthesis, err)
	}

	prompt := fmt.Sprintf(synthesisPrompt,
		s.schemaJSON,
		advisor.MaxActions, advisor.MaxWatchItems, advisor.MaxNextQuestions,
		bundleJSON,
	)
	text, err := s.client.generateText(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", advisor.ErrSynthesis, err)
	}
	return parseAdvisory(text)
}

// parseAdvisory converts raw model output into a normalized, valid Advisory.
func parseAdvisory(text string) (*advisor.Advisory, error) {
	if len(text) > maxResponseBytes {
		return nil, fmt.Errorf("%w: response too large: %d bytes", advisor.ErrSynthesis, len(text))
	}
	obj := extractJSONObject(stripCodeFences(text))
	if obj == "" {
		return nil, fmt.Errorf("%w: no JSON object in response %q", advisor.ErrSynthesis, truncate(text, 200))
	}

	var a advisor.Advisory
	if err := json.Unmarshal([]byte(obj), &a); err != nil {
		return nil, fmt.Errorf("%w: parsing response: %w (raw: %q)", advisor.ErrSynthesis, err, truncate(obj, 200))
	}

	a.Normalize()
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", advisor.ErrSynthesis, err)
	}
	return &a, nil
}
