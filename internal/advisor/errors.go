package advisor

import "errors"

var (
	// ErrInvalidAdvisory indicates the synthesizer produced an advisory whose
	// shape cannot be repaired by normalization. Treated as synthesis failure.
	ErrInvalidAdvisory = errors.New("invalid advisory")

	// ErrExtraction indicates the fact extractor could not produce a usable
	// partial update. Recovered locally; the turn continues.
	ErrExtraction = errors.New("fact extraction failed")

	// ErrSynthesis indicates advisory generation failed. Recovered locally
	// with the deterministic fallback message.
	ErrSynthesis = errors.New("advisory synthesis failed")
)
