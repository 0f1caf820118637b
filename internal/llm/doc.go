// Package llm implements the language-model adapters behind the advisor
// engine: fact extraction from farmer messages and advisory synthesis.
//
// Both adapters enforce a strict parse-then-validate boundary. Model output
// is untyped text; it either becomes a well-typed advisor value or a typed
// error. Nothing untyped crosses into the engine.
//
// Retry policy (bounded attempts, exponential backoff, shared rate limiter)
// is owned here at the adapter boundary. The engine only observes success
// or failure.
package llm
