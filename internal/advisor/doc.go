// Package advisor implements the conversation state machine that drives a
// multi-turn chat toward a safe, actionable crop recommendation.
//
// The per-turn flow is an explicit finite-state loop, not a generic graph
// engine:
//
//	user text → intake → router → (weather | web → router …) → ask | advice
//
// Components:
//
//   - State, FarmerContext, Observation, snapshots: the durable session model.
//   - MergeContext / MergeObservation: field-precedence merge of extracted
//     facts (present overwrites, absent preserves, urgency only rises).
//   - Stale / NextStep: freshness policy and the routing decision tree.
//   - Evaluate / Sanitize: the guardrail gate every candidate advisory must
//     pass before it reaches the user.
//   - Engine.RunTurn: the turn controller threading state through the loop.
//
// The engine depends only on the FactExtractor, Synthesizer and Toolset
// interfaces; language-model and HTTP implementations live in internal/llm
// and internal/tools. Adapter failures are recovered locally: a turn never
// aborts because a model call or tool fetch failed.
//
// # Concurrency
//
// State carries no synchronization. Sessions are independent; within one
// session the caller must serialize turns (see session.Locker).
package advisor
