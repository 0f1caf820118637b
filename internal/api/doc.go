// Package api exposes the advisor over HTTP: a turn endpoint for chat
// frontends plus health probes for orchestration.
//
// The server is deliberately small. One conversation turn is one POST; the
// response carries the assistant reply and whether the advisory was flagged
// for human review. Per-chat serialization uses the same session.Locker the
// CLI uses, so an HTTP frontend and a local CLI never interleave turns for
// the same chat.
package api
