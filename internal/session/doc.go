// Package session persists conversation state between turns.
//
// Two Store backends exist: Postgres (one jsonb row per chat) and a local
// JSON-file directory for single-machine use. Both share the same recovery
// rule: a missing or corrupt record loads as a fresh state rather than an
// error, so one bad row can never wedge a conversation.
//
// Locker serializes turns per chat. Stores are safe for concurrent use, but
// a turn is a read-modify-write cycle over the whole state; callers must
// hold the chat's lock across Load, the turn, and Save.
package session
