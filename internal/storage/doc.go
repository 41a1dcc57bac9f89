// Package storage persists the bot's named documents (recommendation sets,
// subscriptions, time windows) and its audit trail.
//
// Drivers:
//   - "file": one file per document under a directory, written atomically,
//     plus an append-only audit.jsonl
//   - "sqlite": a single database file (modernc.org/sqlite, no cgo)
package storage
