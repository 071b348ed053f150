// Package store provides the small key-value stores the session persists
// cookies and load-failure history in.
//
// Stores are grouped into named buckets (one per concern) and follow
// last-write-wins semantics. Two backends exist: Memory for tests and
// ephemeral runs, SQLite (modernc.org/sqlite, no cgo) for everything else.
//
// Example Usage:
//
//	db, err := store.Open(cfg.Storage)
//	failures := db.Bucket("failures")
//	err = store.SetJSON(ctx, failures, key, record)
package store
