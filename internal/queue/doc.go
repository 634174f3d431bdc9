// Package queue persists audiobook/e-book mappings and their sync positions
// in SQLite.
//
// The Store manages database connections, schema initialization, mapping
// lifecycle transitions, and the per-pair sync position rows the reconciler
// reads and writes each cycle. Mapping statuses track preparation (pending,
// processing, active) and failure modes; MarkInterrupted handles recovery of
// work left in flight by a previous run.
//
// The database is durable state, not a cache: sync positions persist across
// restarts so thresholds compare against the last propagated values. Schema
// changes bump the version in schema.go; users clear the database to adopt
// the new schema.
package queue
