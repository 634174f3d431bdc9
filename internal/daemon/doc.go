// Package daemon runs the background sync process: a single goroutine that
// alternates between reconciling active mappings and preparing queued ones,
// guarded by a file lock so only one instance touches the queue database.
package daemon
