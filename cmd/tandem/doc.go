// Package main hosts the tandem CLI entrypoint and command graph.
//
// The Cobra-based command tree covers running the sync daemon, pairing
// audiobooks with e-books, queue maintenance, status reporting, and
// configuration scaffolding. Commands open the queue database directly;
// the daemon's file lock keeps a running instance exclusive.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
