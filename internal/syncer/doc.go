// Package syncer holds the reconciliation engine that keeps audiobook
// playback and e-book reading positions aligned. Each cycle compares both
// providers' positions against the last persisted state, decides which side
// moved, translates that position across media via the transcript and the
// book index, and pushes the result to the other side. The package also owns
// the job lifecycle that turns a queued mapping into an actively synced one.
package syncer
