// Package transcribe turns an audiobook's stream URLs into a persisted
// transcript.
//
// The pipeline caches every audio part locally, splits files longer than the
// configured chunk limit so the speech-to-text engine stays within memory
// bounds, and re-bases each chunk's segment times onto the whole-book
// timeline before saving. External tools (ffprobe, ffmpeg, the engine CLI)
// run through a swappable command runner so the pipeline is testable without
// audio tooling installed.
package transcribe
