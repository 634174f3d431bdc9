// Package audiobookshelf is the audio-side provider client: library
// enumeration, audio part streaming URLs, e-book attachments, and playback
// progress reads and writes.
package audiobookshelf
