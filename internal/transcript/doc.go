// Package transcript stores and queries time-stamped transcription segments.
//
// Transcripts are JSON arrays of {start, end, text} produced once per
// audiobook and reused for every subsequent sync cycle. WindowAt and
// TimeForText are the two directions of the audio/text translation: one
// gathers probe text around a playback timestamp, the other maps book text
// back to a timestamp.
package transcript
