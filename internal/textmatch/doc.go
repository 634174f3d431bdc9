// Package textmatch provides the text normalization and similarity scoring
// shared by the book resolver and the transcript index.
//
// Scoring is Levenshtein-based with scores in [0,100]. PartialRatio aligns a
// short needle against a long haystack and is the single fuzzy strategy used
// repository-wide; its calibration (skip-ahead sweep, histogram pruning,
// leftmost tie-breaking) is fixed so borderline matches resolve the same way
// on every run.
package textmatch
