package ebook

import (
	"strings"

	"tandem/internal/textmatch"
)

// Tier records which search strategy produced a match. Later tiers trade
// precision for recall.
type Tier string

const (
	TierExact      Tier = "exact"
	TierNormalized Tier = "normalized"
	TierFuzzy      Tier = "fuzzy"
)

// Match is a resolved position in a work's text stream.
type Match struct {
	Fraction float64
	Offset   int
	Locator  string
	Tier     Tier
}

// Resolver translates text snippets into stream positions.
type Resolver struct {
	// FuzzyCutoff is the minimum similarity score accepted by the fuzzy tier.
	FuzzyCutoff int
}

// Locate finds a snippet in the indexed stream, trying exact, normalized,
// and fuzzy searches in order. A failed search returns ok=false rather than
// an error. Offsets from the normalized tier are proportional estimates and
// less precise than exact matches.
func (r *Resolver) Locate(idx *Index, snippet string) (Match, bool) {
	if idx == nil || len(idx.Text) == 0 || snippet == "" {
		return Match{}, false
	}

	offset := -1
	tier := TierExact

	if at := strings.Index(idx.Text, snippet); at >= 0 {
		offset = at
	}

	if offset < 0 {
		normText := idx.normalizedText()
		normSnippet := textmatch.Normalize(snippet)
		if normSnippet != "" && len(normText) > 0 {
			if at := strings.Index(normText, normSnippet); at >= 0 {
				offset = at * len(idx.Text) / len(normText)
				tier = TierNormalized
			}
		}
	}

	if offset < 0 {
		if alignment, ok := textmatch.PartialRatio(snippet, idx.Text, r.FuzzyCutoff); ok {
			offset = alignment.Start
			tier = TierFuzzy
		}
	}

	if offset < 0 {
		return Match{}, false
	}

	match := Match{
		Fraction: idx.FractionForOffset(offset),
		Offset:   offset,
		Tier:     tier,
	}
	if frag := idx.fragmentAt(offset); frag != nil {
		match.Locator = Locator(frag.Markup, offset-frag.Start, frag.Seq)
	}
	return match, true
}
