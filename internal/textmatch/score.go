package textmatch

import (
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Alignment reports where a needle best aligns inside a haystack.
type Alignment struct {
	// Score is the similarity of the aligned window in [0,100].
	Score int
	// Start is the byte offset of the aligned window in the haystack.
	Start int
}

// Ratio scores the similarity of two strings in [0,100]:
// 100*(1 - distance/max(len)), computed over runes, rounded to nearest.
func Ratio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 100
	}
	dist := fuzzy.LevenshteinDistance(a, b)
	if dist >= longest {
		return 0
	}
	return 100 - (dist*100+longest/2)/longest
}

// PartialRatio finds the best alignment of needle against needle-sized
// windows of hay and returns it when the window similarity reaches
// scoreCutoff. When the needle is at least as long as the haystack the two
// strings are compared directly.
//
// The scan is a left-to-right sweep over every window position. Two facts
// keep it fast without sacrificing determinism: shifting a window by one
// position changes its edit distance by at most 2, and half the L1 distance
// between rune-class histograms lower-bounds the edit distance. Both yield
// safe skip-ahead amounts, so the sweep provably returns the leftmost
// best-scoring window.
func PartialRatio(needle, hay string, scoreCutoff int) (Alignment, bool) {
	if needle == "" || hay == "" {
		return Alignment{}, false
	}
	if scoreCutoff < 0 {
		scoreCutoff = 0
	}

	nr := []rune(needle)
	hr := []rune(hay)
	if len(nr) >= len(hr) {
		score := Ratio(needle, hay)
		if score < scoreCutoff {
			return Alignment{}, false
		}
		return Alignment{Score: score, Start: 0}, true
	}

	window := len(nr)
	maxDist := window * (100 - scoreCutoff) / 100

	// Byte offset of each rune so the alignment start can be reported in
	// byte terms without re-walking the haystack.
	byteOff := make([]int, len(hr)+1)
	pos := 0
	for i, r := range hr {
		byteOff[i] = pos
		pos += runeLen(r)
	}
	byteOff[len(hr)] = pos

	needleHist := classHistogram(nr)

	bestIdx := -1
	bestDist := maxDist + 1
	last := len(hr) - window

	for i := 0; i <= last; {
		// Only windows strictly better than the current best matter.
		target := bestDist - 1
		if target > maxDist {
			target = maxDist
		}

		bound := histogramLowerBound(needleHist, classHistogram(hr[i:i+window]))
		if bound > target {
			// The bound moves by at most 1 per shift.
			i += bound - target
			continue
		}

		dist := fuzzy.LevenshteinDistance(needle, string(hr[i:i+window]))
		if dist < bestDist {
			bestDist = dist
			bestIdx = i
			if dist == 0 {
				break
			}
			i++
			continue
		}
		// The distance moves by at most 2 per shift.
		skip := (dist - target + 1) / 2
		if skip < 1 {
			skip = 1
		}
		i += skip
	}

	if bestIdx < 0 {
		return Alignment{}, false
	}
	score := 100 - (bestDist*100+window/2)/window
	if score < scoreCutoff {
		return Alignment{}, false
	}
	return Alignment{Score: score, Start: byteOff[bestIdx]}, true
}

func runeLen(r rune) int {
	switch {
	case r < 0x80:
		return 1
	case r < 0x800:
		return 2
	case r < 0x10000:
		return 3
	default:
		return 4
	}
}

// classHistogram buckets runes into 26 letters + 10 digits + other.
func classHistogram(rs []rune) [37]int {
	var hist [37]int
	for _, r := range rs {
		switch {
		case r >= 'a' && r <= 'z':
			hist[r-'a']++
		case r >= 'A' && r <= 'Z':
			hist[r-'A']++
		case r >= '0' && r <= '9':
			hist[26+r-'0']++
		default:
			hist[36]++
		}
	}
	return hist
}

// histogramLowerBound is a cheap lower bound on the edit distance between two
// equal-length strings: half the L1 distance of their class histograms.
func histogramLowerBound(a, b [37]int) int {
	diff := 0
	for i := range a {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		diff += d
	}
	return diff / 2
}
