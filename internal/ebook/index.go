package ebook

import (
	"fmt"
	"os"
	"sync"

	"tandem/internal/services"
	"tandem/internal/textmatch"
)

// Fragment is one spine document of an indexed work.
type Fragment struct {
	// Seq is the 1-based spine position used in locator prefixes.
	Seq  int
	Name string
	// Start and End bound the fragment's text in Index.Text.
	Start int
	End   int
	// Markup is the fragment's raw XHTML, kept for locator generation.
	Markup string
}

// Index is the flattened text stream of a work plus the fragment table
// mapping stream offsets back to spine documents.
type Index struct {
	Path      string
	Text      string
	Fragments []Fragment

	normOnce sync.Once
	norm     string
}

// Indexer parses e-books and caches the result per path. Indexes are
// retained for the process lifetime; a daemon tracks a handful of works, so
// the cache is deliberately unbounded.
type Indexer struct {
	mu    sync.Mutex
	cache map[string]*Index
}

func NewIndexer() *Indexer {
	return &Indexer{cache: make(map[string]*Index)}
}

// Load returns the index for an e-book, parsing it on first use.
// A missing file maps to services.ErrNotFound.
func (ix *Indexer) Load(path string) (*Index, error) {
	ix.mu.Lock()
	cached, ok := ix.cache[path]
	ix.mu.Unlock()
	if ok {
		return cached, nil
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: ebook %s", services.ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat ebook: %w", err)
	}

	docs, err := readSpine(path)
	if err != nil {
		return nil, err
	}

	idx := &Index{Path: path}
	for i, doc := range docs {
		text := ExtractText(doc.markup)
		start := len(idx.Text)
		if i > 0 {
			start++
			idx.Text += " " + text
		} else {
			idx.Text = text
		}
		idx.Fragments = append(idx.Fragments, Fragment{
			Seq:    i + 1,
			Name:   doc.name,
			Start:  start,
			End:    start + len(text),
			Markup: doc.markup,
		})
	}

	ix.mu.Lock()
	ix.cache[path] = idx
	ix.mu.Unlock()
	return idx, nil
}

// normalizedText lazily computes and caches the normalized stream.
func (idx *Index) normalizedText() string {
	idx.normOnce.Do(func() {
		idx.norm = textmatch.Normalize(idx.Text)
	})
	return idx.norm
}

// OffsetForFraction converts a document fraction to a stream offset,
// clamped to stream bounds.
func (idx *Index) OffsetForFraction(fraction float64) int {
	offset := int(fraction * float64(len(idx.Text)))
	if offset < 0 {
		return 0
	}
	if offset > len(idx.Text) {
		return len(idx.Text)
	}
	return offset
}

// FractionForOffset converts a stream offset to a document fraction.
func (idx *Index) FractionForOffset(offset int) float64 {
	if len(idx.Text) == 0 {
		return 0
	}
	return float64(offset) / float64(len(idx.Text))
}

// SnippetAt returns a window of radius characters on each side of the
// offset corresponding to fraction, clamped to stream bounds.
func (idx *Index) SnippetAt(fraction float64, radius int) string {
	if len(idx.Text) == 0 {
		return ""
	}
	target := idx.OffsetForFraction(fraction)
	start := target - radius
	if start < 0 {
		start = 0
	}
	end := target + radius
	if end > len(idx.Text) {
		end = len(idx.Text)
	}
	return idx.Text[start:end]
}

// CharacterDelta measures how far apart two fractions land in the stream,
// in characters. Used to corroborate whether a small fractional change is
// textually significant.
func (idx *Index) CharacterDelta(a, b float64) int {
	delta := idx.OffsetForFraction(a) - idx.OffsetForFraction(b)
	if delta < 0 {
		delta = -delta
	}
	return delta
}

// fragmentAt returns the fragment whose range contains offset, or nil.
func (idx *Index) fragmentAt(offset int) *Fragment {
	for i := range idx.Fragments {
		frag := &idx.Fragments[i]
		if frag.Start <= offset && offset < frag.End {
			return frag
		}
	}
	return nil
}
