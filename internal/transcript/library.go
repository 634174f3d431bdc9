package transcript

import "sync"

// Library loads transcripts on demand and keeps them in memory. Transcripts
// are immutable once written, so cached entries never go stale; Invalidate
// exists for the re-transcription path.
type Library struct {
	mu    sync.Mutex
	cache map[string][]Segment
}

func NewLibrary() *Library {
	return &Library{cache: make(map[string][]Segment)}
}

// Load returns the segments stored at path, reading the file on first use.
func (l *Library) Load(path string) ([]Segment, error) {
	l.mu.Lock()
	cached, ok := l.cache[path]
	l.mu.Unlock()
	if ok {
		return cached, nil
	}

	segments, err := Load(path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[path] = segments
	l.mu.Unlock()
	return segments, nil
}

// Invalidate drops the cached entry for path.
func (l *Library) Invalidate(path string) {
	l.mu.Lock()
	delete(l.cache, path)
	l.mu.Unlock()
}
