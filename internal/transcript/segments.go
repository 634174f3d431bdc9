package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"tandem/internal/services"
)

// Segment is one time-stamped span of recognized speech. Times are seconds
// from the start of the whole audiobook, not the containing part.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Load reads a persisted transcript. A missing file maps to
// services.ErrNotFound so callers can distinguish absence from corruption.
func Load(path string) ([]Segment, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: transcript %s", services.ErrNotFound, path)
		}
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	var segments []Segment
	if err := json.Unmarshal(raw, &segments); err != nil {
		return nil, fmt.Errorf("parse transcript %s: %w", path, err)
	}
	return segments, nil
}

// Save writes a transcript as a JSON segment array.
func Save(path string, segments []Segment) error {
	raw, err := json.Marshal(segments)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create transcript dir: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}
