package transcribe

import (
	"encoding/json"
	"fmt"
	"os"

	"tandem/internal/transcript"
)

// loadEngineOutput reads the JSON the speech-to-text engine writes next to
// the audio file. Only segment timing and text are kept.
func loadEngineOutput(path string) ([]transcript.Segment, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Segments []struct {
			Start float64 `json:"start"`
			End   float64 `json:"end"`
			Text  string  `json:"text"`
		} `json:"segments"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parse engine output: %w", err)
	}

	segments := make([]transcript.Segment, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		segments = append(segments, transcript.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		})
	}
	return segments, nil
}
