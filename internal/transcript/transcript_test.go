package transcript_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"tandem/internal/services"
	"tandem/internal/transcript"
)

var sample = []transcript.Segment{
	{Start: 0, End: 4.2, Text: "It was a dark and stormy night."},
	{Start: 4.2, End: 9.8, Text: "The lighthouse keeper lit the lamp at dusk."},
	{Start: 9.8, End: 15.1, Text: "Far below, the waves battered the rocks."},
	{Start: 15.1, End: 20.4, Text: "Nobody saw the small boat approach."},
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.json")
	if err := transcript.Save(path, sample); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := transcript.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != len(sample) {
		t.Fatalf("segment count = %d, want %d", len(loaded), len(sample))
	}
	if loaded[1].Text != sample[1].Text || loaded[1].Start != sample[1].Start {
		t.Fatalf("unexpected segment: %#v", loaded[1])
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := transcript.Load(filepath.Join(t.TempDir(), "absent.json"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLibraryCaches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.json")
	if err := transcript.Save(path, sample); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	lib := transcript.NewLibrary()
	first, err := lib.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	second, err := lib.Load(path)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if &first[0] != &second[0] {
		t.Fatal("expected cached segments on second load")
	}
}

func TestWindowAtContainingSegment(t *testing.T) {
	text, ok := transcript.WindowAt(sample, 6.0, 10)
	if !ok {
		t.Fatal("expected a window")
	}
	if text != sample[1].Text {
		t.Fatalf("window = %q, want anchor segment only", text)
	}
}

func TestWindowAtExpandsLeftThenRight(t *testing.T) {
	text, ok := transcript.WindowAt(sample, 6.0, 60)
	if !ok {
		t.Fatal("expected a window")
	}
	if !strings.HasPrefix(text, sample[0].Text) {
		t.Fatalf("window should grow left first, got %q", text)
	}
	if !strings.Contains(text, sample[1].Text) {
		t.Fatalf("window lost its anchor: %q", text)
	}
}

func TestWindowAtNearestSegment(t *testing.T) {
	// Beyond the final segment: nearest boundary wins.
	text, ok := transcript.WindowAt(sample, 500.0, 10)
	if !ok {
		t.Fatal("expected a window")
	}
	if !strings.Contains(text, sample[3].Text) {
		t.Fatalf("window = %q, want final segment", text)
	}

	if _, ok := transcript.WindowAt(nil, 6.0, 10); ok {
		t.Fatal("expected no window for empty transcript")
	}
}

func TestWindowAtCoversWholeTranscript(t *testing.T) {
	text, ok := transcript.WindowAt(sample, 6.0, 100000)
	if !ok {
		t.Fatal("expected a window")
	}
	for _, seg := range sample {
		if !strings.Contains(text, seg.Text) {
			t.Fatalf("window missing segment %q", seg.Text)
		}
	}
}

func TestTimeForText(t *testing.T) {
	probe := "waves crashed on the shore while the lighthouse keeper lit the lamp at dusk and the fog rolled in"
	start, ok := transcript.TimeForText(sample, probe, 80)
	if !ok {
		t.Fatal("expected a match")
	}
	if start != sample[1].Start {
		t.Fatalf("start = %f, want %f", start, sample[1].Start)
	}
}

func TestTimeForTextRejectsWeakMatches(t *testing.T) {
	if _, ok := transcript.TimeForText(sample, "completely unrelated culinary instructions", 80); ok {
		t.Fatal("expected no match")
	}
	if _, ok := transcript.TimeForText(nil, "anything", 80); ok {
		t.Fatal("expected no match for empty transcript")
	}
}
