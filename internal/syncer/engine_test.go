package syncer_test

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"tandem/internal/config"
	"tandem/internal/logging"
	"tandem/internal/queue"
	"tandem/internal/services/audiobookshelf"
	"tandem/internal/syncer"
	"tandem/internal/testsupport"
	"tandem/internal/transcript"
)

var sentences = []string{
	"It was a quiet morning in the harbor town.",
	"Boats drifted against their moorings while gulls wheeled overhead.",
	"The evening tide rolled in across the stones.",
	"The lighthouse keeper lit the lamp at dusk.",
	"Far out at sea a ship answered with a horn.",
}

type fakeAudio struct {
	progress    map[string]float64
	parts       map[string][]audiobookshelf.AudioPart
	progressErr error
	updateErr   error
	updates     []float64
}

func (f *fakeAudio) Progress(ctx context.Context, itemID string) (float64, error) {
	if f.progressErr != nil {
		return 0, f.progressErr
	}
	return f.progress[itemID], nil
}

func (f *fakeAudio) UpdateProgress(ctx context.Context, itemID string, seconds float64) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, seconds)
	f.progress[itemID] = seconds
	return nil
}

func (f *fakeAudio) AudioParts(ctx context.Context, itemID string) ([]audiobookshelf.AudioPart, error) {
	return f.parts[itemID], nil
}

type readingUpdate struct {
	fraction float64
	locator  string
}

type fakeReading struct {
	progress map[string]float64
	fetchErr error
	updates  []readingUpdate
}

func (f *fakeReading) GetProgress(ctx context.Context, documentID string) (float64, error) {
	if f.fetchErr != nil {
		return 0, f.fetchErr
	}
	return f.progress[documentID], nil
}

func (f *fakeReading) UpdateProgress(ctx context.Context, documentID string, fraction float64, locator string) error {
	f.updates = append(f.updates, readingUpdate{fraction: fraction, locator: locator})
	f.progress[documentID] = fraction
	return nil
}

type fakeTranscriber struct {
	path           string
	err            error
	calls          int
	observedStatus queue.Status
	store          *queue.Store
}

func (f *fakeTranscriber) TranscriptPath(audioID string) string {
	return f.path
}

func (f *fakeTranscriber) EnsureTranscript(ctx context.Context, audioID string, parts []audiobookshelf.AudioPart) (string, error) {
	f.calls++
	if f.store != nil {
		if item, err := f.store.GetByAudioID(ctx, audioID); err == nil && item != nil {
			f.observedStatus = item.Status
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.path, nil
}

type fixture struct {
	cfg      *config.Config
	store    *queue.Store
	audio    *fakeAudio
	reading  *fakeReading
	scribe   *fakeTranscriber
	engine   *syncer.Engine
	bookText string
	bookPath string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithSyncThresholds(60, 1))
	cfg.Match.WindowMinChars = 40
	cfg.Match.SnippetRadius = 60
	store := testsupport.MustOpenStore(t, cfg)

	bookPath := filepath.Join(cfg.Paths.BooksDir, "lighthouse.epub")
	testsupport.WriteEPUB(t, bookPath,
		"<p>"+sentences[0]+"</p><p>"+sentences[1]+"</p>",
		"<p>"+sentences[2]+"</p><p>"+sentences[3]+"</p><p>"+sentences[4]+"</p>",
	)

	transcriptPath := filepath.Join(cfg.TranscriptsDir(), "audio-1.json")
	segments := []transcript.Segment{
		{Start: 0, End: 15, Text: sentences[0]},
		{Start: 15, End: 300, Text: sentences[1]},
		{Start: 300, End: 600, Text: sentences[2]},
		{Start: 600, End: 640, Text: sentences[3]},
		{Start: 640, End: 700, Text: sentences[4]},
	}
	if err := transcript.Save(transcriptPath, segments); err != nil {
		t.Fatalf("Save transcript failed: %v", err)
	}

	audio := &fakeAudio{
		progress: map[string]float64{},
		parts: map[string][]audiobookshelf.AudioPart{
			"audio-1": {{StreamURL: "http://abs.test/part", Ext: ".mp3"}},
		},
	}
	reading := &fakeReading{progress: map[string]float64{}}
	scribe := &fakeTranscriber{path: transcriptPath, store: store}

	return &fixture{
		cfg:      cfg,
		store:    store,
		audio:    audio,
		reading:  reading,
		scribe:   scribe,
		engine:   syncer.NewEngine(cfg, store, audio, reading, scribe, logging.NewNop()),
		bookText: strings.Join(sentences, " "),
		bookPath: bookPath,
	}
}

func (f *fixture) activeMapping(t *testing.T) *queue.Item {
	t.Helper()
	item := testsupport.NewMapping(t, f.store, "audio-1", "The Lighthouse", f.bookPath, "doc-1")
	item.Status = queue.StatusActive
	item.TranscriptPath = f.scribe.path
	if err := f.store.Update(context.Background(), item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	return item
}

func (f *fixture) state(t *testing.T) *queue.SyncState {
	t.Helper()
	state, err := f.store.GetState(context.Background(), "audio-1")
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	return state
}

func closeEnough(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPrepareNextActivatesMapping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := testsupport.NewMapping(t, f.store, "audio-1", "The Lighthouse", f.bookPath, "doc-1")

	claimed, err := f.engine.PrepareNext(ctx)
	if err != nil {
		t.Fatalf("PrepareNext failed: %v", err)
	}
	if !claimed {
		t.Fatal("expected a mapping to be claimed")
	}
	if f.scribe.observedStatus != queue.StatusProcessing {
		t.Fatalf("transcription saw status %s, want processing persisted first", f.scribe.observedStatus)
	}

	got, err := f.store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != queue.StatusActive {
		t.Fatalf("status = %s, want active", got.Status)
	}
	if got.TranscriptPath != f.scribe.path {
		t.Fatalf("transcript path = %q, want %q", got.TranscriptPath, f.scribe.path)
	}

	claimed, err = f.engine.PrepareNext(ctx)
	if err != nil {
		t.Fatalf("PrepareNext failed: %v", err)
	}
	if claimed {
		t.Fatal("expected no further pending mappings")
	}
}

func TestPrepareNextFailureMarksRetryLater(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := testsupport.NewMapping(t, f.store, "audio-1", "The Lighthouse", f.bookPath, "doc-1")
	f.scribe.err = errors.New("engine exploded")

	claimed, err := f.engine.PrepareNext(ctx)
	if err != nil {
		t.Fatalf("PrepareNext failed: %v", err)
	}
	if !claimed {
		t.Fatal("expected the mapping to be claimed")
	}

	got, err := f.store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != queue.StatusFailedRetryLater {
		t.Fatalf("status = %s, want failed_retry_later", got.Status)
	}
	if got.ErrorMessage == "" {
		t.Fatal("expected an error message on the failed mapping")
	}
}

func TestPrepareNextWithoutAudioPartsFailsPermanently(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := testsupport.NewMapping(t, f.store, "audio-2", "Empty Book", f.bookPath, "doc-2")

	if _, err := f.engine.PrepareNext(ctx); err != nil {
		t.Fatalf("PrepareNext failed: %v", err)
	}

	got, err := f.store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != queue.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
}

func TestRecoverCrashedMarksOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := testsupport.NewMapping(t, f.store, "audio-1", "The Lighthouse", f.bookPath, "doc-1")
	item.Status = queue.StatusProcessing
	if err := f.store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	count, err := f.engine.RecoverCrashed(ctx)
	if err != nil {
		t.Fatalf("RecoverCrashed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("recovered %d mappings, want 1", count)
	}

	got, err := f.store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != queue.StatusCrashed {
		t.Fatalf("status = %s, want crashed", got.Status)
	}

	next, err := f.store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if next != nil {
		t.Fatalf("crashed mapping should stay parked, got %#v", next)
	}

	count, err = f.engine.RecoverCrashed(ctx)
	if err != nil {
		t.Fatalf("RecoverCrashed failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("second recovery marked %d mappings, want 0", count)
	}
}

func TestCycleSkipsMappingOnProviderFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.activeMapping(t)

	seed := &queue.SyncState{AudioItemID: "audio-1", AudioSeconds: 100, ReadingFraction: 0.2}
	if err := f.store.SaveState(ctx, seed); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	f.audio.progressErr = errors.New("connection refused")
	if err := f.engine.RunCycle(ctx); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	state := f.state(t)
	if state.AudioSeconds != 100 || state.ReadingFraction != 0.2 {
		t.Fatalf("state mutated after fetch failure: %#v", state)
	}
	if len(f.audio.updates) != 0 || len(f.reading.updates) != 0 {
		t.Fatal("expected no propagation after fetch failure")
	}
}

func TestAudioThresholdGatingAndStabilize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.activeMapping(t)

	f.audio.progress["audio-1"] = 30
	if err := f.engine.RunCycle(ctx); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if len(f.reading.updates) != 0 {
		t.Fatal("sub-threshold audio delta must not propagate")
	}
	if state := f.state(t); state.AudioSeconds != 30 {
		t.Fatalf("stabilized audio seconds = %v, want 30", state.AudioSeconds)
	}

	// The comparison baseline is the stabilized value, so repeated small
	// steps keep being held even as absolute drift accumulates.
	f.audio.progress["audio-1"] = 85
	if err := f.engine.RunCycle(ctx); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if len(f.reading.updates) != 0 {
		t.Fatal("drift below the per-cycle threshold must not propagate")
	}
	if state := f.state(t); state.AudioSeconds != 85 {
		t.Fatalf("stabilized audio seconds = %v, want 85", state.AudioSeconds)
	}
}

func TestAudioPropagationEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.activeMapping(t)

	// Playback jumps ahead while the reader drifts by a fraction too small
	// to matter. The audio side must win and reposition the reader at the
	// lighthouse sentence.
	f.audio.progress["audio-1"] = 610
	f.reading.progress["doc-1"] = 0.001

	if err := f.engine.RunCycle(ctx); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	if len(f.audio.updates) != 0 {
		t.Fatalf("audio side must not be written, got %v", f.audio.updates)
	}
	if len(f.reading.updates) != 1 {
		t.Fatalf("reading updates = %d, want 1", len(f.reading.updates))
	}

	wantOffset := strings.Index(f.bookText, sentences[3])
	wantFraction := float64(wantOffset) / float64(len(f.bookText))
	update := f.reading.updates[0]
	if !closeEnough(update.fraction, wantFraction) {
		t.Fatalf("pushed fraction = %v, want %v", update.fraction, wantFraction)
	}
	if !strings.HasPrefix(update.locator, "/body/DocFragment[2]") {
		t.Fatalf("locator = %q, want second fragment prefix", update.locator)
	}

	state := f.state(t)
	if state.AudioSeconds != 610 {
		t.Fatalf("state audio seconds = %v, want 610", state.AudioSeconds)
	}
	if !closeEnough(state.ReadingFraction, wantFraction) {
		t.Fatalf("state reading fraction = %v, want %v", state.ReadingFraction, wantFraction)
	}
	if state.CharOffset != int64(wantOffset) {
		t.Fatalf("state char offset = %d, want %d", state.CharOffset, wantOffset)
	}
}

func TestConflictAudioWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.activeMapping(t)

	f.audio.progress["audio-1"] = 610
	f.reading.progress["doc-1"] = 0.5

	if err := f.engine.RunCycle(ctx); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	if len(f.audio.updates) != 0 {
		t.Fatalf("audio side must not be written on conflict, got %v", f.audio.updates)
	}
	if len(f.reading.updates) != 1 {
		t.Fatalf("reading updates = %d, want 1", len(f.reading.updates))
	}

	wantFraction := float64(strings.Index(f.bookText, sentences[3])) / float64(len(f.bookText))
	if !closeEnough(f.reading.updates[0].fraction, wantFraction) {
		t.Fatalf("pushed fraction = %v, want audio-derived %v", f.reading.updates[0].fraction, wantFraction)
	}
}

func TestReadingPropagation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.activeMapping(t)

	// Reader moves to the middle of the evening-tide sentence; playback is
	// unchanged. The transcript segment starting at 300s should win.
	target := strings.Index(f.bookText, sentences[2]) + len(sentences[2])/2
	fraction := float64(target) / float64(len(f.bookText))
	f.reading.progress["doc-1"] = fraction

	if err := f.engine.RunCycle(ctx); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	if len(f.reading.updates) != 0 {
		t.Fatalf("reading side must not be written, got %v", f.reading.updates)
	}
	if len(f.audio.updates) != 1 || f.audio.updates[0] != 300 {
		t.Fatalf("audio updates = %v, want [300]", f.audio.updates)
	}

	state := f.state(t)
	if state.AudioSeconds != 300 {
		t.Fatalf("state audio seconds = %v, want 300", state.AudioSeconds)
	}
	if !closeEnough(state.ReadingFraction, fraction) {
		t.Fatalf("state reading fraction = %v, want %v", state.ReadingFraction, fraction)
	}
}

func TestIdempotentSecondCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.activeMapping(t)

	f.audio.progress["audio-1"] = 610
	if err := f.engine.RunCycle(ctx); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if len(f.reading.updates) != 1 {
		t.Fatalf("first cycle reading updates = %d, want 1", len(f.reading.updates))
	}
	first := f.state(t)

	// Fakes reflect pushed values back, so nothing has moved since.
	if err := f.engine.RunCycle(ctx); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if len(f.reading.updates) != 1 || len(f.audio.updates) != 0 {
		t.Fatalf("second cycle propagated: reading=%d audio=%d", len(f.reading.updates), len(f.audio.updates))
	}
	second := f.state(t)
	if *second != *first {
		t.Fatalf("state changed on idle cycle: %#v -> %#v", first, second)
	}
}

func TestMatchFailureStabilizesBothSides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.activeMapping(t)

	offTopic := filepath.Join(f.cfg.TranscriptsDir(), "off-topic.json")
	err := transcript.Save(offTopic, []transcript.Segment{
		{Start: 0, End: 700, Text: "Quarterly revenue figures exceeded every forecast this year."},
	})
	if err != nil {
		t.Fatalf("Save transcript failed: %v", err)
	}
	item.TranscriptPath = offTopic
	if err := f.store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	f.audio.progress["audio-1"] = 610
	if err := f.engine.RunCycle(ctx); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	if len(f.audio.updates) != 0 || len(f.reading.updates) != 0 {
		t.Fatal("unresolvable probe must not propagate")
	}
	state := f.state(t)
	if state.AudioSeconds != 610 {
		t.Fatalf("state audio seconds = %v, want observed 610", state.AudioSeconds)
	}

	// Holding the observed values keeps the failed match from being
	// retried every cycle.
	if err := f.engine.RunCycle(ctx); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if len(f.audio.updates) != 0 || len(f.reading.updates) != 0 {
		t.Fatal("stabilized mapping must stay quiet")
	}
}

func TestCharacterDeltaCorroboration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.activeMapping(t)

	// Sub-threshold fraction change with the default character cutoff is
	// held without propagation.
	f.reading.progress["doc-1"] = 0.005
	if err := f.engine.RunCycle(ctx); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if len(f.audio.updates) != 0 {
		t.Fatalf("held delta propagated: %v", f.audio.updates)
	}
	if state := f.state(t); !closeEnough(state.ReadingFraction, 0.005) {
		t.Fatalf("stabilized reading fraction = %v, want 0.005", state.ReadingFraction)
	}

	// With a zero character cutoff the same fractional change counts as a
	// real move and resolves against the transcript.
	f.cfg.Sync.CharacterDeltaThreshold = 0
	f.reading.progress["doc-1"] = 0.01
	if err := f.engine.RunCycle(ctx); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if len(f.audio.updates) != 1 {
		t.Fatalf("corroborated delta did not propagate: %v", f.audio.updates)
	}
}
