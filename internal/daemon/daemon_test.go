package daemon_test

import (
	"context"
	"errors"
	"testing"

	"tandem/internal/daemon"
	"tandem/internal/logging"
	"tandem/internal/queue"
	"tandem/internal/services/audiobookshelf"
	"tandem/internal/syncer"
	"tandem/internal/testsupport"
)

type stubAudio struct{}

func (stubAudio) Progress(ctx context.Context, itemID string) (float64, error) { return 0, nil }

func (stubAudio) UpdateProgress(ctx context.Context, itemID string, seconds float64) error {
	return nil
}

func (stubAudio) AudioParts(ctx context.Context, itemID string) ([]audiobookshelf.AudioPart, error) {
	return nil, nil
}

type stubReading struct{}

func (stubReading) GetProgress(ctx context.Context, documentID string) (float64, error) {
	return 0, nil
}

func (stubReading) UpdateProgress(ctx context.Context, documentID string, fraction float64, locator string) error {
	return nil
}

type stubTranscriber struct{}

func (stubTranscriber) TranscriptPath(audioID string) string { return "" }

func (stubTranscriber) EnsureTranscript(ctx context.Context, audioID string, parts []audiobookshelf.AudioPart) (string, error) {
	return "", errors.New("not implemented")
}

func newDaemon(t *testing.T) (*daemon.Daemon, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	engine := syncer.NewEngine(cfg, store, stubAudio{}, stubReading{}, stubTranscriber{}, logging.NewNop())
	d, err := daemon.New(cfg, store, engine, logging.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return d, store
}

func TestDaemonSingleInstance(t *testing.T) {
	first, _ := newDaemon(t)
	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer first.Stop()

	if err := first.Start(ctx); err == nil {
		t.Fatal("expected starting a running daemon to fail")
	}

	first.Stop()
	if first.Running() {
		t.Fatal("daemon should not be running after Stop")
	}
	if err := first.Start(ctx); err != nil {
		t.Fatalf("restart after Stop failed: %v", err)
	}
}

func TestStartMarksInterruptedMappings(t *testing.T) {
	d, store := newDaemon(t)
	ctx := context.Background()

	item := testsupport.NewMapping(t, store, "audio-1", "The Lighthouse", "/books/a.epub", "doc-1")
	item.Status = queue.StatusProcessing
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()

	got, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != queue.StatusCrashed {
		t.Fatalf("status = %s, want crashed", got.Status)
	}
}

func TestConnectivityCheckFailureIsNotFatal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	engine := syncer.NewEngine(cfg, store, stubAudio{}, stubReading{}, stubTranscriber{}, logging.NewNop())
	d, err := daemon.New(cfg, store, engine, logging.NewNop(), daemon.Check{
		Name: "audiobookshelf",
		Run:  func(ctx context.Context) error { return errors.New("connection refused") },
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed despite failing check: %v", err)
	}
	d.Stop()
}

func TestStopWithoutStartIsNoop(t *testing.T) {
	d, _ := newDaemon(t)
	d.Stop()
	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}
