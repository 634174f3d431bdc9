package queue_test

import (
	"context"
	"testing"

	"tandem/internal/queue"
	"tandem/internal/testsupport"
)

func TestOpenInitializesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.NewMapping(ctx, "audio-1", "Sample Book", "/books/sample.epub", "doc-1")
	if err != nil {
		t.Fatalf("NewMapping failed: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected item ID to be assigned")
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("new mapping status = %s, want pending", item.Status)
	}

	fetched, err := store.GetByAudioID(ctx, "audio-1")
	if err != nil {
		t.Fatalf("GetByAudioID failed: %v", err)
	}
	if fetched == nil || fetched.ID != item.ID || fetched.Title != "Sample Book" {
		t.Fatalf("unexpected fetched item: %#v", fetched)
	}
}

func TestNewMappingValidatesInputs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.NewMapping(ctx, "", "Title", "/books/b.epub", "doc"); err == nil {
		t.Fatal("expected error when audio item id missing")
	}
	if _, err := store.NewMapping(ctx, "audio-1", "Title", "", "doc"); err == nil {
		t.Fatal("expected error when ebook path missing")
	}
	if _, err := store.NewMapping(ctx, "audio-1", "Title", "/books/b.epub", ""); err == nil {
		t.Fatal("expected error when document id missing")
	}
}

func TestNewMappingReplacesPriorAndResetsState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewMapping(t, store, "audio-1", "First", "/books/a.epub", "doc-a")
	first.Status = queue.StatusActive
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := store.SaveState(ctx, &queue.SyncState{
		AudioItemID: "audio-1", AudioSeconds: 120, ReadingFraction: 0.25, CharOffset: 4000,
	}); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	second := testsupport.NewMapping(t, store, "audio-1", "Second", "/books/b.epub", "doc-b")
	if second.ID == first.ID {
		t.Fatal("expected replacement mapping to get a new ID")
	}
	if second.Status != queue.StatusPending {
		t.Fatalf("replacement status = %s, want pending", second.Status)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected single mapping after replacement, got %d", len(all))
	}

	state, err := store.GetState(ctx, "audio-1")
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if state.AudioSeconds != 0 || state.ReadingFraction != 0 || state.CharOffset != 0 {
		t.Fatalf("expected replacement to clear sync state, got %#v", state)
	}
}

func TestNextPendingOrderAndEligibility(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.NewMapping(t, store, "audio-a", "A", "/books/a.epub", "doc-a")
	b := testsupport.NewMapping(t, store, "audio-b", "B", "/books/b.epub", "doc-b")
	c := testsupport.NewMapping(t, store, "audio-c", "C", "/books/c.epub", "doc-c")

	a.Status = queue.StatusActive
	if err := store.Update(ctx, a); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	b.Status = queue.StatusFailed
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	next, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if next == nil || next.ID != c.ID {
		t.Fatalf("expected mapping %d next, got %#v", c.ID, next)
	}

	c.Status = queue.StatusProcessing
	if err := store.Update(ctx, c); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	next, err = store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if next != nil {
		t.Fatalf("expected no eligible mapping, got %#v", next)
	}

	// Retry-later mappings stay parked until explicitly re-queued.
	b.Status = queue.StatusFailedRetryLater
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	next, err = store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if next != nil {
		t.Fatalf("expected retry-later mapping to stay parked, got %#v", next)
	}

	if _, err := store.RetryFailed(ctx, b.ID); err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	next, err = store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if next == nil || next.ID != b.ID {
		t.Fatalf("expected re-queued mapping next, got %#v", next)
	}
}

func TestMarkInterrupted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.NewMapping(t, store, "audio-a", "A", "/books/a.epub", "doc-a")
	b := testsupport.NewMapping(t, store, "audio-b", "B", "/books/b.epub", "doc-b")

	a.Status = queue.StatusProcessing
	if err := store.Update(ctx, a); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	b.Status = queue.StatusActive
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	count, err := store.MarkInterrupted(ctx)
	if err != nil {
		t.Fatalf("MarkInterrupted failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("interrupted count = %d, want 1", count)
	}

	refreshed, err := store.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if refreshed.Status != queue.StatusCrashed {
		t.Fatalf("status = %s, want crashed", refreshed.Status)
	}

	untouched, err := store.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if untouched.Status != queue.StatusActive {
		t.Fatalf("active mapping disturbed: %s", untouched.Status)
	}
}

func TestSyncStateRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	state, err := store.GetState(ctx, "audio-unknown")
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if state.AudioItemID != "audio-unknown" || state.AudioSeconds != 0 {
		t.Fatalf("expected zero default state, got %#v", state)
	}

	saved := &queue.SyncState{
		AudioItemID:     "audio-1",
		AudioSeconds:    321.5,
		ReadingFraction: 0.4821,
		CharOffset:      90210,
	}
	if err := store.SaveState(ctx, saved); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	loaded, err := store.GetState(ctx, "audio-1")
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if loaded.AudioSeconds != 321.5 || loaded.ReadingFraction != 0.4821 || loaded.CharOffset != 90210 {
		t.Fatalf("unexpected loaded state: %#v", loaded)
	}
	if loaded.UpdatedAt.IsZero() {
		t.Fatal("expected updated timestamp to be set")
	}

	saved.AudioSeconds = 400
	if err := store.SaveState(ctx, saved); err != nil {
		t.Fatalf("SaveState upsert failed: %v", err)
	}
	loaded, err = store.GetState(ctx, "audio-1")
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if loaded.AudioSeconds != 400 {
		t.Fatalf("upsert did not apply, got %#v", loaded)
	}
}

func TestRetryFailedAndStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.NewMapping(t, store, "audio-a", "A", "/books/a.epub", "doc-a")
	b := testsupport.NewMapping(t, store, "audio-b", "B", "/books/b.epub", "doc-b")

	a.SetFailed(queue.StatusFailed, "ebook missing")
	if err := store.Update(ctx, a); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	b.SetFailed(queue.StatusFailedRetryLater, "provider unavailable")
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 2 || health.Failed != 2 {
		t.Fatalf("unexpected health summary: %#v", health)
	}

	count, err := store.RetryFailed(ctx, a.ID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("retried count = %d, want 1", count)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[queue.StatusPending] != 1 || stats[queue.StatusFailedRetryLater] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}

	retried, err := store.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if retried.ErrorMessage != "" {
		t.Fatalf("expected error message cleared, got %q", retried.ErrorMessage)
	}
}

func TestRemoveDeletesState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewMapping(t, store, "audio-1", "A", "/books/a.epub", "doc-a")
	if err := store.SaveState(ctx, &queue.SyncState{AudioItemID: "audio-1", AudioSeconds: 10}); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	removed, err := store.Remove(ctx, item.ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !removed {
		t.Fatal("expected removal")
	}

	state, err := store.GetState(ctx, "audio-1")
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if state.AudioSeconds != 0 {
		t.Fatalf("expected state cleared, got %#v", state)
	}

	removed, err = store.Remove(ctx, item.ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if removed {
		t.Fatal("expected second removal to report missing")
	}
}

func TestParseStatus(t *testing.T) {
	cases := []struct {
		in   string
		want queue.Status
		ok   bool
	}{
		{"pending", queue.StatusPending, true},
		{" Crashed ", queue.StatusCrashed, true},
		{"failed_retry_later", queue.StatusFailedRetryLater, true},
		{"", "", false},
		{"shipped", "", false},
	}
	for _, tc := range cases {
		got, ok := queue.ParseStatus(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("ParseStatus(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
