package services

import (
	"errors"
	"testing"

	"tandem/internal/queue"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("boom")
	err := Wrap(ErrProcessing, "transcriber", "download", "part 2", base)
	if !errors.Is(err, ErrProcessing) {
		t.Fatalf("expected ErrProcessing marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := Wrap(nil, "transcriber", "", "", nil)
	if !errors.Is(err, ErrProcessing) {
		t.Fatalf("nil marker should default to ErrProcessing, got %v", err)
	}
}

func TestFailureStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want queue.Status
	}{
		{"configuration", Wrap(ErrConfiguration, "kosync", "auth", "", nil), queue.StatusFailed},
		{"not found", Wrap(ErrNotFound, "ebook", "open", "", nil), queue.StatusFailed},
		{"transient", Wrap(ErrProcessing, "transcriber", "run", "", nil), queue.StatusFailedRetryLater},
		{"plain", errors.New("network blip"), queue.StatusFailedRetryLater},
	}
	for _, tc := range cases {
		if got := FailureStatus(tc.err); got != tc.want {
			t.Errorf("%s: FailureStatus = %q, want %q", tc.name, got, tc.want)
		}
	}
}
