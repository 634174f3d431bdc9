package services

import (
	"errors"
	"fmt"
	"strings"

	"tandem/internal/queue"
)

var (
	// ErrNotFound marks a referenced book or transcript file that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable marks a provider fetch or update failure.
	ErrUnavailable = errors.New("provider unavailable")
	// ErrNoMatch marks a resolver result below its confidence cutoff.
	ErrNoMatch = errors.New("no match")
	// ErrProcessing marks a failure during work-item preparation.
	ErrProcessing = errors.New("processing failure")
	// ErrConfiguration marks invalid or missing settings.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrProcessing
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureStatus maps a preparation error to the status JobLifecycle should
// persist after the work fails. Configuration problems are permanent;
// everything else is retried after an operator re-queues.
func FailureStatus(err error) queue.Status {
	if errors.Is(err, ErrConfiguration) || errors.Is(err, ErrNotFound) {
		return queue.StatusFailed
	}
	return queue.StatusFailedRetryLater
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
