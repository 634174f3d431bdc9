package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a mapping.
type Status string

const (
	StatusPending          Status = "pending"
	StatusProcessing       Status = "processing"
	StatusActive           Status = "active"
	StatusFailed           Status = "failed"
	StatusFailedRetryLater Status = "failed_retry_later"
	StatusCrashed          Status = "crashed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusActive,
	StatusFailed,
	StatusFailedRetryLater,
	StatusCrashed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Item pairs an audiobook with an e-book and tracks its preparation state.
type Item struct {
	ID             int64
	AudioItemID    string
	Title          string
	EbookPath      string
	DocumentID     string
	TranscriptPath string
	Status         Status
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SyncState is the last position pushed to both providers for a mapping.
// A zero-valued row means the pair has never been reconciled.
type SyncState struct {
	AudioItemID     string
	AudioSeconds    float64
	ReadingFraction float64
	CharOffset      int64
	UpdatedAt       time.Time
}

// HealthSummary describes aggregated mapping counts per key lifecycle states.
type HealthSummary struct {
	Total   int
	Pending int
	Active  int
	Failed  int
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsFailure reports whether a status represents a preparation failure.
func (s Status) IsFailure() bool {
	switch s {
	case StatusFailed, StatusFailedRetryLater, StatusCrashed:
		return true
	default:
		return false
	}
}

// SetFailed marks the item with a failure status and message.
func (i *Item) SetFailed(status Status, message string) {
	if !status.IsFailure() {
		status = StatusFailed
	}
	i.Status = status
	i.ErrorMessage = message
}
