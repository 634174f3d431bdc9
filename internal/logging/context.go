package logging

import (
	"context"
	"log/slog"

	"tandem/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldAudioID is the standardized structured logging key for audio-side item identifiers.
	FieldAudioID = "audio_id"
	// FieldTitle is the standardized structured logging key for work-item titles.
	FieldTitle = "title"
	// FieldPhase is the standardized structured logging key for lifecycle phase names.
	FieldPhase = "phase"
	// FieldCycleID is the standardized structured logging key for sync-cycle correlation identifiers.
	FieldCycleID = "cycle_id"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.AudioIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldAudioID, id))
	}
	if phase, ok := services.PhaseFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldPhase, phase))
	}
	if cycle, ok := services.CycleIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCycleID, cycle))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
