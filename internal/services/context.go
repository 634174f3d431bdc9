package services

import "context"

type contextKey string

const (
	audioIDKey contextKey = "audio_id"
	phaseKey   contextKey = "phase"
	cycleIDKey contextKey = "cycle_id"
)

// WithAudioID annotates context with the audio-side item identifier.
func WithAudioID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, audioIDKey, id)
}

// AudioIDFromContext extracts the audio-side item identifier if present.
func AudioIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(audioIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithPhase annotates context with the lifecycle phase name.
func WithPhase(ctx context.Context, phase string) context.Context {
	if phase == "" {
		return ctx
	}
	return context.WithValue(ctx, phaseKey, phase)
}

// PhaseFromContext returns the phase name if present.
func PhaseFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(phaseKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithCycleID annotates context with a sync-cycle correlation identifier.
func WithCycleID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, cycleIDKey, id)
}

// CycleIDFromContext extracts the correlation identifier if present.
func CycleIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(cycleIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
