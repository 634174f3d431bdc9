package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetState returns the stored sync position for an audiobook. A pair that has
// never been reconciled yields a zero-valued state rather than an error.
func (s *Store) GetState(ctx context.Context, audioItemID string) (*SyncState, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT audio_item_id, audio_seconds, reading_fraction, char_offset, updated_at
         FROM sync_state WHERE audio_item_id = ?`,
		audioItemID,
	)

	var (
		state      SyncState
		updatedRaw sql.NullString
	)
	err := row.Scan(&state.AudioItemID, &state.AudioSeconds, &state.ReadingFraction, &state.CharOffset, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return &SyncState{AudioItemID: audioItemID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sync state: %w", err)
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		state.UpdatedAt = updated
	}
	return &state, nil
}

// SaveState upserts the full sync position for an audiobook.
func (s *Store) SaveState(ctx context.Context, state *SyncState) error {
	if state == nil {
		return errors.New("state is nil")
	}
	if state.AudioItemID == "" {
		return errors.New("audio item id is required")
	}
	state.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO sync_state (audio_item_id, audio_seconds, reading_fraction, char_offset, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(audio_item_id) DO UPDATE SET
             audio_seconds = excluded.audio_seconds,
             reading_fraction = excluded.reading_fraction,
             char_offset = excluded.char_offset,
             updated_at = excluded.updated_at`,
		state.AudioItemID,
		state.AudioSeconds,
		state.ReadingFraction,
		state.CharOffset,
		state.UpdatedAt.Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("save sync state: %w", err)
	}
	return nil
}
