package queue

import (
	"context"
	"fmt"
	"time"
)

// Stats returns per-status mapping counts.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM mappings GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var (
			statusStr string
			count     int
		)
		if err := rows.Scan(&statusStr, &count); err != nil {
			return nil, err
		}
		stats[Status(statusStr)] = count
	}
	return stats, rows.Err()
}

// Health summarizes mapping counts for status displays.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}

	summary := HealthSummary{
		Pending: stats[StatusPending],
		Active:  stats[StatusActive],
	}
	for status, count := range stats {
		summary.Total += count
		if status.IsFailure() {
			summary.Failed += count
		}
	}
	return summary, nil
}

// Remove deletes a mapping and its stored sync position.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if item == nil {
		return false, nil
	}

	err = retryOnBusy(ensureContext(ctx), func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM mappings WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete mapping: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sync_state WHERE audio_item_id = ?`, item.AudioItemID); err != nil {
			return fmt.Errorf("delete sync state: %w", err)
		}
		return tx.Commit()
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Clear removes every mapping and sync position, returning the mapping count.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM mappings`)
	if err != nil {
		return 0, fmt.Errorf("clear mappings: %w", err)
	}
	if err := s.execWithoutResultRetry(ctx, `DELETE FROM sync_state`); err != nil {
		return 0, fmt.Errorf("clear sync state: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed resets failed mappings to pending. With no ids every failed
// mapping is reset; otherwise only the listed ones are.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	query := `UPDATE mappings SET status = ?, error_message = NULL, updated_at = ?
              WHERE status IN (?, ?, ?)`
	args := []any{StatusPending, timestamp, StatusFailed, StatusFailedRetryLater, StatusCrashed}

	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed mappings: %w", err)
	}
	return res.RowsAffected()
}
