package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// NewMapping inserts a pending mapping for an audiobook and e-book pair.
// Any prior mapping for the same audiobook is replaced and its stored sync
// position is cleared, so the first cycle re-probes both providers.
func (s *Store) NewMapping(ctx context.Context, audioItemID, title, ebookPath, documentID string) (*Item, error) {
	audioItemID = strings.TrimSpace(audioItemID)
	if audioItemID == "" {
		return nil, errors.New("audio item id is required")
	}
	if strings.TrimSpace(ebookPath) == "" {
		return nil, errors.New("ebook path is required")
	}
	if strings.TrimSpace(documentID) == "" {
		return nil, errors.New("document id is required")
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	var id int64
	err := retryOnBusy(ensureContext(ctx), func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM mappings WHERE audio_item_id = ?`, audioItemID); err != nil {
			return fmt.Errorf("remove prior mapping: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sync_state WHERE audio_item_id = ?`, audioItemID); err != nil {
			return fmt.Errorf("clear sync state: %w", err)
		}

		res, err := tx.ExecContext(
			ctx,
			`INSERT INTO mappings (
                audio_item_id, title, ebook_path, document_id, status, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			audioItemID,
			nullableString(title),
			ebookPath,
			documentID,
			StatusPending,
			timestamp,
			timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert mapping: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a mapping by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+mappingColumns+` FROM mappings WHERE id = ?`, id)
	item, err := scanMapping(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mapping: %w", err)
	}
	return item, nil
}

// GetByAudioID fetches the mapping for an audiobook, if any.
func (s *Store) GetByAudioID(ctx context.Context, audioItemID string) (*Item, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+mappingColumns+` FROM mappings WHERE audio_item_id = ?`,
		audioItemID,
	)
	item, err := scanMapping(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mapping by audio id: %w", err)
	}
	return item, nil
}

// Update persists changes to an existing mapping.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE mappings
         SET title = ?, ebook_path = ?, document_id = ?, transcript_path = ?,
             status = ?, error_message = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(item.Title),
		item.EbookPath,
		item.DocumentID,
		nullableString(item.TranscriptPath),
		item.Status,
		nullableString(item.ErrorMessage),
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID,
	); err != nil {
		return fmt.Errorf("update mapping: %w", err)
	}
	return nil
}

// List returns mappings filtered by status set (or all mappings when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + mappingColumns + ` FROM mappings`
	orderClause := ` ORDER BY id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// NextPending returns the oldest mapping awaiting preparation, or nil.
// Failed, retry-later, and crashed mappings stay parked until an explicit
// re-queue resets them to pending.
func (s *Store) NextPending(ctx context.Context) (*Item, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+mappingColumns+` FROM mappings WHERE status = ? ORDER BY id LIMIT 1`,
		StatusPending,
	)
	item, err := scanMapping(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending mapping: %w", err)
	}
	return item, nil
}

// MarkInterrupted flags mappings left in processing by a previous run as
// crashed and returns how many were affected. Call this once at startup
// before the preparation loop claims anything.
func (s *Store) MarkInterrupted(ctx context.Context) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE mappings SET status = ?, updated_at = ? WHERE status = ?`,
		StatusCrashed,
		timestamp,
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted: %w", err)
	}
	return res.RowsAffected()
}
