package queue

import (
	"database/sql"
	"errors"
	"time"
)

const mappingColumns = "id, audio_item_id, title, ebook_path, document_id, transcript_path, status, error_message, created_at, updated_at"

func scanMapping(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id             int64
		audioItemID    string
		title          sql.NullString
		ebookPath      string
		documentID     string
		transcriptPath sql.NullString
		statusStr      string
		errorMessage   sql.NullString
		createdRaw     sql.NullString
		updatedRaw     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&audioItemID,
		&title,
		&ebookPath,
		&documentID,
		&transcriptPath,
		&statusStr,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:             id,
		AudioItemID:    audioItemID,
		Title:          title.String,
		EbookPath:      ebookPath,
		DocumentID:     documentID,
		TranscriptPath: transcriptPath.String,
		Status:         Status(statusStr),
		ErrorMessage:   errorMessage.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
