package clientstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Item struct {
	ID          uuid.UUID
	Content     string // always tagged (ENC:...) on disk; decrypted by callers that need plaintext
	ContentHash string
	DeviceID    *uuid.UUID
	CreatedAtMS int64
	IsPromoted  bool
}

// InsertItem upserts by id, but first rejects the insert as a debounce
// against the polling clipboard source: a distinct row with the same
// content_hash created within the last 2 seconds makes this a no-op.
// Returns inserted=false on debounce.
func (s *Store) InsertItem(id uuid.UUID, content, contentHash string, deviceID *uuid.UUID, createdAtMS int64) (inserted bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existingID string
	var existingCreatedAt int64
	err = s.db.QueryRow(
		`SELECT id, created_at_ms FROM items WHERE content_hash = ? AND id != ? ORDER BY created_at_ms DESC LIMIT 1`,
		contentHash, id.String(),
	).Scan(&existingID, &existingCreatedAt)
	switch {
	case err == nil:
		if createdAtMS-existingCreatedAt < debounceWindowMS {
			return false, nil
		}
	case errors.Is(err, sql.ErrNoRows):
		// no prior row with this hash, proceed
	default:
		return false, fmt.Errorf("failed to check debounce window: %w", err)
	}

	var deviceIDStr any
	if deviceID != nil {
		deviceIDStr = deviceID.String()
	}
	_, err = s.db.Exec(
		`INSERT INTO items (id, content, content_hash, device_id, created_at_ms, is_promoted) VALUES (?, ?, ?, ?, ?, 0)
		 ON CONFLICT(id) DO UPDATE SET content = excluded.content, content_hash = excluded.content_hash, device_id = excluded.device_id, created_at_ms = excluded.created_at_ms`,
		id.String(), content, contentHash, deviceIDStr, createdAtMS,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert item: %w", err)
	}
	return true, nil
}

// GetHistory excludes promoted items and returns newest-first.
func (s *Store) GetHistory(limit, offset int) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT id, content, content_hash, device_id, created_at_ms, is_promoted FROM items WHERE is_promoted = 0 ORDER BY created_at_ms DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

// Search matches query case-insensitively against plaintexts in memory,
// since the server never sees plaintext and so can't search server-side.
// Each non-promoted item's Content is decrypted with the caller-supplied
// decrypt func, newest first, and at most maxSearchResults matches are
// returned.
func (s *Store) Search(decrypt func(encrypted string) (string, error), query string) ([]Item, error) {
	s.mu.Lock()
	rows, err := s.db.Query(`SELECT id, content, content_hash, device_id, created_at_ms, is_promoted FROM items WHERE is_promoted = 0 ORDER BY created_at_ms DESC`)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to query items for search: %w", err)
	}
	items, err := scanItems(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	var matches []Item
	for _, item := range items {
		plaintext, err := decrypt(item.Content)
		if err != nil {
			continue // items that fail to decrypt are skipped without logging
		}
		if strings.Contains(strings.ToLower(plaintext), query) {
			matches = append(matches, item)
			if len(matches) >= maxSearchResults {
				break
			}
		}
	}
	return matches, nil
}

func (s *Store) DeleteItem(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM items WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

// ApplyRetention deletes the oldest non-promoted items to bring the
// history count down to exactly limit.
func (s *Store) ApplyRetention(limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM items WHERE is_promoted = 0`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count non-promoted items: %w", err)
	}
	if count <= limit {
		return nil
	}

	excess := count - limit
	_, err := s.db.Exec(
		`DELETE FROM items WHERE id IN (
			SELECT id FROM items WHERE is_promoted = 0 ORDER BY created_at_ms ASC LIMIT ?
		)`,
		excess,
	)
	if err != nil {
		return fmt.Errorf("failed to apply retention: %w", err)
	}
	return nil
}

func scanItems(rows *sql.Rows) ([]Item, error) {
	var out []Item
	for rows.Next() {
		var item Item
		var idStr string
		var deviceIDStr sql.NullString
		var isPromoted int
		if err := rows.Scan(&idStr, &item.Content, &item.ContentHash, &deviceIDStr, &item.CreatedAtMS, &isPromoted); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt item id: %w", err)
		}
		item.ID = id
		item.IsPromoted = isPromoted != 0
		if deviceIDStr.Valid {
			deviceID, err := uuid.Parse(deviceIDStr.String)
			if err != nil {
				return nil, fmt.Errorf("corrupt item device id: %w", err)
			}
			item.DeviceID = &deviceID
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
