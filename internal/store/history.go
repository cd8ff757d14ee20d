package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/splenwilz/clipslot/internal/protocol"
)

type HistoryItem struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	EncryptedBlob string
	ContentHash   string
	DeviceID      *uuid.UUID
	CreatedAt     time.Time
}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// InsertHistory relies on UNIQUE(user_id, content_hash) to collapse
// duplicate captures; a unique-constraint violation is reported via
// inserted=false rather than an error so callers can skip publishing
// history_new.
func (s *Store) InsertHistory(userID uuid.UUID, id uuid.UUID, encryptedBlob, contentHash string, deviceID *uuid.UUID) (inserted bool, err error) {
	var deviceIDStr any
	if deviceID != nil {
		deviceIDStr = deviceID.String()
	}

	_, err = s.db.Exec(
		`INSERT INTO synced_history (id, user_id, encrypted_blob, content_hash, device_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id.String(), userID.String(), encryptedBlob, contentHash, deviceIDStr, time.Now().UTC(),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert history item: %w", err)
	}
	return true, nil
}

// GetHistory returns up to limit items newest-first, clamped to
// [1, maxHistoryLimit] and defaulting to defaultHistoryLimit.
func (s *Store) GetHistory(userID uuid.UUID, limit int) ([]HistoryItem, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := s.db.Query(
		`SELECT id, user_id, encrypted_blob, content_hash, device_id, created_at FROM synced_history WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID.String(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var out []HistoryItem
	for rows.Next() {
		item, err := scanHistoryItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

func (s *Store) DeleteHistory(userID, itemID uuid.UUID) error {
	res, err := s.db.Exec(`DELETE FROM synced_history WHERE id = ? AND user_id = ?`, itemID.String(), userID.String())
	if err != nil {
		return fmt.Errorf("failed to delete history item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return protocol.New(protocol.KindNotFound, "history item not found")
	}
	return nil
}

func scanHistoryItem(rows *sql.Rows) (*HistoryItem, error) {
	var item HistoryItem
	var idStr, userIDStr string
	var deviceIDStr sql.NullString
	if err := rows.Scan(&idStr, &userIDStr, &item.EncryptedBlob, &item.ContentHash, &deviceIDStr, &item.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan history item: %w", err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt history id: %w", err)
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt history user id: %w", err)
	}
	item.ID, item.UserID = id, userID
	if deviceIDStr.Valid {
		deviceID, err := uuid.Parse(deviceIDStr.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt history device id: %w", err)
		}
		item.DeviceID = &deviceID
	}
	return &item, nil
}
