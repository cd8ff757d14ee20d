package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/splenwilz/clipslot/internal/protocol"
)

type Slot struct {
	SlotNumber    int
	EncryptedBlob string
	UpdatedAt     int64
	UpdatedBy     *uuid.UUID
}

// GetSlots returns all N=10 slot rows for userID, pre-created at
// registration so this never needs to synthesize missing rows.
func (s *Store) GetSlots(userID uuid.UUID) ([]Slot, error) {
	rows, err := s.db.Query(`SELECT slot_number, encrypted_blob, updated_at, updated_by FROM synced_slots WHERE user_id = ? ORDER BY slot_number`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	defer rows.Close()

	var out []Slot
	for rows.Next() {
		var sl Slot
		var updatedBy sql.NullString
		if err := rows.Scan(&sl.SlotNumber, &sl.EncryptedBlob, &sl.UpdatedAt, &updatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		if updatedBy.Valid {
			id, err := uuid.Parse(updatedBy.String)
			if err != nil {
				return nil, fmt.Errorf("corrupt slot updated_by: %w", err)
			}
			sl.UpdatedBy = &id
		}
		out = append(out, sl)
	}
	return out, rows.Err()
}

// UpsertSlot writes slotNumber unconditionally; it does not compare
// against the current row, so the last call wins. slotNumber must already
// be validated to 1..serverSlotCount by the caller.
func (s *Store) UpsertSlot(userID uuid.UUID, slotNumber int, encryptedBlob string, updatedAt int64, updatedBy uuid.UUID) error {
	res, err := s.db.Exec(
		`UPDATE synced_slots SET encrypted_blob = ?, updated_at = ?, updated_by = ? WHERE user_id = ? AND slot_number = ?`,
		encryptedBlob, updatedAt, updatedBy.String(), userID.String(), slotNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to update slot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return protocol.New(protocol.KindNotFound, "slot out of range")
	}
	return nil
}

// GetSlot fetches a single slot by number.
func (s *Store) GetSlot(userID uuid.UUID, slotNumber int) (*Slot, error) {
	row := s.db.QueryRow(`SELECT slot_number, encrypted_blob, updated_at, updated_by FROM synced_slots WHERE user_id = ? AND slot_number = ?`, userID.String(), slotNumber)

	var sl Slot
	var updatedBy sql.NullString
	if err := row.Scan(&sl.SlotNumber, &sl.EncryptedBlob, &sl.UpdatedAt, &updatedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, protocol.New(protocol.KindNotFound, "slot out of range")
		}
		return nil, fmt.Errorf("failed to scan slot: %w", err)
	}
	if updatedBy.Valid {
		id, err := uuid.Parse(updatedBy.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt slot updated_by: %w", err)
		}
		sl.UpdatedBy = &id
	}
	return &sl, nil
}
