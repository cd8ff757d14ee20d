package clientstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/splenwilz/clipslot/internal/protocol"
)

// SlotInfo is the decrypted view handed to the UI layer: decrypted
// plaintext, a <=100-character preview, and IsEmpty iff no item is
// linked.
type SlotInfo struct {
	SlotNumber int
	Name       string
	Content    string
	Preview    string
	IsEmpty    bool
	UpdatedAt  int64
	UpdatedBy  *uuid.UUID
}

// RawSlot is the ciphertext-level view the Slot Reconciler operates on —
// it never needs plaintext, only updated_at comparisons and the raw blob
// to push.
type RawSlot struct {
	SlotNumber    int
	EncryptedBlob string // empty string means no item linked
	UpdatedAt     int64
	UpdatedBy     *uuid.UUID
}

func (s *Store) GetRawSlot(slotNumber int) (*RawSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getRawSlotLocked(slotNumber)
}

func (s *Store) getRawSlotLocked(slotNumber int) (*RawSlot, error) {
	row := s.db.QueryRow(
		`SELECT s.slot_number, COALESCE(i.content, ''), s.updated_at_ms, s.updated_by
		 FROM slots s LEFT JOIN items i ON i.id = s.item_id WHERE s.slot_number = ?`,
		slotNumber,
	)
	var rs RawSlot
	var updatedBy sql.NullString
	if err := row.Scan(&rs.SlotNumber, &rs.EncryptedBlob, &rs.UpdatedAt, &updatedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &RawSlot{SlotNumber: slotNumber}, nil
		}
		return nil, fmt.Errorf("failed to scan raw slot: %w", err)
	}
	if updatedBy.Valid {
		id, err := uuid.Parse(updatedBy.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt slot updated_by: %w", err)
		}
		rs.UpdatedBy = &id
	}
	return &rs, nil
}

func (s *Store) GetRawSlots() ([]RawSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []RawSlot
	for n := 1; n <= clientSlotCount; n++ {
		rs, err := s.getRawSlotLocked(n)
		if err != nil {
			return nil, err
		}
		out = append(out, *rs)
	}
	return out, nil
}

// GetSlot joins items and decrypts via decrypt for display.
func (s *Store) GetSlot(slotNumber int, decrypt func(string) (string, error)) (*SlotInfo, error) {
	s.mu.Lock()
	row := s.db.QueryRow(
		`SELECT s.slot_number, s.name, COALESCE(i.content, ''), s.updated_at_ms, s.updated_by
		 FROM slots s LEFT JOIN items i ON i.id = s.item_id WHERE s.slot_number = ?`,
		slotNumber,
	)
	var info SlotInfo
	var content string
	var updatedBy sql.NullString
	err := row.Scan(&info.SlotNumber, &info.Name, &content, &info.UpdatedAt, &updatedBy)
	s.mu.Unlock()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &SlotInfo{SlotNumber: slotNumber, IsEmpty: true}, nil
		}
		return nil, fmt.Errorf("failed to scan slot: %w", err)
	}
	if updatedBy.Valid {
		id, err := uuid.Parse(updatedBy.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt slot updated_by: %w", err)
		}
		info.UpdatedBy = &id
	}

	if content == "" {
		info.IsEmpty = true
		return &info, nil
	}

	plaintext, err := decrypt(content)
	if err != nil {
		return nil, protocol.Wrap(protocol.KindDecryptFailed, "failed to decrypt slot content", err)
	}
	info.Content = plaintext
	info.Preview = previewOf(plaintext)
	return &info, nil
}

func previewOf(s string) string {
	runes := []rune(s)
	if len(runes) <= slotPreviewMaxChars {
		return s
	}
	return string(runes[:slotPreviewMaxChars])
}

// SaveToSlot upserts a fresh item as is_promoted and links it into
// slotNumber.
func (s *Store) SaveToSlot(slotNumber int, id uuid.UUID, content, contentHash string, deviceID *uuid.UUID, nowMS int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deviceIDStr any
	if deviceID != nil {
		deviceIDStr = deviceID.String()
	}
	_, err := s.db.Exec(
		`INSERT INTO items (id, content, content_hash, device_id, created_at_ms, is_promoted) VALUES (?, ?, ?, ?, ?, 1)
		 ON CONFLICT(id) DO UPDATE SET content = excluded.content, content_hash = excluded.content_hash, is_promoted = 1`,
		id.String(), content, contentHash, deviceIDStr, nowMS,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert promoted item: %w", err)
	}

	if err := s.upsertSlotLocked(slotNumber, id.String(), nowMS, deviceID); err != nil {
		return err
	}
	return nil
}

// SaveExistingItemToSlot promotes an already-captured history item into a
// slot by id, distinct from SaveToSlot which always creates a fresh item.
func (s *Store) SaveExistingItemToSlot(slotNumber int, itemID uuid.UUID, nowMS int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE items SET is_promoted = 1 WHERE id = ?`, itemID.String())
	if err != nil {
		return fmt.Errorf("failed to promote item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return protocol.New(protocol.KindNotFound, "item not found")
	}

	return s.upsertSlotLocked(slotNumber, itemID.String(), nowMS, nil)
}

// SaveEncryptedToSlot stores a ciphertext blob without re-encrypting, used
// by relay ingest. It is idempotent: applying the same (slot, updatedAtMS,
// ciphertext) twice is a no-op because the second call observes its own
// prior write and skips.
func (s *Store) SaveEncryptedToSlot(slotNumber int, ciphertext string, updatedAtMS int64, updatedBy uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.getRawSlotLocked(slotNumber)
	if err != nil {
		return err
	}
	if current.EncryptedBlob == ciphertext && current.UpdatedAt == updatedAtMS {
		return nil
	}

	itemID := uuid.New()
	_, err = s.db.Exec(
		`INSERT INTO items (id, content, content_hash, device_id, created_at_ms, is_promoted) VALUES (?, ?, '', ?, ?, 1)`,
		itemID.String(), ciphertext, updatedBy.String(), updatedAtMS,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ingested slot item: %w", err)
	}

	return s.upsertSlotLocked(slotNumber, itemID.String(), updatedAtMS, &updatedBy)
}

// ClearSlot unlinks the slot's item.
func (s *Store) ClearSlot(slotNumber int, nowMS int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE slots SET item_id = NULL, updated_at_ms = ? WHERE slot_number = ?`, nowMS, slotNumber)
	if err != nil {
		return fmt.Errorf("failed to clear slot: %w", err)
	}
	return s.ensureSlotRowLocked(slotNumber, nowMS)
}

// RenameSlot updates the slot's display name without touching its
// content.
func (s *Store) RenameSlot(slotNumber int, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureSlotRowLocked(slotNumber, 0); err != nil {
		return err
	}
	_, err := s.db.Exec(`UPDATE slots SET name = ? WHERE slot_number = ?`, name, slotNumber)
	if err != nil {
		return fmt.Errorf("failed to rename slot: %w", err)
	}
	return nil
}

func (s *Store) upsertSlotLocked(slotNumber int, itemID string, updatedAtMS int64, updatedBy *uuid.UUID) error {
	var updatedByStr any
	if updatedBy != nil {
		updatedByStr = updatedBy.String()
	}
	_, err := s.db.Exec(
		`INSERT INTO slots (slot_number, item_id, updated_at_ms, updated_by) VALUES (?, ?, ?, ?)
		 ON CONFLICT(slot_number) DO UPDATE SET item_id = excluded.item_id, updated_at_ms = excluded.updated_at_ms, updated_by = excluded.updated_by`,
		slotNumber, itemID, updatedAtMS, updatedByStr,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert slot: %w", err)
	}
	return nil
}

func (s *Store) ensureSlotRowLocked(slotNumber int, updatedAtMS int64) error {
	_, err := s.db.Exec(
		`INSERT INTO slots (slot_number, updated_at_ms) VALUES (?, ?) ON CONFLICT(slot_number) DO NOTHING`,
		slotNumber, updatedAtMS,
	)
	if err != nil {
		return fmt.Errorf("failed to ensure slot row: %w", err)
	}
	return nil
}
