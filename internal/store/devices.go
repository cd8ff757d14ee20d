package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/splenwilz/clipslot/internal/protocol"
)

type Device struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Name       string
	DeviceType string
	LastSeen   time.Time
	CreatedAt  time.Time
}

func (s *Store) CreateDevice(userID uuid.UUID, name, deviceType string) (*Device, error) {
	d := &Device{
		ID: uuid.New(), UserID: userID, Name: name, DeviceType: deviceType,
		LastSeen: time.Now().UTC(), CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(`INSERT INTO devices (id, user_id, name, device_type, last_seen, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID.String(), d.UserID.String(), d.Name, d.DeviceType, d.LastSeen, d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert device: %w", err)
	}
	return d, nil
}

// DeleteDevice deletes the device if owned by userID, used by
// DELETE /auth/device/{id} to enforce ownership at the store layer.
func (s *Store) DeleteDevice(userID, deviceID uuid.UUID) error {
	res, err := s.db.Exec(`DELETE FROM devices WHERE id = ? AND user_id = ?`, deviceID.String(), userID.String())
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return protocol.New(protocol.KindNotFound, "device not found")
	}
	return nil
}

func (s *Store) ListDevices(userID uuid.UUID) ([]Device, error) {
	rows, err := s.db.Query(`SELECT id, user_id, name, device_type, last_seen, created_at FROM devices WHERE user_id = ? ORDER BY created_at`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var out []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// TouchDeviceLastSeen updates last_seen to now, called on WS connect and
// on POST /auth/device.
func (s *Store) TouchDeviceLastSeen(deviceID uuid.UUID) error {
	_, err := s.db.Exec(`UPDATE devices SET last_seen = ? WHERE id = ?`, time.Now().UTC(), deviceID.String())
	if err != nil {
		return fmt.Errorf("failed to touch device last_seen: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*Device, error) {
	var d Device
	var idStr, userIDStr string
	if err := row.Scan(&idStr, &userIDStr, &d.Name, &d.DeviceType, &d.LastSeen, &d.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, protocol.New(protocol.KindNotFound, "device not found")
		}
		return nil, fmt.Errorf("failed to scan device: %w", err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt device id: %w", err)
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt device user id: %w", err)
	}
	d.ID, d.UserID = id, userID
	return &d, nil
}
