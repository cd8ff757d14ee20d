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

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateUser inserts a new user, pre-creating its empty slot rows in the
// same transaction so GetSlots never has to special-case a missing row.
func (s *Store) CreateUser(email, passwordHash string) (*User, error) {
	u := &User{ID: uuid.New(), Email: email, PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID.String(), u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, protocol.New(protocol.KindConflict, "email already registered")
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	for n := 1; n <= serverSlotCount; n++ {
		if _, err := tx.Exec(`INSERT INTO synced_slots (user_id, slot_number) VALUES (?, ?)`, u.ID.String(), n); err != nil {
			return nil, fmt.Errorf("failed to seed slot %d: %w", n, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit user creation: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(email string) (*User, error) {
	row := s.db.QueryRow(`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (s *Store) GetUserByID(id uuid.UUID) (*User, error) {
	row := s.db.QueryRow(`SELECT id, email, password_hash, created_at FROM users WHERE id = ?`, id.String())
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var idStr string
	if err := row.Scan(&idStr, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, protocol.New(protocol.KindNotFound, "user not found")
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt user id: %w", err)
	}
	u.ID = id
	return &u, nil
}
