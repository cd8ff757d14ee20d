package store

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/splenwilz/clipslot/internal/protocol"
)

const linkCodeTTL = 5 * time.Minute

// CreateLinkCode generates a random 6-digit code and stores encryptedKey
// under it with a 5-minute TTL. Collisions with a still-live code are
// retried; math/rand would also work here but crypto/rand keeps the code
// space unguessable, matching the pairing secret's security requirement.
func (s *Store) CreateLinkCode(userID uuid.UUID, encryptedKey string) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		code, err := randomSixDigitCode()
		if err != nil {
			return "", err
		}

		_, err = s.db.Exec(
			`INSERT INTO link_codes (code, user_id, encrypted_key, created_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
			code, userID.String(), encryptedKey, time.Now().UTC(), time.Now().UTC().Add(linkCodeTTL),
		)
		if err == nil {
			return code, nil
		}
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			continue
		}
		return "", fmt.Errorf("failed to insert link code: %w", err)
	}
	return "", fmt.Errorf("failed to allocate a unique link code after 10 attempts")
}

// RedeemLinkCode looks up code, deletes it (single redemption), and
// returns the wrapped key. A missing row is KindNotFound; an expired but
// still-present row is KindGone and is also deleted so it doesn't linger
// for the sweeper.
func (s *Store) RedeemLinkCode(code string) (string, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var encryptedKey string
	var expiresAt time.Time
	err = tx.QueryRow(`SELECT encrypted_key, expires_at FROM link_codes WHERE code = ?`, code).Scan(&encryptedKey, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", protocol.New(protocol.KindNotFound, "link code not found")
		}
		return "", fmt.Errorf("failed to look up link code: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM link_codes WHERE code = ?`, code); err != nil {
		return "", fmt.Errorf("failed to delete link code: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit link code redemption: %w", err)
	}

	if time.Now().UTC().After(expiresAt) {
		return "", protocol.New(protocol.KindGone, "link code expired")
	}
	return encryptedKey, nil
}

// SweepExpiredLinkCodes deletes every code past its TTL, run on a 60s
// ticker by the sweeper.
func (s *Store) SweepExpiredLinkCodes() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM link_codes WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired link codes: %w", err)
	}
	return res.RowsAffected()
}

func randomSixDigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate link code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
