// Package clientstore implements the sync client's local store: an
// encrypted-at-rest SQLite mirror of items/slots/settings on the same
// mattn/go-sqlite3 driver as internal/store, but limited to a single
// connection, with a single mutex serializing all database access.
package clientstore

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/splenwilz/clipslot/internal/envelope"
)

type Store struct {
	mu  sync.Mutex
	db  *sql.DB
	log zerolog.Logger
	enc *envelope.Engine
}

// Open connects to the SQLite file at path, applies the schema, and runs
// the startup encryption migration: any row whose content does not begin
// with ENC: is encrypted in place.
func Open(path string, enc *envelope.Engine, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply client schema: %w", err)
	}

	s := &Store{db: db, log: log.With().Str("subcomponent", "clientstore").Logger(), enc: enc}
	if err := s.migrateEncryption(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// migrateEncryption re-encrypts any plaintext rows left from before the
// envelope was adopted. It is safe to run on every startup: the query only
// selects rows whose content does not already start with envelope.Prefix.
func (s *Store) migrateEncryption() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT id, content FROM items WHERE content NOT LIKE ?`, envelope.Prefix+"%")
	if err != nil {
		return fmt.Errorf("failed to scan items for encryption migration: %w", err)
	}
	type pending struct{ id, content string }
	var toMigrate []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.content); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan item during migration: %w", err)
		}
		toMigrate = append(toMigrate, p)
	}
	rows.Close()

	for _, p := range toMigrate {
		encrypted, err := s.enc.Encrypt(p.content)
		if err != nil {
			return fmt.Errorf("failed to encrypt item %s during migration: %w", p.id, err)
		}
		if _, err := s.db.Exec(`UPDATE items SET content = ? WHERE id = ?`, encrypted, p.id); err != nil {
			return fmt.Errorf("failed to persist migrated item %s: %w", p.id, err)
		}
	}
	if len(toMigrate) > 0 {
		s.log.Info().Int("count", len(toMigrate)).Msg("migrated plaintext items to encrypted envelope")
	}
	return nil
}
