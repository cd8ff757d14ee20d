// Package store implements the relay server's durable multi-tenant
// storage over mattn/go-sqlite3, grounded on dexidp-dex's
// storage/sql/sqlite.go for schema application on Open rather than a
// migration chain. The pool is sized to 10 connections; WAL journal mode
// is what makes that viable under sqlite3's single-writer constraint
// (readers don't block the writer).
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

const maxOpenConns = 10

type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open connects to the SQLite file at path in WAL mode, applies the
// schema, and sizes the pool to 10 connections.
func Open(path string, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, log: log.With().Str("subcomponent", "store").Logger()}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
