// Package secretstore stands in for the platform OS keychain. It offers
// exactly the two operations the sync manager needs from a keychain —
// load and save the 256-bit master key — backed by a single file with
// owner-only permissions rather than a real platform credential manager.
package secretstore

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/splenwilz/clipslot/internal/envelope"
)

const fileName = "master.key"

type Store struct {
	path string
}

func New(dataDir string) *Store {
	return &Store{path: filepath.Join(dataDir, fileName)}
}

// Load returns the persisted master key, or (nil, false) if none exists.
func (s *Store) Load() ([]byte, bool, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read master key: %w", err)
	}
	key, err := base64.StdEncoding.DecodeString(string(raw))
	if err != nil {
		return nil, false, fmt.Errorf("corrupt master key file: %w", err)
	}
	return key, true, nil
}

func (s *Store) Save(key []byte) error {
	encoded := base64.StdEncoding.EncodeToString(key)
	if err := os.WriteFile(s.path, []byte(encoded), 0o600); err != nil {
		return fmt.Errorf("failed to write master key: %w", err)
	}
	return nil
}

// LoadOrGenerate returns the persisted key, generating and persisting a
// fresh random one on first run (the originating device's half of spec
// §4.10 pairing: "generates or loads the master key from the platform
// secret store").
func (s *Store) LoadOrGenerate() ([]byte, error) {
	key, ok, err := s.Load()
	if err != nil {
		return nil, err
	}
	if ok {
		return key, nil
	}

	key = make([]byte, envelope.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate master key: %w", err)
	}
	if err := s.Save(key); err != nil {
		return nil, err
	}
	return key, nil
}
