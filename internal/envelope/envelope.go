// Package envelope implements the client-side AES-256-GCM encryption
// scheme. It is the only place plaintext clipboard content is ever
// exposed outside the local store; the relay server never imports this
// package and only ever sees the tagged, base64 wire form.
//
// AES-GCM is provided by the standard library (crypto/aes, crypto/cipher)
// rather than a third-party AEAD package: none of the retrieval pack's
// dependencies (golang.org/x/crypto included) replace stdlib AES-GCM, and
// reaching for stdlib here is itself the idiomatic Go choice — see
// DESIGN.md.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"github.com/splenwilz/clipslot/internal/protocol"
)

// Prefix tags ciphertext on the wire and at rest: "ENC:" + base64(nonce ||
// ciphertext || tag). Values without the prefix are passed through
// unchanged by Decrypt (legacy plaintext migration).
const Prefix = "ENC:"

const nonceSize = 12

// KeySize is the length in bytes of the AES-256 master key.
const KeySize = 32

// Engine wraps a 256-bit master key and performs the ENC: envelope
// encrypt/decrypt operations, mirroring original_source's CryptoEngine.
type Engine struct {
	gcm cipher.AEAD
}

// NewEngine constructs an Engine from a 32-byte master key.
func NewEngine(key []byte) (*Engine, error) {
	if len(key) != KeySize {
		return nil, protocol.New(protocol.KindBadRequest, "master key must be 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, protocol.Wrap(protocol.KindBadRequest, "invalid key", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, protocol.Wrap(protocol.KindBadRequest, "failed to init AEAD", err)
	}
	return &Engine{gcm: gcm}, nil
}

// Encrypt produces "ENC:" + base64(nonce || ciphertext || tag). A fresh
// random nonce is drawn per call, so two encryptions of the same plaintext
// never match.
func (e *Engine) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", protocol.Wrap(protocol.KindTransient, "failed to generate nonce", err)
	}

	sealed := e.gcm.Seal(nil, nonce, []byte(plaintext), nil)
	combined := make([]byte, 0, len(nonce)+len(sealed))
	combined = append(combined, nonce...)
	combined = append(combined, sealed...)

	return Prefix + base64.StdEncoding.EncodeToString(combined), nil
}

// Decrypt reverses Encrypt. A value not carrying the ENC: prefix is
// returned unchanged — the legacy plaintext passthrough used for in-place
// migration.
func (e *Engine) Decrypt(stored string) (string, error) {
	if !strings.HasPrefix(stored, Prefix) {
		return stored, nil
	}

	encoded := stored[len(Prefix):]
	combined, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", protocol.Wrap(protocol.KindDecryptFailed, "invalid base64", err)
	}
	if len(combined) < nonceSize {
		return "", protocol.New(protocol.KindDecryptFailed, "ciphertext too short")
	}

	nonce, ciphertext := combined[:nonceSize], combined[nonceSize:]
	plaintext, err := e.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", protocol.Wrap(protocol.KindDecryptFailed, "authentication failed", err)
	}
	if !utf8.Valid(plaintext) {
		return "", protocol.New(protocol.KindDecryptFailed, "decrypted payload is not valid UTF-8")
	}

	return string(plaintext), nil
}

// IsTagged reports whether stored carries the ENC: wire prefix.
func IsTagged(stored string) bool {
	return strings.HasPrefix(stored, Prefix)
}

// ContentHash computes the SHA-256 hex digest of plaintext before
// encryption, used for both server-side de-duplication and local mirror
// idempotency.
func ContentHash(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
