// Package pairing wraps the client side of the 6-digit link-code
// exchange. The wrap format for the master key is left opaque:
// original_source's pairing.rs passes whatever the caller hands it
// straight through to the server as the link code's payload, with no
// additional wrapping layer, and this package does the same — see
// DESIGN.md for that decision. This package is deliberately thin.
package pairing

import (
	"encoding/base64"
	"fmt"

	"github.com/splenwilz/clipslot/internal/apiclient"
)

type Helper struct {
	api *apiclient.Client
}

func New(api *apiclient.Client) *Helper {
	return &Helper{api: api}
}

// GenerateCode stores encryptedMasterKey under a fresh 6-digit code,
// returned to the caller for display on the originating device.
func (h *Helper) GenerateCode(token, encryptedMasterKey string) (string, error) {
	resp, err := h.api.GenerateLinkCode(token, encryptedMasterKey)
	if err != nil {
		return "", err
	}
	return resp.Code, nil
}

// RedeemCode exchanges a 6-digit code typed on a new device for the
// encrypted master key stashed by GenerateCode, returned exactly as the
// server stored it. Pairing transfers the key; it never transfers
// plaintext clipboard data.
func (h *Helper) RedeemCode(token, code string) (string, error) {
	resp, err := h.api.RedeemLinkCode(token, code)
	if err != nil {
		return "", err
	}
	return resp.EncryptedKey, nil
}

// GenerateCodeForKey base64-encodes masterKey as the opaque payload and
// stores it under a fresh code — the originating device's half of pairing.
func (h *Helper) GenerateCodeForKey(token string, masterKey []byte) (string, error) {
	return h.GenerateCode(token, base64.StdEncoding.EncodeToString(masterKey))
}

// RedeemCodeToKey redeems code and decodes the opaque payload back into
// master key bytes — the new device's half of pairing.
func (h *Helper) RedeemCodeToKey(token, code string) ([]byte, error) {
	opaque, err := h.RedeemCode(token, code)
	if err != nil {
		return nil, err
	}
	key, err := base64.StdEncoding.DecodeString(opaque)
	if err != nil {
		return nil, fmt.Errorf("redeemed key payload was not valid base64: %w", err)
	}
	return key, nil
}
