package protocol

import (
	"time"

	"github.com/google/uuid"
)

// HTTP request/response bodies for the Sync API. These are the same
// shapes the WebSocket payloads carry, minus the `type` tag.

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token  string    `json:"token"`
	UserID uuid.UUID `json:"user_id"`
}

type RegisterDeviceRequest struct {
	Name       string `json:"name"`
	DeviceType string `json:"device_type"`
}

type DeviceRegistrationResponse struct {
	DeviceID uuid.UUID `json:"device_id"`
	Token    string    `json:"token"`
}

type DeviceResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	DeviceType string    `json:"device_type"`
	LastSeen   time.Time `json:"last_seen"`
	CreatedAt  time.Time `json:"created_at"`
}

type SlotResponse struct {
	SlotNumber    int        `json:"slot_number"`
	EncryptedBlob string     `json:"encrypted_blob"`
	UpdatedAt     int64      `json:"updated_at"`
	UpdatedBy     *uuid.UUID `json:"updated_by,omitempty"`
}

type UpdateSlotRequest struct {
	EncryptedBlob string `json:"encrypted_blob"`
}

type PushHistoryRequest struct {
	ID            uuid.UUID `json:"id"`
	EncryptedBlob string    `json:"encrypted_blob"`
	ContentHash   string    `json:"content_hash"`
}

type HistoryResponse struct {
	ID            uuid.UUID  `json:"id"`
	EncryptedBlob string     `json:"encrypted_blob"`
	ContentHash   string     `json:"content_hash"`
	DeviceID      *uuid.UUID `json:"device_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type GenerateLinkCodeRequest struct {
	EncryptedKey string `json:"encrypted_key"`
}

type GenerateLinkCodeResponse struct {
	Code string `json:"code"`
}

type RedeemLinkCodeRequest struct {
	Code string `json:"code"`
}

type RedeemLinkCodeResponse struct {
	EncryptedKey string `json:"encrypted_key"`
}

// APIError is the JSON body every failed HTTP call returns.
type APIError struct {
	Error string `json:"error"`
}
