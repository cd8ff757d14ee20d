package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Message type discriminators for the tagged-union wire format: every
// frame carries a `type` field, and parsers must reject unknown variants.
const (
	TypeSlotUpdate  = "slot_update"
	TypeSlotUpdated = "slot_updated"
	TypeHistoryPush = "history_push"
	TypeHistoryNew  = "history_new"
	TypeError       = "error"
)

// Envelope is the common shape every WebSocket frame parses into first, so
// the discriminator can be read before committing to a concrete payload.
type Envelope struct {
	Type string `json:"type"`
}

// SlotUpdate is sent client -> server to push a local slot mutation.
type SlotUpdate struct {
	Type          string `json:"type"`
	SlotNumber    int    `json:"slot_number"`
	EncryptedBlob string `json:"encrypted_blob"`
	Timestamp     int64  `json:"timestamp"`
}

// SlotUpdated is sent server -> client to fan a slot mutation out to peers.
type SlotUpdated struct {
	Type          string    `json:"type"`
	SlotNumber    int       `json:"slot_number"`
	EncryptedBlob string    `json:"encrypted_blob"`
	UpdatedBy     uuid.UUID `json:"updated_by"`
	Timestamp     int64     `json:"timestamp"`
}

// HistoryPush is sent client -> server to push a newly captured history item.
type HistoryPush struct {
	Type          string    `json:"type"`
	ID            uuid.UUID `json:"id"`
	EncryptedBlob string    `json:"encrypted_blob"`
	ContentHash   string    `json:"content_hash"`
}

// HistoryNew is sent server -> client to fan a new history item out to peers.
type HistoryNew struct {
	Type          string    `json:"type"`
	ID            uuid.UUID `json:"id"`
	EncryptedBlob string    `json:"encrypted_blob"`
	ContentHash   string    `json:"content_hash"`
	DeviceID      uuid.UUID `json:"device_id"`
}

// ErrorFrame is sent server -> client when an inbound frame can't be
// processed. It never closes the socket.
type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewErrorFrame(message string) ErrorFrame {
	return ErrorFrame{Type: TypeError, Message: message}
}

// Decode inspects the discriminator field of raw and unmarshals it into the
// matching concrete type. Unknown variants are rejected as BadRequest.
func Decode(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, Wrap(KindBadRequest, "malformed message", err)
	}

	switch env.Type {
	case TypeSlotUpdate:
		var m SlotUpdate
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, Wrap(KindBadRequest, "malformed slot_update", err)
		}
		return m, nil
	case TypeHistoryPush:
		var m HistoryPush
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, Wrap(KindBadRequest, "malformed history_push", err)
		}
		return m, nil
	case TypeSlotUpdated:
		var m SlotUpdated
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, Wrap(KindBadRequest, "malformed slot_updated", err)
		}
		return m, nil
	case TypeHistoryNew:
		var m HistoryNew
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, Wrap(KindBadRequest, "malformed history_new", err)
		}
		return m, nil
	case TypeError:
		var m ErrorFrame
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, Wrap(KindBadRequest, "malformed error frame", err)
		}
		return m, nil
	default:
		return nil, New(KindBadRequest, fmt.Sprintf("unknown message type %q", env.Type))
	}
}

// Marshal is a thin json.Marshal wrapper kept alongside Decode so call sites
// never reach for encoding/json directly when producing wire frames.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}
