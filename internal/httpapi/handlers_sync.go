package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/splenwilz/clipslot/internal/authsvc"
	"github.com/splenwilz/clipslot/internal/envelope"
	"github.com/splenwilz/clipslot/internal/protocol"
)

const maxSlotNumber = 10

// validateCiphertext checks the blob is base64 without decoding its
// semantics. The envelope wire form is "ENC:" + base64(...), so the tag is
// stripped before the base64 check.
func validateCiphertext(blob string) error {
	if blob == "" {
		return protocol.New(protocol.KindBadRequest, "encrypted_blob required")
	}
	encoded := strings.TrimPrefix(blob, envelope.Prefix)
	if _, err := base64.StdEncoding.DecodeString(encoded); err != nil {
		return protocol.New(protocol.KindBadRequest, "encrypted_blob is not valid base64")
	}
	return nil
}

func (s *Server) handleGetSlots(w http.ResponseWriter, r *http.Request) {
	claims, _ := authsvc.ClaimsFromContext(r.Context())
	if _, ok := claims.DeviceIDOrZero(); !ok {
		writeError(w, protocol.New(protocol.KindAuthInvalid, "device-bound token required"))
		return
	}

	slots, err := s.store.GetSlots(claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]protocol.SlotResponse, 0, len(slots))
	for _, sl := range slots {
		resp = append(resp, protocol.SlotResponse{SlotNumber: sl.SlotNumber, EncryptedBlob: sl.EncryptedBlob, UpdatedAt: sl.UpdatedAt, UpdatedBy: sl.UpdatedBy})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePutSlot upserts the slot unconditionally and publishes
// slot_updated with origin=device. LWW ordering is enforced by the
// client's Slot Reconciler deciding whether to push in the first place;
// the server accepts whatever the device-authoritative client sends and
// stamps it with the server's own clock as updated_at.
func (s *Server) handlePutSlot(w http.ResponseWriter, r *http.Request) {
	claims, _ := authsvc.ClaimsFromContext(r.Context())
	deviceID, ok := claims.DeviceIDOrZero()
	if !ok {
		writeError(w, protocol.New(protocol.KindAuthInvalid, "device-bound token required"))
		return
	}

	slotNumber, err := strconv.Atoi(mux.Vars(r)["n"])
	if err != nil || slotNumber < 1 || slotNumber > maxSlotNumber {
		writeError(w, protocol.New(protocol.KindBadRequest, "slot number must be in 1..10"))
		return
	}

	var req protocol.UpdateSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, protocol.New(protocol.KindBadRequest, "invalid request body"))
		return
	}
	if err := validateCiphertext(req.EncryptedBlob); err != nil {
		writeError(w, err)
		return
	}

	now := time.Now().UnixMilli()
	if err := s.store.UpsertSlot(claims.UserID, slotNumber, req.EncryptedBlob, now, deviceID); err != nil {
		writeError(w, err)
		return
	}

	update := protocol.SlotUpdated{
		Type: protocol.TypeSlotUpdated, SlotNumber: slotNumber, EncryptedBlob: req.EncryptedBlob,
		UpdatedBy: deviceID, Timestamp: now,
	}
	if payload, err := protocol.Marshal(update); err == nil {
		s.publish(claims.UserID, deviceID, payload)
	}
	s.metrics.SlotUpdatesTotal.Inc()

	writeJSON(w, http.StatusOK, protocol.SlotResponse{SlotNumber: slotNumber, EncryptedBlob: req.EncryptedBlob, UpdatedAt: now, UpdatedBy: &deviceID})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	claims, _ := authsvc.ClaimsFromContext(r.Context())
	if _, ok := claims.DeviceIDOrZero(); !ok {
		writeError(w, protocol.New(protocol.KindAuthInvalid, "device-bound token required"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	items, err := s.store.GetHistory(claims.UserID, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]protocol.HistoryResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, protocol.HistoryResponse{ID: item.ID, EncryptedBlob: item.EncryptedBlob, ContentHash: item.ContentHash, DeviceID: item.DeviceID, CreatedAt: item.CreatedAt})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePostHistory inserts relying on UNIQUE(user_id, content_hash) to
// collapse duplicates and only publishes history_new on a genuine insert.
func (s *Server) handlePostHistory(w http.ResponseWriter, r *http.Request) {
	claims, _ := authsvc.ClaimsFromContext(r.Context())
	deviceID, ok := claims.DeviceIDOrZero()
	if !ok {
		writeError(w, protocol.New(protocol.KindAuthInvalid, "device-bound token required"))
		return
	}

	var req protocol.PushHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, protocol.New(protocol.KindBadRequest, "invalid request body"))
		return
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if req.ContentHash == "" {
		writeError(w, protocol.New(protocol.KindBadRequest, "content_hash required"))
		return
	}
	if err := validateCiphertext(req.EncryptedBlob); err != nil {
		writeError(w, err)
		return
	}

	inserted, err := s.store.InsertHistory(claims.UserID, req.ID, req.EncryptedBlob, req.ContentHash, &deviceID)
	if err != nil {
		writeError(w, err)
		return
	}

	if inserted {
		event := protocol.HistoryNew{
			Type: protocol.TypeHistoryNew, ID: req.ID, EncryptedBlob: req.EncryptedBlob,
			ContentHash: req.ContentHash, DeviceID: deviceID,
		}
		if payload, err := protocol.Marshal(event); err == nil {
			s.publish(claims.UserID, deviceID, payload)
		}
		s.metrics.HistoryPushesTotal.Inc()
	}

	writeJSON(w, http.StatusCreated, protocol.HistoryResponse{ID: req.ID, EncryptedBlob: req.EncryptedBlob, ContentHash: req.ContentHash, DeviceID: &deviceID})
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	claims, _ := authsvc.ClaimsFromContext(r.Context())
	if _, ok := claims.DeviceIDOrZero(); !ok {
		writeError(w, protocol.New(protocol.KindAuthInvalid, "device-bound token required"))
		return
	}

	itemID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, protocol.New(protocol.KindBadRequest, "invalid history item id"))
		return
	}

	if err := s.store.DeleteHistory(claims.UserID, itemID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
