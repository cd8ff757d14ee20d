package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/splenwilz/clipslot/internal/broker"
	"github.com/splenwilz/clipslot/internal/protocol"
)

// Connection timing follows the standard gorilla/websocket pongWait /
// pingPeriod pattern.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// handleWebSocket upgrades the connection, requiring a device-bound token
// carried in the query string. It touches last_seen on connect and gives
// the connection both the shared per-user broadcast subscription and a
// private unicast channel for error frames.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	claims, err := s.auth.AuthenticateWebSocket(r)
	if err != nil {
		writeError(w, err)
		return
	}
	deviceID, _ := claims.DeviceIDOrZero()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	_ = s.store.TouchDeviceLastSeen(deviceID)

	s.metrics.ConnectionsTotal.Inc()
	s.metrics.ConnectionsActive.Inc()
	defer s.metrics.ConnectionsActive.Dec()

	broadcastCh, unsubscribe := s.broker.Subscribe(claims.UserID, deviceID)
	unicastCh := make(chan protocol.ErrorFrame, 8)
	defer unsubscribe()

	go s.writePump(conn, broadcastCh, unicastCh)
	s.readPump(conn, claims.UserID, deviceID, unicastCh)
}

// writePump serializes every write to conn: broker fan-out messages,
// direct unicast error frames, and periodic pings, following the
// single-writer-goroutine pattern so concurrent writes never race
// gorilla's connection.
func (s *Server) writePump(conn *websocket.Conn, broadcastCh <-chan broker.Message, unicastCh <-chan protocol.ErrorFrame) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-broadcastCh:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg.Payload); err != nil {
				return
			}

		case frame, ok := <-unicastCh:
			if !ok {
				return
			}
			payload, err := protocol.Marshal(frame)
			if err != nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains inbound frames and is the live-sync mutation path: a
// decoded slot_update or history_push is persisted and re-published the
// same way the HTTP handlers do, with userID/deviceID fixed to this
// connection's bound claims rather than read from the request body. Any
// frame that fails to decode or fails validation gets an error frame back
// on the unicast channel rather than closing the connection.
func (s *Server) readPump(conn *websocket.Conn, userID, deviceID uuid.UUID, unicastCh chan<- protocol.ErrorFrame) {
	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			close(unicastCh)
			return
		}

		msg, err := protocol.Decode(raw)
		if err != nil {
			sendWSError(unicastCh, "unrecognized message: "+err.Error())
			continue
		}

		switch m := msg.(type) {
		case protocol.SlotUpdate:
			s.applyInboundSlotUpdate(userID, deviceID, m, unicastCh)
		case protocol.HistoryPush:
			s.applyInboundHistoryPush(userID, deviceID, m, unicastCh)
		default:
			sendWSError(unicastCh, "message type not accepted from a client connection")
		}
	}
}

// applyInboundSlotUpdate mirrors handlePutSlot's validation, persistence,
// and fan-out, but sourced from a live WebSocket frame instead of an HTTP
// PUT body.
func (s *Server) applyInboundSlotUpdate(userID, deviceID uuid.UUID, m protocol.SlotUpdate, unicastCh chan<- protocol.ErrorFrame) {
	if m.SlotNumber < 1 || m.SlotNumber > maxSlotNumber {
		sendWSError(unicastCh, "slot number must be in 1..10")
		return
	}
	if err := validateCiphertext(m.EncryptedBlob); err != nil {
		sendWSError(unicastCh, err.Error())
		return
	}

	now := time.Now().UnixMilli()
	if err := s.store.UpsertSlot(userID, m.SlotNumber, m.EncryptedBlob, now, deviceID); err != nil {
		sendWSError(unicastCh, "failed to store slot update")
		return
	}

	update := protocol.SlotUpdated{
		Type: protocol.TypeSlotUpdated, SlotNumber: m.SlotNumber, EncryptedBlob: m.EncryptedBlob,
		UpdatedBy: deviceID, Timestamp: now,
	}
	if payload, err := protocol.Marshal(update); err == nil {
		s.publish(userID, deviceID, payload)
	}
	s.metrics.SlotUpdatesTotal.Inc()
}

// applyInboundHistoryPush mirrors handlePostHistory: insert relies on
// UNIQUE(user_id, content_hash) to collapse duplicates, and only publishes
// history_new on a genuine insert.
func (s *Server) applyInboundHistoryPush(userID, deviceID uuid.UUID, m protocol.HistoryPush, unicastCh chan<- protocol.ErrorFrame) {
	if m.ContentHash == "" {
		sendWSError(unicastCh, "content_hash required")
		return
	}
	if err := validateCiphertext(m.EncryptedBlob); err != nil {
		sendWSError(unicastCh, err.Error())
		return
	}

	id := m.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	inserted, err := s.store.InsertHistory(userID, id, m.EncryptedBlob, m.ContentHash, &deviceID)
	if err != nil {
		sendWSError(unicastCh, "failed to store history item")
		return
	}

	if inserted {
		event := protocol.HistoryNew{
			Type: protocol.TypeHistoryNew, ID: id, EncryptedBlob: m.EncryptedBlob,
			ContentHash: m.ContentHash, DeviceID: deviceID,
		}
		if payload, err := protocol.Marshal(event); err == nil {
			s.publish(userID, deviceID, payload)
		}
		s.metrics.HistoryPushesTotal.Inc()
	}
}

func sendWSError(ch chan<- protocol.ErrorFrame, message string) {
	select {
	case ch <- protocol.NewErrorFrame(message):
	default:
	}
}
