package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/splenwilz/clipslot/internal/protocol"
)

// publish fans payload out to local subscribers and, if a cluster fan-out
// relay is configured, to every other instance.
func (s *Server) publish(userID, originDeviceID uuid.UUID, payload []byte) {
	s.broker.Publish(userID, originDeviceID, payload)
	if s.fanout != nil {
		s.fanout.Publish(userID, originDeviceID, payload)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps any error to a wire-level protocol.Error, defaulting to
// a 500 for errors that were never classified.
func writeError(w http.ResponseWriter, err error) {
	pe, ok := protocol.AsError(err)
	if !ok {
		pe = protocol.Wrap(protocol.KindTransient, "internal error", err)
	}
	writeJSON(w, pe.Kind.StatusCode(), protocol.APIError{Error: pe.Message})
}
