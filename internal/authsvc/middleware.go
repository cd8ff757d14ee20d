package authsvc

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/splenwilz/clipslot/internal/protocol"
)

type contextKey string

const claimsContextKey contextKey = "clipslot.claims"

// WithClaims attaches verified claims to ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext retrieves claims set by RequireUser/RequireDevice.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	return claims, ok
}

// RequireUser wraps next with bearer-token verification, rejecting the
// request with protocol.KindAuthInvalid/KindAuthRequired on failure and
// otherwise attaching claims to the request context. Used by every
// /api/auth and /api/sync HTTP handler except registration/login and the
// WebSocket upgrade, which goes through AuthenticateWebSocket.
func (m *Manager) RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := ExtractBearer(r)
		if err != nil {
			writeAuthError(w, protocol.New(protocol.KindAuthRequired, err.Error()))
			return
		}

		claims, err := m.Verify(token)
		if err != nil {
			writeAuthError(w, protocol.New(protocol.KindAuthInvalid, err.Error()))
			return
		}

		next(w, r.WithContext(WithClaims(r.Context(), claims)))
	}
}

// AuthenticateWebSocket verifies the token carried in the WS upgrade
// request's query string and requires it be bound to deviceID, since the
// live sync stream is always per-device.
func (m *Manager) AuthenticateWebSocket(r *http.Request) (*Claims, error) {
	token, err := ExtractQueryToken(r)
	if err != nil {
		token, err = ExtractBearer(r)
		if err != nil {
			return nil, protocol.New(protocol.KindAuthRequired, "no token found on websocket upgrade")
		}
	}

	claims, err := m.Verify(token)
	if err != nil {
		return nil, protocol.New(protocol.KindAuthInvalid, err.Error())
	}
	if claims.DeviceID == nil {
		return nil, protocol.New(protocol.KindAuthInvalid, "token is not bound to a device")
	}
	return claims, nil
}

// DeviceIDOrZero returns the device bound to claims, or false if the token was
// issued without one (pre-pairing user-level tokens).
func (c *Claims) DeviceIDOrZero() (uuid.UUID, bool) {
	if c.DeviceID == nil {
		return uuid.UUID{}, false
	}
	return *c.DeviceID, true
}

func writeAuthError(w http.ResponseWriter, err *protocol.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Kind.StatusCode())
	_, _ = w.Write([]byte(`{"error":"` + err.Message + `"}`))
}
