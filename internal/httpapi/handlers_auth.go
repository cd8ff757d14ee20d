package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/splenwilz/clipslot/internal/authsvc"
	"github.com/splenwilz/clipslot/internal/protocol"
)

const minPasswordLen = 8
const minEmailLen = 5

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !s.registLim.allow(clientKey(r)) {
		writeError(w, protocol.New(protocol.KindTransient, "too many registration attempts, try again later"))
		return
	}

	var req protocol.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, protocol.New(protocol.KindBadRequest, "invalid request body"))
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !strings.Contains(email, "@") || len(email) < minEmailLen {
		writeError(w, protocol.New(protocol.KindBadRequest, "invalid email"))
		return
	}
	if len(req.Password) < minPasswordLen {
		writeError(w, protocol.New(protocol.KindBadRequest, "password must be at least 8 characters"))
		return
	}

	hash, err := authsvc.HashPassword(req.Password)
	if err != nil {
		writeError(w, protocol.Wrap(protocol.KindTransient, "failed to hash password", err))
		return
	}

	user, err := s.store.CreateUser(email, hash)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := s.auth.Issue(user.ID, nil)
	if err != nil {
		writeError(w, protocol.Wrap(protocol.KindTransient, "failed to issue token", err))
		return
	}

	writeJSON(w, http.StatusCreated, protocol.AuthResponse{Token: token, UserID: user.ID})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.loginLim.allow(clientKey(r)) {
		writeError(w, protocol.New(protocol.KindTransient, "too many login attempts, try again later"))
		return
	}

	var req protocol.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, protocol.New(protocol.KindBadRequest, "invalid request body"))
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		writeError(w, protocol.New(protocol.KindAuthInvalid, "invalid email or password"))
		return
	}

	ok, err := authsvc.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil || !ok {
		writeError(w, protocol.New(protocol.KindAuthInvalid, "invalid email or password"))
		return
	}

	token, err := s.auth.Issue(user.ID, nil)
	if err != nil {
		writeError(w, protocol.Wrap(protocol.KindTransient, "failed to issue token", err))
		return
	}
	writeJSON(w, http.StatusOK, protocol.AuthResponse{Token: token, UserID: user.ID})
}

// handleRegisterDevice creates a device row and issues a device-bound
// token. It also touches last_seen on creation, alongside the WS connect
// path; other device-authenticated requests do not update last_seen.
func (s *Server) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	claims, _ := authsvc.ClaimsFromContext(r.Context())

	var req protocol.RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, protocol.New(protocol.KindBadRequest, "invalid request body"))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, protocol.New(protocol.KindBadRequest, "device name required"))
		return
	}

	device, err := s.store.CreateDevice(claims.UserID, req.Name, req.DeviceType)
	if err != nil {
		writeError(w, protocol.Wrap(protocol.KindTransient, "failed to create device", err))
		return
	}
	_ = s.store.TouchDeviceLastSeen(device.ID)

	token, err := s.auth.Issue(claims.UserID, &device.ID)
	if err != nil {
		writeError(w, protocol.Wrap(protocol.KindTransient, "failed to issue token", err))
		return
	}

	writeJSON(w, http.StatusCreated, protocol.DeviceRegistrationResponse{DeviceID: device.ID, Token: token})
}

func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	claims, _ := authsvc.ClaimsFromContext(r.Context())

	deviceID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, protocol.New(protocol.KindBadRequest, "invalid device id"))
		return
	}

	if err := s.store.DeleteDevice(claims.UserID, deviceID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	claims, _ := authsvc.ClaimsFromContext(r.Context())

	devices, err := s.store.ListDevices(claims.UserID)
	if err != nil {
		writeError(w, protocol.Wrap(protocol.KindTransient, "failed to list devices", err))
		return
	}

	resp := make([]protocol.DeviceResponse, 0, len(devices))
	for _, d := range devices {
		resp = append(resp, protocol.DeviceResponse{ID: d.ID, Name: d.Name, DeviceType: d.DeviceType, LastSeen: d.LastSeen, CreatedAt: d.CreatedAt})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGenerateLinkCode(w http.ResponseWriter, r *http.Request) {
	claims, _ := authsvc.ClaimsFromContext(r.Context())

	var req protocol.GenerateLinkCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, protocol.New(protocol.KindBadRequest, "invalid request body"))
		return
	}
	if req.EncryptedKey == "" {
		writeError(w, protocol.New(protocol.KindBadRequest, "encrypted_key required"))
		return
	}

	code, err := s.store.CreateLinkCode(claims.UserID, req.EncryptedKey)
	if err != nil {
		writeError(w, protocol.Wrap(protocol.KindTransient, "failed to create link code", err))
		return
	}
	s.metrics.LinkCodesIssued.Inc()
	writeJSON(w, http.StatusCreated, protocol.GenerateLinkCodeResponse{Code: code})
}

func (s *Server) handleRedeemLinkCode(w http.ResponseWriter, r *http.Request) {
	var req protocol.RedeemLinkCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, protocol.New(protocol.KindBadRequest, "invalid request body"))
		return
	}
	if len(req.Code) != 6 || !isAllDigits(req.Code) {
		writeError(w, protocol.New(protocol.KindBadRequest, "code must be 6 ASCII digits"))
		return
	}

	key, err := s.store.RedeemLinkCode(req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.LinkCodesRedeemed.Inc()
	writeJSON(w, http.StatusOK, protocol.RedeemLinkCodeResponse{EncryptedKey: key})
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
