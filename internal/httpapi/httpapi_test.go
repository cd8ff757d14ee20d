package httpapi

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splenwilz/clipslot/internal/authsvc"
	"github.com/splenwilz/clipslot/internal/broker"
	"github.com/splenwilz/clipslot/internal/metrics"
	"github.com/splenwilz/clipslot/internal/protocol"
	"github.com/splenwilz/clipslot/internal/store"
)

// promauto registers every collector into the global default registry, so
// building *metrics.Metrics more than once per test binary panics. Every
// test in this package shares the one instance a sync.Once builds.
var (
	sharedMetricsOnce sync.Once
	sharedMetrics     *metrics.Metrics
)

func testMetrics() *metrics.Metrics {
	sharedMetricsOnce.Do(func() { sharedMetrics = metrics.New() })
	return sharedMetrics
}

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	path := filepath.Join(t.TempDir(), "clipslot.db")
	st, err := store.Open(path, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	auth := authsvc.NewManager("test-secret")
	br := broker.New(zerolog.Nop(), nil)
	_, handler := New(st, auth, br, nil, testMetrics(), zerolog.Nop(), []string{"*"}, 1000)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, st
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func registerUser(t *testing.T, srv *httptest.Server, email string) protocol.AuthResponse {
	resp := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", protocol.RegisterRequest{Email: email, Password: "hunter22"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var auth protocol.AuthResponse
	decodeBody(t, resp, &auth)
	return auth
}

func registerDevice(t *testing.T, srv *httptest.Server, userToken string) protocol.DeviceRegistrationResponse {
	resp := doJSON(t, srv, http.MethodPost, "/api/auth/device", userToken, protocol.RegisterDeviceRequest{Name: "laptop", DeviceType: "desktop"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var dev protocol.DeviceRegistrationResponse
	decodeBody(t, resp, &dev)
	return dev
}

func TestRegisterCreatesUserAndReturnsToken(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := registerUser(t, srv, "a@example.com")
	assert.NotEmpty(t, auth.Token)
	assert.NotEqual(t, auth.UserID.String(), "00000000-0000-0000-0000-000000000000")
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", protocol.RegisterRequest{Email: "a@example.com", Password: "short"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegisterRejectsInvalidEmail(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", protocol.RegisterRequest{Email: "not-an-email", Password: "hunter22"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	srv, _ := newTestServer(t)
	registerUser(t, srv, "dup@example.com")

	resp := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", protocol.RegisterRequest{Email: "dup@example.com", Password: "hunter22"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLoginSucceedsWithCorrectPassword(t *testing.T) {
	srv, _ := newTestServer(t)
	registerUser(t, srv, "login@example.com")

	resp := doJSON(t, srv, http.MethodPost, "/api/auth/login", "", protocol.LoginRequest{Email: "login@example.com", Password: "hunter22"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	srv, _ := newTestServer(t)
	registerUser(t, srv, "login2@example.com")

	resp := doJSON(t, srv, http.MethodPost, "/api/auth/login", "", protocol.LoginRequest{Email: "login2@example.com", Password: "wrongpass"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, srv, http.MethodPost, "/api/auth/login", "", protocol.LoginRequest{Email: "ghost@example.com", Password: "hunter22"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterDeviceRequiresBearerToken(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, srv, http.MethodPost, "/api/auth/device", "", protocol.RegisterDeviceRequest{Name: "laptop", DeviceType: "desktop"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterDeviceRejectsEmptyName(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := registerUser(t, srv, "dev@example.com")

	resp := doJSON(t, srv, http.MethodPost, "/api/auth/device", auth.Token, protocol.RegisterDeviceRequest{Name: "  ", DeviceType: "desktop"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListDevicesReturnsRegisteredDevice(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := registerUser(t, srv, "devlist@example.com")
	registerDevice(t, srv, auth.Token)

	resp := doJSON(t, srv, http.MethodGet, "/api/auth/devices", auth.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var devices []protocol.DeviceResponse
	decodeBody(t, resp, &devices)
	require.Len(t, devices, 1)
	assert.Equal(t, "laptop", devices[0].Name)
}

func TestDeleteDeviceRemovesIt(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := registerUser(t, srv, "devdel@example.com")
	dev := registerDevice(t, srv, auth.Token)

	resp := doJSON(t, srv, http.MethodDelete, "/api/auth/device/"+dev.DeviceID.String(), auth.Token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	listResp := doJSON(t, srv, http.MethodGet, "/api/auth/devices", auth.Token, nil)
	var devices []protocol.DeviceResponse
	decodeBody(t, listResp, &devices)
	assert.Empty(t, devices)
}

func TestGenerateAndRedeemLinkCode(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := registerUser(t, srv, "pair@example.com")

	genResp := doJSON(t, srv, http.MethodPost, "/api/auth/link-code", auth.Token, protocol.GenerateLinkCodeRequest{EncryptedKey: "ENC:wrapped-master-key"})
	require.Equal(t, http.StatusCreated, genResp.StatusCode)
	var gen protocol.GenerateLinkCodeResponse
	decodeBody(t, genResp, &gen)
	require.Len(t, gen.Code, 6)

	redeemResp := doJSON(t, srv, http.MethodPost, "/api/auth/redeem-code", auth.Token, protocol.RedeemLinkCodeRequest{Code: gen.Code})
	require.Equal(t, http.StatusOK, redeemResp.StatusCode)
	var redeem protocol.RedeemLinkCodeResponse
	decodeBody(t, redeemResp, &redeem)
	assert.Equal(t, "ENC:wrapped-master-key", redeem.EncryptedKey)
}

func TestRedeemLinkCodeRejectsMalformedCode(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := registerUser(t, srv, "redeembad@example.com")
	resp := doJSON(t, srv, http.MethodPost, "/api/auth/redeem-code", auth.Token, protocol.RedeemLinkCodeRequest{Code: "abc"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRedeemLinkCodeRejectsUnknownCode(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := registerUser(t, srv, "redeemunknown@example.com")
	resp := doJSON(t, srv, http.MethodPost, "/api/auth/redeem-code", auth.Token, protocol.RedeemLinkCodeRequest{Code: "000000"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPutSlotRequiresDeviceBoundToken(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := registerUser(t, srv, "slotuser@example.com")
	blob := "ENC:" + base64.StdEncoding.EncodeToString([]byte("ciphertext"))

	resp := doJSON(t, srv, http.MethodPut, "/api/sync/slots/1", auth.Token, protocol.UpdateSlotRequest{EncryptedBlob: blob})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPutSlotThenGetSlotsRoundTrips(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := registerUser(t, srv, "slotuser2@example.com")
	dev := registerDevice(t, srv, auth.Token)
	blob := "ENC:" + base64.StdEncoding.EncodeToString([]byte("ciphertext"))

	putResp := doJSON(t, srv, http.MethodPut, "/api/sync/slots/3", dev.Token, protocol.UpdateSlotRequest{EncryptedBlob: blob})
	require.Equal(t, http.StatusOK, putResp.StatusCode)

	getResp := doJSON(t, srv, http.MethodGet, "/api/sync/slots", dev.Token, nil)
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	var slots []protocol.SlotResponse
	decodeBody(t, getResp, &slots)
	require.Len(t, slots, maxSlotNumber)
	assert.Equal(t, 3, slots[2].SlotNumber)
	assert.Equal(t, blob, slots[2].EncryptedBlob)
}

func TestPutSlotRejectsOutOfRangeSlotNumber(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := registerUser(t, srv, "slotrange@example.com")
	dev := registerDevice(t, srv, auth.Token)
	blob := "ENC:" + base64.StdEncoding.EncodeToString([]byte("ciphertext"))

	resp := doJSON(t, srv, http.MethodPut, "/api/sync/slots/99", dev.Token, protocol.UpdateSlotRequest{EncryptedBlob: blob})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPutSlotRejectsNonBase64Ciphertext(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := registerUser(t, srv, "slotbadblob@example.com")
	dev := registerDevice(t, srv, auth.Token)

	resp := doJSON(t, srv, http.MethodPut, "/api/sync/slots/1", dev.Token, protocol.UpdateSlotRequest{EncryptedBlob: "ENC:not valid base64!!"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPostHistoryThenGetHistoryRoundTrips(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := registerUser(t, srv, "histuser@example.com")
	dev := registerDevice(t, srv, auth.Token)
	blob := "ENC:" + base64.StdEncoding.EncodeToString([]byte("clip"))

	postResp := doJSON(t, srv, http.MethodPost, "/api/sync/history", dev.Token, protocol.PushHistoryRequest{EncryptedBlob: blob, ContentHash: "hash-1"})
	require.Equal(t, http.StatusCreated, postResp.StatusCode)

	getResp := doJSON(t, srv, http.MethodGet, "/api/sync/history", dev.Token, nil)
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	var items []protocol.HistoryResponse
	decodeBody(t, getResp, &items)
	require.Len(t, items, 1)
	assert.Equal(t, "hash-1", items[0].ContentHash)
}

func TestPostHistoryDeduplicatesByContentHash(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := registerUser(t, srv, "histdup@example.com")
	dev := registerDevice(t, srv, auth.Token)
	blob := "ENC:" + base64.StdEncoding.EncodeToString([]byte("clip"))

	for i := 0; i < 2; i++ {
		resp := doJSON(t, srv, http.MethodPost, "/api/sync/history", dev.Token, protocol.PushHistoryRequest{EncryptedBlob: blob, ContentHash: "shared-hash"})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	getResp := doJSON(t, srv, http.MethodGet, "/api/sync/history", dev.Token, nil)
	var items []protocol.HistoryResponse
	decodeBody(t, getResp, &items)
	assert.Len(t, items, 1, "a second push with the same content hash must collapse rather than duplicate")
}

func TestDeleteHistoryRemovesItem(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := registerUser(t, srv, "histdel@example.com")
	dev := registerDevice(t, srv, auth.Token)
	blob := "ENC:" + base64.StdEncoding.EncodeToString([]byte("clip"))

	postResp := doJSON(t, srv, http.MethodPost, "/api/sync/history", dev.Token, protocol.PushHistoryRequest{EncryptedBlob: blob, ContentHash: "del-hash"})
	var created protocol.HistoryResponse
	decodeBody(t, postResp, &created)

	delResp := doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/sync/history/%s", created.ID), dev.Token, nil)
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	getResp := doJSON(t, srv, http.MethodGet, "/api/sync/history", dev.Token, nil)
	var items []protocol.HistoryResponse
	decodeBody(t, getResp, &items)
	assert.Empty(t, items)
}

func TestHealthReportsOK(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestUnknownBearerTokenRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, srv, http.MethodGet, "/api/sync/slots", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetSlotsRequiresDeviceBoundToken(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := registerUser(t, srv, "slotsnodev@example.com")

	resp := doJSON(t, srv, http.MethodGet, "/api/sync/slots", auth.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetHistoryRequiresDeviceBoundToken(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := registerUser(t, srv, "histnodev@example.com")

	resp := doJSON(t, srv, http.MethodGet, "/api/sync/history", auth.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDeleteHistoryRequiresDeviceBoundToken(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := registerUser(t, srv, "histdelnodev@example.com")

	resp := doJSON(t, srv, http.MethodDelete, "/api/sync/history/"+uuidString(), auth.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func uuidString() string {
	return "00000000-0000-0000-0000-000000000001"
}

func dialWS(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sync/ws?token=" + url.QueryEscape(token)
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readDecoded(t *testing.T, conn *websocket.Conn) any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := protocol.Decode(raw)
	require.NoError(t, err)
	return msg
}

func TestInboundSlotUpdatePersistsAndFansOutToOtherDevice(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := registerUser(t, srv, "wsslot@example.com")
	origin := registerDevice(t, srv, auth.Token)
	peer := registerDevice(t, srv, auth.Token)

	originConn := dialWS(t, srv, origin.Token)
	peerConn := dialWS(t, srv, peer.Token)
	time.Sleep(100 * time.Millisecond) // let the server finish broker.Subscribe for both connections

	blob := "ENC:" + base64.StdEncoding.EncodeToString([]byte("live-slot"))
	require.NoError(t, originConn.WriteJSON(protocol.SlotUpdate{
		Type: protocol.TypeSlotUpdate, SlotNumber: 2, EncryptedBlob: blob, Timestamp: 1000,
	}))

	msg := readDecoded(t, peerConn)
	su, ok := msg.(protocol.SlotUpdated)
	require.True(t, ok, "peer device must receive a slot_updated frame")
	assert.Equal(t, 2, su.SlotNumber)
	assert.Equal(t, blob, su.EncryptedBlob)

	getResp := doJSON(t, srv, http.MethodGet, "/api/sync/slots", peer.Token, nil)
	var slots []protocol.SlotResponse
	decodeBody(t, getResp, &slots)
	require.Len(t, slots, maxSlotNumber)
	assert.Equal(t, blob, slots[1].EncryptedBlob, "an inbound WS slot_update must be durably stored server-side")
}

func TestInboundHistoryPushPersistsAndFansOutToOtherDevice(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := registerUser(t, srv, "wshist@example.com")
	origin := registerDevice(t, srv, auth.Token)
	peer := registerDevice(t, srv, auth.Token)

	originConn := dialWS(t, srv, origin.Token)
	peerConn := dialWS(t, srv, peer.Token)
	time.Sleep(100 * time.Millisecond) // let the server finish broker.Subscribe for both connections

	blob := "ENC:" + base64.StdEncoding.EncodeToString([]byte("live-history"))
	require.NoError(t, originConn.WriteJSON(protocol.HistoryPush{
		Type: protocol.TypeHistoryPush, EncryptedBlob: blob, ContentHash: "ws-hash",
	}))

	msg := readDecoded(t, peerConn)
	hn, ok := msg.(protocol.HistoryNew)
	require.True(t, ok, "peer device must receive a history_new frame")
	assert.Equal(t, "ws-hash", hn.ContentHash)

	getResp := doJSON(t, srv, http.MethodGet, "/api/sync/history", peer.Token, nil)
	var items []protocol.HistoryResponse
	decodeBody(t, getResp, &items)
	require.Len(t, items, 1, "an inbound WS history_push must be durably stored server-side")
	assert.Equal(t, "ws-hash", items[0].ContentHash)
}

func TestInboundSlotUpdateNotEchoedBackToOriginDevice(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := registerUser(t, srv, "wsnoecho@example.com")
	origin := registerDevice(t, srv, auth.Token)

	originConn := dialWS(t, srv, origin.Token)
	blob := "ENC:" + base64.StdEncoding.EncodeToString([]byte("no-echo"))
	require.NoError(t, originConn.WriteJSON(protocol.SlotUpdate{
		Type: protocol.TypeSlotUpdate, SlotNumber: 1, EncryptedBlob: blob, Timestamp: 1000,
	}))

	_ = originConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := originConn.ReadMessage()
	assert.Error(t, err, "the originating device must not receive its own publish back")
}
