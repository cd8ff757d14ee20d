// Package apiclient wraps the HTTP sync API for the sync client, grounded
// method-for-method on original_source's src-tauri/src/sync/api_client.rs
// (reqwest::Client). No third-party HTTP client appears anywhere in the
// example pack, so this uses net/http directly — the one place this
// module reaches for the standard library over a pack dependency,
// recorded in DESIGN.md.
package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/splenwilz/clipslot/internal/protocol"
)

type Client struct {
	http    *http.Client
	baseURL string
}

func New(baseURL string) *Client {
	return &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (c *Client) Register(email, password string) (*protocol.AuthResponse, error) {
	var resp protocol.AuthResponse
	err := c.do(http.MethodPost, "/api/auth/register", "", protocol.RegisterRequest{Email: email, Password: password}, &resp)
	return &resp, err
}

func (c *Client) Login(email, password string) (*protocol.AuthResponse, error) {
	var resp protocol.AuthResponse
	err := c.do(http.MethodPost, "/api/auth/login", "", protocol.LoginRequest{Email: email, Password: password}, &resp)
	return &resp, err
}

func (c *Client) RegisterDevice(token, name, deviceType string) (*protocol.DeviceRegistrationResponse, error) {
	var resp protocol.DeviceRegistrationResponse
	err := c.do(http.MethodPost, "/api/auth/device", token, protocol.RegisterDeviceRequest{Name: name, DeviceType: deviceType}, &resp)
	return &resp, err
}

func (c *Client) ListDevices(token string) ([]protocol.DeviceResponse, error) {
	var resp []protocol.DeviceResponse
	err := c.do(http.MethodGet, "/api/auth/devices", token, nil, &resp)
	return resp, err
}

func (c *Client) DeleteDevice(token string, deviceID uuid.UUID) error {
	return c.do(http.MethodDelete, "/api/auth/device/"+deviceID.String(), token, nil, nil)
}

func (c *Client) GenerateLinkCode(token, encryptedKey string) (*protocol.GenerateLinkCodeResponse, error) {
	var resp protocol.GenerateLinkCodeResponse
	err := c.do(http.MethodPost, "/api/auth/link-code", token, protocol.GenerateLinkCodeRequest{EncryptedKey: encryptedKey}, &resp)
	return &resp, err
}

func (c *Client) RedeemLinkCode(token, code string) (*protocol.RedeemLinkCodeResponse, error) {
	var resp protocol.RedeemLinkCodeResponse
	err := c.do(http.MethodPost, "/api/auth/redeem-code", token, protocol.RedeemLinkCodeRequest{Code: code}, &resp)
	return &resp, err
}

func (c *Client) GetSlots(token string) ([]protocol.SlotResponse, error) {
	var resp []protocol.SlotResponse
	err := c.do(http.MethodGet, "/api/sync/slots", token, nil, &resp)
	return resp, err
}

func (c *Client) UpdateSlot(token string, slotNumber int, encryptedBlob string) error {
	path := "/api/sync/slots/" + strconv.Itoa(slotNumber)
	return c.do(http.MethodPut, path, token, protocol.UpdateSlotRequest{EncryptedBlob: encryptedBlob}, nil)
}

func (c *Client) GetHistory(token string, limit, offset int) ([]protocol.HistoryResponse, error) {
	path := fmt.Sprintf("/api/sync/history?limit=%d&offset=%d", limit, offset)
	var resp []protocol.HistoryResponse
	err := c.do(http.MethodGet, path, token, nil, &resp)
	return resp, err
}

func (c *Client) PushHistory(token string, id uuid.UUID, encryptedBlob, contentHash string) error {
	return c.do(http.MethodPost, "/api/sync/history", token, protocol.PushHistoryRequest{ID: id, EncryptedBlob: encryptedBlob, ContentHash: contentHash}, nil)
}

func (c *Client) DeleteHistory(token string, id uuid.UUID) error {
	return c.do(http.MethodDelete, "/api/sync/history/"+id.String(), token, nil, nil)
}

// WebSocketURL derives the ws(s):// sync endpoint from the configured
// HTTP base URL.
func (c *Client) WebSocketURL() string {
	url := c.baseURL + "/api/sync/ws"
	url = strings.Replace(url, "http://", "ws://", 1)
	url = strings.Replace(url, "https://", "wss://", 1)
	return url
}

func (c *Client) do(method, path, token string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return protocol.Wrap(protocol.KindTransient, "network error", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusToError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

func statusToError(resp *http.Response) error {
	var apiErr protocol.APIError
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Error == "" {
		apiErr.Error = resp.Status
	}

	var kind protocol.Kind
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		kind = protocol.KindAuthInvalid
	case http.StatusConflict:
		kind = protocol.KindConflict
	case http.StatusNotFound:
		kind = protocol.KindNotFound
	case http.StatusGone:
		kind = protocol.KindGone
	case http.StatusBadRequest:
		kind = protocol.KindBadRequest
	default:
		kind = protocol.KindTransient
	}
	return protocol.New(kind, apiErr.Error)
}
