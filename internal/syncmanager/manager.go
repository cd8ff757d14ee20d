// Package syncmanager implements the sync manager: the state machine that
// owns login/register, session startup (reconcile + connect), logout, and
// both directions of live sync traffic. There is no single teacher file
// this mirrors — it composes apiclient, clientstore, relayclient,
// offlinequeue and reconcile the way original_source's
// src-tauri/src/sync/manager.rs composes its Rust counterparts, expressed
// as a mutex-guarded Go struct instead of an actor.
package syncmanager

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/splenwilz/clipslot/internal/apiclient"
	"github.com/splenwilz/clipslot/internal/clientstore"
	"github.com/splenwilz/clipslot/internal/offlinequeue"
	"github.com/splenwilz/clipslot/internal/protocol"
	"github.com/splenwilz/clipslot/internal/reconcile"
	"github.com/splenwilz/clipslot/internal/relayclient"
)

// Manager owns a single account's sync session. A process runs exactly one.
type Manager struct {
	mu sync.Mutex

	state State
	auth  *clientstore.AuthState

	store *clientstore.Store
	api   *apiclient.Client
	queue *offlinequeue.Queue
	log   zerolog.Logger

	historySyncDefault bool

	relay *relayclient.Client
}

func New(store *clientstore.Store, api *apiclient.Client, historySyncDefault bool, log zerolog.Logger) *Manager {
	return &Manager{
		state:              Disconnected,
		store:              store,
		api:                api,
		queue:              offlinequeue.New(),
		historySyncDefault: historySyncDefault,
		log:                log.With().Str("component", "sync_manager").Logger(),
	}
}

// Restore loads any persisted auth from the local store at process start,
// so a resumed process knows whether it has credentials without a fresh
// login.
func (m *Manager) Restore() error {
	auth, err := m.store.LoadAuthState()
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.auth = auth
	m.mu.Unlock()
	return nil
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.auth != nil
}

// AuthState returns a copy of the current session's credentials, or nil if
// not logged in. CLI commands that need the bearer token (pairing, manual
// slot/history operations) read it through here rather than duplicating
// session state of their own.
func (m *Manager) AuthState() *clientstore.AuthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.auth == nil {
		return nil
	}
	copied := *m.auth
	return &copied
}

// Register creates a new account. It always lands back in Disconnected —
// a device-bound token requires a separate RegisterDevice call, and sync
// isn't started automatically.
func (m *Manager) Register(email, password string) error {
	resp, err := m.api.Register(email, password)
	if err != nil {
		return err
	}
	return m.persistAuth(clientstore.AuthState{Token: resp.Token, UserID: resp.UserID, Email: email})
}

func (m *Manager) Login(email, password string) error {
	resp, err := m.api.Login(email, password)
	if err != nil {
		return err
	}
	return m.persistAuth(clientstore.AuthState{Token: resp.Token, UserID: resp.UserID, Email: email})
}

// RegisterDevice exchanges the user-scoped token for a device-bound one,
// required before sync can start.
func (m *Manager) RegisterDevice(name, deviceType string) error {
	m.mu.Lock()
	auth := m.auth
	m.mu.Unlock()
	if auth == nil {
		return protocol.New(protocol.KindAuthRequired, "login before registering a device")
	}

	resp, err := m.api.RegisterDevice(auth.Token, name, deviceType)
	if err != nil {
		return err
	}
	updated := *auth
	updated.Token = resp.Token
	updated.DeviceID = &resp.DeviceID
	return m.persistAuth(updated)
}

func (m *Manager) persistAuth(state clientstore.AuthState) error {
	if err := m.store.SaveAuthState(state); err != nil {
		return err
	}
	m.mu.Lock()
	m.auth = &state
	m.state = Disconnected
	m.mu.Unlock()
	return nil
}

// StartSync runs the slot reconciler, optionally the history reconciler,
// then opens the WebSocket: Syncing while reconciling, Connected on
// success, reverting to Disconnected and returning the error on any
// failure.
func (m *Manager) StartSync(wsURL string) error {
	m.mu.Lock()
	auth := m.auth
	if auth == nil {
		m.mu.Unlock()
		return protocol.New(protocol.KindAuthRequired, "not logged in")
	}
	if auth.DeviceID == nil {
		m.mu.Unlock()
		return protocol.New(protocol.KindAuthRequired, "device registration required before sync")
	}
	m.state = Syncing
	m.mu.Unlock()

	if _, err := reconcile.NewSlotReconciler(m.api, m.store, m.log).Run(auth.Token); err != nil {
		m.revertToDisconnected()
		return err
	}

	if enabled, err := m.store.HistorySyncEnabled(m.historySyncDefault); err == nil && enabled {
		if err := reconcile.NewHistoryReconciler(m.api, m.store, m.log).Run(auth.Token); err != nil {
			m.revertToDisconnected()
			return err
		}
	}

	if err := m.connectWS(wsURL, auth.Token); err != nil {
		m.revertToDisconnected()
		return err
	}
	return nil
}

func (m *Manager) revertToDisconnected() {
	m.mu.Lock()
	m.state = Disconnected
	m.mu.Unlock()
}

// connectWS dials the relay, spawns the incoming handler, and flushes
// whatever accumulated in the offline queue while disconnected.
func (m *Manager) connectWS(wsURL, token string) error {
	m.mu.Lock()
	m.state = Connecting
	m.mu.Unlock()

	relay, err := relayclient.Connect(wsURL, token, m.log)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.relay = relay
	m.state = Connected
	m.mu.Unlock()

	go m.handleIncoming(relay.Subscribe())
	m.flushQueue()
	return nil
}

// Logout closes the relay connection, clears persisted auth, and returns
// to Disconnected.
func (m *Manager) Logout() error {
	m.Disconnect()

	m.mu.Lock()
	m.auth = nil
	m.mu.Unlock()
	return m.store.ClearAuthState()
}

// Disconnect closes the live relay connection without touching persisted
// auth, for a process that wants to stop syncing but stay logged in (e.g.
// the "sync start" CLI command exiting on SIGINT). Logout is built on top
// of this as its first step.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	relay := m.relay
	m.relay = nil
	m.state = Disconnected
	m.mu.Unlock()

	if relay != nil {
		relay.Disconnect()
	}
}

func (m *Manager) handleIncoming(frames <-chan any) {
	for frame := range frames {
		switch msg := frame.(type) {
		case protocol.SlotUpdated:
			m.applySlotUpdated(msg)
		case protocol.HistoryNew:
			m.applyHistoryNew(msg)
		case protocol.ErrorFrame:
			m.log.Warn().Str("message", msg.Message).Msg("relay reported an error")
		default:
			// slot_update / history_push are inbound-for-server tags; a
			// well-behaved relay never echoes them back.
		}
	}

	m.mu.Lock()
	if m.state == Connected {
		m.state = Disconnected
	}
	m.relay = nil
	m.mu.Unlock()
}

func (m *Manager) applySlotUpdated(msg protocol.SlotUpdated) {
	if err := m.store.SaveEncryptedToSlot(msg.SlotNumber, msg.EncryptedBlob, msg.Timestamp, msg.UpdatedBy); err != nil {
		m.log.Warn().Err(err).Int("slot", msg.SlotNumber).Msg("failed to apply incoming slot_updated")
	}
}

func (m *Manager) applyHistoryNew(msg protocol.HistoryNew) {
	nowMS := time.Now().UnixMilli()
	deviceID := msg.DeviceID
	if _, err := m.store.InsertItem(msg.ID, msg.EncryptedBlob, msg.ContentHash, &deviceID, nowMS); err != nil {
		m.log.Warn().Err(err).Str("id", msg.ID.String()).Msg("failed to apply incoming history_new")
	}
}

// NotifySlotChanged is called after a local slot mutation; it reads back
// the current ciphertext and sends (or queues) a slot_update.
func (m *Manager) NotifySlotChanged(slotNumber int) error {
	if !m.IsAuthenticated() {
		return nil
	}
	raw, err := m.store.GetRawSlot(slotNumber)
	if err != nil {
		return err
	}
	msg := protocol.SlotUpdate{
		Type: protocol.TypeSlotUpdate, SlotNumber: slotNumber,
		EncryptedBlob: raw.EncryptedBlob, Timestamp: time.Now().UnixMilli(),
	}
	m.sendOrQueue(msg)
	return nil
}

// NotifyHistoryPush is called after a local history insert, gated by the
// history_sync_enabled setting.
func (m *Manager) NotifyHistoryPush(id uuid.UUID, ciphertext, contentHash string) error {
	enabled, err := m.store.HistorySyncEnabled(m.historySyncDefault)
	if err != nil || !enabled {
		return err
	}
	msg := protocol.HistoryPush{Type: protocol.TypeHistoryPush, ID: id, EncryptedBlob: ciphertext, ContentHash: contentHash}
	m.sendOrQueue(msg)
	return nil
}

func (m *Manager) sendOrQueue(msg any) {
	m.mu.Lock()
	relay := m.relay
	m.mu.Unlock()

	if relay == nil {
		m.queue.Enqueue(msg)
		return
	}
	if err := relay.Send(msg); err != nil {
		m.log.Warn().Err(err).Msg("send failed, queuing message")
		m.queue.Enqueue(msg)
	}
}

func (m *Manager) flushQueue() {
	pending := m.queue.Drain()
	for i, msg := range pending {
		m.mu.Lock()
		relay := m.relay
		m.mu.Unlock()
		if relay == nil {
			m.queue.Requeue(pending[i:])
			return
		}
		if err := relay.Send(msg); err != nil {
			m.log.Warn().Err(err).Msg("failed to flush queued message, requeuing remainder")
			m.queue.Requeue(pending[i:])
			return
		}
	}
}
