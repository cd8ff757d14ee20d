package clientstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const (
	settingSyncServerURL      = "sync_server_url"
	settingAuthToken          = "auth_token"
	settingUserID             = "auth_user_id"
	settingDeviceID           = "auth_device_id"
	settingEmail              = "auth_email"
	settingHistorySyncEnabled = "history_sync_enabled"
)

func (s *Store) GetSetting(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %q: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) SetSetting(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to write setting %q: %w", key, err)
	}
	return nil
}

func (s *Store) DeleteSetting(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete setting %q: %w", key, err)
	}
	return nil
}

// SyncServerURL returns the overridable server URL, falling back to
// compiledDefault when unset.
func (s *Store) SyncServerURL(compiledDefault string) (string, error) {
	value, ok, err := s.GetSetting(settingSyncServerURL)
	if err != nil {
		return "", err
	}
	if !ok || value == "" {
		return compiledDefault, nil
	}
	return value, nil
}

func (s *Store) SetSyncServerURL(url string) error {
	return s.SetSetting(settingSyncServerURL, url)
}

// HistorySyncEnabled gates notify_history_push, falling back to
// compiledDefault when the setting has never been written.
func (s *Store) HistorySyncEnabled(compiledDefault bool) (bool, error) {
	value, ok, err := s.GetSetting(settingHistorySyncEnabled)
	if err != nil {
		return false, err
	}
	if !ok {
		return compiledDefault, nil
	}
	return value == "true", nil
}

func (s *Store) SetHistorySyncEnabled(enabled bool) error {
	value := "false"
	if enabled {
		value = "true"
	}
	return s.SetSetting(settingHistorySyncEnabled, value)
}

// AuthState is what the sync manager persists on successful
// login/register: token, user_id, device_id, email.
type AuthState struct {
	Token    string
	UserID   uuid.UUID
	DeviceID *uuid.UUID
	Email    string
}

func (s *Store) SaveAuthState(state AuthState) error {
	if err := s.SetSetting(settingAuthToken, state.Token); err != nil {
		return err
	}
	if err := s.SetSetting(settingUserID, state.UserID.String()); err != nil {
		return err
	}
	if err := s.SetSetting(settingEmail, state.Email); err != nil {
		return err
	}
	if state.DeviceID != nil {
		if err := s.SetSetting(settingDeviceID, state.DeviceID.String()); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) LoadAuthState() (*AuthState, error) {
	token, ok, err := s.GetSetting(settingAuthToken)
	if err != nil || !ok {
		return nil, err
	}
	userIDStr, _, err := s.GetSetting(settingUserID)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt persisted user id: %w", err)
	}
	email, _, err := s.GetSetting(settingEmail)
	if err != nil {
		return nil, err
	}

	state := &AuthState{Token: token, UserID: userID, Email: email}
	if deviceIDStr, ok, err := s.GetSetting(settingDeviceID); err == nil && ok {
		deviceID, err := uuid.Parse(deviceIDStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt persisted device id: %w", err)
		}
		state.DeviceID = &deviceID
	}
	return state, nil
}

// ClearAuthState is called on logout.
func (s *Store) ClearAuthState() error {
	for _, key := range []string{settingAuthToken, settingUserID, settingDeviceID, settingEmail} {
		if err := s.DeleteSetting(key); err != nil {
			return err
		}
	}
	return nil
}
