package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splenwilz/clipslot/internal/protocol"
)

func openTestStore(t *testing.T) *Store {
	path := filepath.Join(t.TempDir(), "clipslot.db")
	s, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateUserSeedsAllSlots(t *testing.T) {
	s := openTestStore(t)
	u, err := s.CreateUser("a@example.com", "hashed")
	require.NoError(t, err)

	slots, err := s.GetSlots(u.ID)
	require.NoError(t, err)
	assert.Len(t, slots, serverSlotCount)
	for _, slot := range slots {
		assert.Empty(t, slot.EncryptedBlob)
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	s := openTestStore(t)
	_, err := s.CreateUser("dup@example.com", "hashed")
	require.NoError(t, err)

	_, err = s.CreateUser("dup@example.com", "other-hash")
	require.Error(t, err)
	pe, ok := protocol.AsError(err)
	require.True(t, ok)
	assert.Equal(t, protocol.KindConflict, pe.Kind)
}

func TestGetUserByEmailAndID(t *testing.T) {
	s := openTestStore(t)
	created, err := s.CreateUser("lookup@example.com", "hashed")
	require.NoError(t, err)

	byEmail, err := s.GetUserByEmail("lookup@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byID, err := s.GetUserByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, byID.Email)
}

func TestGetUserByEmailNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetUserByEmail("nobody@example.com")
	require.Error(t, err)
	pe, ok := protocol.AsError(err)
	require.True(t, ok)
	assert.Equal(t, protocol.KindNotFound, pe.Kind)
}

func TestCreateAndListDevices(t *testing.T) {
	s := openTestStore(t)
	u, err := s.CreateUser("devices@example.com", "hashed")
	require.NoError(t, err)

	d, err := s.CreateDevice(u.ID, "laptop", "desktop")
	require.NoError(t, err)

	devices, err := s.ListDevices(u.ID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, d.ID, devices[0].ID)
}

func TestDeleteDeviceRequiresOwnership(t *testing.T) {
	s := openTestStore(t)
	owner, err := s.CreateUser("owner@example.com", "hashed")
	require.NoError(t, err)
	other, err := s.CreateUser("other@example.com", "hashed")
	require.NoError(t, err)

	d, err := s.CreateDevice(owner.ID, "phone", "mobile")
	require.NoError(t, err)

	err = s.DeleteDevice(other.ID, d.ID)
	require.Error(t, err)
	pe, ok := protocol.AsError(err)
	require.True(t, ok)
	assert.Equal(t, protocol.KindNotFound, pe.Kind)

	require.NoError(t, s.DeleteDevice(owner.ID, d.ID))
}

func TestTouchDeviceLastSeenAdvancesTimestamp(t *testing.T) {
	s := openTestStore(t)
	u, err := s.CreateUser("touch@example.com", "hashed")
	require.NoError(t, err)
	d, err := s.CreateDevice(u.ID, "laptop", "desktop")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.TouchDeviceLastSeen(d.ID))

	devices, err := s.ListDevices(u.ID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.True(t, devices[0].LastSeen.After(d.LastSeen))
}

func TestUpsertSlotAndGetSlot(t *testing.T) {
	s := openTestStore(t)
	u, err := s.CreateUser("slots@example.com", "hashed")
	require.NoError(t, err)

	deviceID := uuid.New()
	require.NoError(t, s.UpsertSlot(u.ID, 1, "ENC:blob", 1000, deviceID))

	slot, err := s.GetSlot(u.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "ENC:blob", slot.EncryptedBlob)
	require.NotNil(t, slot.UpdatedBy)
	assert.Equal(t, deviceID, *slot.UpdatedBy)
}

func TestUpsertSlotRejectsOutOfRange(t *testing.T) {
	s := openTestStore(t)
	u, err := s.CreateUser("range@example.com", "hashed")
	require.NoError(t, err)

	err = s.UpsertSlot(u.ID, serverSlotCount+1, "ENC:x", 1000, uuid.New())
	require.Error(t, err)
	pe, ok := protocol.AsError(err)
	require.True(t, ok)
	assert.Equal(t, protocol.KindNotFound, pe.Kind)
}

func TestInsertHistoryCollapsesDuplicateHash(t *testing.T) {
	s := openTestStore(t)
	u, err := s.CreateUser("history@example.com", "hashed")
	require.NoError(t, err)

	inserted, err := s.InsertHistory(u.ID, uuid.New(), "ENC:a", "samehash", nil)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.InsertHistory(u.ID, uuid.New(), "ENC:b", "samehash", nil)
	require.NoError(t, err)
	assert.False(t, inserted)

	items, err := s.GetHistory(u.ID, 0)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestGetHistoryClampsLimit(t *testing.T) {
	s := openTestStore(t)
	u, err := s.CreateUser("clamp@example.com", "hashed")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := s.InsertHistory(u.ID, uuid.New(), "ENC:x", uuid.New().String(), nil)
		require.NoError(t, err)
	}

	items, err := s.GetHistory(u.ID, 0)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	items, err = s.GetHistory(u.ID, 1)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	items, err = s.GetHistory(u.ID, maxHistoryLimit+100)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestDeleteHistoryRequiresOwnership(t *testing.T) {
	s := openTestStore(t)
	owner, err := s.CreateUser("hist-owner@example.com", "hashed")
	require.NoError(t, err)
	other, err := s.CreateUser("hist-other@example.com", "hashed")
	require.NoError(t, err)

	id := uuid.New()
	_, err = s.InsertHistory(owner.ID, id, "ENC:x", "hash", nil)
	require.NoError(t, err)

	err = s.DeleteHistory(other.ID, id)
	require.Error(t, err)

	require.NoError(t, s.DeleteHistory(owner.ID, id))
}

func TestCreateAndRedeemLinkCode(t *testing.T) {
	s := openTestStore(t)
	u, err := s.CreateUser("pair@example.com", "hashed")
	require.NoError(t, err)

	code, err := s.CreateLinkCode(u.ID, "opaque-key")
	require.NoError(t, err)
	assert.Len(t, code, 6)

	key, err := s.RedeemLinkCode(code)
	require.NoError(t, err)
	assert.Equal(t, "opaque-key", key)
}

func TestRedeemLinkCodeIsSingleUse(t *testing.T) {
	s := openTestStore(t)
	u, err := s.CreateUser("single@example.com", "hashed")
	require.NoError(t, err)

	code, err := s.CreateLinkCode(u.ID, "opaque-key")
	require.NoError(t, err)

	_, err = s.RedeemLinkCode(code)
	require.NoError(t, err)

	_, err = s.RedeemLinkCode(code)
	require.Error(t, err)
	pe, ok := protocol.AsError(err)
	require.True(t, ok)
	assert.Equal(t, protocol.KindNotFound, pe.Kind)
}

func TestRedeemLinkCodeRejectsUnknownCode(t *testing.T) {
	s := openTestStore(t)
	_, err := s.RedeemLinkCode("000000")
	require.Error(t, err)
	pe, ok := protocol.AsError(err)
	require.True(t, ok)
	assert.Equal(t, protocol.KindNotFound, pe.Kind)
}

func TestSweepExpiredLinkCodesDeletesOnlyExpired(t *testing.T) {
	s := openTestStore(t)
	u, err := s.CreateUser("sweep@example.com", "hashed")
	require.NoError(t, err)

	live, err := s.CreateLinkCode(u.ID, "live-key")
	require.NoError(t, err)

	expired, err := s.CreateLinkCode(u.ID, "expired-key")
	require.NoError(t, err)
	_, err = s.db.Exec(`UPDATE link_codes SET expires_at = ? WHERE code = ?`, time.Now().UTC().Add(-time.Hour), expired)
	require.NoError(t, err)

	n, err := s.SweepExpiredLinkCodes()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.RedeemLinkCode(live)
	require.NoError(t, err)
}
