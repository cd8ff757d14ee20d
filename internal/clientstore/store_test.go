package clientstore

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splenwilz/clipslot/internal/envelope"
)

func testEngine(t *testing.T) *envelope.Engine {
	key := make([]byte, envelope.KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	enc, err := envelope.NewEngine(key)
	require.NoError(t, err)
	return enc
}

func openTestStore(t *testing.T) *Store {
	s, err := Open(":memory:", testEngine(t), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertItemAndGetHistory(t *testing.T) {
	s := openTestStore(t)
	id := uuid.New()

	inserted, err := s.InsertItem(id, envelope.Prefix+"blob", "hash1", nil, 1000)
	require.NoError(t, err)
	assert.True(t, inserted)

	items, err := s.GetHistory(10, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)
}

func TestInsertItemDebouncesSameHashWithinWindow(t *testing.T) {
	s := openTestStore(t)

	_, err := s.InsertItem(uuid.New(), envelope.Prefix+"a", "same-hash", nil, 1000)
	require.NoError(t, err)

	inserted, err := s.InsertItem(uuid.New(), envelope.Prefix+"b", "same-hash", nil, 1500)
	require.NoError(t, err)
	assert.False(t, inserted)

	items, err := s.GetHistory(10, 0)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestInsertItemAllowsSameHashAfterWindow(t *testing.T) {
	s := openTestStore(t)

	_, err := s.InsertItem(uuid.New(), envelope.Prefix+"a", "same-hash", nil, 1000)
	require.NoError(t, err)

	inserted, err := s.InsertItem(uuid.New(), envelope.Prefix+"b", "same-hash", nil, 1000+debounceWindowMS+1)
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestApplyRetentionTrimsOldestFirst(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < 5; i++ {
		_, err := s.InsertItem(uuid.New(), envelope.Prefix+"x", uuid.New().String(), nil, int64(1000+i))
		require.NoError(t, err)
	}

	require.NoError(t, s.ApplyRetention(2))

	items, err := s.GetHistory(10, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	// newest-first: the two survivors should be the two most recently created.
	assert.True(t, items[0].CreatedAtMS > items[1].CreatedAtMS)
}

func TestApplyRetentionNoopWhenUnderLimit(t *testing.T) {
	s := openTestStore(t)
	_, err := s.InsertItem(uuid.New(), envelope.Prefix+"x", "h", nil, 1000)
	require.NoError(t, err)

	require.NoError(t, s.ApplyRetention(10))

	items, err := s.GetHistory(10, 0)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestDeleteItem(t *testing.T) {
	s := openTestStore(t)
	id := uuid.New()
	_, err := s.InsertItem(id, envelope.Prefix+"x", "h", nil, 1000)
	require.NoError(t, err)

	require.NoError(t, s.DeleteItem(id))

	items, err := s.GetHistory(10, 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSearchMatchesDecryptedContent(t *testing.T) {
	s := openTestStore(t)
	enc := testEngine(t)

	ciphertext, err := enc.Encrypt("hello world")
	require.NoError(t, err)
	_, err = s.InsertItem(uuid.New(), ciphertext, "h1", nil, 1000)
	require.NoError(t, err)

	other, err := enc.Encrypt("goodbye")
	require.NoError(t, err)
	_, err = s.InsertItem(uuid.New(), other, "h2", nil, 1001)
	require.NoError(t, err)

	matches, err := s.Search(enc.Decrypt, "hello")
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestGetSlotEmptyByDefault(t *testing.T) {
	s := openTestStore(t)
	info, err := s.GetSlot(1, func(string) (string, error) { return "", nil })
	require.NoError(t, err)
	assert.True(t, info.IsEmpty)
}

func TestSaveToSlotAndGetSlot(t *testing.T) {
	s := openTestStore(t)
	enc := testEngine(t)
	deviceID := uuid.New()

	ciphertext, err := enc.Encrypt("clip contents")
	require.NoError(t, err)
	require.NoError(t, s.SaveToSlot(1, uuid.New(), ciphertext, "h", &deviceID, 1000))

	info, err := s.GetSlot(1, enc.Decrypt)
	require.NoError(t, err)
	assert.False(t, info.IsEmpty)
	assert.Equal(t, "clip contents", info.Content)
}

func TestClearSlotUnlinksContent(t *testing.T) {
	s := openTestStore(t)
	enc := testEngine(t)
	ciphertext, err := enc.Encrypt("something")
	require.NoError(t, err)
	require.NoError(t, s.SaveToSlot(2, uuid.New(), ciphertext, "h", nil, 1000))

	require.NoError(t, s.ClearSlot(2, 2000))

	info, err := s.GetSlot(2, enc.Decrypt)
	require.NoError(t, err)
	assert.True(t, info.IsEmpty)
}

func TestRenameSlotPreservesContent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.RenameSlot(3, "work"))

	info, err := s.GetSlot(3, func(string) (string, error) { return "", nil })
	require.NoError(t, err)
	assert.Equal(t, "work", info.Name)
}

func TestSaveEncryptedToSlotIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	deviceID := uuid.New()

	require.NoError(t, s.SaveEncryptedToSlot(4, envelope.Prefix+"blob", 1000, deviceID))
	require.NoError(t, s.SaveEncryptedToSlot(4, envelope.Prefix+"blob", 1000, deviceID))

	raw, err := s.GetRawSlot(4)
	require.NoError(t, err)
	assert.Equal(t, envelope.Prefix+"blob", raw.EncryptedBlob)
}

func TestGetRawSlotsReturnsClientSlotCount(t *testing.T) {
	s := openTestStore(t)
	raws, err := s.GetRawSlots()
	require.NoError(t, err)
	assert.Len(t, raws, clientSlotCount)
}

func TestAuthStateRoundTrip(t *testing.T) {
	s := openTestStore(t)
	deviceID := uuid.New()
	state := AuthState{Token: "tok", UserID: uuid.New(), DeviceID: &deviceID, Email: "a@example.com"}

	require.NoError(t, s.SaveAuthState(state))

	loaded, err := s.LoadAuthState()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, state.Token, loaded.Token)
	assert.Equal(t, state.UserID, loaded.UserID)
	require.NotNil(t, loaded.DeviceID)
	assert.Equal(t, deviceID, *loaded.DeviceID)
}

func TestLoadAuthStateReturnsNilWhenUnset(t *testing.T) {
	s := openTestStore(t)
	state, err := s.LoadAuthState()
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestClearAuthStateRemovesPersistedSession(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SaveAuthState(AuthState{Token: "tok", UserID: uuid.New(), Email: "a@example.com"}))
	require.NoError(t, s.ClearAuthState())

	state, err := s.LoadAuthState()
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestHistorySyncEnabledFallsBackToDefault(t *testing.T) {
	s := openTestStore(t)
	enabled, err := s.HistorySyncEnabled(true)
	require.NoError(t, err)
	assert.True(t, enabled)

	require.NoError(t, s.SetHistorySyncEnabled(false))
	enabled, err = s.HistorySyncEnabled(true)
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestSyncServerURLFallsBackToCompiledDefault(t *testing.T) {
	s := openTestStore(t)
	url, err := s.SyncServerURL("https://default.example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://default.example.com", url)

	require.NoError(t, s.SetSyncServerURL("https://override.example.com"))
	url, err = s.SyncServerURL("https://default.example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://override.example.com", url)
}
