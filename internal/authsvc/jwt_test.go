package authsvc

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	m := NewManager("test-secret")
	userID := uuid.New()

	token, err := m.Issue(userID, nil)
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Nil(t, claims.DeviceID)
}

func TestIssueWithDeviceBinding(t *testing.T) {
	m := NewManager("test-secret")
	userID := uuid.New()
	deviceID := uuid.New()

	token, err := m.Issue(userID, &deviceID)
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	require.NotNil(t, claims.DeviceID)
	assert.Equal(t, deviceID, *claims.DeviceID)

	got, bound := claims.DeviceIDOrZero()
	assert.True(t, bound)
	assert.Equal(t, deviceID, got)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	m := NewManager("secret-a")
	token, err := m.Issue(uuid.New(), nil)
	require.NoError(t, err)

	other := NewManager("secret-b")
	_, err = other.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsGarbageToken(t *testing.T) {
	m := NewManager("test-secret")
	_, err := m.Verify("not-a-jwt")
	require.Error(t, err)
}

func TestExtractBearer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc123")

	token, err := ExtractBearer(req)
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)
}

func TestExtractBearerMissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := ExtractBearer(req)
	require.Error(t, err)
}

func TestExtractBearerWrongFormat(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc123")
	_, err := ExtractBearer(req)
	require.Error(t, err)
}

func TestExtractQueryToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws?token=xyz", nil)
	token, err := ExtractQueryToken(req)
	require.NoError(t, err)
	assert.Equal(t, "xyz", token)
}

func TestExtractQueryTokenMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	_, err := ExtractQueryToken(req)
	require.Error(t, err)
}
