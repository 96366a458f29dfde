package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func TestSendCodeSuccess(t *testing.T) {
	var gotPath, gotRequestID string
	var gotBody map[string]string

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRequestID = r.Header.Get("X-Request-ID")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Code sent successfully"})
	})

	require.NoError(t, c.SendCode(context.Background(), "+12345678"))
	assert.Equal(t, "/send_code", gotPath)
	assert.Equal(t, map[string]string{"phone": "+12345678"}, gotBody)
	assert.NotEmpty(t, gotRequestID)
}

func TestSendCodeServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "The phone number is banned"})
	})

	err := c.SendCode(context.Background(), "+12345678")
	require.Error(t, err)
	assert.EqualError(t, err, "The phone number is banned")
}

func TestSendCodeSuccessFalse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "Failed to send verification code"})
	})

	err := c.SendCode(context.Background(), "+12345678")
	require.Error(t, err)
	assert.EqualError(t, err, "Failed to send verification code")
}

func TestCreateSessionSuccess(t *testing.T) {
	var gotBody map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/create_session", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]string{"session": "1ABCdef=="})
	})

	session, err := c.CreateSession(context.Background(), "+12345678", "54321")
	require.NoError(t, err)
	assert.Equal(t, "1ABCdef==", session)
	assert.Equal(t, map[string]string{"phone": "+12345678", "code": "54321"}, gotBody)
}

func TestCreateSessionMissingSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	})

	_, err := c.CreateSession(context.Background(), "+12345678", "54321")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing session")
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestNewClientTrimsTrailingSlash(t *testing.T) {
	c, err := NewClient(Config{BaseURL: "http://example.com/"})
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", c.baseURL)
}
