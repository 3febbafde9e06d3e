package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gunturachievement/socket-io-roconal/internal/config"
)

type broadcastCall struct {
	event string
	room  string
	data  string
}

// mockHub records broadcasts and applies the real validation gate.
type mockHub struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (m *mockHub) Register(uuid.UUID, *websocket.Conn) error { return nil }
func (m *mockHub) Unregister(uuid.UUID)                      {}
func (m *mockHub) Join(uuid.UUID, string)                    {}
func (m *mockHub) Leave(uuid.UUID, string)                   {}

func (m *mockHub) Broadcast(event, room string, data json.RawMessage) bool {
	if event == "" {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, broadcastCall{event: event, room: room, data: string(data)})
	return true
}

func (m *mockHub) recorded() []broadcastCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]broadcastCall(nil), m.calls...)
}

func newTestServer(token string) (*Server, *mockHub) {
	cfg := &config.Config{Port: "0", InternalEventsToken: token}
	h := &mockHub{}
	return NewServer(cfg, h, nil), h
}

func pushEvent(srv *Server, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/internal/events", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func TestPushEvent_Success(t *testing.T) {
	srv, h := newTestServer("secret")

	rec := pushEvent(srv, "secret", `{"event":"score_update","room":"match_42","data":{"score":3}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	calls := h.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "score_update", calls[0].event)
	assert.Equal(t, "match_42", calls[0].room)
	assert.JSONEq(t, `{"score":3}`, calls[0].data)
}

func TestPushEvent_WrongToken(t *testing.T) {
	srv, h := newTestServer("secret")

	rec := pushEvent(srv, "wrong", `{"event":"e"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"ok":false,"message":"Unauthorized"}`, rec.Body.String())
	assert.Empty(t, h.recorded())
}

func TestPushEvent_MissingToken(t *testing.T) {
	srv, h := newTestServer("secret")

	rec := pushEvent(srv, "", `{"event":"e"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, h.recorded())
}

func TestPushEvent_MissingEvent(t *testing.T) {
	srv, h := newTestServer("secret")

	rec := pushEvent(srv, "secret", `{"room":"match_42"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"ok":false,"message":"Invalid payload. Field 'event' is required."}`, rec.Body.String())
	assert.Empty(t, h.recorded())
}

func TestPushEvent_MalformedBody(t *testing.T) {
	srv, h := newTestServer("secret")

	rec := pushEvent(srv, "secret", `{not json`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, h.recorded())
}

func TestPushEvent_OpenWhenNoTokenConfigured(t *testing.T) {
	srv, h := newTestServer("")

	rec := pushEvent(srv, "", `{"event":"e"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, h.recorded(), 1)
}

func TestPushEvent_BodyTooLarge(t *testing.T) {
	srv, h := newTestServer("secret")

	big := `{"event":"e","data":{"blob":"` + strings.Repeat("x", 300*1024) + `"}}`
	rec := pushEvent(srv, "secret", big)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, h.recorded())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["ok"])
}
