package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neboloop/deeplink/internal/emit"
)

var _ emit.Emitter = (*Hub)(nil)

type staticLinks struct {
	urls []string
	ok   bool
}

func (s staticLinks) GetLastLink(context.Context) ([]string, bool) { return s.urls, s.ok }

func getLast(t *testing.T, srv *httptest.Server) (int, string) {
	t.Helper()
	resp, err := http.Get(srv.URL + "/plugin/deep-link/last")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, string(body)
}

func TestLastLinkAbsent(t *testing.T) {
	srv := httptest.NewServer(New(staticLinks{}, NewHub(nil), nil).Handler())
	defer srv.Close()

	status, body := getLast(t, srv)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"urls":null}`, body)
}

func TestLastLinkPresent(t *testing.T) {
	links := staticLinks{urls: []string{"myapp://a", "myapp://b"}, ok: true}
	srv := httptest.NewServer(New(links, NewHub(nil), nil).Handler())
	defer srv.Close()

	_, body := getLast(t, srv)
	assert.JSONEq(t, `{"urls":["myapp://a","myapp://b"]}`, body)
}

func TestLastLinkPresentButEmpty(t *testing.T) {
	srv := httptest.NewServer(New(staticLinks{ok: true}, NewHub(nil), nil).Handler())
	defer srv.Close()

	_, body := getLast(t, srv)
	assert.JSONEq(t, `{"urls":[]}`, body)
}

func connect(t *testing.T, srv *httptest.Server, hub *Hub, want int) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/plugin/deep-link/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return hub.Len() == want }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func TestEventsStream(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(New(staticLinks{}, hub, nil).Handler())
	defer srv.Close()

	a := connect(t, srv, hub, 1)
	b := connect(t, srv, hub, 2)

	require.NoError(t, hub.Emit("deep-link://new-url", []string{"myapp://x"}))

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "deep-link://new-url", msg.Event)
		assert.Equal(t, []any{"myapp://x"}, msg.Payload)
	}
}

func TestClientDisconnectLeavesHub(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(New(staticLinks{}, hub, nil).Handler())
	defer srv.Close()

	conn := connect(t, srv, hub, 1)
	conn.Close()

	assert.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.NoError(t, hub.Emit("deep-link://new-url", []string{"myapp://y"}))
}

func TestHubClose(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(New(staticLinks{}, hub, nil).Handler())
	defer srv.Close()

	conn := connect(t, srv, hub, 1)
	hub.Close()
	hub.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.ErrorIs(t, hub.Emit("deep-link://new-url", nil), ErrHubClosed)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	s := New(staticLinks{}, NewHub(nil), nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestEventsRejectsForeignOrigin(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(New(staticLinks{}, hub, nil).Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/plugin/deep-link/events"
	header := http.Header{"Origin": []string{"https://evil.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if conn != nil {
		conn.Close()
	}
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, hub.Len())
}

func TestEventsAcceptsLocalOrigin(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(New(staticLinks{}, hub, nil).Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/plugin/deep-link/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{srv.URL}})
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestIsLocalhostOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"http://localhost:5173", true},
		{"http://127.0.0.1:27460", true},
		{"http://[::1]:27460", true},
		{"wails://wails.localhost", true},
		{"https://evil.example", false},
		{"http://localhost.evil.example", false},
		{"http://127.0.0.1.evil.example", false},
		{"null", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsLocalhostOrigin(tt.origin), tt.origin)
	}
}
