package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"chatroom-service/internal/chat"
	"chatroom-service/internal/models"
	"chatroom-service/internal/repository"
	"chatroom-service/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTokens map[string]uint

func (s stubTokens) Verify(token string) (uint, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return 0, errors.New("bad token")
}

type stubUsers map[uint]*models.User

func (s stubUsers) FindByID(_ context.Context, id uint) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

type memoryStore struct {
	mu    sync.Mutex
	users stubUsers
	rows  []models.Message
}

func (m *memoryStore) Create(_ context.Context, authorID uint, content string) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := models.Message{ID: uint(len(m.rows) + 1), UserID: authorID, Content: content, CreatedAt: time.Now(), User: *m.users[authorID]}
	m.rows = append(m.rows, msg)
	return &msg, nil
}

func (m *memoryStore) FindRecent(_ context.Context, limit int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Message
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.rows[i])
	}
	return out, nil
}

type wireEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, settings Settings, origins ...string) (*httptest.Server, *chat.Coordinator) {
	t.Helper()
	users := stubUsers{
		1: {ID: 1, Username: "alice", Color: "#FF0000"},
		2: {ID: 2, Username: "bob", Color: "#00FF00"},
	}
	coord := chat.NewCoordinator(
		stubTokens{"alice": 1, "bob": 2},
		users,
		&memoryStore{users: users},
		chat.Options{Policy: chat.MessagePolicy{AllowEmpty: true}},
	)
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	srv := httptest.NewServer(NewServer(coord, origins, settings, logger.Nop()))
	t.Cleanup(srv.Close)
	return srv, coord
}

func wsURL(srv *httptest.Server, token string) string {
	u := "ws" + strings.TrimPrefix(srv.URL, "http")
	if token != "" {
		u += "?token=" + token
	}
	return u
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

// next reads frames until one named event arrives.
func next(t *testing.T, conn *websocket.Conn, event string) wireEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var ev wireEvent
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Event == event {
			return ev
		}
	}
}

func TestHandshakeDeliversBacklogThenPresence(t *testing.T) {
	srv, coord := newTestServer(t, DefaultSettings())
	conn := dial(t, srv, "alice")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var first, second wireEvent
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, chat.EventRecentMessages, first.Event)
	assert.JSONEq(t, `[]`, string(first.Data))
	assert.Equal(t, chat.EventUserConnected, second.Event)

	var change chat.PresenceChange
	require.NoError(t, json.Unmarshal(second.Data, &change))
	assert.Equal(t, "alice", change.User.Username)
	assert.Equal(t, 1, coord.ConnectionCount())
}

func TestHandshakeWithoutValidTokenIsRefused(t *testing.T) {
	srv, coord := newTestServer(t, DefaultSettings())

	for _, token := range []string{"", "forged"} {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	}
	assert.Zero(t, coord.ConnectionCount())
}

func TestHandshakeAcceptsBearerHeader(t *testing.T) {
	srv, _ := newTestServer(t, DefaultSettings())

	header := http.Header{"Authorization": []string{"Bearer bob"}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), header)
	require.NoError(t, err)
	resp.Body.Close()
	defer conn.Close()

	next(t, conn, chat.EventUserConnected)
}

func TestHandshakeRejectsForeignOrigin(t *testing.T) {
	srv, coord := newTestServer(t, DefaultSettings(), "http://localhost:3000")

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "alice"), header)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
	assert.Zero(t, coord.ConnectionCount())
}

func TestMessageRoundTripAndDisconnect(t *testing.T) {
	srv, coord := newTestServer(t, DefaultSettings())
	alice := dial(t, srv, "alice")
	next(t, alice, chat.EventUserConnected)
	bob := dial(t, srv, "bob")
	next(t, bob, chat.EventUserConnected)
	next(t, alice, chat.EventUserConnected)

	require.NoError(t, alice.WriteJSON(map[string]interface{}{
		"event": "sendMessage",
		"data":  map[string]string{"message": "hello"},
	}))

	for _, conn := range []*websocket.Conn{alice, bob} {
		ev := next(t, conn, chat.EventNewMessage)
		var view chat.MessageView
		require.NoError(t, json.Unmarshal(ev.Data, &view))
		assert.Equal(t, "hello", view.Message)
		assert.Equal(t, "alice", view.User.Username)
	}

	require.NoError(t, alice.Close())
	ev := next(t, bob, chat.EventUserDisconnected)
	var change chat.PresenceChange
	require.NoError(t, json.Unmarshal(ev.Data, &change))
	assert.Equal(t, "alice", change.User.Username)
	require.Len(t, change.ConnectedUsers, 1)
	assert.Equal(t, "bob", change.ConnectedUsers[0].Username)

	assert.Eventually(t, func() bool { return coord.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestInboundEventsAreThrottled(t *testing.T) {
	settings := DefaultSettings()
	settings.EventsPerSecond = 0.001
	settings.EventBurst = 1
	srv, _ := newTestServer(t, settings)
	conn := dial(t, srv, "alice")
	next(t, conn, chat.EventUserConnected)

	for i := 0; i < 2; i++ {
		require.NoError(t, conn.WriteJSON(map[string]string{"event": "getConnectedUsers"}))
	}

	next(t, conn, chat.EventConnectedUsers)
	ev := next(t, conn, chat.EventMessageError)
	assert.JSONEq(t, `{"error":"Rate limit exceeded"}`, string(ev.Data))
}

func TestShutdownClosesSockets(t *testing.T) {
	srv, coord := newTestServer(t, DefaultSettings())
	conn := dial(t, srv, "alice")
	next(t, conn, chat.EventUserConnected)

	coord.Shutdown()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	assert.Eventually(t, func() bool { return coord.ConnectionCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestFailedUpgradeAnnouncesNobody(t *testing.T) {
	srv, coord := newTestServer(t, DefaultSettings())
	alice := dial(t, srv, "alice")
	next(t, alice, chat.EventUserConnected)

	// Passes the handshake checks but lacks Sec-WebSocket-Version, so the
	// upgrade itself fails.
	req, err := http.NewRequest(http.MethodGet, srv.URL+"?token=bob", nil)
	require.NoError(t, err)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Equal(t, 1, coord.ConnectionCount())
	require.NoError(t, alice.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = alice.ReadMessage()
	var netErr interface{ Timeout() bool }
	require.ErrorAs(t, err, &netErr, "expected no event, got %v", err)
	assert.True(t, netErr.Timeout())
}

// refusingHub authenticates normally but never admits.
type refusingHub struct {
	*chat.Coordinator
}

func (refusingHub) Admit(context.Context, chat.Connection, chat.Identity) error {
	return chat.ErrAlreadyConnected
}

func TestRefusedAdmissionClosesWithPolicyViolation(t *testing.T) {
	_, coord := newTestServer(t, DefaultSettings())
	srv := httptest.NewServer(NewServer(refusingHub{coord}, []string{"*"}, DefaultSettings(), logger.Nop()))
	t.Cleanup(srv.Close)

	conn := dial(t, srv, "alice")
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
	assert.Zero(t, coord.ConnectionCount())
}

func TestSendClosesClientWhenBufferIsFull(t *testing.T) {
	settings := DefaultSettings()
	settings.SendBuffer = 1
	c := newClient(settings, logger.Nop())

	require.NoError(t, c.Send(chat.Event{Name: "a"}))
	assert.ErrorIs(t, c.Send(chat.Event{Name: "b"}), ErrSendBufferFull)
	assert.ErrorIs(t, c.Send(chat.Event{Name: "c"}), ErrClientClosed)
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws?token=q", nil)
	r.Header.Set("Authorization", "Bearer h")
	assert.Equal(t, "q", TokenFromRequest(r))

	r = httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Authorization", "bearer h")
	assert.Equal(t, "h", TokenFromRequest(r))

	r = httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, TokenFromRequest(r))
}
