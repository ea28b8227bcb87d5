package realtime

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

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rensmac/taskboard/internal/config"
	"github.com/rensmac/taskboard/internal/domain"
)

const testCredential = "good-token"

var testUser = &domain.User{ID: 1, Email: "a@example.com", IsActive: true}

type stubVerifier struct{}

func (stubVerifier) Verify(ctx context.Context, credential string) (*domain.User, error) {
	token := credential
	if parts := strings.SplitN(credential, " ", 2); len(parts) == 2 {
		token = parts[1]
	}
	if token != testCredential {
		return nil, ErrUnauthenticated
	}
	return testUser, nil
}

type stubAccess struct {
	allowed bool
	err     error
}

func (a stubAccess) VerifyAccess(ctx context.Context, userID int64, room domain.RoomKey) (bool, error) {
	return a.allowed, a.err
}

// publishingCreator mimics the comment service: it builds an event from the
// inbound message and hands it to the dispatcher.
type publishingCreator struct {
	dispatcher *Dispatcher

	mu     sync.Mutex
	nextID int64
	err    error
}

func (c *publishingCreator) Create(ctx context.Context, content string, author *domain.User, room domain.RoomKey) (*domain.CommentEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	c.nextID++
	event := &domain.CommentEvent{
		ID:        c.nextID,
		Content:   content,
		Author:    domain.CommentAuthor{Email: author.Email, ID: author.ID},
		Timestamp: time.Now().UTC(),
		TaskRef:   room.TaskRef,
		OrgSlug:   room.OrgSlug,
	}
	if err := c.dispatcher.Publish(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func testRealtimeConfig() config.RealtimeConfig {
	return config.RealtimeConfig{
		SendBuffer:       8,
		SendTimeout:      time.Second,
		WriteTimeout:     time.Second,
		PongTimeout:      30 * time.Second,
		PingInterval:     25 * time.Second,
		MaxMessageSize:   4096,
		HandshakeTimeout: time.Second,
	}
}

type socketFixture struct {
	server   *httptest.Server
	registry *Registry
	creator  *publishingCreator
}

func newSocketFixture(t *testing.T, access AccessChecker) *socketFixture {
	t.Helper()

	registry := NewRegistry()
	dispatcher := NewDispatcher(registry, nil)
	creator := &publishingCreator{dispatcher: dispatcher}

	handler := NewHandler(registry, stubVerifier{}, access, creator, testRealtimeConfig())

	// Both slash forms are registered, matching the server mux.
	r := chi.NewRouter()
	r.Get("/ws/tasks/{orgSlug}/{taskRef}/comments", handler.CommentSocket)
	r.Get("/ws/tasks/{orgSlug}/{taskRef}/comments/", handler.CommentSocket)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &socketFixture{server: server, registry: registry, creator: creator}
}

func (f *socketFixture) dial(t *testing.T, orgSlug, taskRef string, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") +
		"/ws/tasks/" + orgSlug + "/" + taskRef + "/comments"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (f *socketFixture) dialWithToken(t *testing.T, orgSlug, taskRef, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") +
		"/ws/tasks/" + orgSlug + "/" + taskRef + "/comments?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	return got
}

func expectClose(t *testing.T, conn *websocket.Conn, code int) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, code, closeErr.Code)
}

func waitForCount(t *testing.T, registry *Registry, room domain.RoomKey, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if registry.Count(room) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("room %s never reached %d members (have %d)", room, want, registry.Count(room))
}

func TestCommentSocket_JoinAck(t *testing.T) {
	f := newSocketFixture(t, stubAccess{allowed: true})

	conn := f.dialWithToken(t, "acme", "BLIB-3", testCredential)

	got := readJSON(t, conn)
	assert.Equal(t, "system", got["type"])
	assert.Equal(t, "Connected to task comments", got["message"])
	assert.Equal(t, "BLIB-3", got["task_id"])

	waitForCount(t, f.registry, domain.NewRoomKey("acme", "BLIB-3"), 1)
}

func TestCommentSocket_TrailingSlashPath(t *testing.T) {
	f := newSocketFixture(t, stubAccess{allowed: true})

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") +
		"/ws/tasks/acme/BLIB-3/comments/?token=" + testCredential
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	got := readJSON(t, conn)
	assert.Equal(t, "system", got["type"])
	assert.Equal(t, "BLIB-3", got["task_id"])

	waitForCount(t, f.registry, domain.NewRoomKey("acme", "BLIB-3"), 1)
}

func TestCommentSocket_HeaderCredential(t *testing.T) {
	f := newSocketFixture(t, stubAccess{allowed: true})

	header := http.Header{"Authorization": []string{"JWT " + testCredential}}
	conn := f.dial(t, "acme", "BLIB-3", header)

	got := readJSON(t, conn)
	assert.Equal(t, "system", got["type"])
}

func TestCommentSocket_MissingCredential(t *testing.T) {
	f := newSocketFixture(t, stubAccess{allowed: true})

	conn := f.dial(t, "acme", "BLIB-3", nil)
	expectClose(t, conn, CloseUnauthenticated)

	assert.Equal(t, 0, f.registry.Count(domain.NewRoomKey("acme", "BLIB-3")))
}

func TestCommentSocket_BadCredential(t *testing.T) {
	f := newSocketFixture(t, stubAccess{allowed: true})

	conn := f.dialWithToken(t, "acme", "BLIB-3", "wrong-token")
	expectClose(t, conn, CloseUnauthenticated)

	assert.Equal(t, 0, f.registry.Count(domain.NewRoomKey("acme", "BLIB-3")))
}

func TestCommentSocket_Forbidden(t *testing.T) {
	f := newSocketFixture(t, stubAccess{allowed: false})

	conn := f.dialWithToken(t, "acme", "BLIB-3", testCredential)
	expectClose(t, conn, CloseForbidden)

	assert.Equal(t, 0, f.registry.Count(domain.NewRoomKey("acme", "BLIB-3")))
}

func TestCommentSocket_AccessCheckError(t *testing.T) {
	f := newSocketFixture(t, stubAccess{err: errors.New("connection refused")})

	conn := f.dialWithToken(t, "acme", "BLIB-3", testCredential)
	expectClose(t, conn, CloseInternalError)
}

func TestCommentSocket_FanOut(t *testing.T) {
	f := newSocketFixture(t, stubAccess{allowed: true})

	sender := f.dialWithToken(t, "acme", "BLIB-3", testCredential)
	peer := f.dialWithToken(t, "acme", "BLIB-3", testCredential)
	other := f.dialWithToken(t, "acme", "BLIB-4", testCredential)

	readJSON(t, sender)
	readJSON(t, peer)
	readJSON(t, other)
	waitForCount(t, f.registry, domain.NewRoomKey("acme", "BLIB-3"), 2)

	err := sender.WriteJSON(map[string]string{"message": "hello room"})
	require.NoError(t, err)

	// Sender and peer both receive the event; the other room does not.
	for _, conn := range []*websocket.Conn{sender, peer} {
		got := readJSON(t, conn)
		assert.Equal(t, "hello room", got["content"])
		assert.Equal(t, "BLIB-3", got["task_id"])
		author, ok := got["author"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "a@example.com", author["email"])
	}

	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = other.ReadMessage()
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "timeout"))
}

func TestCommentSocket_EmptyMessage(t *testing.T) {
	f := newSocketFixture(t, stubAccess{allowed: true})

	conn := f.dialWithToken(t, "acme", "BLIB-3", testCredential)
	readJSON(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]string{"message": "   "}))

	got := readJSON(t, conn)
	assert.Equal(t, "Message cannot be empty", got["error"])

	// Nothing was persisted or broadcast
	f.creator.mu.Lock()
	assert.Equal(t, int64(0), f.creator.nextID)
	f.creator.mu.Unlock()
}

func TestCommentSocket_MalformedMessage(t *testing.T) {
	f := newSocketFixture(t, stubAccess{allowed: true})

	conn := f.dialWithToken(t, "acme", "BLIB-3", testCredential)
	readJSON(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	got := readJSON(t, conn)
	assert.Equal(t, "Failed to process message", got["error"])
}

func TestCommentSocket_CreateFailureKeepsSessionOpen(t *testing.T) {
	f := newSocketFixture(t, stubAccess{allowed: true})

	conn := f.dialWithToken(t, "acme", "BLIB-3", testCredential)
	readJSON(t, conn)
	waitForCount(t, f.registry, domain.NewRoomKey("acme", "BLIB-3"), 1)

	f.creator.mu.Lock()
	f.creator.err = errors.New("insert failed")
	f.creator.mu.Unlock()

	require.NoError(t, conn.WriteJSON(map[string]string{"message": "hello"}))
	got := readJSON(t, conn)
	assert.Equal(t, "Failed to process message", got["error"])

	// Session survives the failure and processes the next message.
	f.creator.mu.Lock()
	f.creator.err = nil
	f.creator.mu.Unlock()

	require.NoError(t, conn.WriteJSON(map[string]string{"message": "hello again"}))
	got = readJSON(t, conn)
	assert.Equal(t, "hello again", got["content"])
}

func TestCommentSocket_DisconnectLeavesRoom(t *testing.T) {
	f := newSocketFixture(t, stubAccess{allowed: true})
	room := domain.NewRoomKey("acme", "BLIB-3")

	conn := f.dialWithToken(t, "acme", "BLIB-3", testCredential)
	readJSON(t, conn)
	waitForCount(t, f.registry, room, 1)

	require.NoError(t, conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	))
	conn.Close()

	waitForCount(t, f.registry, room, 0)
}

func TestSession_ShutdownIdempotent(t *testing.T) {
	f := newSocketFixture(t, stubAccess{allowed: true})
	room := domain.NewRoomKey("acme", "BLIB-3")

	conn := f.dialWithToken(t, "acme", "BLIB-3", testCredential)
	readJSON(t, conn)
	waitForCount(t, f.registry, room, 1)

	conn.Close()
	waitForCount(t, f.registry, room, 0)
	assert.Equal(t, 0, f.registry.Count(room))
}

// newServerConn upgrades a connection and hands the server side back to the
// test with no pumps attached, so the test controls draining directly.
func newServerConn(t *testing.T) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	conns := make(chan *websocket.Conn, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
	}))
	t.Cleanup(server.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case conn := <-conns:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("server side of the connection never arrived")
		return nil
	}
}

func TestSession_ShutdownBeforeJoin(t *testing.T) {
	registry := NewRegistry()
	conn := newServerConn(t)

	room := domain.NewRoomKey("acme", "BLIB-3")
	session := NewSession(conn, room, registry, stubVerifier{}, stubAccess{allowed: true}, nil, testRealtimeConfig())

	// Teardown can race the join from any path. It deregisters
	// unconditionally, so a session that never joined is still safe.
	session.Shutdown()
	assert.Equal(t, 0, registry.Count(room))
	assert.Equal(t, StateClosed, session.State())

	require.ErrorIs(t, session.Deliver([]byte(`{"content":"late"}`)), errSessionClosed)
}

func TestSession_SlowConsumerDropped(t *testing.T) {
	registry := NewRegistry()
	conn := newServerConn(t)

	cfg := testRealtimeConfig()
	cfg.SendBuffer = 1
	cfg.SendTimeout = 50 * time.Millisecond

	room := domain.NewRoomKey("acme", "BLIB-3")
	session := NewSession(conn, room, registry, stubVerifier{}, stubAccess{allowed: true}, nil, cfg)
	registry.Join(room, session)

	// Nothing drains the send buffer: the first delivery fills it and the
	// second times out instead of blocking.
	require.NoError(t, session.Deliver([]byte(`{"content":"first"}`)))
	require.ErrorIs(t, session.Deliver([]byte(`{"content":"second"}`)), errSendTimeout)

	// A broadcast hitting the stalled session evicts it from the room.
	registry.Broadcast(room, []byte(`{"content":"third"}`))
	assert.Equal(t, 0, registry.Count(room))
	assert.Equal(t, StateClosed, session.State())

	require.ErrorIs(t, session.Deliver([]byte(`{"content":"late"}`)), errSessionClosed)
}
