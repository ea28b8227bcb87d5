package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rensmac/taskboard/internal/config"
	"github.com/rensmac/taskboard/internal/domain"
)

// Application-level close codes. These are part of the client contract:
// 4001 means the credential was missing or invalid, 4003 means the user is
// not a member of the organization or the task does not exist, 4000 means
// an unanticipated server-side fault during connection setup.
const (
	CloseInternalError   = 4000
	CloseUnauthenticated = 4001
	CloseForbidden       = 4003
)

var (
	errSessionClosed = errors.New("session closed")
	errSendTimeout   = errors.New("send buffer full")
)

// SessionState tracks where a session is in its lifecycle.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateAuthenticating
	StateAuthorizing
	StateJoined
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthorizing:
		return "authorizing"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type inboundMessage struct {
	Message string `json:"message"`
}

type systemMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	TaskID  string `json:"task_id"`
}

type errorMessage struct {
	Error string `json:"error"`
}

// Session owns one client connection's lifecycle: authentication, room
// binding, inbound message handling and teardown. The registry only ever
// sees it through the Handle interface.
type Session struct {
	id       uuid.UUID
	conn     *websocket.Conn
	room     domain.RoomKey
	registry *Registry

	verifier IdentityVerifier
	access   AccessChecker
	comments CommentCreator

	cfg  config.RealtimeConfig
	user *domain.User

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	state     atomic.Int32

	logger zerolog.Logger
}

// NewSession creates a session for an upgraded connection bound to the room
// derived from the request path. The session is in the Connecting state
// until Run is called.
func NewSession(
	conn *websocket.Conn,
	room domain.RoomKey,
	registry *Registry,
	verifier IdentityVerifier,
	access AccessChecker,
	comments CommentCreator,
	cfg config.RealtimeConfig,
) *Session {
	id := uuid.New()
	return &Session{
		id:       id,
		conn:     conn,
		room:     room,
		registry: registry,
		verifier: verifier,
		access:   access,
		comments: comments,
		cfg:      cfg,
		send:     make(chan []byte, cfg.SendBuffer),
		done:     make(chan struct{}),
		logger: log.With().
			Str("session_id", id.String()).
			Str("room", room.String()).
			Logger(),
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// Run drives the session to completion: authenticate, authorize, join the
// room, acknowledge the handshake, then process inbound messages until the
// connection drops. It blocks until the session is closed.
func (s *Session) Run(ctx context.Context, credential string) {
	s.setState(StateAuthenticating)
	user, err := s.authenticate(ctx, credential)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			s.logger.Warn().Msg("Rejecting connection: authentication failed")
			s.closeWithCode(CloseUnauthenticated, "authentication required")
		} else {
			s.logger.Error().Err(err).Msg("Identity verification failed")
			s.closeWithCode(CloseInternalError, "internal error")
		}
		return
	}
	s.user = user
	s.logger = s.logger.With().Int64("user_id", user.ID).Logger()

	s.setState(StateAuthorizing)
	allowed, err := s.access.VerifyAccess(ctx, user.ID, s.room)
	if err != nil {
		s.logger.Error().Err(err).Msg("Access check failed")
		s.closeWithCode(CloseInternalError, "internal error")
		return
	}
	if !allowed {
		s.logger.Warn().Msg("Rejecting connection: user lacks access")
		s.closeWithCode(CloseForbidden, "access denied")
		return
	}

	s.setState(StateJoined)
	s.registry.Join(s.room, s)
	s.logger.Info().Msg("Session joined room")

	go s.writePump()

	ack, _ := json.Marshal(systemMessage{
		Type:    "system",
		Message: "Connected to task comments",
		TaskID:  s.room.TaskRef,
	})
	if err := s.Deliver(ack); err != nil {
		s.Shutdown()
		return
	}

	s.readPump(ctx)
}

func (s *Session) authenticate(ctx context.Context, credential string) (*domain.User, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, ErrUnauthenticated
	}
	return s.verifier.Verify(ctx, credential)
}

// readPump processes inbound messages strictly in arrival order. Any exit,
// clean or abrupt, runs the same idempotent teardown.
func (s *Session) readPump(ctx context.Context) {
	defer s.Shutdown()

	s.conn.SetReadLimit(s.cfg.MaxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug().Err(err).Msg("Connection closed unexpectedly")
			}
			return
		}
		s.handleMessage(ctx, data)
	}
}

func (s *Session) handleMessage(ctx context.Context, data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError("Failed to process message")
		return
	}

	content := strings.TrimSpace(msg.Message)
	if content == "" {
		s.sendError("Message cannot be empty")
		return
	}

	// Persistence failure is local: the sender gets an error reply and the
	// session stays open, with no partial broadcast.
	if _, err := s.comments.Create(ctx, content, s.user, s.room); err != nil {
		s.logger.Error().Err(err).Msg("Failed to persist comment")
		s.sendError("Failed to process message")
	}
}

func (s *Session) sendError(reason string) {
	payload, _ := json.Marshal(errorMessage{Error: reason})
	_ = s.Deliver(payload)
}

// Deliver implements Handle. It enqueues the payload for the write pump,
// giving a slow peer at most the configured send timeout before reporting
// failure so a stalled consumer cannot block a broadcast.
func (s *Session) Deliver(payload []byte) error {
	select {
	case <-s.done:
		return errSessionClosed
	default:
	}

	timer := time.NewTimer(s.cfg.SendTimeout)
	defer timer.Stop()

	select {
	case s.send <- payload:
		return nil
	case <-s.done:
		return errSessionClosed
	case <-timer.C:
		return errSendTimeout
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case payload := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.Shutdown()
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Shutdown()
				return
			}
		case <-s.done:
			return
		}
	}
}

// closeWithCode rejects the connection with an application close code. Used
// only before the session joins a room.
func (s *Session) closeWithCode(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.cfg.WriteTimeout))
	s.Shutdown()
}

// Shutdown implements Handle. Deregistration and connection close happen
// exactly once, no matter how many paths race here: explicit close, client
// disconnect, write failure or a broadcast dropping a slow consumer. Leave
// is called unconditionally; on a never-joined key it is a no-op, and gating
// it on a joined flag would open a window where a Shutdown racing the join
// leaks the handle.
func (s *Session) Shutdown() {
	s.closeOnce.Do(func() {
		s.setState(StateClosed)
		s.registry.Leave(s.room, s)
		close(s.done)
		_ = s.conn.Close()
		s.logger.Info().Msg("Session closed")
	})
}

func (s *Session) setState(st SessionState) {
	s.state.Store(int32(st))
}
