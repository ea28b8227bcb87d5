package realtime

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/rensmac/taskboard/internal/config"
	"github.com/rensmac/taskboard/internal/domain"
)

// Handler upgrades HTTP requests on the comment socket endpoint and hands
// the connection to a session.
type Handler struct {
	registry *Registry
	verifier IdentityVerifier
	access   AccessChecker
	comments CommentCreator
	cfg      config.RealtimeConfig
	upgrader websocket.Upgrader
}

// NewHandler creates a new websocket handler
func NewHandler(
	registry *Registry,
	verifier IdentityVerifier,
	access AccessChecker,
	comments CommentCreator,
	cfg config.RealtimeConfig,
) *Handler {
	return &Handler{
		registry: registry,
		verifier: verifier,
		access:   access,
		comments: comments,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: cfg.HandshakeTimeout,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			// Browser clients connect from the SPA origin; auth happens via
			// the credential, not the origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// CommentSocket serves GET /ws/tasks/{orgSlug}/{taskRef}/comments. The room
// key is derived from the path; the credential comes from the Authorization
// header or, for browser WebSocket clients that cannot set headers, from the
// token query parameter. All rejections happen after the upgrade so the
// client receives the application close code.
func (h *Handler) CommentSocket(w http.ResponseWriter, r *http.Request) {
	room := domain.NewRoomKey(chi.URLParam(r, "orgSlug"), chi.URLParam(r, "taskRef"))
	credential := credentialFromRequest(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		log.Debug().Err(err).Str("room", room.String()).Msg("WebSocket upgrade failed")
		return
	}

	session := NewSession(conn, room, h.registry, h.verifier, h.access, h.comments, h.cfg)
	session.Run(r.Context(), credential)
}

func credentialFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		return auth
	}
	return r.URL.Query().Get("token")
}
