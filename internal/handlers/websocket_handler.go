package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"trivia-service/config"
	"trivia-service/internal/dto"
	"trivia-service/internal/models"
	"trivia-service/internal/registry"
	"trivia-service/internal/service"
	ws "trivia-service/internal/websocket"
	"trivia-service/pkg/jwt"
)

// hostClientID is the logical id of the single host socket of a room.
const hostClientID = "host"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: restrict to the host and player frontends once their origins are configured
	},
}

type WebSocketHandler struct {
	hub      *ws.Hub
	config   *config.Config
	sessions *service.SessionService
}

func NewWebSocketHandler(hub *ws.Hub, cfg *config.Config, sessions *service.SessionService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		config:   cfg,
		sessions: sessions,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	handshake, err := ParseHandshake(c.Request.URL.Query())
	if err != nil {
		dto.JsonError(c, http.StatusBadRequest, err.Error())
		return
	}

	meta, session, err := h.sessions.Lookup(handshake.Session())
	if errors.Is(err, registry.ErrSessionNotFound) {
		if _, recErr := h.sessions.Record(c.Request.Context(), handshake.Session()); recErr == nil {
			dto.JsonError(c, http.StatusGone, "session has ended")
			return
		}
		dto.JsonError(c, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("session_id", handshake.Session()).Msg("failed to resolve session")
		dto.JsonError(c, http.StatusInternalServerError)
		return
	}

	var clientID string
	switch conn := handshake.(type) {
	case HostConnection:
		if status, msg := h.authorizeHost(c, conn, meta); status != http.StatusOK {
			dto.JsonError(c, status, msg)
			return
		}
		clientID = hostClientID
	case PlayerConnection:
		clientID = conn.ClientID
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("session_id", meta.ID).Msg("failed to upgrade connection")
		return
	}

	client := ws.NewClient(h.hub, conn, session, meta.ID, clientID, handshake.Role(), h.config.Game.MessagesPerSecond)
	if !h.hub.Attach(client) {
		log.Warn().Str("session_id", meta.ID).Msg("hub stopped, connection dropped")
	}
}

func (h *WebSocketHandler) authorizeHost(c *gin.Context, conn HostConnection, meta models.Session) (int, string) {
	secret := h.config.Auth.JWTSecret
	if secret == "" {
		return http.StatusOK, ""
	}

	token := conn.Token
	if token == "" {
		token = bearerToken(c)
	}
	claims, err := jwt.ValidateHostToken(token, secret)
	if err != nil {
		return http.StatusUnauthorized, "invalid host token"
	}
	if claims.UserID != meta.HostID {
		return http.StatusForbidden, "token does not belong to the session host"
	}
	return http.StatusOK, ""
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
