package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"trivia-service/config"
	"trivia-service/internal/constants"
	"trivia-service/internal/dto"
	"trivia-service/internal/registry"
	"trivia-service/internal/service"
	"trivia-service/pkg/jwt"
)

const snapshotTimeout = 2 * time.Second

type SessionHandler struct {
	sessions *service.SessionService
	config   *config.Config
}

func NewSessionHandler(sessions *service.SessionService, cfg *config.Config) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		config:   cfg,
	}
}

// CreateSession godoc
// @Summary Create a game session
// @Description Opens a lobby with a fresh room code. With auth enabled the host id comes from the bearer token.
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateSessionRequest false "Session settings"
// @Success 201 {object} dto.SessionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			dto.JsonError(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	if secret := h.config.Auth.JWTSecret; secret != "" {
		claims, err := jwt.ValidateHostToken(bearerToken(c), secret)
		if err != nil {
			dto.JsonError(c, http.StatusUnauthorized, "invalid host token")
			return
		}
		if req.HostID != "" && req.HostID != claims.UserID {
			dto.JsonError(c, http.StatusForbidden, "host_id does not match token")
			return
		}
		req.HostID = claims.UserID
	}
	if req.HostID == "" {
		dto.JsonError(c, http.StatusBadRequest, "host_id is required")
		return
	}

	meta, _, err := h.sessions.Create(c.Request.Context(), service.CreateSessionInput{
		HostID:            req.HostID,
		TotalRounds:       req.TotalRounds,
		QuestionsPerRound: req.QuestionsPerRound,
		QuestionSet:       req.QuestionSet,
		TimeLimitSeconds:  req.TimeLimitSeconds,
	})
	if errors.Is(err, registry.ErrCodeExhausted) {
		dto.JsonError(c, http.StatusServiceUnavailable, "no room code available, try again")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("host_id", req.HostID).Msg("failed to create session")
		dto.JsonError(c, http.StatusInternalServerError)
		return
	}

	resp := dto.NewSessionResponse(meta)
	resp.Phase = constants.PhaseWaitingForPlayers
	c.JSON(http.StatusCreated, resp)
}

// GetSession godoc
// @Summary Look up a session by room code
// @Tags sessions
// @Produce json
// @Param code path string true "Room code"
// @Success 200 {object} dto.SessionResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/sessions/{code} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	meta, session, err := h.sessions.LookupByCode(c.Param("code"))
	if errors.Is(err, registry.ErrSessionNotFound) {
		dto.JsonError(c, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		dto.JsonError(c, http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), snapshotTimeout)
	defer cancel()
	state, err := session.Snapshot(ctx)
	if err != nil {
		// ended between lookup and snapshot
		dto.JsonError(c, http.StatusNotFound, "session not found")
		return
	}

	resp := dto.NewSessionResponse(meta)
	resp.Phase = state.Phase
	resp.PlayerCount = len(state.Players)
	c.JSON(http.StatusOK, resp)
}
