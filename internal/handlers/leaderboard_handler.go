package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"trivia-service/internal/constants"
	"trivia-service/internal/dto"
	"trivia-service/internal/leaderboard"
	"trivia-service/internal/models"
)

type LeaderboardReader interface {
	Leaderboard(ctx context.Context, period constants.PeriodType, at time.Time, limit int) ([]models.LeaderboardEntry, error)
}

type LeaderboardHandler struct {
	leaderboards LeaderboardReader
	now          func() time.Time
}

func NewLeaderboardHandler(leaderboards LeaderboardReader) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboards: leaderboards,
		now:          time.Now,
	}
}

// GetLeaderboard godoc
// @Summary Get period standings
// @Description Ranked by total score, then average score, then profile id.
// @Tags leaderboards
// @Produce json
// @Param period path string true "weekly, monthly, quarterly or yearly"
// @Param at query string false "RFC 3339 instant inside the wanted period, defaults to now"
// @Param limit query int false "Maximum entries"
// @Success 200 {object} dto.LeaderboardResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/leaderboards/{period} [get]
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	period, err := leaderboard.ParsePeriod(c.Param("period"))
	if err != nil {
		dto.JsonError(c, http.StatusBadRequest, err.Error())
		return
	}

	at := h.now()
	if raw := c.Query("at"); raw != "" {
		at, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			dto.JsonError(c, http.StatusBadRequest, "at must be an RFC 3339 timestamp")
			return
		}
	}

	limit := leaderboard.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			dto.JsonError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
	}

	entries, err := h.leaderboards.Leaderboard(c.Request.Context(), period, at, limit)
	if errors.Is(err, leaderboard.ErrUnknownPeriod) {
		dto.JsonError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Str("period", string(period)).Msg("failed to load leaderboard")
		dto.JsonError(c, http.StatusInternalServerError)
		return
	}

	start, _ := leaderboard.PeriodStart(period, at)
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	c.JSON(http.StatusOK, dto.LeaderboardResponse{
		Period:      period,
		PeriodStart: start,
		Entries:     entries,
	})
}
