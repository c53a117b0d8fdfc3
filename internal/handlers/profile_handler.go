package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"trivia-service/internal/dto"
	"trivia-service/internal/models"
)

type ProfileReader interface {
	GetProfile(ctx context.Context, profileID string) (*models.PlayerProfile, error)
}

type ProfileHandler struct {
	profiles ProfileReader
}

func NewProfileHandler(profiles ProfileReader) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// GetProfile godoc
// @Summary Get a player profile
// @Description Lifetime totals of a linked player. The email is never returned.
// @Tags profiles
// @Produce json
// @Param id path string true "Player profile id"
// @Success 200 {object} dto.ProfileResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/profiles/{id} [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		dto.JsonError(c, http.StatusBadRequest, "profile id must be a uuid")
		return
	}

	profile, err := h.profiles.GetProfile(c.Request.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		dto.JsonError(c, http.StatusNotFound, "profile not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("profile_id", id).Msg("failed to load profile")
		dto.JsonError(c, http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, dto.NewProfileResponse(*profile))
}
