package dto

import (
	"time"

	"trivia-service/internal/constants"
	"trivia-service/internal/models"
)

type CreateSessionRequest struct {
	HostID            string `json:"host_id" binding:"omitempty,max=255"`
	TotalRounds       int    `json:"total_rounds" binding:"omitempty,min=1,max=20"`
	QuestionsPerRound int    `json:"questions_per_round" binding:"omitempty,min=1,max=50"`
	QuestionSet       string `json:"question_set" binding:"omitempty,max=64"`
	TimeLimitSeconds  int    `json:"time_limit_seconds" binding:"omitempty,min=5,max=300"`
}

type SessionResponse struct {
	SessionID         string          `json:"session_id"`
	RoomCode          string          `json:"room_code"`
	HostID            string          `json:"host_id"`
	TotalRounds       int             `json:"total_rounds"`
	QuestionsPerRound int             `json:"questions_per_round"`
	QuestionSet       string          `json:"question_set,omitempty"`
	TimeLimitSeconds  int             `json:"time_limit_seconds"`
	Phase             constants.Phase `json:"phase,omitempty"`
	PlayerCount       int             `json:"player_count"`
	CreatedAt         time.Time       `json:"created_at"`
	ExpiresAt         time.Time       `json:"expires_at"`
}

func NewSessionResponse(s models.Session) SessionResponse {
	return SessionResponse{
		SessionID:         s.ID,
		RoomCode:          s.RoomCode,
		HostID:            s.HostID,
		TotalRounds:       s.TotalRounds,
		QuestionsPerRound: s.QuestionsPerRound,
		QuestionSet:       s.QuestionSet,
		TimeLimitSeconds:  s.TimeLimitSec,
		CreatedAt:         s.CreatedAt,
		ExpiresAt:         s.ExpiresAt,
	}
}

type LeaderboardResponse struct {
	Period      constants.PeriodType      `json:"period"`
	PeriodStart time.Time                 `json:"period_start"`
	Entries     []models.LeaderboardEntry `json:"entries"`
}

type ProfileResponse struct {
	PlayerProfileID  string     `json:"player_profile_id"`
	DisplayName      string     `json:"display_name"`
	TotalGamesPlayed int        `json:"total_games_played"`
	TotalScore       int        `json:"total_score"`
	AverageScore     float64    `json:"average_score"`
	LastPlayed       *time.Time `json:"last_played,omitempty"`
}

func NewProfileResponse(p models.PlayerProfile) ProfileResponse {
	resp := ProfileResponse{
		PlayerProfileID:  p.ID,
		DisplayName:      p.DisplayName,
		TotalGamesPlayed: p.TotalGamesPlayed,
		TotalScore:       p.TotalScore,
	}
	if p.TotalGamesPlayed > 0 {
		resp.AverageScore = float64(p.TotalScore) / float64(p.TotalGamesPlayed)
	}
	if p.LastPlayed.Valid {
		last := p.LastPlayed.Time
		resp.LastPlayed = &last
	}
	return resp
}
