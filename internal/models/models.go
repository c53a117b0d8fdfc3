package models

import (
	"database/sql"
	"time"

	"trivia-service/internal/constants"
)

type Session struct {
	ID                string
	RoomCode          string
	HostID            string
	IsActive          bool
	TotalRounds       int
	QuestionsPerRound int
	CurrentRound      int
	CurrentQuestion   int
	QuestionSet       string
	TimeLimitSec      int
	RoundCompletion   []bool
	CreatedAt         time.Time
	ExpiresAt         time.Time
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Answer is write-once; (PlayerID, SessionID, QuestionIndex) is unique.
type Answer struct {
	PlayerID       string    `json:"player_id"`
	SessionID      string    `json:"session_id"`
	QuestionIndex  int       `json:"question_index"`
	RoundIndex     int       `json:"round_index"`
	AnswerIndex    int       `json:"answer_index"`
	IsCorrect      bool      `json:"is_correct"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	BasePoints     int       `json:"base_points"`
	TimeBonus      int       `json:"time_bonus"`
	PenaltyPoints  int       `json:"penalty_points"`
	StreakBonus    int       `json:"streak_bonus"`
	FinalScore     int       `json:"final_score"`
	StreakCount    int       `json:"streak_count"`
	IsPerfectRound bool      `json:"is_perfect_round"`
	RoundBonus     int       `json:"round_bonus"`
	AnsweredAt     time.Time `json:"answered_at"`
}

type PlayerProfile struct {
	ID               string
	Email            string
	DisplayName      string
	TotalGamesPlayed int
	TotalScore       int
	LastPlayed       sql.NullTime
}

type LeaderboardEntry struct {
	PlayerProfileID string               `json:"player_profile_id"`
	DisplayName     string               `json:"display_name,omitempty"`
	PeriodType      constants.PeriodType `json:"period_type"`
	PeriodStart     time.Time            `json:"period_start"`
	TotalScore      int                  `json:"total_score"`
	GamesPlayed     int                  `json:"games_played"`
	AverageScore    float64              `json:"average_score"`
	RankPosition    int                  `json:"rank_position"`
}

type Question struct {
	Text               string   `json:"question_text"`
	Answers            []string `json:"answers"`
	CorrectAnswerIndex int      `json:"correct_answer_index"`
	Category           string   `json:"category"`
	Difficulty         string   `json:"difficulty"`
}

// GameResult is one player's final standing, handed to the profile and
// leaderboard collaborators at game completion.
type GameResult struct {
	ClientID        string `json:"client_id"`
	PlayerProfileID string `json:"player_profile_id,omitempty"`
	Nickname        string `json:"nickname"`
	Score           int    `json:"score"`
	Rank            int    `json:"rank"`
	CorrectAnswers  int    `json:"correct_answers"`
}
