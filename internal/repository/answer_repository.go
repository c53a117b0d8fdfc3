package repository

import (
	"context"
	"database/sql"
	"fmt"

	"trivia-service/internal/models"
)

type AnswerRepository struct {
	db *sql.DB
}

func NewAnswerRepository(db *sql.DB) *AnswerRepository {
	return &AnswerRepository{db: db}
}

// InsertAnswer writes an answer row once. A second write for the same player
// and question returns models.ErrAlreadyExists and leaves the row untouched.
func (r *AnswerRepository) InsertAnswer(ctx context.Context, answer *models.Answer) error {
	query := `
		INSERT INTO answers (player_id, session_id, question_index, round_index, answer_index, is_correct,
			response_time_ms, base_points, time_bonus, penalty_points, streak_bonus, final_score,
			streak_count, is_perfect_round, round_bonus, answered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.db.ExecContext(ctx, query,
		answer.PlayerID,
		answer.SessionID,
		answer.QuestionIndex,
		answer.RoundIndex,
		answer.AnswerIndex,
		answer.IsCorrect,
		answer.ResponseTimeMs,
		answer.BasePoints,
		answer.TimeBonus,
		answer.PenaltyPoints,
		answer.StreakBonus,
		answer.FinalScore,
		answer.StreakCount,
		answer.IsPerfectRound,
		answer.RoundBonus,
		answer.AnsweredAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("answer %s/%d: %w", answer.PlayerID, answer.QuestionIndex, models.ErrAlreadyExists)
	}
	return err
}

func (r *AnswerRepository) ListBySession(ctx context.Context, sessionID string) ([]models.Answer, error) {
	query := `
		SELECT player_id, session_id, question_index, round_index, answer_index, is_correct,
			response_time_ms, base_points, time_bonus, penalty_points, streak_bonus, final_score,
			streak_count, is_perfect_round, round_bonus, answered_at
		FROM answers
		WHERE session_id = $1
		ORDER BY question_index, answered_at
	`
	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []models.Answer
	for rows.Next() {
		var a models.Answer
		if err := rows.Scan(
			&a.PlayerID,
			&a.SessionID,
			&a.QuestionIndex,
			&a.RoundIndex,
			&a.AnswerIndex,
			&a.IsCorrect,
			&a.ResponseTimeMs,
			&a.BasePoints,
			&a.TimeBonus,
			&a.PenaltyPoints,
			&a.StreakBonus,
			&a.FinalScore,
			&a.StreakCount,
			&a.IsPerfectRound,
			&a.RoundBonus,
			&a.AnsweredAt,
		); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
