package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"trivia-service/internal/models"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) CreateSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, room_code, host_id, is_active, total_rounds, questions_per_round,
			current_round, current_question, question_set, time_limit_seconds, round_completion, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.RoomCode,
		session.HostID,
		session.IsActive,
		session.TotalRounds,
		session.QuestionsPerRound,
		session.CurrentRound,
		session.CurrentQuestion,
		session.QuestionSet,
		session.TimeLimitSec,
		pq.BoolArray(session.RoundCompletion),
		session.CreatedAt,
		session.ExpiresAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("room code %s: %w", session.RoomCode, models.ErrAlreadyExists)
	}
	return err
}

func (r *SessionRepository) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	query := `
		SELECT id, room_code, host_id, is_active, total_rounds, questions_per_round, current_round,
			current_question, question_set, time_limit_seconds, round_completion, created_at, expires_at
		FROM sessions
		WHERE id = $1
	`
	session := &models.Session{}
	var completion pq.BoolArray
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&session.ID,
		&session.RoomCode,
		&session.HostID,
		&session.IsActive,
		&session.TotalRounds,
		&session.QuestionsPerRound,
		&session.CurrentRound,
		&session.CurrentQuestion,
		&session.QuestionSet,
		&session.TimeLimitSec,
		&completion,
		&session.CreatedAt,
		&session.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	session.RoundCompletion = completion
	return session, nil
}

// UpdateProgress never moves the stored position backwards, so writes that
// arrive out of order are harmless.
func (r *SessionRepository) UpdateProgress(ctx context.Context, sessionID string, round, questionIndex int) error {
	query := `
		UPDATE sessions
		SET current_round = GREATEST(current_round, $2), current_question = GREATEST(current_question, $3)
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, sessionID, round, questionIndex)
	return err
}

func (r *SessionRepository) MarkRoundComplete(ctx context.Context, sessionID string, round int) error {
	query := `UPDATE sessions SET round_completion[$2] = TRUE WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, sessionID, round+1)
	return err
}

func (r *SessionRepository) DeactivateSession(ctx context.Context, sessionID string) error {
	query := `UPDATE sessions SET is_active = FALSE WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, sessionID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeactivateStale closes sessions left active by a previous process.
func (r *SessionRepository) DeactivateStale(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE sessions SET is_active = FALSE WHERE is_active`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
