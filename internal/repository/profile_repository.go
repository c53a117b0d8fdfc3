package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"trivia-service/internal/models"
)

type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// EnsureProfile returns the profile for email, creating it on first use. The
// display name follows the most recent nickname.
func (r *ProfileRepository) EnsureProfile(ctx context.Context, email, displayName string) (*models.PlayerProfile, error) {
	query := `
		INSERT INTO player_profiles (id, email, display_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET display_name = EXCLUDED.display_name
		RETURNING id, email, display_name, total_games_played, total_score, last_played
	`
	profile := &models.PlayerProfile{}
	err := r.db.QueryRowContext(ctx, query, uuid.New().String(), email, displayName).Scan(
		&profile.ID,
		&profile.Email,
		&profile.DisplayName,
		&profile.TotalGamesPlayed,
		&profile.TotalScore,
		&profile.LastPlayed,
	)
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (r *ProfileRepository) GetProfile(ctx context.Context, profileID string) (*models.PlayerProfile, error) {
	query := `
		SELECT id, email, display_name, total_games_played, total_score, last_played
		FROM player_profiles
		WHERE id = $1
	`
	profile := &models.PlayerProfile{}
	err := r.db.QueryRowContext(ctx, query, profileID).Scan(
		&profile.ID,
		&profile.Email,
		&profile.DisplayName,
		&profile.TotalGamesPlayed,
		&profile.TotalScore,
		&profile.LastPlayed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (r *ProfileRepository) RecordGame(ctx context.Context, profileID string, score int, playedAt time.Time) error {
	query := `
		UPDATE player_profiles
		SET total_games_played = total_games_played + 1,
			total_score = total_score + $2,
			last_played = GREATEST(COALESCE(last_played, $3), $3)
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, profileID, score, playedAt)
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
