package repository

import (
	"context"
	"database/sql"
	"time"

	"trivia-service/internal/constants"
	"trivia-service/internal/models"
)

type LeaderboardRepository struct {
	db *sql.DB
}

func NewLeaderboardRepository(db *sql.DB) *LeaderboardRepository {
	return &LeaderboardRepository{db: db}
}

// UpsertEntry adds one game to a profile's entry for the period.
func (r *LeaderboardRepository) UpsertEntry(ctx context.Context, profileID string, period constants.PeriodType, periodStart time.Time, score int) error {
	query := `
		INSERT INTO leaderboard_entries (player_profile_id, period_type, period_start, total_score, games_played, average_score)
		VALUES ($1, $2, $3, $4, 1, $4)
		ON CONFLICT (player_profile_id, period_type, period_start) DO UPDATE SET
			total_score = leaderboard_entries.total_score + EXCLUDED.total_score,
			games_played = leaderboard_entries.games_played + 1,
			average_score = (leaderboard_entries.total_score + EXCLUDED.total_score)::DOUBLE PRECISION
				/ (leaderboard_entries.games_played + 1),
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := r.db.ExecContext(ctx, query, profileID, string(period), periodStart, score)
	return err
}

// ListEntries returns the entries of one period bucket, best first. Ranks are
// left to the caller.
func (r *LeaderboardRepository) ListEntries(ctx context.Context, period constants.PeriodType, periodStart time.Time, limit int) ([]models.LeaderboardEntry, error) {
	query := `
		SELECT e.player_profile_id, p.display_name, e.period_type, e.period_start,
			e.total_score, e.games_played, e.average_score
		FROM leaderboard_entries e
		JOIN player_profiles p ON p.id = e.player_profile_id
		WHERE e.period_type = $1 AND e.period_start = $2
		ORDER BY e.total_score DESC, e.average_score DESC, e.player_profile_id ASC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, string(period), periodStart, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		var periodType string
		if err := rows.Scan(
			&e.PlayerProfileID,
			&e.DisplayName,
			&periodType,
			&e.PeriodStart,
			&e.TotalScore,
			&e.GamesPlayed,
			&e.AverageScore,
		); err != nil {
			return nil, err
		}
		e.PeriodType = constants.PeriodType(periodType)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
