package database

import (
	"context"
	"database/sql"
	"fmt"

	"trivia-service/config"

	_ "github.com/lib/pq"
)

type PostgresClient struct {
	db     *sql.DB
	config *config.DBConfig
}

func NewPostgresClient(cfg *config.DBConfig) (*PostgresClient, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{
		db:     db,
		config: cfg,
	}, nil
}

func (c *PostgresClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *PostgresClient) GetDB() *sql.DB {
	return c.db
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

var schema = []struct {
	name string
	ddl  string
}{
	{"sessions", `
		CREATE TABLE IF NOT EXISTS sessions (
			id UUID PRIMARY KEY,
			room_code VARCHAR(6) NOT NULL,
			host_id VARCHAR(255) NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			total_rounds INTEGER NOT NULL,
			questions_per_round INTEGER NOT NULL,
			current_round INTEGER NOT NULL DEFAULT 0,
			current_question INTEGER NOT NULL DEFAULT 0,
			question_set VARCHAR(64) NOT NULL DEFAULT '',
			time_limit_seconds INTEGER NOT NULL,
			round_completion BOOLEAN[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			expires_at TIMESTAMPTZ NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_active_room_code ON sessions(room_code) WHERE is_active;
		CREATE INDEX IF NOT EXISTS idx_sessions_host_id ON sessions(host_id);
	`},
	{"player_profiles", `
		CREATE TABLE IF NOT EXISTS player_profiles (
			id UUID PRIMARY KEY,
			email VARCHAR(254) NOT NULL UNIQUE,
			display_name VARCHAR(64) NOT NULL,
			total_games_played INTEGER NOT NULL DEFAULT 0,
			total_score BIGINT NOT NULL DEFAULT 0,
			last_played TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`},
	{"answers", `
		CREATE TABLE IF NOT EXISTS answers (
			player_id VARCHAR(255) NOT NULL,
			session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			question_index INTEGER NOT NULL,
			round_index INTEGER NOT NULL,
			answer_index SMALLINT NOT NULL,
			is_correct BOOLEAN NOT NULL,
			response_time_ms BIGINT NOT NULL,
			base_points INTEGER NOT NULL,
			time_bonus INTEGER NOT NULL,
			penalty_points INTEGER NOT NULL,
			streak_bonus INTEGER NOT NULL,
			final_score INTEGER NOT NULL,
			streak_count INTEGER NOT NULL,
			is_perfect_round BOOLEAN NOT NULL DEFAULT FALSE,
			round_bonus INTEGER NOT NULL DEFAULT 0,
			answered_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (player_id, session_id, question_index)
		);
		CREATE INDEX IF NOT EXISTS idx_answers_session_id ON answers(session_id);
	`},
	{"leaderboard_entries", `
		CREATE TABLE IF NOT EXISTS leaderboard_entries (
			player_profile_id UUID NOT NULL REFERENCES player_profiles(id) ON DELETE CASCADE,
			period_type VARCHAR(16) NOT NULL,
			period_start TIMESTAMPTZ NOT NULL,
			total_score BIGINT NOT NULL DEFAULT 0,
			games_played INTEGER NOT NULL DEFAULT 0,
			average_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			rank_position INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (player_profile_id, period_type, period_start)
		);
		CREATE INDEX IF NOT EXISTS idx_leaderboard_period ON leaderboard_entries(period_type, period_start, total_score DESC);
	`},
}

func (c *PostgresClient) InitSchema(ctx context.Context) error {
	for _, table := range schema {
		if _, err := c.db.ExecContext(ctx, table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}
	return nil
}
