package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"trivia-service/internal/constants"
	"trivia-service/internal/game"
	"trivia-service/internal/models"
)

type ProfileRecorder interface {
	RecordGame(ctx context.Context, profileID string, score int, playedAt time.Time) error
}

type LeaderboardRecorder interface {
	Record(ctx context.Context, finishedAt time.Time, results []models.GameResult) error
}

type AnswerLister interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.Answer, error)
}

type Publisher interface {
	PublishJSON(ctx context.Context, queueName string, value any) error
}

// GameCompletedEvent is the message published once a game is finalised.
type GameCompletedEvent struct {
	game.Summary
	Questions []QuestionStats `json:"questions,omitempty"`
}

// QuestionStats summarises the stored answers of one asked question.
type QuestionStats struct {
	QuestionIndex     int   `json:"question_index"`
	Round             int   `json:"round"`
	Answered          int   `json:"answered"`
	Correct           int   `json:"correct"`
	AvgResponseTimeMs int64 `json:"avg_response_time_ms"`
}

// CompletionService finalises a finished game: profile totals, leaderboard
// buckets and the game completed event. Any collaborator may be nil.
type CompletionService struct {
	profiles    ProfileRecorder
	leaderboard LeaderboardRecorder
	answers     AnswerLister
	publisher   Publisher
}

func NewCompletionService(profiles ProfileRecorder, leaderboard LeaderboardRecorder, answers AnswerLister, publisher Publisher) *CompletionService {
	return &CompletionService{
		profiles:    profiles,
		leaderboard: leaderboard,
		answers:     answers,
		publisher:   publisher,
	}
}

// GameCompleted runs every step even when an earlier one fails and returns
// the joined errors.
func (s *CompletionService) GameCompleted(ctx context.Context, summary game.Summary) error {
	logger := log.With().Str("session_id", summary.SessionID).Logger()
	var errs []error

	if s.profiles != nil {
		for _, r := range summary.Results {
			if r.PlayerProfileID == "" {
				continue
			}
			if err := s.profiles.RecordGame(ctx, r.PlayerProfileID, r.Score, summary.FinishedAt); err != nil {
				errs = append(errs, fmt.Errorf("failed to record game for profile %s: %w", r.PlayerProfileID, err))
			}
		}
	}

	if s.leaderboard != nil {
		if err := s.leaderboard.Record(ctx, summary.FinishedAt, summary.Results); err != nil {
			errs = append(errs, fmt.Errorf("failed to update leaderboards: %w", err))
		}
	}

	event := GameCompletedEvent{Summary: summary}
	if s.answers != nil {
		rows, err := s.answers.ListBySession(ctx, summary.SessionID)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to load answers: %w", err))
		} else {
			event.Questions = Breakdown(rows)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishJSON(ctx, constants.QueueGameCompleted, event); err != nil {
			errs = append(errs, fmt.Errorf("failed to publish game completed event: %w", err))
		}
	}

	logger.Info().
		Str("reason", summary.Reason).
		Int("players", len(summary.Results)).
		Int("failures", len(errs)).
		Msg("game results finalized")
	return errors.Join(errs...)
}

// Breakdown groups answers by question, in question order.
func Breakdown(answers []models.Answer) []QuestionStats {
	byIndex := make(map[int]*QuestionStats)
	totals := make(map[int]int64)
	for _, a := range answers {
		st := byIndex[a.QuestionIndex]
		if st == nil {
			st = &QuestionStats{QuestionIndex: a.QuestionIndex, Round: a.RoundIndex}
			byIndex[a.QuestionIndex] = st
		}
		st.Answered++
		if a.IsCorrect {
			st.Correct++
		}
		totals[a.QuestionIndex] += a.ResponseTimeMs
	}

	stats := make([]QuestionStats, 0, len(byIndex))
	for idx, st := range byIndex {
		st.AvgResponseTimeMs = totals[idx] / int64(st.Answered)
		stats = append(stats, *st)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].QuestionIndex < stats[j].QuestionIndex })
	return stats
}
