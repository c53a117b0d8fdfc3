// Package leaderboard rolls finished games into weekly, monthly, quarterly
// and yearly standings. All period boundaries are in UTC.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"trivia-service/internal/constants"
	"trivia-service/internal/models"
)

var ErrUnknownPeriod = errors.New("unknown leaderboard period")

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

type Store interface {
	UpsertEntry(ctx context.Context, profileID string, period constants.PeriodType, periodStart time.Time, score int) error
	ListEntries(ctx context.Context, period constants.PeriodType, periodStart time.Time, limit int) ([]models.LeaderboardEntry, error)
}

type Aggregator struct {
	store Store
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

func ParsePeriod(s string) (constants.PeriodType, error) {
	for _, p := range constants.PeriodTypes {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
}

// PeriodStart returns the first instant of the period containing t. Weeks
// start on Monday.
func PeriodStart(period constants.PeriodType, t time.Time) (time.Time, error) {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

	switch period {
	case constants.PeriodWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset), nil
	case constants.PeriodMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	case constants.PeriodQuarterly:
		month := time.Month((int(t.Month())-1)/3*3 + 1)
		return time.Date(t.Year(), month, 1, 0, 0, 0, 0, time.UTC), nil
	case constants.PeriodYearly:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, period)
	}
}

// Record adds every result with a linked profile to all period buckets
// containing finishedAt. It keeps going after a failed upsert and returns the
// joined errors.
func (a *Aggregator) Record(ctx context.Context, finishedAt time.Time, results []models.GameResult) error {
	var errs []error
	for _, r := range results {
		if r.PlayerProfileID == "" {
			continue
		}
		for _, period := range constants.PeriodTypes {
			start, err := PeriodStart(period, finishedAt)
			if err != nil {
				return err
			}
			if err := a.store.UpsertEntry(ctx, r.PlayerProfileID, period, start, r.Score); err != nil {
				log.Error().Err(err).
					Str("player_profile_id", r.PlayerProfileID).
					Str("period", string(period)).
					Msg("failed to update leaderboard entry")
				errs = append(errs, fmt.Errorf("%s %s: %w", r.PlayerProfileID, period, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Leaderboard returns the ranked standings for the period containing at.
func (a *Aggregator) Leaderboard(ctx context.Context, period constants.PeriodType, at time.Time, limit int) ([]models.LeaderboardEntry, error) {
	start, err := PeriodStart(period, at)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	entries, err := a.store.ListEntries(ctx, period, start, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list leaderboard: %w", err)
	}
	Rank(entries)
	return entries, nil
}
