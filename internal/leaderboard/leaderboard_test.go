package leaderboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"trivia-service/internal/constants"
	"trivia-service/internal/models"
)

type entryKey struct {
	profile string
	period  constants.PeriodType
	start   time.Time
}

type memoryStore struct {
	entries map[entryKey]*models.LeaderboardEntry
	fail    map[constants.PeriodType]bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		entries: make(map[entryKey]*models.LeaderboardEntry),
		fail:    make(map[constants.PeriodType]bool),
	}
}

func (m *memoryStore) UpsertEntry(_ context.Context, profileID string, period constants.PeriodType, start time.Time, score int) error {
	if m.fail[period] {
		return errors.New("db down")
	}
	key := entryKey{profileID, period, start}
	e := m.entries[key]
	if e == nil {
		e = &models.LeaderboardEntry{PlayerProfileID: profileID, PeriodType: period, PeriodStart: start}
		m.entries[key] = e
	}
	e.TotalScore += score
	e.GamesPlayed++
	e.AverageScore = float64(e.TotalScore) / float64(e.GamesPlayed)
	return nil
}

func (m *memoryStore) ListEntries(_ context.Context, period constants.PeriodType, start time.Time, limit int) ([]models.LeaderboardEntry, error) {
	var out []models.LeaderboardEntry
	for k, e := range m.entries {
		if k.period == period && k.start.Equal(start) {
			out = append(out, *e)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func date(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func TestPeriodStart(t *testing.T) {
	tests := []struct {
		name   string
		period constants.PeriodType
		at     time.Time
		want   time.Time
	}{
		{"weekly midweek", constants.PeriodWeekly, date(2026, time.October, 14, 15), date(2026, time.October, 12, 0)},
		{"weekly monday", constants.PeriodWeekly, date(2026, time.October, 12, 0), date(2026, time.October, 12, 0)},
		{"weekly sunday", constants.PeriodWeekly, date(2026, time.October, 18, 23), date(2026, time.October, 12, 0)},
		{"weekly across year", constants.PeriodWeekly, date(2027, time.January, 1, 9), date(2026, time.December, 28, 0)},
		{"monthly", constants.PeriodMonthly, date(2026, time.October, 14, 15), date(2026, time.October, 1, 0)},
		{"quarterly q4", constants.PeriodQuarterly, date(2026, time.October, 14, 15), date(2026, time.October, 1, 0)},
		{"quarterly q1 end", constants.PeriodQuarterly, date(2026, time.March, 31, 23), date(2026, time.January, 1, 0)},
		{"quarterly q2", constants.PeriodQuarterly, date(2026, time.June, 2, 1), date(2026, time.April, 1, 0)},
		{"yearly", constants.PeriodYearly, date(2026, time.October, 14, 15), date(2026, time.January, 1, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PeriodStart(tt.period, tt.at)
			if err != nil {
				t.Fatalf("PeriodStart returned error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("PeriodStart(%s, %v) = %v, want %v", tt.period, tt.at, got, tt.want)
			}
		})
	}
}

func TestPeriodStartUsesUTC(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// Monday 02:00 in Tokyo is still Sunday in UTC.
	at := time.Date(2026, time.October, 19, 2, 0, 0, 0, tokyo)

	got, err := PeriodStart(constants.PeriodWeekly, at)
	if err != nil {
		t.Fatalf("PeriodStart returned error: %v", err)
	}
	if want := date(2026, time.October, 12, 0); !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParsePeriod(t *testing.T) {
	if p, err := ParsePeriod("monthly"); err != nil || p != constants.PeriodMonthly {
		t.Errorf("ParsePeriod(monthly) = %q, %v", p, err)
	}
	if _, err := ParsePeriod("daily"); !errors.Is(err, ErrUnknownPeriod) {
		t.Errorf("expected ErrUnknownPeriod, got %v", err)
	}
}

func TestRecordUpdatesEveryPeriod(t *testing.T) {
	store := newMemoryStore()
	agg := NewAggregator(store)
	ctx := context.Background()
	finished := date(2026, time.October, 14, 15)

	results := []models.GameResult{
		{ClientID: "c1", PlayerProfileID: "p1", Score: 300},
		{ClientID: "c2", Score: 500},
	}
	if err := agg.Record(ctx, finished, results); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if err := agg.Record(ctx, finished.Add(time.Hour), []models.GameResult{{PlayerProfileID: "p1", Score: 100}}); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	if len(store.entries) != len(constants.PeriodTypes) {
		t.Fatalf("expected %d entries, got %d", len(constants.PeriodTypes), len(store.entries))
	}
	for _, period := range constants.PeriodTypes {
		start, _ := PeriodStart(period, finished)
		e := store.entries[entryKey{"p1", period, start}]
		if e == nil {
			t.Fatalf("missing %s entry", period)
		}
		if e.TotalScore != 400 || e.GamesPlayed != 2 || e.AverageScore != 200 {
			t.Errorf("%s entry = %+v, want total 400 over 2 games", period, *e)
		}
	}
}

func TestRecordReportsFailures(t *testing.T) {
	store := newMemoryStore()
	store.fail[constants.PeriodQuarterly] = true
	agg := NewAggregator(store)

	err := agg.Record(context.Background(), date(2026, time.October, 14, 15), []models.GameResult{{PlayerProfileID: "p1", Score: 10}})
	if err == nil {
		t.Fatal("expected error from failing period")
	}
	if len(store.entries) != len(constants.PeriodTypes)-1 {
		t.Errorf("other periods should still be recorded, got %d entries", len(store.entries))
	}
}

func TestRankTiebreaks(t *testing.T) {
	entries := []models.LeaderboardEntry{
		{PlayerProfileID: "c", TotalScore: 500, AverageScore: 250},
		{PlayerProfileID: "b", TotalScore: 500, AverageScore: 500},
		{PlayerProfileID: "a", TotalScore: 500, AverageScore: 250},
		{PlayerProfileID: "d", TotalScore: 900, AverageScore: 300},
	}
	Rank(entries)

	want := []string{"d", "b", "a", "c"}
	for i, id := range want {
		if entries[i].PlayerProfileID != id {
			t.Errorf("position %d = %s, want %s", i+1, entries[i].PlayerProfileID, id)
		}
		if entries[i].RankPosition != i+1 {
			t.Errorf("%s rank = %d, want %d", id, entries[i].RankPosition, i+1)
		}
	}
}

func TestLeaderboardRanksQueriedPeriod(t *testing.T) {
	store := newMemoryStore()
	agg := NewAggregator(store)
	ctx := context.Background()
	week := date(2026, time.October, 14, 12)

	_ = agg.Record(ctx, week, []models.GameResult{
		{PlayerProfileID: "p1", Score: 100},
		{PlayerProfileID: "p2", Score: 300},
	})
	_ = agg.Record(ctx, week.AddDate(0, 0, 7), []models.GameResult{{PlayerProfileID: "p1", Score: 1000}})

	entries, err := agg.Leaderboard(ctx, constants.PeriodWeekly, week, 0)
	if err != nil {
		t.Fatalf("Leaderboard returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].PlayerProfileID != "p2" || entries[0].RankPosition != 1 {
		t.Errorf("first entry = %+v, want p2 at rank 1", entries[0])
	}

	if _, err := agg.Leaderboard(ctx, "daily", week, 10); !errors.Is(err, ErrUnknownPeriod) {
		t.Errorf("expected ErrUnknownPeriod, got %v", err)
	}
}
