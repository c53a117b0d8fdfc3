// Package scoring turns answer timing, correctness and streak into points.
package scoring

import (
	"math"
	"sort"
	"time"

	"trivia-service/config"
)

type Config struct {
	BasePoints     int
	MaxTimeBonus   int
	PenaltyPoints  int
	StreakStep     int
	StreakBonusCap int
	RoundBonus     int
}

func DefaultConfig() Config {
	return Config{
		BasePoints:     100,
		MaxTimeBonus:   50,
		PenaltyPoints:  20,
		StreakStep:     10,
		StreakBonusCap: 100,
		RoundBonus:     100,
	}
}

func FromConfig(cfg config.ScoringConfig) Config {
	return Config{
		BasePoints:     cfg.BasePoints,
		MaxTimeBonus:   cfg.MaxTimeBonus,
		PenaltyPoints:  cfg.PenaltyPoints,
		StreakStep:     cfg.StreakStep,
		StreakBonusCap: cfg.StreakBonusCap,
		RoundBonus:     cfg.RoundBonus,
	}
}

type Input struct {
	Elapsed   time.Duration
	TimeLimit time.Duration
	Correct   bool
	// Streak is the player's consecutive-correct count before this answer.
	Streak int
}

type Result struct {
	BasePoints      int     `json:"base_points"`
	TimeBonus       int     `json:"time_bonus"`
	PenaltyPoints   int     `json:"penalty_points"`
	StreakBonus     int     `json:"streak_bonus"`
	FinalScore      int     `json:"final_score"`
	StreakCount     int     `json:"streak_count"`
	SpeedPercentage float64 `json:"speed_percentage"`
	Late            bool    `json:"late"`
}

func Score(cfg Config, in Input) Result {
	speed := SpeedPercentage(in.Elapsed, in.TimeLimit)
	late := in.TimeLimit > 0 && in.Elapsed > in.TimeLimit

	res := Result{SpeedPercentage: speed, Late: late}
	if in.Correct && !late {
		res.BasePoints = cfg.BasePoints
		res.TimeBonus = int(math.Round(float64(cfg.MaxTimeBonus) * speed))
		res.StreakCount = in.Streak + 1
		res.StreakBonus = StreakBonus(cfg, res.StreakCount)
	} else {
		res.PenaltyPoints = cfg.PenaltyPoints
	}

	res.FinalScore = max(0, res.BasePoints+res.TimeBonus+res.StreakBonus-res.PenaltyPoints)
	return res
}

// StreakBonus is zero for the first correct answer and grows by StreakStep for
// every further consecutive one, up to StreakBonusCap when the cap is positive.
func StreakBonus(cfg Config, streakCount int) int {
	if streakCount <= 1 {
		return 0
	}
	bonus := cfg.StreakStep * (streakCount - 1)
	if cfg.StreakBonusCap > 0 && bonus > cfg.StreakBonusCap {
		bonus = cfg.StreakBonusCap
	}
	return bonus
}

func SpeedPercentage(elapsed, limit time.Duration) float64 {
	if limit <= 0 {
		return 1
	}
	ratio := 1 - float64(elapsed)/float64(limit)
	return math.Min(1, math.Max(0, ratio))
}

type Timing struct {
	ClientID string
	Elapsed  time.Duration
	Seq      int64
}

// SpeedRanks ranks submissions fastest first. Equal response times are broken
// by server receipt sequence, lowest first.
func SpeedRanks(timings []Timing) map[string]int {
	sorted := make([]Timing, len(timings))
	copy(sorted, timings)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Elapsed != sorted[j].Elapsed {
			return sorted[i].Elapsed < sorted[j].Elapsed
		}
		return sorted[i].Seq < sorted[j].Seq
	})

	ranks := make(map[string]int, len(sorted))
	for i, t := range sorted {
		ranks[t.ClientID] = i + 1
	}
	return ranks
}
