package leaderboard

import (
	"sort"

	"trivia-service/internal/models"
)

// Rank orders entries by total score, then average score, then profile id,
// and assigns positions from 1. Every position is distinct.
func Rank(entries []models.LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		if a.AverageScore != b.AverageScore {
			return a.AverageScore > b.AverageScore
		}
		return a.PlayerProfileID < b.PlayerProfileID
	})
	for i := range entries {
		entries[i].RankPosition = i + 1
	}
}
