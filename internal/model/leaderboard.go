package model

import "time"

// LeaderboardEntry is the per-user aggregate used for ranking display.
// Rank is 0 until the rank refresh job has seen the row.
type LeaderboardEntry struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"user_id"`
	TotalScore        float64   `json:"total_score"`
	TestsCompleted    int       `json:"tests_completed"`
	AveragePercentage float64   `json:"average_percentage"`
	Rank              int       `json:"rank"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// LeaderboardSnapshot is the cached ranked view served to clients.
type LeaderboardSnapshot struct {
	Entries     []LeaderboardEntry `json:"entries"`
	GeneratedAt time.Time          `json:"generated_at"`
}
