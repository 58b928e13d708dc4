package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AttemptDraftKey returns the hash key holding unsubmitted answers for an attempt.
func (r *CacheKeyStruct) AttemptDraftKey(attemptID int64) string {
	return fmt.Sprintf("attempt:%d:draft", attemptID)
}

// MockTestPaperKey returns the cache key for a test's student-facing paper.
func (r *CacheKeyStruct) MockTestPaperKey(testID int64) string {
	return fmt.Sprintf("mocktest:%d:paper", testID)
}

// LeaderboardSnapshotKey returns the cache key for the ranked top-N snapshot.
func (r *CacheKeyStruct) LeaderboardSnapshotKey() string {
	return "leaderboard:snapshot"
}

var CacheKey = NewCacheKeyStruct()
