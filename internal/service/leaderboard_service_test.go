package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stemsi/gateprep-backend/internal/config"
	"github.com/stemsi/gateprep-backend/internal/model"
	"github.com/stemsi/gateprep-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedAttempt(id, userID int64, score, pct float64) model.TestAttempt {
	done := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return model.TestAttempt{
		ID: id, UserID: userID, MockTestID: 1,
		StartedAt: done.Add(-time.Hour), CompletedAt: &done,
		TotalScore: score, Percentage: pct, IsCompleted: true,
	}
}

func TestRecomputeWithoutAttemptsIsNoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.board.Recompute(ctx, 42))

	_, err := env.db.Leaderboards().GetByUser(ctx, 42)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRecomputeAggregatesAllCompletedAttempts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.db.SetAttempt(completedAttempt(1001, 42, 10, 50))
	env.db.SetAttempt(completedAttempt(1002, 42, 20, 100))
	open := completedAttempt(1003, 42, 99, 99)
	open.IsCompleted = false
	open.CompletedAt = nil
	env.db.SetAttempt(open)
	env.db.SetAttempt(completedAttempt(1004, 43, 5, 5))

	require.NoError(t, env.board.Recompute(ctx, 42))

	row, err := env.db.Leaderboards().GetByUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 30.0, row.TotalScore)
	assert.Equal(t, 2, row.TestsCompleted)
	assert.Equal(t, 75.0, row.AveragePercentage)

	// Idempotent: a second run produces the same row.
	require.NoError(t, env.board.Recompute(ctx, 42))
	again, err := env.db.Leaderboards().GetByUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, row.TotalScore, again.TotalScore)
	assert.Equal(t, row.TestsCompleted, again.TestsCompleted)
}

func TestRecomputeLeavesRankUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.db.SetAttempt(completedAttempt(1001, 42, 10, 50))
	require.NoError(t, env.board.Recompute(ctx, 42))
	_, err := env.board.RefreshRanks(ctx)
	require.NoError(t, err)

	env.db.SetAttempt(completedAttempt(1002, 42, 30, 100))
	require.NoError(t, env.board.Recompute(ctx, 42))

	row, err := env.db.Leaderboards().GetByUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 40.0, row.TotalScore)
	assert.Equal(t, 1, row.Rank)
}

func TestRefreshRanksUsesCompetitionRanking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.db.SetAttempt(completedAttempt(2001, 1, 30, 75))
	env.db.SetAttempt(completedAttempt(2002, 2, 30, 75))
	env.db.SetAttempt(completedAttempt(2003, 3, 40, 80))
	env.db.SetAttempt(completedAttempt(2004, 4, 30, 60))
	for _, uid := range []int64{1, 2, 3, 4} {
		require.NoError(t, env.board.Recompute(ctx, uid))
	}

	changed, err := env.board.RefreshRanks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), changed)

	want := map[int64]int{3: 1, 1: 2, 2: 2, 4: 4}
	for uid, rank := range want {
		row, err := env.db.Leaderboards().GetByUser(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, rank, row.Rank, "user %d", uid)
	}

	changed, err = env.board.RefreshRanks(ctx)
	require.NoError(t, err)
	assert.Zero(t, changed)

	raw, err := env.mr.Get(config.CacheKey.LeaderboardSnapshotKey())
	require.NoError(t, err)
	var snap model.LeaderboardSnapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &snap))
	require.Len(t, snap.Entries, 4)
	assert.Equal(t, int64(3), snap.Entries[0].UserID)
	assert.Equal(t, int64(4), snap.Entries[3].UserID)
}

func TestSnapshotFallsBackToDatabase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for uid := int64(1); uid <= 3; uid++ {
		env.db.SetAttempt(completedAttempt(3000+uid, uid, float64(uid*10), float64(uid*10)))
		require.NoError(t, env.board.Recompute(ctx, uid))
	}

	snap, err := env.board.Snapshot(ctx, 2)
	require.NoError(t, err)
	require.Len(t, snap.Entries, 2)
	// Unranked rows order by score until the rank job runs.
	assert.Equal(t, int64(3), snap.Entries[0].UserID)
	assert.Zero(t, snap.Entries[0].Rank)
	assert.Equal(t, env.clock, snap.GeneratedAt)
	assert.True(t, env.mr.Exists(config.CacheKey.LeaderboardSnapshotKey()))

	// Served from cache: a new row is invisible until the next refresh.
	env.db.SetAttempt(completedAttempt(3999, 9, 500, 100))
	require.NoError(t, env.board.Recompute(ctx, 9))
	snap, err = env.board.Snapshot(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, snap.Entries, 3)

	_, err = env.board.RefreshRanks(ctx)
	require.NoError(t, err)
	snap, err = env.board.Snapshot(ctx, 500)
	require.NoError(t, err)
	require.Len(t, snap.Entries, 4)
	assert.Equal(t, int64(9), snap.Entries[0].UserID)
	assert.Equal(t, 1, snap.Entries[0].Rank)
}

func TestSnapshotIgnoresCorruptCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.mr.Set(config.CacheKey.LeaderboardSnapshotKey(), "{not json"))

	snap, err := env.board.Snapshot(ctx, 10)
	require.NoError(t, err)
	assert.NotNil(t, snap.Entries)
	assert.Empty(t, snap.Entries)
}

func TestSignalRankRefresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.board.SignalRankRefresh(ctx, 5))
	require.NoError(t, env.board.SignalRankRefresh(ctx, 6))

	queued, err := env.mr.List(config.WorkerKey.RankRefreshQueue)
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "6"}, queued)
}
