package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/gateprep-backend/internal/config"
	"github.com/stemsi/gateprep-backend/internal/logger"
	"github.com/stemsi/gateprep-backend/internal/model"
)

// MaxLeaderboardLimit bounds the snapshot size a caller may request. The
// cached snapshot always holds this many rows.
const MaxLeaderboardLimit = 100

// LeaderboardService maintains per-user aggregates and the ranked snapshot.
type LeaderboardService struct {
	attempts AttemptStore
	board    LeaderboardStore
	rdb      *redis.Client
	cfg      *config.Config
	log      zerolog.Logger
	now      func() time.Time
}

// NewLeaderboardService creates a new LeaderboardService.
func NewLeaderboardService(
	attempts AttemptStore,
	board LeaderboardStore,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *LeaderboardService {
	return &LeaderboardService{
		attempts: attempts,
		board:    board,
		rdb:      rdb,
		cfg:      cfg,
		log:      logger.Component(log, "leaderboard_service"),
		now:      time.Now,
	}
}

// Recompute rebuilds a user's leaderboard row from all of their completed
// attempts. A user with no completed attempts is left without a row. The
// stored rank is not touched.
func (s *LeaderboardService) Recompute(ctx context.Context, userID int64) error {
	attempts, err := s.attempts.ListCompletedByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list completed attempts: %w", err)
	}
	if len(attempts) == 0 {
		return nil
	}

	entry := aggregate(userID, attempts)
	if err := s.board.Upsert(ctx, &entry); err != nil {
		return fmt.Errorf("upsert leaderboard: %w", err)
	}

	s.log.Debug().
		Int64("user_id", userID).
		Float64("total_score", entry.TotalScore).
		Int("tests_completed", entry.TestsCompleted).
		Msg("Leaderboard row recomputed")
	return nil
}

func aggregate(userID int64, attempts []model.TestAttempt) model.LeaderboardEntry {
	e := model.LeaderboardEntry{UserID: userID, TestsCompleted: len(attempts)}
	var pct float64
	for _, a := range attempts {
		e.TotalScore += a.TotalScore
		pct += a.Percentage
	}
	e.AveragePercentage = pct / float64(len(attempts))
	return e
}

// SignalRankRefresh queues a rank refresh for the rank worker.
func (s *LeaderboardService) SignalRankRefresh(ctx context.Context, userID int64) error {
	return s.rdb.RPush(ctx, config.WorkerKey.RankRefreshQueue, strconv.FormatInt(userID, 10)).Err()
}

// RefreshRanks reassigns every rank and rewrites the cached snapshot.
func (s *LeaderboardService) RefreshRanks(ctx context.Context) (int64, error) {
	changed, err := s.board.RecomputeRanks(ctx)
	if err != nil {
		return 0, fmt.Errorf("recompute ranks: %w", err)
	}

	if _, err := s.rebuildSnapshot(ctx); err != nil {
		return changed, err
	}

	s.log.Info().Int64("changed", changed).Msg("Leaderboard ranks refreshed")
	return changed, nil
}

// Snapshot returns the top limit rows by rank. The cached snapshot is served
// when present; otherwise it is rebuilt from the database.
func (s *LeaderboardService) Snapshot(ctx context.Context, limit int) (*model.LeaderboardSnapshot, error) {
	if limit < 1 {
		limit = s.cfg.LeaderboardSize
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}

	snap, err := s.cachedSnapshot(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Leaderboard cache read failed, falling back to db")
	}
	if snap == nil {
		// Self-heal: rebuild and cache for the next caller.
		if snap, err = s.rebuildSnapshot(ctx); err != nil {
			return nil, err
		}
	}

	if len(snap.Entries) > limit {
		snap.Entries = snap.Entries[:limit]
	}
	return snap, nil
}

func (s *LeaderboardService) cachedSnapshot(ctx context.Context) (*model.LeaderboardSnapshot, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.LeaderboardSnapshotKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap model.LeaderboardSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

func (s *LeaderboardService) rebuildSnapshot(ctx context.Context) (*model.LeaderboardSnapshot, error) {
	entries, err := s.board.Top(ctx, MaxLeaderboardLimit)
	if err != nil {
		return nil, fmt.Errorf("load top entries: %w", err)
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}

	snap := &model.LeaderboardSnapshot{Entries: entries, GeneratedAt: s.now().UTC()}
	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.LeaderboardSnapshotKey(), payload, 0).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to cache leaderboard snapshot")
	}
	return snap, nil
}
