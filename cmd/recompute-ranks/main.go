package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/stemsi/gateprep-backend/internal/config"
	"github.com/stemsi/gateprep-backend/internal/database"
	"github.com/stemsi/gateprep-backend/internal/logger"
	"github.com/stemsi/gateprep-backend/internal/repository"
	"github.com/stemsi/gateprep-backend/internal/service"
)

// recompute-ranks rebuilds leaderboard rows and ranks in one shot. With
// -all it first recomputes the aggregate of every user with a completed
// attempt, which repairs rows left stale by a failed post-submit recompute.
func main() {
	var all bool
	flag.BoolVar(&all, "all", false, "Recompute every user's aggregate before ranking")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Service ────────────────────────────────────────────
	attemptRepo := repository.NewAttemptRepository(pool)
	leaderboardRepo := repository.NewLeaderboardRepository(pool)
	leaderboardService := service.NewLeaderboardService(attemptRepo, leaderboardRepo, rdb, cfg, log)

	fmt.Println("=== Recompute Leaderboard ===")

	if all {
		rows, err := pool.Query(ctx, "SELECT DISTINCT user_id FROM test_attempts WHERE is_completed ORDER BY user_id")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to query users")
		}
		var userIDs []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				log.Fatal().Err(err).Msg("Failed to scan user id")
			}
			userIDs = append(userIDs, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			log.Fatal().Err(err).Msg("Failed to read users")
		}

		failed := 0
		for _, id := range userIDs {
			if err := leaderboardService.Recompute(ctx, id); err != nil {
				log.Error().Err(err).Int64("user_id", id).Msg("Recompute failed")
				failed++
			}
		}
		fmt.Printf("Recomputed %d user(s), %d failed\n", len(userIDs)-failed, failed)
	}

	changed, err := leaderboardService.RefreshRanks(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to refresh ranks")
	}

	fmt.Printf("Ranks refreshed: %d row(s) changed\n", changed)
}
