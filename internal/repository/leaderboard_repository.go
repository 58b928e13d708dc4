package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/gateprep-backend/internal/model"
)

// LeaderboardRepository handles leaderboard rows.
type LeaderboardRepository struct {
	pool *pgxpool.Pool
}

// NewLeaderboardRepository creates a new LeaderboardRepository.
func NewLeaderboardRepository(pool *pgxpool.Pool) *LeaderboardRepository {
	return &LeaderboardRepository{pool: pool}
}

// Upsert writes the score fields of a user's row. Rank is left as is.
func (r *LeaderboardRepository) Upsert(ctx context.Context, e *model.LeaderboardEntry) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO leaderboards (user_id, total_score, tests_completed, average_percentage)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE
		 SET total_score = EXCLUDED.total_score,
		     tests_completed = EXCLUDED.tests_completed,
		     average_percentage = EXCLUDED.average_percentage,
		     updated_at = NOW()
		 RETURNING id, rank, updated_at`,
		e.UserID, e.TotalScore, e.TestsCompleted, e.AveragePercentage,
	).Scan(&e.ID, &e.Rank, &e.UpdatedAt)
}

// GetByUser retrieves a user's row.
func (r *LeaderboardRepository) GetByUser(ctx context.Context, userID int64) (*model.LeaderboardEntry, error) {
	e := &model.LeaderboardEntry{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, total_score, tests_completed, average_percentage, rank, updated_at
		 FROM leaderboards WHERE user_id = $1`, userID,
	).Scan(&e.ID, &e.UserID, &e.TotalScore, &e.TestsCompleted, &e.AveragePercentage, &e.Rank, &e.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return e, nil
}

// Top returns the first limit rows by rank; unranked rows sort last.
func (r *LeaderboardRepository) Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, total_score, tests_completed, average_percentage, rank, updated_at
		 FROM leaderboards
		 ORDER BY (rank = 0), rank, total_score DESC, user_id
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.TotalScore, &e.TestsCompleted, &e.AveragePercentage, &e.Rank, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RecomputeRanks assigns competition ranks (1, 2, 2, 4) to every row by total
// score, then average percentage. Returns the number of rows whose rank changed.
func (r *LeaderboardRepository) RecomputeRanks(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE leaderboards AS l
		 SET rank = ranked.rnk
		 FROM (
			SELECT id, RANK() OVER (ORDER BY total_score DESC, average_percentage DESC) AS rnk
			FROM leaderboards
		 ) AS ranked
		 WHERE l.id = ranked.id
		   AND l.rank IS DISTINCT FROM ranked.rnk`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
