package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/gateprep-backend/internal/model"
)

// AttemptRepository handles test attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `id, user_id, mock_test_id, started_at, completed_at,
	total_score, percentage, time_taken_minutes, is_completed`

func scanAttempt(row pgx.Row, a *model.TestAttempt) error {
	return row.Scan(&a.ID, &a.UserID, &a.MockTestID, &a.StartedAt, &a.CompletedAt,
		&a.TotalScore, &a.Percentage, &a.TimeTakenMinutes, &a.IsCompleted)
}

// GetByID retrieves an attempt by id.
func (r *AttemptRepository) GetByID(ctx context.Context, id int64) (*model.TestAttempt, error) {
	a := &model.TestAttempt{}
	row := r.pool.QueryRow(ctx, `SELECT `+attemptColumns+` FROM test_attempts WHERE id = $1`, id)
	if err := scanAttempt(row, a); err != nil {
		return nil, mapErr(err)
	}
	return a, nil
}

// GetInProgress retrieves the open attempt for a user-test pair, if any.
func (r *AttemptRepository) GetInProgress(ctx context.Context, userID, testID int64) (*model.TestAttempt, error) {
	a := &model.TestAttempt{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+`
		 FROM test_attempts
		 WHERE user_id = $1 AND mock_test_id = $2 AND NOT is_completed
		 ORDER BY started_at DESC
		 LIMIT 1`, userID, testID)
	if err := scanAttempt(row, a); err != nil {
		return nil, mapErr(err)
	}
	return a, nil
}

// CreateInProgress inserts a new open attempt. The partial unique index on
// (user_id, mock_test_id) WHERE NOT is_completed makes this a conditional
// write: if another open attempt exists, ErrDuplicate is returned.
func (r *AttemptRepository) CreateInProgress(ctx context.Context, a *model.TestAttempt) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO test_attempts (user_id, mock_test_id, started_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, mock_test_id) WHERE NOT is_completed DO NOTHING
		 RETURNING id, started_at`,
		a.UserID, a.MockTestID, a.StartedAt,
	).Scan(&a.ID, &a.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicate
	}
	return mapErr(err)
}

// ListCompletedByUser returns every completed attempt of a user.
func (r *AttemptRepository) ListCompletedByUser(ctx context.Context, userID int64) ([]model.TestAttempt, error) {
	return r.list(ctx,
		`SELECT `+attemptColumns+`
		 FROM test_attempts
		 WHERE user_id = $1 AND is_completed
		 ORDER BY completed_at DESC`, userID)
}

// ListRecentCompleted returns up to limit completed attempts of a user on one test.
func (r *AttemptRepository) ListRecentCompleted(ctx context.Context, userID, testID int64, limit int) ([]model.TestAttempt, error) {
	return r.list(ctx,
		`SELECT `+attemptColumns+`
		 FROM test_attempts
		 WHERE user_id = $1 AND mock_test_id = $2 AND is_completed
		 ORDER BY started_at DESC
		 LIMIT $3`, userID, testID, limit)
}

func (r *AttemptRepository) list(ctx context.Context, query string, args ...any) ([]model.TestAttempt, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.TestAttempt
	for rows.Next() {
		var a model.TestAttempt
		if err := scanAttempt(rows, &a); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
