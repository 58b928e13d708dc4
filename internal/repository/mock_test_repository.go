package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/gateprep-backend/internal/model"
)

// MockTestRepository handles mock test data access.
type MockTestRepository struct {
	pool *pgxpool.Pool
}

// NewMockTestRepository creates a new MockTestRepository.
func NewMockTestRepository(pool *pgxpool.Pool) *MockTestRepository {
	return &MockTestRepository{pool: pool}
}

const mockTestColumns = `
	mt.id, mt.title, mt.description, mt.subject_id, s.name, mt.difficulty,
	mt.duration_minutes, mt.total_marks, mt.is_active, mt.is_featured,
	mt.created_at, mt.updated_at,
	COALESCE((SELECT array_agg(mtt.topic_id ORDER BY mtt.topic_id)
	          FROM mock_test_topics mtt WHERE mtt.mock_test_id = mt.id), '{}'::bigint[]),
	(SELECT COUNT(*) FROM questions q WHERE q.mock_test_id = mt.id)`

func scanMockTest(row pgx.Row, t *model.MockTest) error {
	return row.Scan(&t.ID, &t.Title, &t.Description, &t.SubjectID, &t.SubjectName, &t.Difficulty,
		&t.DurationMinutes, &t.TotalMarks, &t.IsActive, &t.IsFeatured,
		&t.CreatedAt, &t.UpdatedAt, &t.TopicIDs, &t.QuestionCount)
}

// GetByID retrieves a mock test regardless of its active flag.
func (r *MockTestRepository) GetByID(ctx context.Context, id int64) (*model.MockTest, error) {
	t := &model.MockTest{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+mockTestColumns+`
		 FROM mock_tests mt
		 JOIN subjects s ON s.id = mt.subject_id
		 WHERE mt.id = $1`, id)
	if err := scanMockTest(row, t); err != nil {
		return nil, mapErr(err)
	}
	return t, nil
}

// ListActive returns active tests matching the filter, newest first, with the total count.
func (r *MockTestRepository) ListActive(ctx context.Context, f model.MockTestFilter, limit, offset int) ([]model.MockTest, int, error) {
	where := ` FROM mock_tests mt JOIN subjects s ON s.id = mt.subject_id WHERE mt.is_active = TRUE`
	args := []any{}

	if f.SubjectID != nil {
		args = append(args, *f.SubjectID)
		where += fmt.Sprintf(" AND mt.subject_id = $%d", len(args))
	}
	if f.Difficulty != "" {
		args = append(args, f.Difficulty)
		where += fmt.Sprintf(" AND mt.difficulty = $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*)"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + mockTestColumns + where +
		fmt.Sprintf(" ORDER BY mt.is_featured DESC, mt.created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tests []model.MockTest
	for rows.Next() {
		var t model.MockTest
		if err := scanMockTest(rows, &t); err != nil {
			return nil, 0, err
		}
		tests = append(tests, t)
	}
	return tests, total, rows.Err()
}

// Create inserts a mock test together with its topic links.
func (r *MockTestRepository) Create(ctx context.Context, t *model.MockTest) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO mock_tests (title, description, subject_id, difficulty, duration_minutes,
			                         total_marks, is_active, is_featured)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id, created_at, updated_at`,
			t.Title, t.Description, t.SubjectID, t.Difficulty, t.DurationMinutes,
			t.TotalMarks, t.IsActive, t.IsFeatured,
		).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return err
		}

		if len(t.TopicIDs) == 0 {
			return nil
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO mock_test_topics (mock_test_id, topic_id)
			 SELECT $1, unnest($2::bigint[])
			 ON CONFLICT DO NOTHING`, t.ID, t.TopicIDs)
		return err
	})
	return mapErr(err)
}
