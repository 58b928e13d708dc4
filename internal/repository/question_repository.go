package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/gateprep-backend/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByTest retrieves all questions of a mock test in creation order.
func (r *QuestionRepository) ListByTest(ctx context.Context, testID int64) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, mock_test_id, topic_id, question_text, question_type, options,
		        correct_answer, explanation, marks, difficulty, created_at
		 FROM questions WHERE mock_test_id = $1
		 ORDER BY id`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.MockTestID, &q.TopicID, &q.QuestionText, &q.QuestionType, &q.Options,
			&q.CorrectAnswer, &q.Explanation, &q.Marks, &q.Difficulty, &q.CreatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// CreateWithinBudget inserts a question unless the test's question marks
// would exceed its total_marks. The test row is locked for the duration so
// concurrent inserts cannot both pass the check.
func (r *QuestionRepository) CreateWithinBudget(ctx context.Context, q *model.Question) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var totalMarks, used int
		if err := tx.QueryRow(ctx,
			`SELECT total_marks FROM mock_tests WHERE id = $1 FOR UPDATE`, q.MockTestID,
		).Scan(&totalMarks); err != nil {
			return err
		}
		if err := tx.QueryRow(ctx,
			`SELECT COALESCE(SUM(marks), 0) FROM questions WHERE mock_test_id = $1`, q.MockTestID,
		).Scan(&used); err != nil {
			return err
		}
		if used+q.Marks > totalMarks {
			return ErrMarksBudget
		}

		return tx.QueryRow(ctx,
			`INSERT INTO questions (mock_test_id, topic_id, question_text, question_type, options,
			                        correct_answer, explanation, marks, difficulty)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING id, created_at`,
			q.MockTestID, q.TopicID, q.QuestionText, q.QuestionType, q.Options,
			q.CorrectAnswer, q.Explanation, q.Marks, q.Difficulty,
		).Scan(&q.ID, &q.CreatedAt)
	})
	return mapErr(err)
}
