package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/gateprep-backend/internal/model"
)

// AnswerRepository reads graded answers.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// ListReviewByAttempt returns each graded answer joined with its question and subject.
func (r *AnswerRepository) ListReviewByAttempt(ctx context.Context, attemptID int64) ([]model.AnswerReview, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.question_id, q.question_text, q.question_type, s.name,
		        a.user_answer, q.correct_answer, q.explanation,
		        a.is_correct, a.marks_obtained, q.marks
		 FROM answers a
		 JOIN questions q ON q.id = a.question_id
		 JOIN topics t ON t.id = q.topic_id
		 JOIN subjects s ON s.id = t.subject_id
		 WHERE a.test_attempt_id = $1
		 ORDER BY q.id`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []model.AnswerReview
	for rows.Next() {
		var v model.AnswerReview
		if err := rows.Scan(&v.QuestionID, &v.QuestionText, &v.QuestionType, &v.SubjectName,
			&v.UserAnswer, &v.CorrectAnswer, &v.Explanation,
			&v.IsCorrect, &v.MarksObtained, &v.Marks); err != nil {
			return nil, err
		}
		reviews = append(reviews, v)
	}
	return reviews, rows.Err()
}
