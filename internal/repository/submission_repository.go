package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/gateprep-backend/internal/model"
)

// SubmissionRepository persists graded submissions.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// SaveGraded completes the attempt, upserts every answer and bumps the user's
// tests-taken counter in one transaction. The attempt update is a
// compare-and-swap on is_completed; losing it returns ErrAttemptNotOpen and
// nothing is written.
func (r *SubmissionRepository) SaveGraded(ctx context.Context, sub *model.GradedSubmission) error {
	a := &sub.Attempt

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE test_attempts
			 SET completed_at = $2,
			     total_score = $3,
			     percentage = $4,
			     time_taken_minutes = $5,
			     is_completed = TRUE
			 WHERE id = $1 AND NOT is_completed`,
			a.ID, a.CompletedAt, a.TotalScore, a.Percentage, a.TimeTakenMinutes)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrAttemptNotOpen
		}

		batch := &pgx.Batch{}
		for i := range sub.Answers {
			ans := &sub.Answers[i]
			batch.Queue(
				`INSERT INTO answers (test_attempt_id, question_id, user_answer, is_correct, marks_obtained)
				 VALUES ($1, $2, $3, $4, $5)
				 ON CONFLICT (test_attempt_id, question_id) DO UPDATE
				 SET user_answer = EXCLUDED.user_answer,
				     is_correct = EXCLUDED.is_correct,
				     marks_obtained = EXCLUDED.marks_obtained
				 RETURNING id`,
				a.ID, ans.QuestionID, ans.UserAnswer, ans.IsCorrect, ans.MarksObtained,
			).QueryRow(func(row pgx.Row) error {
				return row.Scan(&ans.ID)
			})
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return mapErr(err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO user_profiles (user_id, total_tests_taken)
			 VALUES ($1, 1)
			 ON CONFLICT (user_id) DO UPDATE
			 SET total_tests_taken = user_profiles.total_tests_taken + 1,
			     updated_at = NOW()`, a.UserID)
		return err
	})
}
