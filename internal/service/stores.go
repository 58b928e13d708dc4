package service

import (
	"context"

	"github.com/stemsi/gateprep-backend/internal/model"
)

// The service layer depends on these store contracts. The Postgres
// implementations live in internal/repository, the in-memory ones in
// internal/repository/memory.

type MockTestStore interface {
	GetByID(ctx context.Context, id int64) (*model.MockTest, error)
	ListActive(ctx context.Context, f model.MockTestFilter, limit, offset int) ([]model.MockTest, int, error)
	Create(ctx context.Context, t *model.MockTest) error
}

type QuestionStore interface {
	ListByTest(ctx context.Context, testID int64) ([]model.Question, error)
	CreateWithinBudget(ctx context.Context, q *model.Question) error
}

type AttemptStore interface {
	GetByID(ctx context.Context, id int64) (*model.TestAttempt, error)
	GetInProgress(ctx context.Context, userID, testID int64) (*model.TestAttempt, error)
	CreateInProgress(ctx context.Context, a *model.TestAttempt) error
	ListCompletedByUser(ctx context.Context, userID int64) ([]model.TestAttempt, error)
	ListRecentCompleted(ctx context.Context, userID, testID int64, limit int) ([]model.TestAttempt, error)
}

type SubmissionStore interface {
	SaveGraded(ctx context.Context, sub *model.GradedSubmission) error
}

type AnswerStore interface {
	ListReviewByAttempt(ctx context.Context, attemptID int64) ([]model.AnswerReview, error)
}

type LeaderboardStore interface {
	Upsert(ctx context.Context, e *model.LeaderboardEntry) error
	GetByUser(ctx context.Context, userID int64) (*model.LeaderboardEntry, error)
	Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
	RecomputeRanks(ctx context.Context) (int64, error)
}

type SubjectStore interface {
	ListWithTopics(ctx context.Context) ([]model.Subject, error)
}
