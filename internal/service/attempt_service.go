package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/gateprep-backend/internal/config"
	"github.com/stemsi/gateprep-backend/internal/logger"
	"github.com/stemsi/gateprep-backend/internal/model"
	"github.com/stemsi/gateprep-backend/internal/repository"
)

const postCommitTimeout = 10 * time.Second

// AttemptService runs the attempt lifecycle: start or resume, take, draft,
// submit and results.
type AttemptService struct {
	attempts    AttemptStore
	questions   QuestionStore
	submissions SubmissionStore
	answers     AnswerStore
	tests       *MockTestService
	leaderboard *LeaderboardService
	rdb         *redis.Client
	cfg         *config.Config
	log         zerolog.Logger
	now         func() time.Time
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attempts AttemptStore,
	questions QuestionStore,
	submissions SubmissionStore,
	answers AnswerStore,
	tests *MockTestService,
	leaderboard *LeaderboardService,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attempts:    attempts,
		questions:   questions,
		submissions: submissions,
		answers:     answers,
		tests:       tests,
		leaderboard: leaderboard,
		rdb:         rdb,
		cfg:         cfg,
		log:         logger.Component(log, "attempt_service"),
		now:         time.Now,
	}
}

// StartOrResume returns the caller's in-progress attempt on a test, creating
// one if none exists. resumed is true when an existing attempt was returned.
func (s *AttemptService) StartOrResume(ctx context.Context, id model.Identity, testID int64) (*model.TestAttempt, bool, error) {
	if !id.IsStudent() {
		return nil, false, ErrStudentOnly
	}
	if _, err := s.tests.Active(ctx, testID); err != nil {
		return nil, false, err
	}

	existing, err := s.attempts.GetInProgress(ctx, id.UserID, testID)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("check in-progress attempt: %w", err)
	}

	attempt := &model.TestAttempt{
		UserID:     id.UserID,
		MockTestID: testID,
		StartedAt:  s.now().UTC(),
	}
	if err := s.attempts.CreateInProgress(ctx, attempt); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Concurrent start: the other request's attempt wins.
			winner, fetchErr := s.attempts.GetInProgress(ctx, id.UserID, testID)
			if fetchErr != nil {
				return nil, false, fmt.Errorf("concurrent start detected, but fetch failed: %w", fetchErr)
			}
			return winner, true, nil
		}
		if errors.Is(err, repository.ErrInvalidReference) {
			return nil, false, ErrTestNotFound
		}
		return nil, false, fmt.Errorf("create attempt: %w", err)
	}

	s.log.Info().Int64("attempt_id", attempt.ID).Int64("user_id", id.UserID).Int64("test_id", testID).Msg("Attempt started")
	return attempt, false, nil
}

// ownedAttempt loads an attempt and checks the caller owns it.
func (s *AttemptService) ownedAttempt(ctx context.Context, id model.Identity, attemptID int64) (*model.TestAttempt, error) {
	a, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if a.UserID != id.UserID {
		return nil, ErrNotAttemptOwner
	}
	return a, nil
}

// openAttempt is ownedAttempt restricted to students and in-progress attempts.
func (s *AttemptService) openAttempt(ctx context.Context, id model.Identity, attemptID int64) (*model.TestAttempt, error) {
	if !id.IsStudent() {
		return nil, ErrStudentOnly
	}
	a, err := s.ownedAttempt(ctx, id, attemptID)
	if err != nil {
		return nil, err
	}
	if a.IsCompleted {
		return nil, ErrAttemptCompleted
	}
	return a, nil
}

// VerifyOpen checks that the caller may still write to an attempt.
func (s *AttemptService) VerifyOpen(ctx context.Context, id model.Identity, attemptID int64) error {
	_, err := s.openAttempt(ctx, id, attemptID)
	return err
}

// TakeTest returns the paper for an in-progress attempt together with any
// saved draft answers.
func (s *AttemptService) TakeTest(ctx context.Context, id model.Identity, attemptID int64) (*model.TakeTestResponse, error) {
	a, err := s.openAttempt(ctx, id, attemptID)
	if err != nil {
		return nil, err
	}
	t, err := s.tests.Get(ctx, a.MockTestID)
	if err != nil {
		return nil, err
	}
	paper, err := s.tests.Paper(ctx, t)
	if err != nil {
		return nil, err
	}

	draft, err := s.rdb.HGetAll(ctx, config.CacheKey.AttemptDraftKey(a.ID)).Result()
	if err != nil {
		s.log.Warn().Err(err).Int64("attempt_id", a.ID).Msg("Failed to load draft answers")
		draft = map[string]string{}
	}

	return &model.TakeTestResponse{Attempt: *a, Paper: *paper, DraftAnswers: draft}, nil
}

// SaveDraft stores ungraded answers for an in-progress attempt. Only keys
// present in answers are overwritten.
func (s *AttemptService) SaveDraft(ctx context.Context, id model.Identity, attemptID int64, answers map[string]string) error {
	a, err := s.openAttempt(ctx, id, attemptID)
	if err != nil {
		return err
	}
	if len(answers) == 0 {
		return nil
	}

	questions, err := s.questions.ListByTest(ctx, a.MockTestID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	parsed, bad := ParseAnswerKeys(answers, questionIDs(questions))
	if bad != nil {
		return &FieldError{Err: ErrInvalidAnswers, Fields: bad}
	}

	values := make(map[string]interface{}, len(parsed))
	for qid, ans := range parsed {
		values[strconv.FormatInt(qid, 10)] = ans
	}

	key := config.CacheKey.AttemptDraftKey(a.ID)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, values)
		pipe.Expire(ctx, key, s.cfg.DraftTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Submit grades an in-progress attempt and completes it. Answers missing from
// the payload fall back to the saved draft. The attempt, its answers and the
// user's counter are written atomically; the leaderboard row is recomputed
// after commit.
func (s *AttemptService) Submit(ctx context.Context, id model.Identity, attemptID int64, answers map[string]string) (*model.SubmissionResult, error) {
	a, err := s.openAttempt(ctx, id, attemptID)
	if err != nil {
		return nil, err
	}
	t, err := s.tests.Get(ctx, a.MockTestID)
	if err != nil {
		return nil, err
	}
	questions, err := s.questions.ListByTest(ctx, a.MockTestID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	valid := questionIDs(questions)
	parsed, bad := ParseAnswerKeys(answers, valid)
	if bad != nil {
		return nil, &FieldError{Err: ErrInvalidAnswers, Fields: bad}
	}
	s.mergeDraft(ctx, a.ID, parsed, valid)

	graded := GradeSubmission(questions, parsed, t.TotalMarks)
	completedAt := s.now().UTC()

	sub := &model.GradedSubmission{
		Attempt: *a,
		Answers: graded.Answers,
	}
	sub.Attempt.CompletedAt = &completedAt
	sub.Attempt.TotalScore = graded.TotalScore
	sub.Attempt.Percentage = graded.Percentage
	sub.Attempt.TimeTakenMinutes = ElapsedMinutes(a.StartedAt, completedAt)
	sub.Attempt.IsCompleted = true

	if err := s.submissions.SaveGraded(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrAttemptNotOpen) {
			return nil, ErrAttemptCompleted
		}
		return nil, fmt.Errorf("save submission: %w", err)
	}

	// The submission is committed. Follow-up writes must not be cut short by
	// the caller going away.
	postCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), postCommitTimeout)
	defer cancel()

	if err := s.rdb.Del(postCtx, config.CacheKey.AttemptDraftKey(a.ID)).Err(); err != nil {
		s.log.Warn().Err(err).Int64("attempt_id", a.ID).Msg("Failed to clear draft answers")
	}

	// Leaderboard failures are repaired by the next recompute for this user.
	if err := s.leaderboard.Recompute(postCtx, id.UserID); err != nil {
		s.log.Error().Err(err).Int64("user_id", id.UserID).Msg("Leaderboard recompute failed")
	} else if err := s.leaderboard.SignalRankRefresh(postCtx, id.UserID); err != nil {
		s.log.Warn().Err(err).Int64("user_id", id.UserID).Msg("Failed to signal rank refresh")
	}

	s.log.Info().
		Int64("attempt_id", a.ID).
		Int64("user_id", id.UserID).
		Float64("score", sub.Attempt.TotalScore).
		Int("correct", graded.CorrectCount).
		Msg("Attempt submitted")

	return &model.SubmissionResult{
		Attempt:      sub.Attempt,
		CorrectCount: graded.CorrectCount,
		ResultURL:    fmt.Sprintf("/api/v1/attempts/%d/results", a.ID),
	}, nil
}

func (s *AttemptService) mergeDraft(ctx context.Context, attemptID int64, parsed map[int64]string, valid map[int64]struct{}) {
	draft, err := s.rdb.HGetAll(ctx, config.CacheKey.AttemptDraftKey(attemptID)).Result()
	if err != nil {
		s.log.Warn().Err(err).Int64("attempt_id", attemptID).Msg("Failed to load draft answers, grading payload only")
		return
	}
	fromDraft, _ := ParseAnswerKeys(draft, valid)
	for qid, ans := range fromDraft {
		if _, ok := parsed[qid]; !ok {
			parsed[qid] = ans
		}
	}
}

// Results returns the score breakdown of a completed attempt owned by the caller.
func (s *AttemptService) Results(ctx context.Context, id model.Identity, attemptID int64) (*model.AttemptResult, error) {
	a, err := s.ownedAttempt(ctx, id, attemptID)
	if err != nil {
		return nil, err
	}
	if !a.IsCompleted {
		return nil, ErrAttemptInProgress
	}
	t, err := s.tests.Get(ctx, a.MockTestID)
	if err != nil {
		return nil, err
	}

	reviews, err := s.answers.ListReviewByAttempt(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	if reviews == nil {
		reviews = []model.AnswerReview{}
	}

	correct := 0
	for _, r := range reviews {
		if r.IsCorrect {
			correct++
		}
	}

	return &model.AttemptResult{
		Attempt:            *a,
		TestTitle:          t.Title,
		TotalMarks:         t.TotalMarks,
		CorrectCount:       correct,
		TotalQuestions:     len(reviews),
		Answers:            reviews,
		SubjectPerformance: SubjectBreakdown(reviews),
	}, nil
}

func questionIDs(questions []model.Question) map[int64]struct{} {
	ids := make(map[int64]struct{}, len(questions))
	for _, q := range questions {
		ids[q.ID] = struct{}{}
	}
	return ids
}
