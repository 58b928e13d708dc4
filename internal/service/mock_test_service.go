package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/gateprep-backend/internal/config"
	"github.com/stemsi/gateprep-backend/internal/logger"
	"github.com/stemsi/gateprep-backend/internal/model"
	"github.com/stemsi/gateprep-backend/internal/repository"
	"github.com/stemsi/gateprep-backend/internal/response"
	"golang.org/x/sync/singleflight"
)

const recentAttemptsLimit = 5

// MockTestService handles the test catalogue, question authoring and the
// cached student paper.
type MockTestService struct {
	tests     MockTestStore
	questions QuestionStore
	attempts  AttemptStore
	subjects  SubjectStore
	rdb       *redis.Client
	cfg       *config.Config
	log       zerolog.Logger

	paperGroup singleflight.Group
}

// NewMockTestService creates a new MockTestService.
func NewMockTestService(
	tests MockTestStore,
	questions QuestionStore,
	attempts AttemptStore,
	subjects SubjectStore,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *MockTestService {
	return &MockTestService{
		tests:     tests,
		questions: questions,
		attempts:  attempts,
		subjects:  subjects,
		rdb:       rdb,
		cfg:       cfg,
		log:       logger.Component(log, "mock_test_service"),
	}
}

// List returns active tests matching the filter.
func (s *MockTestService) List(ctx context.Context, f model.MockTestFilter) ([]model.MockTest, *response.Pagination, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 10
	}
	if f.PerPage > 100 {
		f.PerPage = 100
	}

	limit := f.PerPage
	offset := (f.Page - 1) * f.PerPage

	tests, total, err := s.tests.ListActive(ctx, f, limit, offset)
	if err != nil {
		return nil, nil, fmt.Errorf("list tests: %w", err)
	}
	if tests == nil {
		tests = []model.MockTest{}
	}

	return tests, response.NewPagination(f.Page, f.PerPage, total), nil
}

// Get returns a test whether or not it is active.
func (s *MockTestService) Get(ctx context.Context, testID int64) (*model.MockTest, error) {
	t, err := s.tests.GetByID(ctx, testID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("get test: %w", err)
	}
	return t, nil
}

// Active returns the test if it exists and is open for attempts.
func (s *MockTestService) Active(ctx context.Context, testID int64) (*model.MockTest, error) {
	t, err := s.Get(ctx, testID)
	if err != nil {
		return nil, err
	}
	if !t.IsActive {
		return nil, ErrTestNotFound
	}
	return t, nil
}

// Detail returns an active test with the caller's most recent completed attempts on it.
func (s *MockTestService) Detail(ctx context.Context, id model.Identity, testID int64) (*model.MockTestDetail, error) {
	t, err := s.Active(ctx, testID)
	if err != nil {
		return nil, err
	}

	recent, err := s.attempts.ListRecentCompleted(ctx, id.UserID, testID, recentAttemptsLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent attempts: %w", err)
	}
	if recent == nil {
		recent = []model.TestAttempt{}
	}

	return &model.MockTestDetail{MockTest: *t, RecentAttempts: recent}, nil
}

// Create inserts a new mock test.
func (s *MockTestService) Create(ctx context.Context, id model.Identity, req model.CreateMockTestRequest) (*model.MockTest, error) {
	if !id.CanAuthorTests() {
		return nil, ErrAuthorOnly
	}

	t := &model.MockTest{
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		SubjectID:       req.SubjectID,
		TopicIDs:        req.TopicIDs,
		Difficulty:      model.Difficulty(req.Difficulty),
		DurationMinutes: req.DurationMinutes,
		TotalMarks:      req.TotalMarks,
		IsActive:        true,
		IsFeatured:      req.IsFeatured,
	}
	if t.Difficulty == "" {
		t.Difficulty = model.DifficultyMedium
	}
	if t.DurationMinutes == 0 {
		t.DurationMinutes = 180
	}
	if t.TotalMarks == 0 {
		t.TotalMarks = 100
	}
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}
	if t.TopicIDs == nil {
		t.TopicIDs = []int64{}
	}

	if err := s.tests.Create(ctx, t); err != nil {
		if errors.Is(err, repository.ErrInvalidReference) {
			return nil, ErrInvalidReference
		}
		return nil, fmt.Errorf("create test: %w", err)
	}

	s.log.Info().Int64("test_id", t.ID).Int64("author_id", id.UserID).Msg("Mock test created")
	return t, nil
}

// AddQuestion appends a question to a test. The running sum of question marks
// may not exceed the test's total marks.
func (s *MockTestService) AddQuestion(ctx context.Context, id model.Identity, testID int64, req model.AddQuestionRequest) (*model.Question, error) {
	if !id.CanAuthorTests() {
		return nil, ErrAuthorOnly
	}

	q := &model.Question{
		MockTestID:    testID,
		TopicID:       req.TopicID,
		QuestionText:  req.QuestionText,
		QuestionType:  model.QuestionType(req.QuestionType),
		CorrectAnswer: strings.TrimSpace(req.CorrectAnswer),
		Explanation:   req.Explanation,
		Marks:         req.Marks,
		Difficulty:    model.Difficulty(req.Difficulty),
	}
	if q.Marks == 0 {
		q.Marks = 1
	}
	if q.Difficulty == "" {
		q.Difficulty = model.DifficultyMedium
	}
	if err := checkQuestionShape(q, req.Options); err != nil {
		return nil, err
	}

	if err := s.questions.CreateWithinBudget(ctx, q); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrTestNotFound
		case errors.Is(err, repository.ErrMarksBudget):
			return nil, fieldError(ErrMarksExceedTotal, "marks", "exceeds the test's remaining marks")
		case errors.Is(err, repository.ErrInvalidReference):
			return nil, fieldError(ErrInvalidReference, "topic_id", "topic does not exist")
		}
		return nil, fmt.Errorf("create question: %w", err)
	}

	if err := s.InvalidatePaper(ctx, testID); err != nil {
		s.log.Warn().Err(err).Int64("test_id", testID).Msg("Failed to invalidate paper cache")
	}
	return q, nil
}

// checkQuestionShape validates type-specific fields and normalizes options.
func checkQuestionShape(q *model.Question, options map[string]string) error {
	switch q.QuestionType {
	case model.QuestionTypeMCQ:
		if len(options) < 2 {
			return fieldError(ErrInvalidQuestion, "options", "mcq questions need at least two options")
		}
		q.Options = make(map[string]string, len(options))
		found := false
		for label, text := range options {
			label = strings.TrimSpace(label)
			q.Options[label] = text
			if IsCorrect(q.CorrectAnswer, label) {
				found = true
			}
		}
		if !found {
			return fieldError(ErrInvalidQuestion, "correct_answer", "must be one of the option labels")
		}
	case model.QuestionTypeTrueFalse:
		n := NormalizeAnswer(q.CorrectAnswer)
		if n != "true" && n != "false" {
			return fieldError(ErrInvalidQuestion, "correct_answer", "must be true or false")
		}
	case model.QuestionTypeNumerical:
		if q.CorrectAnswer == "" {
			return fieldError(ErrInvalidQuestion, "correct_answer", "must not be blank")
		}
	default:
		return fieldError(ErrInvalidQuestion, "question_type", "unknown question type")
	}
	return nil
}

// ListSubjects returns every subject with its topics.
func (s *MockTestService) ListSubjects(ctx context.Context) ([]model.Subject, error) {
	subjects, err := s.subjects.ListWithTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	if subjects == nil {
		subjects = []model.Subject{}
	}
	return subjects, nil
}

// Paper returns the student-facing paper of a test, served from Redis when
// cached. Concurrent misses for the same test share one database load.
func (s *MockTestService) Paper(ctx context.Context, t *model.MockTest) (*model.TestPaper, error) {
	key := config.CacheKey.MockTestPaperKey(t.ID)

	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var paper model.TestPaper
		if err := json.Unmarshal(data, &paper); err == nil {
			return &paper, nil
		}
		s.log.Warn().Int64("test_id", t.ID).Msg("Corrupt paper cache entry, rebuilding")
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Int64("test_id", t.ID).Msg("Paper cache read failed, falling back to db")
	}

	v, err, _ := s.paperGroup.Do(key, func() (interface{}, error) {
		return s.warmPaper(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.TestPaper), nil
}

func (s *MockTestService) warmPaper(ctx context.Context, t *model.MockTest) (*model.TestPaper, error) {
	questions, err := s.questions.ListByTest(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	paper := &model.TestPaper{
		MockTestID:      t.ID,
		Title:           t.Title,
		DurationMinutes: t.DurationMinutes,
		TotalMarks:      t.TotalMarks,
		Questions:       make([]model.QuestionForStudent, len(questions)),
	}
	for i, q := range questions {
		paper.Questions[i] = model.QuestionForStudent{
			ID:           q.ID,
			TopicID:      q.TopicID,
			QuestionText: q.QuestionText,
			QuestionType: q.QuestionType,
			Options:      q.Options,
			Marks:        q.Marks,
		}
	}

	payload, err := json.Marshal(paper)
	if err != nil {
		return nil, fmt.Errorf("marshal paper: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.MockTestPaperKey(t.ID), payload, s.cfg.PaperCacheTTL).Err(); err != nil {
		s.log.Warn().Err(err).Int64("test_id", t.ID).Msg("Failed to cache paper")
	}

	s.log.Debug().Int64("test_id", t.ID).Int("questions", len(questions)).Msg("Paper cache warmed")
	return paper, nil
}

// InvalidatePaper drops the cached paper of a test.
func (s *MockTestService) InvalidatePaper(ctx context.Context, testID int64) error {
	return s.rdb.Del(ctx, config.CacheKey.MockTestPaperKey(testID)).Err()
}
