package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/gateprep-backend/internal/config"
	"github.com/stemsi/gateprep-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMockTest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	subject := env.db.AddSubject("Computer Networks")
	topic := env.db.AddTopic(subject.ID, "TCP")

	req := model.CreateMockTestRequest{
		Title:     "  Networks Full Length  ",
		SubjectID: subject.ID,
		TopicIDs:  []int64{topic.ID},
	}

	_, err := env.tests.Create(ctx, student, req)
	assert.ErrorIs(t, err, ErrAuthorOnly)

	mt, err := env.tests.Create(ctx, professor, req)
	require.NoError(t, err)
	assert.NotZero(t, mt.ID)
	assert.Equal(t, "Networks Full Length", mt.Title)
	assert.Equal(t, model.DifficultyMedium, mt.Difficulty)
	assert.Equal(t, 180, mt.DurationMinutes)
	assert.Equal(t, 100, mt.TotalMarks)
	assert.True(t, mt.IsActive)

	staff := model.Identity{UserID: 3, Role: model.RoleStudent, IsStaff: true}
	inactive := false
	req.IsActive = &inactive
	mt2, err := env.tests.Create(ctx, staff, req)
	require.NoError(t, err)
	assert.False(t, mt2.IsActive)

	req.SubjectID = 9999
	_, err = env.tests.Create(ctx, professor, req)
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestAddQuestionEnforcesMarksBudget(t *testing.T) {
	env := newTestEnv(t)
	fx := env.seedTest(t, 5)
	ctx := context.Background()
	topicID := fx.test.TopicIDs[0]

	req := model.AddQuestionRequest{
		TopicID:       topicID,
		QuestionText:  "Worst case of quicksort?",
		QuestionType:  "mcq",
		Options:       map[string]string{"A": "n log n", "B": "n^2"},
		CorrectAnswer: "b",
		Marks:         3,
	}

	q, err := env.tests.AddQuestion(ctx, professor, fx.test.ID, req)
	require.NoError(t, err)
	assert.NotZero(t, q.ID)
	assert.Equal(t, model.DifficultyMedium, q.Difficulty)

	_, err = env.tests.AddQuestion(ctx, professor, fx.test.ID, req)
	require.ErrorIs(t, err, ErrMarksExceedTotal)
	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe.Fields, "marks")

	req.Marks = 2
	_, err = env.tests.AddQuestion(ctx, professor, fx.test.ID, req)
	require.NoError(t, err)
}

func TestAddQuestionValidatesShape(t *testing.T) {
	env := newTestEnv(t)
	fx := env.seedTest(t, 100)
	ctx := context.Background()
	topicID := fx.test.TopicIDs[0]

	tests := []struct {
		name string
		req  model.AddQuestionRequest
		want error
	}{
		{
			name: "mcq without options",
			req:  model.AddQuestionRequest{TopicID: topicID, QuestionText: "?", QuestionType: "mcq", CorrectAnswer: "A"},
			want: ErrInvalidQuestion,
		},
		{
			name: "mcq answer not an option",
			req: model.AddQuestionRequest{TopicID: topicID, QuestionText: "?", QuestionType: "mcq",
				Options: map[string]string{"A": "x", "B": "y"}, CorrectAnswer: "E"},
			want: ErrInvalidQuestion,
		},
		{
			name: "true_false with other answer",
			req:  model.AddQuestionRequest{TopicID: topicID, QuestionText: "?", QuestionType: "true_false", CorrectAnswer: "maybe"},
			want: ErrInvalidQuestion,
		},
		{
			name: "unknown topic",
			req:  model.AddQuestionRequest{TopicID: 4040, QuestionText: "?", QuestionType: "numerical", CorrectAnswer: "1"},
			want: ErrInvalidReference,
		},
		{
			name: "student caller",
			req:  model.AddQuestionRequest{TopicID: topicID, QuestionText: "?", QuestionType: "numerical", CorrectAnswer: "1"},
			want: ErrAuthorOnly,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := professor
			if tt.want == ErrAuthorOnly {
				caller = student
			}
			_, err := env.tests.AddQuestion(ctx, caller, fx.test.ID, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := env.tests.AddQuestion(ctx, professor, 777, model.AddQuestionRequest{
		TopicID: topicID, QuestionText: "?", QuestionType: "numerical", CorrectAnswer: "1",
	})
	assert.ErrorIs(t, err, ErrTestNotFound)
}

func TestAddQuestionInvalidatesPaper(t *testing.T) {
	env := newTestEnv(t)
	fx := env.seedTest(t, 10, questionDef{subject: "Algorithms", kind: model.QuestionTypeNumerical, correct: "1", marks: 1})
	ctx := context.Background()
	key := config.CacheKey.MockTestPaperKey(fx.test.ID)

	paper, err := env.tests.Paper(ctx, fx.test)
	require.NoError(t, err)
	require.Len(t, paper.Questions, 1)
	require.True(t, env.mr.Exists(key))

	// Second read comes from the cache.
	cached, err := env.tests.Paper(ctx, fx.test)
	require.NoError(t, err)
	assert.Equal(t, paper.Questions[0].ID, cached.Questions[0].ID)

	_, err = env.tests.AddQuestion(ctx, professor, fx.test.ID, model.AddQuestionRequest{
		TopicID: fx.test.TopicIDs[0], QuestionText: "2+2", QuestionType: "numerical", CorrectAnswer: "4", Marks: 2,
	})
	require.NoError(t, err)
	assert.False(t, env.mr.Exists(key))

	paper, err = env.tests.Paper(ctx, fx.test)
	require.NoError(t, err)
	assert.Len(t, paper.Questions, 2)
}

func TestListMockTests(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	algo := env.db.AddSubject("Algorithms")
	os := env.db.AddSubject("Operating Systems")

	create := func(title string, subjectID int64, d model.Difficulty, featured, active bool) {
		require.NoError(t, env.db.MockTests().Create(ctx, &model.MockTest{
			Title: title, SubjectID: subjectID, Difficulty: d, DurationMinutes: 60,
			TotalMarks: 10, IsFeatured: featured, IsActive: active,
		}))
	}
	create("plain", algo.ID, model.DifficultyEasy, false, true)
	create("featured", algo.ID, model.DifficultyHard, true, true)
	create("latest", os.ID, model.DifficultyEasy, false, true)
	create("hidden", os.ID, model.DifficultyEasy, true, false)

	tests, page, err := env.tests.List(ctx, model.MockTestFilter{})
	require.NoError(t, err)
	require.Len(t, tests, 3)
	assert.Equal(t, "featured", tests[0].Title)
	assert.Equal(t, "latest", tests[1].Title)
	assert.Equal(t, "plain", tests[2].Title)
	assert.Equal(t, 3, page.TotalItems)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, 10, page.PerPage)

	tests, _, err = env.tests.List(ctx, model.MockTestFilter{SubjectID: &algo.ID, Difficulty: model.DifficultyEasy})
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, "plain", tests[0].Title)
	assert.Equal(t, "Algorithms", tests[0].SubjectName)

	tests, page, err = env.tests.List(ctx, model.MockTestFilter{Page: 2, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, 2, page.TotalPages)

	tests, _, err = env.tests.List(ctx, model.MockTestFilter{Page: 9, PerPage: 2})
	require.NoError(t, err)
	assert.NotNil(t, tests)
	assert.Empty(t, tests)
}

func TestDetailShowsRecentAttempts(t *testing.T) {
	env := newTestEnv(t)
	fx := env.seedTest(t, 10, questionDef{subject: "Algorithms", kind: model.QuestionTypeNumerical, correct: "1", marks: 1})
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		a, _, err := env.attempts.StartOrResume(ctx, student, fx.test.ID)
		require.NoError(t, err)
		_, err = env.attempts.Submit(ctx, student, a.ID, nil)
		require.NoError(t, err)
		env.clock = env.clock.Add(time.Hour)
	}
	_, _, err := env.attempts.StartOrResume(ctx, student, fx.test.ID)
	require.NoError(t, err)

	detail, err := env.tests.Detail(ctx, student, fx.test.ID)
	require.NoError(t, err)
	assert.Equal(t, fx.test.ID, detail.ID)
	assert.Equal(t, 1, detail.QuestionCount)
	require.Len(t, detail.RecentAttempts, 5)
	for _, a := range detail.RecentAttempts {
		assert.True(t, a.IsCompleted)
	}
	assert.True(t, detail.RecentAttempts[0].StartedAt.After(detail.RecentAttempts[4].StartedAt))

	other, err := env.tests.Detail(ctx, otherUser, fx.test.ID)
	require.NoError(t, err)
	assert.Empty(t, other.RecentAttempts)

	_, err = env.tests.Detail(ctx, student, 31337)
	assert.ErrorIs(t, err, ErrTestNotFound)
}

func TestListSubjects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	empty, err := env.tests.ListSubjects(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	dbms := env.db.AddSubject("Databases")
	env.db.AddTopic(dbms.ID, "Transactions")
	env.db.AddTopic(dbms.ID, "Normalization")
	env.db.AddSubject("Algorithms")

	subjects, err := env.tests.ListSubjects(ctx)
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	assert.Equal(t, "Algorithms", subjects[0].Name)
	assert.Empty(t, subjects[0].Topics)
	require.Len(t, subjects[1].Topics, 2)
	assert.Equal(t, "Normalization", subjects[1].Topics[0].Name)
}

func TestMockTestServiceLogsComponent(t *testing.T) {
	env := newTestEnv(t)
	subject := env.db.AddSubject("Digital Logic")

	var buf bytes.Buffer
	svc := NewMockTestService(env.db.MockTests(), env.db.Questions(), env.db.Attempts(), env.db.Subjects(), env.rdb, env.cfg, zerolog.New(&buf))

	_, err := svc.Create(context.Background(), professor, model.CreateMockTestRequest{Title: "Gates", SubjectID: subject.ID})
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "mock_test_service", line["component"])
	assert.Equal(t, "Mock test created", line["message"])
}
