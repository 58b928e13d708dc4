package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/gateprep-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type analyticsFixture struct {
	env       *testEnv
	analytics *AnalyticsService
	algo      fixture
	dbms      fixture
}

func newAnalyticsFixture(t *testing.T) analyticsFixture {
	t.Helper()
	env := newTestEnv(t)
	f := analyticsFixture{
		env:  env,
		algo: env.seedTest(t, 10, questionDef{subject: "Algorithms", kind: model.QuestionTypeNumerical, correct: "1", marks: 10}),
		dbms: env.seedTest(t, 10, questionDef{subject: "Databases", kind: model.QuestionTypeNumerical, correct: "1", marks: 10}),
	}
	f.analytics = NewAnalyticsService(env.db.Attempts(), env.db.MockTests(), zerolog.Nop())
	f.analytics.now = func() time.Time { return env.clock }
	return f
}

// complete stores a finished attempt daysAgo days and hour hours into that day.
func (f analyticsFixture) complete(id, userID, testID int64, daysAgo, hour int, pct float64) {
	day := f.env.clock.Truncate(24*time.Hour).AddDate(0, 0, -daysAgo)
	done := day.Add(time.Duration(hour) * time.Hour)
	f.env.db.SetAttempt(model.TestAttempt{
		ID:          id,
		UserID:      userID,
		MockTestID:  testID,
		StartedAt:   done.Add(-time.Hour),
		CompletedAt: &done,
		TotalScore:  pct / 10,
		Percentage:  pct,
		IsCompleted: true,
	})
}

func (f analyticsFixture) seedHistory() {
	f.complete(1001, student.UserID, f.algo.test.ID, 2, 10, 80)
	f.complete(1002, student.UserID, f.dbms.test.ID, 1, 10, 40)
	f.complete(1003, student.UserID, f.dbms.test.ID, 0, 3, 50)
	f.complete(1004, student.UserID, f.algo.test.ID, 0, 5, 100)
	f.complete(1005, otherUser.UserID, f.dbms.test.ID, 0, 4, 10)
	f.env.db.SetAttempt(model.TestAttempt{ID: 1006, UserID: student.UserID, MockTestID: f.dbms.test.ID, StartedAt: f.env.clock})
}

func TestPerformance(t *testing.T) {
	f := newAnalyticsFixture(t)
	f.seedHistory()

	report, err := f.analytics.Performance(context.Background(), student)
	require.NoError(t, err)

	require.Len(t, report.History, 4)
	var ids []int64
	for _, p := range report.History {
		ids = append(ids, p.AttemptID)
	}
	assert.Equal(t, []int64{1001, 1002, 1003, 1004}, ids)
	assert.Equal(t, "2026-02-27", report.History[0].Date)
	assert.Equal(t, "2026-03-01", report.History[3].Date)
	assert.Equal(t, 100.0, report.History[3].Percentage)

	require.Len(t, report.Subjects, 2)
	assert.Equal(t, "Algorithms", report.Subjects[0].Name)
	assert.Equal(t, 90.0, report.Subjects[0].Average)
	assert.Equal(t, 2, report.Subjects[0].Attempts)
	assert.Equal(t, "Databases", report.Subjects[1].Name)
	assert.Equal(t, 45.0, report.Subjects[1].Average)
}

func TestPerformanceWithoutAttempts(t *testing.T) {
	f := newAnalyticsFixture(t)

	report, err := f.analytics.Performance(context.Background(), student)
	require.NoError(t, err)
	assert.Empty(t, report.History)
	assert.Empty(t, report.Subjects)
}

func TestActivity(t *testing.T) {
	f := newAnalyticsFixture(t)
	f.seedHistory()
	f.complete(1007, student.UserID, f.algo.test.ID, ActivityWindowDays+1, 1, 70)

	days, err := f.analytics.Activity(context.Background(), student)
	require.NoError(t, err)

	require.Len(t, days, ActivityWindowDays+1)
	assert.Equal(t, model.ActivityDay{Date: "2026-01-30", Attempts: 0}, days[0])
	assert.Equal(t, model.ActivityDay{Date: "2026-02-27", Attempts: 1}, days[len(days)-3])
	assert.Equal(t, model.ActivityDay{Date: "2026-02-28", Attempts: 1}, days[len(days)-2])
	assert.Equal(t, model.ActivityDay{Date: "2026-03-01", Attempts: 2}, days[len(days)-1])

	total := 0
	for _, d := range days {
		total += d.Attempts
	}
	assert.Equal(t, 4, total)
}

func TestRecommendations(t *testing.T) {
	f := newAnalyticsFixture(t)
	f.seedHistory()
	ctx := context.Background()

	extra := &model.MockTest{Title: "Normalization Drill", SubjectID: f.dbms.test.SubjectID, Difficulty: model.DifficultyEasy, TotalMarks: 10, DurationMinutes: 30, IsActive: true}
	require.NoError(t, f.env.db.MockTests().Create(ctx, extra))
	retired := &model.MockTest{Title: "Old Paper", SubjectID: f.dbms.test.SubjectID, Difficulty: model.DifficultyEasy, TotalMarks: 10, DurationMinutes: 30}
	require.NoError(t, f.env.db.MockTests().Create(ctx, retired))

	recs, err := f.analytics.Recommendations(ctx, student)
	require.NoError(t, err)

	require.Len(t, recs.WeakSubjects, 1)
	assert.Equal(t, "Databases", recs.WeakSubjects[0].Name)
	assert.Equal(t, 45.0, recs.WeakSubjects[0].Average)

	require.Len(t, recs.RecommendedTests, 2)
	for _, mt := range recs.RecommendedTests {
		assert.Equal(t, f.dbms.test.SubjectID, mt.SubjectID)
		assert.True(t, mt.IsActive)
	}
}

func TestRecommendationsCapsTests(t *testing.T) {
	f := newAnalyticsFixture(t)
	ctx := context.Background()
	f.complete(1001, student.UserID, f.dbms.test.ID, 0, 1, 20)

	for i := 0; i < MaxRecommendedTests+2; i++ {
		mt := &model.MockTest{Title: "Drill", SubjectID: f.dbms.test.SubjectID, Difficulty: model.DifficultyEasy, TotalMarks: 10, DurationMinutes: 30, IsActive: true}
		require.NoError(t, f.env.db.MockTests().Create(ctx, mt))
	}

	recs, err := f.analytics.Recommendations(ctx, student)
	require.NoError(t, err)
	assert.Len(t, recs.RecommendedTests, MaxRecommendedTests)
}

func TestRecommendationsNoWeakSubjects(t *testing.T) {
	f := newAnalyticsFixture(t)
	f.complete(1001, student.UserID, f.algo.test.ID, 0, 1, 60)

	recs, err := f.analytics.Recommendations(context.Background(), student)
	require.NoError(t, err)
	assert.Empty(t, recs.WeakSubjects)
	assert.Empty(t, recs.RecommendedTests)
}
