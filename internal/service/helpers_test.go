package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/gateprep-backend/internal/config"
	"github.com/stemsi/gateprep-backend/internal/model"
	"github.com/stemsi/gateprep-backend/internal/repository/memory"
	"github.com/stretchr/testify/require"
)

var (
	student   = model.Identity{UserID: 7, Role: model.RoleStudent}
	otherUser = model.Identity{UserID: 8, Role: model.RoleStudent}
	professor = model.Identity{UserID: 100, Role: model.RoleProfessor}
)

type testEnv struct {
	db       *memory.DB
	mr       *miniredis.Miniredis
	rdb      *redis.Client
	cfg      *config.Config
	tests    *MockTestService
	board    *LeaderboardService
	attempts *AttemptService
	clock    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		JWTSecret:       "test-secret",
		JWTExpiry:       time.Hour,
		LeaderboardSize: 50,
		DraftTTL:        time.Hour,
		PaperCacheTTL:   time.Minute,
	}
	db := memory.New()
	log := zerolog.Nop()

	env := &testEnv{
		db:    db,
		mr:    mr,
		rdb:   rdb,
		cfg:   cfg,
		clock: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	env.tests = NewMockTestService(db.MockTests(), db.Questions(), db.Attempts(), db.Subjects(), rdb, cfg, log)
	env.board = NewLeaderboardService(db.Attempts(), db.Leaderboards(), rdb, cfg, log)
	env.attempts = NewAttemptService(db.Attempts(), db.Questions(), db.Submissions(), db.Answers(), env.tests, env.board, rdb, cfg, log)
	env.attempts.now = func() time.Time { return env.clock }
	env.board.now = func() time.Time { return env.clock }
	return env
}

type fixture struct {
	test      *model.MockTest
	questions []model.Question
}

type questionDef struct {
	subject string
	kind    model.QuestionType
	correct string
	marks   int
}

// seedTest creates an active test with the given questions. Topics are
// created per distinct subject name.
func (e *testEnv) seedTest(t *testing.T, totalMarks int, defs ...questionDef) fixture {
	t.Helper()
	ctx := context.Background()

	topics := map[string]model.Topic{}
	topicFor := func(subject string) model.Topic {
		if tp, ok := topics[subject]; ok {
			return tp
		}
		s := e.db.AddSubject(subject)
		tp := e.db.AddTopic(s.ID, subject+" basics")
		topics[subject] = tp
		return tp
	}

	first := "General Aptitude"
	if len(defs) > 0 {
		first = defs[0].subject
	}
	base := topicFor(first)

	mt := &model.MockTest{
		Title:           "GATE CS Mock",
		SubjectID:       base.SubjectID,
		TopicIDs:        []int64{base.ID},
		Difficulty:      model.DifficultyMedium,
		DurationMinutes: 180,
		TotalMarks:      totalMarks,
		IsActive:        true,
	}
	require.NoError(t, e.db.MockTests().Create(ctx, mt))

	fx := fixture{test: mt}
	for _, d := range defs {
		q := &model.Question{
			MockTestID:    mt.ID,
			TopicID:       topicFor(d.subject).ID,
			QuestionText:  "Q for " + d.subject,
			QuestionType:  d.kind,
			CorrectAnswer: d.correct,
			Marks:         d.marks,
			Difficulty:    model.DifficultyMedium,
		}
		if d.kind == model.QuestionTypeMCQ {
			q.Options = map[string]string{"A": "one", "B": "two", "C": "three", "D": "four"}
		}
		require.NoError(t, e.db.Questions().CreateWithinBudget(ctx, q))
		fx.questions = append(fx.questions, *q)
	}
	return fx
}

func qkey(q model.Question) string {
	return itoa(q.ID)
}
