package memory

import (
	"context"
	"sort"

	"github.com/stemsi/gateprep-backend/internal/model"
	"github.com/stemsi/gateprep-backend/internal/repository"
)

// MockTestRepository is the in-memory mock test store.
type MockTestRepository struct{ db *DB }

func (r *MockTestRepository) decorate(t model.MockTest) model.MockTest {
	t.SubjectName = r.db.subjects[t.SubjectID].Name
	t.TopicIDs = append([]int64{}, t.TopicIDs...)
	t.QuestionCount = 0
	for _, q := range r.db.questions {
		if q.MockTestID == t.ID {
			t.QuestionCount++
		}
	}
	return t
}

func (r *MockTestRepository) GetByID(_ context.Context, id int64) (*model.MockTest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.mockTests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	t = r.decorate(t)
	return &t, nil
}

func (r *MockTestRepository) ListActive(_ context.Context, f model.MockTestFilter, limit, offset int) ([]model.MockTest, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var all []model.MockTest
	for _, t := range r.db.mockTests {
		if !t.IsActive {
			continue
		}
		if f.SubjectID != nil && t.SubjectID != *f.SubjectID {
			continue
		}
		if f.Difficulty != "" && t.Difficulty != f.Difficulty {
			continue
		}
		all = append(all, r.decorate(t))
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].IsFeatured != all[j].IsFeatured {
			return all[i].IsFeatured
		}
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

func (r *MockTestRepository) Create(_ context.Context, t *model.MockTest) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.subjects[t.SubjectID]; !ok {
		return repository.ErrInvalidReference
	}
	for _, id := range t.TopicIDs {
		if _, ok := r.db.topics[id]; !ok {
			return repository.ErrInvalidReference
		}
	}
	t.ID = r.db.nextID()
	t.CreatedAt = r.db.now()
	t.UpdatedAt = t.CreatedAt
	r.db.mockTests[t.ID] = *t
	return nil
}

// QuestionRepository is the in-memory question store.
type QuestionRepository struct{ db *DB }

func (r *QuestionRepository) ListByTest(_ context.Context, testID int64) ([]model.Question, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.byTest(testID), nil
}

func (r *QuestionRepository) byTest(testID int64) []model.Question {
	var qs []model.Question
	for _, q := range r.db.questions {
		if q.MockTestID == testID {
			qs = append(qs, q)
		}
	}
	sort.Slice(qs, func(i, j int) bool { return qs[i].ID < qs[j].ID })
	return qs
}

func (r *QuestionRepository) CreateWithinBudget(_ context.Context, q *model.Question) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.mockTests[q.MockTestID]
	if !ok {
		return repository.ErrNotFound
	}
	if _, ok := r.db.topics[q.TopicID]; !ok {
		return repository.ErrInvalidReference
	}
	used := 0
	for _, existing := range r.byTest(q.MockTestID) {
		used += existing.Marks
	}
	if used+q.Marks > t.TotalMarks {
		return repository.ErrMarksBudget
	}
	q.ID = r.db.nextID()
	q.CreatedAt = r.db.now()
	r.db.questions[q.ID] = *q
	return nil
}

// AttemptRepository is the in-memory attempt store.
type AttemptRepository struct{ db *DB }

func (r *AttemptRepository) GetByID(_ context.Context, id int64) (*model.TestAttempt, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.attempts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *AttemptRepository) openAttempt(userID, testID int64) (model.TestAttempt, bool) {
	for _, a := range r.db.attempts {
		if a.UserID == userID && a.MockTestID == testID && !a.IsCompleted {
			return a, true
		}
	}
	return model.TestAttempt{}, false
}

func (r *AttemptRepository) GetInProgress(_ context.Context, userID, testID int64) (*model.TestAttempt, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.openAttempt(userID, testID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *AttemptRepository) CreateInProgress(_ context.Context, a *model.TestAttempt) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.mockTests[a.MockTestID]; !ok {
		return repository.ErrInvalidReference
	}
	if _, ok := r.openAttempt(a.UserID, a.MockTestID); ok {
		return repository.ErrDuplicate
	}
	a.ID = r.db.nextID()
	a.IsCompleted = false
	a.CompletedAt = nil
	r.db.attempts[a.ID] = *a
	return nil
}

func (r *AttemptRepository) ListCompletedByUser(_ context.Context, userID int64) ([]model.TestAttempt, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.completed(func(a model.TestAttempt) bool { return a.UserID == userID }, 0), nil
}

func (r *AttemptRepository) ListRecentCompleted(_ context.Context, userID, testID int64, limit int) ([]model.TestAttempt, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.completed(func(a model.TestAttempt) bool {
		return a.UserID == userID && a.MockTestID == testID
	}, limit), nil
}

func (r *AttemptRepository) completed(match func(model.TestAttempt) bool, limit int) []model.TestAttempt {
	var out []model.TestAttempt
	for _, a := range r.db.attempts {
		if a.IsCompleted && match(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SubmissionRepository is the in-memory graded submission writer.
type SubmissionRepository struct{ db *DB }

func (r *SubmissionRepository) SaveGraded(_ context.Context, sub *model.GradedSubmission) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	cur, ok := r.db.attempts[sub.Attempt.ID]
	if !ok || cur.IsCompleted {
		return repository.ErrAttemptNotOpen
	}
	for _, ans := range sub.Answers {
		if _, ok := r.db.questions[ans.QuestionID]; !ok {
			return repository.ErrInvalidReference
		}
	}

	cur.CompletedAt = sub.Attempt.CompletedAt
	cur.TotalScore = sub.Attempt.TotalScore
	cur.Percentage = sub.Attempt.Percentage
	cur.TimeTakenMinutes = sub.Attempt.TimeTakenMinutes
	cur.IsCompleted = true
	r.db.attempts[cur.ID] = cur
	sub.Attempt = cur

	for i := range sub.Answers {
		ans := &sub.Answers[i]
		ans.TestAttemptID = cur.ID
		for id, existing := range r.db.answers {
			if existing.TestAttemptID == cur.ID && existing.QuestionID == ans.QuestionID {
				ans.ID = id
			}
		}
		if ans.ID == 0 {
			ans.ID = r.db.nextID()
		}
		r.db.answers[ans.ID] = *ans
	}
	r.db.testsTaken[cur.UserID]++
	return nil
}

// AnswerRepository is the in-memory answer reader.
type AnswerRepository struct{ db *DB }

func (r *AnswerRepository) ListReviewByAttempt(_ context.Context, attemptID int64) ([]model.AnswerReview, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []model.AnswerReview
	for _, a := range r.db.answers {
		if a.TestAttemptID != attemptID {
			continue
		}
		q := r.db.questions[a.QuestionID]
		subject := r.db.subjects[r.db.topics[q.TopicID].SubjectID]
		out = append(out, model.AnswerReview{
			QuestionID:    q.ID,
			QuestionText:  q.QuestionText,
			QuestionType:  q.QuestionType,
			SubjectName:   subject.Name,
			UserAnswer:    a.UserAnswer,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
			IsCorrect:     a.IsCorrect,
			MarksObtained: a.MarksObtained,
			Marks:         q.Marks,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}

// LeaderboardRepository is the in-memory leaderboard store.
type LeaderboardRepository struct{ db *DB }

func (r *LeaderboardRepository) Upsert(_ context.Context, e *model.LeaderboardEntry) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.LeaderboardErr != nil {
		return r.db.LeaderboardErr
	}
	cur, ok := r.db.leaderboards[e.UserID]
	if !ok {
		cur = model.LeaderboardEntry{ID: r.db.nextID(), UserID: e.UserID}
	}
	cur.TotalScore = e.TotalScore
	cur.TestsCompleted = e.TestsCompleted
	cur.AveragePercentage = e.AveragePercentage
	cur.UpdatedAt = r.db.now()
	r.db.leaderboards[e.UserID] = cur
	*e = cur
	return nil
}

func (r *LeaderboardRepository) GetByUser(_ context.Context, userID int64) (*model.LeaderboardEntry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e, ok := r.db.leaderboards[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r *LeaderboardRepository) Top(_ context.Context, limit int) ([]model.LeaderboardEntry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]model.LeaderboardEntry, 0, len(r.db.leaderboards))
	for _, e := range r.db.leaderboards {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.Rank == 0) != (b.Rank == 0) {
			return b.Rank == 0
		}
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		return a.UserID < b.UserID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *LeaderboardRepository) RecomputeRanks(_ context.Context) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.LeaderboardErr != nil {
		return 0, r.db.LeaderboardErr
	}
	rows := make([]model.LeaderboardEntry, 0, len(r.db.leaderboards))
	for _, e := range r.db.leaderboards {
		rows = append(rows, e)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalScore != rows[j].TotalScore {
			return rows[i].TotalScore > rows[j].TotalScore
		}
		return rows[i].AveragePercentage > rows[j].AveragePercentage
	})

	var changed int64
	for i, e := range rows {
		rank := i + 1
		if i > 0 && e.TotalScore == rows[i-1].TotalScore && e.AveragePercentage == rows[i-1].AveragePercentage {
			rank = r.db.leaderboards[rows[i-1].UserID].Rank
		}
		if e.Rank != rank {
			e.Rank = rank
			r.db.leaderboards[e.UserID] = e
			changed++
		}
	}
	return changed, nil
}

// SubjectRepository is the in-memory subject catalogue.
type SubjectRepository struct{ db *DB }

func (r *SubjectRepository) ListWithTopics(_ context.Context) ([]model.Subject, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]model.Subject, 0, len(r.db.subjects))
	for _, s := range r.db.subjects {
		s.Topics = []model.Topic{}
		for _, t := range r.db.topics {
			if t.SubjectID == s.ID {
				s.Topics = append(s.Topics, t)
			}
		}
		sort.Slice(s.Topics, func(i, j int) bool { return s.Topics[i].Name < s.Topics[j].Name })
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
