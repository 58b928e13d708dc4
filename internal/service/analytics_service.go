package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/gateprep-backend/internal/logger"
	"github.com/stemsi/gateprep-backend/internal/model"
	"github.com/stemsi/gateprep-backend/internal/repository"
)

const (
	// WeakSubjectThreshold is the average percentage below which a subject
	// is recommended for practice.
	WeakSubjectThreshold = 60.0
	// MaxRecommendedTests bounds the recommended test list.
	MaxRecommendedTests = 5
	// ActivityWindowDays is how far back the activity report reaches.
	ActivityWindowDays = 30

	dateLayout = "2006-01-02"
)

// AnalyticsService derives per-user progress reports from completed attempts.
type AnalyticsService struct {
	attempts AttemptStore
	tests    MockTestStore
	log      zerolog.Logger
	now      func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(attempts AttemptStore, tests MockTestStore, log zerolog.Logger) *AnalyticsService {
	return &AnalyticsService{
		attempts: attempts,
		tests:    tests,
		log:      logger.Component(log, "analytics_service"),
		now:      time.Now,
	}
}

// Performance returns the caller's percentage history and subject averages.
func (s *AnalyticsService) Performance(ctx context.Context, id model.Identity) (*model.PerformanceReport, error) {
	attempts, err := s.completedOldestFirst(ctx, id.UserID)
	if err != nil {
		return nil, err
	}

	history := make([]model.PerformancePoint, 0, len(attempts))
	for _, a := range attempts {
		history = append(history, model.PerformancePoint{
			Date:       a.CompletedAt.UTC().Format(dateLayout),
			AttemptID:  a.ID,
			MockTestID: a.MockTestID,
			Percentage: a.Percentage,
		})
	}

	subjects, err := s.subjectAverages(ctx, attempts)
	if err != nil {
		return nil, err
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })

	return &model.PerformanceReport{History: history, Subjects: subjects}, nil
}

// Activity counts the caller's completed attempts per day over the last
// ActivityWindowDays days, today included.
func (s *AnalyticsService) Activity(ctx context.Context, id model.Identity) ([]model.ActivityDay, error) {
	attempts, err := s.attempts.ListCompletedByUser(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("list completed attempts: %w", err)
	}

	counts := make(map[string]int, len(attempts))
	for _, a := range attempts {
		if a.CompletedAt != nil {
			counts[a.CompletedAt.UTC().Format(dateLayout)]++
		}
	}

	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := make([]model.ActivityDay, 0, ActivityWindowDays+1)
	for d := today.AddDate(0, 0, -ActivityWindowDays); !d.After(today); d = d.AddDate(0, 0, 1) {
		key := d.Format(dateLayout)
		days = append(days, model.ActivityDay{Date: key, Attempts: counts[key]})
	}
	return days, nil
}

// Recommendations returns subjects averaging under WeakSubjectThreshold,
// weakest first, and up to MaxRecommendedTests active tests in them.
func (s *AnalyticsService) Recommendations(ctx context.Context, id model.Identity) (*model.Recommendations, error) {
	attempts, err := s.attempts.ListCompletedByUser(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("list completed attempts: %w", err)
	}
	averages, err := s.subjectAverages(ctx, attempts)
	if err != nil {
		return nil, err
	}

	out := &model.Recommendations{
		WeakSubjects:     []model.SubjectAverage{},
		RecommendedTests: []model.MockTest{},
	}
	for _, avg := range averages {
		if avg.Average < WeakSubjectThreshold {
			out.WeakSubjects = append(out.WeakSubjects, avg)
		}
	}
	sort.Slice(out.WeakSubjects, func(i, j int) bool {
		a, b := out.WeakSubjects[i], out.WeakSubjects[j]
		if a.Average != b.Average {
			return a.Average < b.Average
		}
		return a.Name < b.Name
	})

	for _, weak := range out.WeakSubjects {
		remaining := MaxRecommendedTests - len(out.RecommendedTests)
		if remaining <= 0 {
			break
		}
		subjectID := weak.SubjectID
		tests, _, err := s.tests.ListActive(ctx, model.MockTestFilter{SubjectID: &subjectID}, remaining, 0)
		if err != nil {
			return nil, fmt.Errorf("list tests for subject %d: %w", subjectID, err)
		}
		out.RecommendedTests = append(out.RecommendedTests, tests...)
	}
	return out, nil
}

func (s *AnalyticsService) completedOldestFirst(ctx context.Context, userID int64) ([]model.TestAttempt, error) {
	attempts, err := s.attempts.ListCompletedByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list completed attempts: %w", err)
	}
	attempts = completedOnly(attempts)
	sort.SliceStable(attempts, func(i, j int) bool {
		return attempts[i].CompletedAt.Before(*attempts[j].CompletedAt)
	})
	return attempts, nil
}

// subjectAverages groups attempts by their test's subject. Averages are
// rounded to one decimal place.
func (s *AnalyticsService) subjectAverages(ctx context.Context, attempts []model.TestAttempt) ([]model.SubjectAverage, error) {
	type acc struct {
		name  string
		sum   float64
		count int
	}
	bySubject := map[int64]*acc{}
	var order []int64
	tests := map[int64]*model.MockTest{}

	for _, a := range attempts {
		t, ok := tests[a.MockTestID]
		if !ok {
			var err error
			t, err = s.tests.GetByID(ctx, a.MockTestID)
			if errors.Is(err, repository.ErrNotFound) {
				s.log.Warn().Int64("mock_test_id", a.MockTestID).Int64("attempt_id", a.ID).Msg("Attempt references a missing test")
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("get test %d: %w", a.MockTestID, err)
			}
			tests[a.MockTestID] = t
		}

		sub, ok := bySubject[t.SubjectID]
		if !ok {
			sub = &acc{name: t.SubjectName}
			bySubject[t.SubjectID] = sub
			order = append(order, t.SubjectID)
		}
		sub.sum += a.Percentage
		sub.count++
	}

	out := make([]model.SubjectAverage, 0, len(order))
	for _, subjectID := range order {
		sub := bySubject[subjectID]
		out = append(out, model.SubjectAverage{
			SubjectID: subjectID,
			Name:      sub.name,
			Average:   math.Round(sub.sum/float64(sub.count)*10) / 10,
			Attempts:  sub.count,
		})
	}
	return out, nil
}

func completedOnly(attempts []model.TestAttempt) []model.TestAttempt {
	out := attempts[:0]
	for _, a := range attempts {
		if a.CompletedAt != nil {
			out = append(out, a)
		}
	}
	return out
}
