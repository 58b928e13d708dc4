package service

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stemsi/gateprep-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func TestIsCorrect(t *testing.T) {
	tests := []struct {
		name      string
		submitted string
		correct   string
		want      bool
	}{
		{"exact", "B", "B", true},
		{"case insensitive", "paris", "Paris", true},
		{"surrounding whitespace", "  true\n", "TRUE", true},
		{"no numeric tolerance", "3.0", "3", false},
		{"empty answer", "", "A", false},
		{"inner whitespace matters", "new  delhi", "new delhi", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCorrect(tt.submitted, tt.correct))
		})
	}
}

func TestGradeSubmission(t *testing.T) {
	questions := []model.Question{
		{ID: 1, CorrectAnswer: "B", Marks: 2},
		{ID: 2, CorrectAnswer: "true", Marks: 3},
		{ID: 3, CorrectAnswer: "42", Marks: 5},
	}
	answers := map[int64]string{1: " b ", 2: "False"}

	out := GradeSubmission(questions, answers, 10)

	require.Len(t, out.Answers, 3)
	assert.Equal(t, 2.0, out.TotalScore)
	assert.Equal(t, 20.0, out.Percentage)
	assert.Equal(t, 1, out.CorrectCount)

	assert.True(t, out.Answers[0].IsCorrect)
	assert.Equal(t, 2.0, out.Answers[0].MarksObtained)
	assert.Equal(t, " b ", out.Answers[0].UserAnswer)

	assert.False(t, out.Answers[1].IsCorrect)
	assert.Zero(t, out.Answers[1].MarksObtained)

	assert.Equal(t, int64(3), out.Answers[2].QuestionID)
	assert.Equal(t, "", out.Answers[2].UserAnswer)
	assert.False(t, out.Answers[2].IsCorrect)
}

func TestGradeSubmissionNoQuestions(t *testing.T) {
	out := GradeSubmission(nil, map[int64]string{}, 0)
	assert.Empty(t, out.Answers)
	assert.Zero(t, out.TotalScore)
	assert.Zero(t, out.Percentage)
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		total int
		want  float64
	}{
		{"regular", 45, 60, 75},
		{"zero total marks", 5, 0, 0},
		{"clamped above", 15, 10, 100},
		{"perfect", 100, 100, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Percentage(tt.score, tt.total), 1e-9)
		})
	}
}

func TestElapsedMinutes(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		elapsed time.Duration
		want    int
	}{
		{"under half a minute", 29 * time.Second, 0},
		{"rounds half up", 90 * time.Second, 2},
		{"rounds down", 89 * time.Second, 1},
		{"long attempt", 2*time.Hour + 59*time.Minute + 40*time.Second, 180},
		{"clock skew", -time.Minute, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ElapsedMinutes(start, start.Add(tt.elapsed)))
		})
	}
}

func TestParseAnswerKeys(t *testing.T) {
	valid := map[int64]struct{}{1: {}, 2: {}}
	raw := map[string]string{"1": "A", "x": "B", "9": "C", "-2": "D"}

	parsed, bad := ParseAnswerKeys(raw, valid)

	assert.Equal(t, map[int64]string{1: "A"}, parsed)
	require.Len(t, bad, 3)
	assert.Contains(t, bad, "answers[x]")
	assert.Contains(t, bad, "answers[9]")
	assert.Contains(t, bad, "answers[-2]")
}

func TestParseAnswerKeysLength(t *testing.T) {
	valid := map[int64]struct{}{1: {}, 2: {}}
	raw := map[string]string{
		"1": strings.Repeat("ß", model.MaxAnswerLength),
		"2": strings.Repeat("a", model.MaxAnswerLength+1),
	}

	parsed, bad := ParseAnswerKeys(raw, valid)

	assert.Len(t, parsed, 1)
	assert.Contains(t, parsed, int64(1))
	require.Len(t, bad, 1)
	assert.Equal(t, "must be at most 2000 characters", bad["answers[2]"])
}

func TestParseAnswerKeysAllValid(t *testing.T) {
	parsed, bad := ParseAnswerKeys(map[string]string{"2": "true"}, map[int64]struct{}{2: {}})
	assert.Nil(t, bad)
	assert.Equal(t, "true", parsed[2])
}

func TestSubjectBreakdown(t *testing.T) {
	reviews := []model.AnswerReview{
		{SubjectName: "Operating Systems", IsCorrect: true},
		{SubjectName: "Algorithms", IsCorrect: false},
		{SubjectName: "Operating Systems", IsCorrect: false},
		{SubjectName: "Algorithms", IsCorrect: true},
		{SubjectName: "Algorithms", IsCorrect: true},
	}

	perf := SubjectBreakdown(reviews)

	require.Len(t, perf, 2)
	assert.Equal(t, "Algorithms", perf[0].Subject)
	assert.Equal(t, 2, perf[0].Correct)
	assert.Equal(t, 3, perf[0].Total)
	assert.InDelta(t, 66.666, perf[0].Percentage, 0.01)
	assert.Equal(t, "Operating Systems", perf[1].Subject)
	assert.Equal(t, 50.0, perf[1].Percentage)
}
