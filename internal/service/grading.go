package service

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/stemsi/gateprep-backend/internal/model"
)

// GradeOutcome is the result of grading one submission.
type GradeOutcome struct {
	Answers      []model.Answer
	TotalScore   float64
	Percentage   float64
	CorrectCount int
}

// NormalizeAnswer is the comparison form of an answer: trimmed and lower-cased.
func NormalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsCorrect reports whether a submitted answer matches the key exactly after
// normalization. There is no partial credit and no numeric tolerance.
func IsCorrect(submitted, correct string) bool {
	return NormalizeAnswer(submitted) == NormalizeAnswer(correct)
}

// GradeSubmission grades every question of a test. Questions missing from
// answers are graded as an empty answer.
func GradeSubmission(questions []model.Question, answers map[int64]string, totalMarks int) GradeOutcome {
	out := GradeOutcome{Answers: make([]model.Answer, 0, len(questions))}

	for _, q := range questions {
		submitted := answers[q.ID]
		ans := model.Answer{
			QuestionID: q.ID,
			UserAnswer: submitted,
		}
		if IsCorrect(submitted, q.CorrectAnswer) {
			ans.IsCorrect = true
			ans.MarksObtained = float64(q.Marks)
			out.TotalScore += ans.MarksObtained
			out.CorrectCount++
		}
		out.Answers = append(out.Answers, ans)
	}

	out.Percentage = Percentage(out.TotalScore, totalMarks)
	return out
}

// Percentage returns score as a share of totalMarks in [0, 100]. A test with
// no marks yields 0.
func Percentage(score float64, totalMarks int) float64 {
	if totalMarks <= 0 {
		return 0
	}
	p := score / float64(totalMarks) * 100
	return math.Max(0, math.Min(100, p))
}

// ElapsedMinutes is the attempt duration rounded to whole minutes.
func ElapsedMinutes(start, end time.Time) int {
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return int(math.Round(d.Minutes()))
}

// ParseAnswerKeys converts question-id keyed answers into typed ids. Every key
// must be the decimal id of one of valid and every value at most
// model.MaxAnswerLength runes. Offending keys are reported in the returned
// field map.
func ParseAnswerKeys(raw map[string]string, valid map[int64]struct{}) (map[int64]string, map[string]string) {
	parsed := make(map[int64]string, len(raw))
	var bad map[string]string

	for key, val := range raw {
		id, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
		switch {
		case err != nil || id <= 0:
			bad = addField(bad, key, "must be a question id")
			continue
		case !hasID(valid, id):
			bad = addField(bad, key, "question does not belong to this test")
			continue
		case utf8.RuneCountInString(val) > model.MaxAnswerLength:
			bad = addField(bad, key, "must be at most "+strconv.Itoa(model.MaxAnswerLength)+" characters")
			continue
		}
		parsed[id] = val
	}
	return parsed, bad
}

func hasID(set map[int64]struct{}, id int64) bool {
	_, ok := set[id]
	return ok
}

func addField(m map[string]string, key, msg string) map[string]string {
	if m == nil {
		m = make(map[string]string)
	}
	m["answers["+key+"]"] = msg
	return m
}

// SubjectBreakdown groups graded answers by subject, sorted by subject name.
func SubjectBreakdown(reviews []model.AnswerReview) []model.SubjectPerformance {
	idx := make(map[string]int)
	perf := []model.SubjectPerformance{}

	for _, r := range reviews {
		i, ok := idx[r.SubjectName]
		if !ok {
			i = len(perf)
			idx[r.SubjectName] = i
			perf = append(perf, model.SubjectPerformance{Subject: r.SubjectName})
		}
		perf[i].Total++
		if r.IsCorrect {
			perf[i].Correct++
		}
	}

	for i := range perf {
		perf[i].Percentage = float64(perf[i].Correct) / float64(perf[i].Total) * 100
	}
	sort.Slice(perf, func(i, j int) bool { return perf[i].Subject < perf[j].Subject })
	return perf
}
