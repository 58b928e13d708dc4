package model

// PerformancePoint is one completed attempt on the percentage timeline.
type PerformancePoint struct {
	Date       string  `json:"date"`
	AttemptID  int64   `json:"attempt_id"`
	MockTestID int64   `json:"mock_test_id"`
	Percentage float64 `json:"percentage"`
}

// SubjectAverage is a user's mean percentage across tests of one subject.
type SubjectAverage struct {
	SubjectID int64   `json:"subject_id"`
	Name      string  `json:"name"`
	Average   float64 `json:"average"`
	Attempts  int     `json:"attempts"`
}

// PerformanceReport is the caller's score history, oldest first, with
// per-subject averages sorted by subject name.
type PerformanceReport struct {
	History  []PerformancePoint `json:"history"`
	Subjects []SubjectAverage   `json:"subjects"`
}

// ActivityDay counts completed attempts on one UTC calendar day.
type ActivityDay struct {
	Date     string `json:"date"`
	Attempts int    `json:"attempts"`
}

// Recommendations lists subjects the caller is weak in and active tests to
// practise them.
type Recommendations struct {
	WeakSubjects     []SubjectAverage `json:"weak_subjects"`
	RecommendedTests []MockTest       `json:"recommended_tests"`
}
