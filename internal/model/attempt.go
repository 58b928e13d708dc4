package model

import "time"

// TestAttempt is one user's run at a mock test. It is created in progress and
// transitions to completed exactly once.
type TestAttempt struct {
	ID               int64      `json:"id"`
	UserID           int64      `json:"user_id"`
	MockTestID       int64      `json:"mock_test_id"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	TotalScore       float64    `json:"total_score"`
	Percentage       float64    `json:"percentage"`
	TimeTakenMinutes int        `json:"time_taken_minutes"`
	IsCompleted      bool       `json:"is_completed"`
}

// Answer is the graded response to one question within an attempt.
// (TestAttemptID, QuestionID) is unique.
type Answer struct {
	ID            int64   `json:"id"`
	TestAttemptID int64   `json:"test_attempt_id"`
	QuestionID    int64   `json:"question_id"`
	UserAnswer    string  `json:"user_answer"`
	IsCorrect     bool    `json:"is_correct"`
	MarksObtained float64 `json:"marks_obtained"`
}

// GradedSubmission is everything written atomically when an attempt is submitted.
type GradedSubmission struct {
	Attempt TestAttempt
	Answers []Answer
}

// StartAttemptResponse is returned by the start endpoint.
type StartAttemptResponse struct {
	Attempt TestAttempt `json:"attempt"`
	Resumed bool        `json:"resumed"`
}

// TakeTestResponse is the paper plus any answers saved before a reload.
type TakeTestResponse struct {
	Attempt      TestAttempt       `json:"attempt"`
	Paper        TestPaper         `json:"paper"`
	DraftAnswers map[string]string `json:"draft_answers"`
}

// SubmissionResult is returned after a successful submit.
type SubmissionResult struct {
	Attempt      TestAttempt `json:"attempt"`
	CorrectCount int         `json:"correct_count"`
	ResultURL    string      `json:"result_url"`
}

// MaxAnswerLength is the longest answer accepted, in characters. It matches
// answers.user_answer.
const MaxAnswerLength = 2000

// SubmitAnswersRequest maps question id (decimal string) to answer text.
type SubmitAnswersRequest struct {
	Answers map[string]string `json:"answers" binding:"omitempty,dive,keys,question_id,endkeys,max=2000"`
}

// AnswerReview is a graded answer joined with its question for the results page.
type AnswerReview struct {
	QuestionID    int64        `json:"question_id"`
	QuestionText  string       `json:"question_text"`
	QuestionType  QuestionType `json:"question_type"`
	SubjectName   string       `json:"subject_name"`
	UserAnswer    string       `json:"user_answer"`
	CorrectAnswer string       `json:"correct_answer"`
	Explanation   string       `json:"explanation"`
	IsCorrect     bool         `json:"is_correct"`
	MarksObtained float64      `json:"marks_obtained"`
	Marks         int          `json:"marks"`
}

// SubjectPerformance aggregates correctness for one subject within an attempt.
type SubjectPerformance struct {
	Subject    string  `json:"subject"`
	Correct    int     `json:"correct"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// AttemptResult is the score breakdown of a completed attempt.
type AttemptResult struct {
	Attempt            TestAttempt          `json:"attempt"`
	TestTitle          string               `json:"test_title"`
	TotalMarks         int                  `json:"total_marks"`
	CorrectCount       int                  `json:"correct_count"`
	TotalQuestions     int                  `json:"total_questions"`
	Answers            []AnswerReview       `json:"answers"`
	SubjectPerformance []SubjectPerformance `json:"subject_performance"`
}
