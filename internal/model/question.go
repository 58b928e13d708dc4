package model

import "time"

type QuestionType string

const (
	QuestionTypeMCQ       QuestionType = "mcq"
	QuestionTypeNumerical QuestionType = "numerical"
	QuestionTypeTrueFalse QuestionType = "true_false"
)

// Question represents a single question of a mock test. Questions are never
// updated once created.
type Question struct {
	ID            int64             `json:"id"`
	MockTestID    int64             `json:"mock_test_id"`
	TopicID       int64             `json:"topic_id"`
	QuestionText  string            `json:"question_text"`
	QuestionType  QuestionType      `json:"question_type"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correct_answer"`
	Explanation   string            `json:"explanation"`
	Marks         int               `json:"marks"`
	Difficulty    Difficulty        `json:"difficulty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// QuestionForStudent is a question without the correct answer, sent to students.
type QuestionForStudent struct {
	ID           int64             `json:"id"`
	TopicID      int64             `json:"topic_id"`
	QuestionText string            `json:"question_text"`
	QuestionType QuestionType      `json:"question_type"`
	Options      map[string]string `json:"options,omitempty"`
	Marks        int               `json:"marks"`
}

// TestPaper is the Redis-cached payload a student works from.
type TestPaper struct {
	MockTestID      int64                `json:"mock_test_id"`
	Title           string               `json:"title"`
	DurationMinutes int                  `json:"duration_minutes"`
	TotalMarks      int                  `json:"total_marks"`
	Questions       []QuestionForStudent `json:"questions"`
}

// AddQuestionRequest is the payload for adding a question to a mock test.
type AddQuestionRequest struct {
	TopicID       int64             `json:"topic_id" binding:"required,min=1"`
	QuestionText  string            `json:"question_text" binding:"required,min=1,max=5000"`
	QuestionType  string            `json:"question_type" binding:"required,oneof=mcq numerical true_false"`
	Options       map[string]string `json:"options" binding:"omitempty,dive,keys,min=1,max=10,endkeys,required"`
	CorrectAnswer string            `json:"correct_answer" binding:"required,max=500"`
	Explanation   string            `json:"explanation" binding:"omitempty,max=5000"`
	Marks         int               `json:"marks" binding:"omitempty,min=1,max=100"`
	Difficulty    string            `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
}
