package model

import "time"

// Difficulty enumerates test and question difficulty levels.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// MockTest represents a timed, scored collection of questions for one subject.
type MockTest struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	SubjectID       int64      `json:"subject_id"`
	SubjectName     string     `json:"subject_name,omitempty"`
	TopicIDs        []int64    `json:"topic_ids"`
	Difficulty      Difficulty `json:"difficulty"`
	DurationMinutes int        `json:"duration_minutes"`
	TotalMarks      int        `json:"total_marks"`
	IsActive        bool       `json:"is_active"`
	IsFeatured      bool       `json:"is_featured"`
	QuestionCount   int        `json:"question_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// MockTestDetail is a test plus the caller's recent completed attempts on it.
type MockTestDetail struct {
	MockTest
	RecentAttempts []TestAttempt `json:"recent_attempts"`
}

// MockTestFilter narrows the active test catalogue.
type MockTestFilter struct {
	SubjectID  *int64
	Difficulty Difficulty
	Page       int
	PerPage    int
}

// CreateMockTestRequest is the payload for creating a mock test.
type CreateMockTestRequest struct {
	Title           string  `json:"title" binding:"required,min=3,max=200"`
	Description     string  `json:"description" binding:"omitempty,max=5000"`
	SubjectID       int64   `json:"subject_id" binding:"required,min=1"`
	TopicIDs        []int64 `json:"topic_ids" binding:"omitempty,dive,min=1"`
	Difficulty      string  `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	DurationMinutes int     `json:"duration_minutes" binding:"omitempty,min=1,max=600"`
	TotalMarks      int     `json:"total_marks" binding:"omitempty,min=1,max=10000"`
	IsActive        *bool   `json:"is_active" binding:"omitempty"`
	IsFeatured      bool    `json:"is_featured"`
}
