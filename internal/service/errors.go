package service

import (
	"errors"
)

// Domain errors. Handlers map these onto response codes.
var (
	ErrTestNotFound      = errors.New("mock test not found")
	ErrAttemptNotFound   = errors.New("test attempt not found")
	ErrNotAttemptOwner   = errors.New("attempt belongs to another user")
	ErrStudentOnly       = errors.New("only students can take tests")
	ErrAuthorOnly        = errors.New("only professors or staff can author tests")
	ErrAttemptCompleted  = errors.New("attempt is already completed")
	ErrAttemptInProgress = errors.New("attempt is still in progress")
	ErrInvalidAnswers    = errors.New("invalid answer payload")
	ErrInvalidQuestion   = errors.New("invalid question")
	ErrMarksExceedTotal  = errors.New("question marks exceed the test's total marks")
	ErrInvalidReference  = errors.New("referenced subject, topic or test does not exist")
	ErrInvalidToken      = errors.New("invalid token")
)

// FieldError carries per-field messages alongside a domain error.
type FieldError struct {
	Err    error
	Fields map[string]string
}

func (e *FieldError) Error() string { return e.Err.Error() }

func (e *FieldError) Unwrap() error { return e.Err }

func fieldError(err error, field, msg string) error {
	return &FieldError{Err: err, Fields: map[string]string{field: msg}}
}
