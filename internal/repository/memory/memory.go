// Package memory is an in-process implementation of the repository stores.
// It mirrors the Postgres semantics the services rely on (conditional attempt
// creation, compare-and-swap submit, rank untouched by upsert) and backs the
// service and handler tests.
package memory

import (
	"sync"
	"time"

	"github.com/stemsi/gateprep-backend/internal/model"
)

// DB holds every table behind a single lock.
type DB struct {
	mu sync.Mutex

	seq int64
	now func() time.Time

	subjects     map[int64]model.Subject
	topics       map[int64]model.Topic
	mockTests    map[int64]model.MockTest
	questions    map[int64]model.Question
	attempts     map[int64]model.TestAttempt
	answers      map[int64]model.Answer
	leaderboards map[int64]model.LeaderboardEntry
	testsTaken   map[int64]int

	// LeaderboardErr, when set, is returned by every leaderboard write.
	LeaderboardErr error
}

// New returns an empty DB.
func New() *DB {
	return &DB{
		now:          time.Now,
		subjects:     make(map[int64]model.Subject),
		topics:       make(map[int64]model.Topic),
		mockTests:    make(map[int64]model.MockTest),
		questions:    make(map[int64]model.Question),
		attempts:     make(map[int64]model.TestAttempt),
		answers:      make(map[int64]model.Answer),
		leaderboards: make(map[int64]model.LeaderboardEntry),
		testsTaken:   make(map[int64]int),
	}
}

func (db *DB) nextID() int64 {
	db.seq++
	return db.seq
}

// AddSubject seeds a subject.
func (db *DB) AddSubject(name string) model.Subject {
	db.mu.Lock()
	defer db.mu.Unlock()
	s := model.Subject{ID: db.nextID(), Name: name, Topics: []model.Topic{}}
	db.subjects[s.ID] = s
	return s
}

// AddTopic seeds a topic under a subject.
func (db *DB) AddTopic(subjectID int64, name string) model.Topic {
	db.mu.Lock()
	defer db.mu.Unlock()
	t := model.Topic{ID: db.nextID(), SubjectID: subjectID, Name: name}
	db.topics[t.ID] = t
	return t
}

// SetAttempt overwrites an attempt row as is. Tests use it to backdate started_at.
func (db *DB) SetAttempt(a model.TestAttempt) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.attempts[a.ID] = a
}

// TestsTaken returns the lifetime submit counter of a user.
func (db *DB) TestsTaken(userID int64) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.testsTaken[userID]
}

// AnswerCount returns the number of stored answers for an attempt.
func (db *DB) AnswerCount(attemptID int64) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for _, a := range db.answers {
		if a.TestAttemptID == attemptID {
			n++
		}
	}
	return n
}

// Stores returns a typed view per table.
func (db *DB) MockTests() *MockTestRepository       { return &MockTestRepository{db} }
func (db *DB) Questions() *QuestionRepository       { return &QuestionRepository{db} }
func (db *DB) Attempts() *AttemptRepository         { return &AttemptRepository{db} }
func (db *DB) Submissions() *SubmissionRepository   { return &SubmissionRepository{db} }
func (db *DB) Answers() *AnswerRepository           { return &AnswerRepository{db} }
func (db *DB) Leaderboards() *LeaderboardRepository { return &LeaderboardRepository{db} }
func (db *DB) Subjects() *SubjectRepository         { return &SubjectRepository{db} }
