package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/gateprep-backend/internal/model"
)

// SubjectRepository reads the subject/topic catalogue.
type SubjectRepository struct {
	pool *pgxpool.Pool
}

// NewSubjectRepository creates a new SubjectRepository.
func NewSubjectRepository(pool *pgxpool.Pool) *SubjectRepository {
	return &SubjectRepository{pool: pool}
}

// ListWithTopics returns every subject ordered by name, each with its topics.
func (r *SubjectRepository) ListWithTopics(ctx context.Context) ([]model.Subject, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.name, t.id, t.name
		 FROM subjects s
		 LEFT JOIN topics t ON t.subject_id = s.id
		 ORDER BY s.name, s.id, t.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []model.Subject
	for rows.Next() {
		var (
			subjectID int64
			name      string
			topicID   *int64
			topicName *string
		)
		if err := rows.Scan(&subjectID, &name, &topicID, &topicName); err != nil {
			return nil, err
		}

		if n := len(subjects); n == 0 || subjects[n-1].ID != subjectID {
			subjects = append(subjects, model.Subject{ID: subjectID, Name: name, Topics: []model.Topic{}})
		}
		if topicID != nil {
			cur := &subjects[len(subjects)-1]
			cur.Topics = append(cur.Topics, model.Topic{ID: *topicID, SubjectID: subjectID, Name: *topicName})
		}
	}
	return subjects, rows.Err()
}
