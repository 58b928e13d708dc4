package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/gateprep-backend/internal/config"
	"github.com/stemsi/gateprep-backend/internal/database"
	"github.com/stemsi/gateprep-backend/internal/logger"
	"github.com/stemsi/gateprep-backend/internal/model"
	"github.com/stemsi/gateprep-backend/internal/repository"
	"github.com/stemsi/gateprep-backend/internal/service"
)

type seedQuestion struct {
	topic   string
	text    string
	kind    model.QuestionType
	options map[string]string
	answer  string
	marks   int
}

// seed-catalogue loads a small GATE CS catalogue for local development.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	mockTestService := service.NewMockTestService(
		repository.NewMockTestRepository(pool),
		repository.NewQuestionRepository(pool),
		repository.NewAttemptRepository(pool),
		repository.NewSubjectRepository(pool),
		rdb, cfg, log,
	)
	author := model.Identity{UserID: 1, Role: model.RoleAdmin, IsStaff: true}

	fmt.Println("=== Seeding GATE CS Catalogue ===")

	subjectID, err := upsertSubject(ctx, pool, "Computer Science")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed subject")
	}
	topics := map[string]int64{}
	for _, name := range []string{"Algorithms", "Operating Systems", "Databases"} {
		id, err := upsertTopic(ctx, pool, subjectID, name)
		if err != nil {
			log.Fatal().Err(err).Str("topic", name).Msg("Failed to seed topic")
		}
		topics[name] = id
	}

	test, err := mockTestService.Create(ctx, author, model.CreateMockTestRequest{
		Title:           "GATE CS Warm-up",
		Description:     "Short mixed-format practice paper",
		SubjectID:       subjectID,
		TopicIDs:        []int64{topics["Algorithms"], topics["Operating Systems"], topics["Databases"]},
		Difficulty:      string(model.DifficultyEasy),
		DurationMinutes: 30,
		TotalMarks:      10,
		IsFeatured:      true,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create test")
	}

	questions := []seedQuestion{
		{"Algorithms", "Worst-case time of binary search on n sorted items?", model.QuestionTypeMCQ,
			map[string]string{"A": "O(1)", "B": "O(log n)", "C": "O(n)", "D": "O(n log n)"}, "B", 2},
		{"Algorithms", "Minimum number of comparisons to find the max of 16 numbers.", model.QuestionTypeNumerical,
			nil, "15", 2},
		{"Operating Systems", "A process in the ready queue holds the CPU.", model.QuestionTypeTrueFalse,
			nil, "false", 1},
		{"Operating Systems", "Which condition is NOT required for deadlock?", model.QuestionTypeMCQ,
			map[string]string{"A": "Mutual exclusion", "B": "Hold and wait", "C": "Preemption", "D": "Circular wait"}, "C", 2},
		{"Databases", "Number of attributes in the natural join of R(A,B,C) and S(C,D).", model.QuestionTypeNumerical,
			nil, "4", 2},
		{"Databases", "Every relation in BCNF is also in 3NF.", model.QuestionTypeTrueFalse,
			nil, "true", 1},
	}

	for _, q := range questions {
		_, err := mockTestService.AddQuestion(ctx, author, test.ID, model.AddQuestionRequest{
			TopicID:       topics[q.topic],
			QuestionText:  q.text,
			QuestionType:  string(q.kind),
			Options:       q.options,
			CorrectAnswer: q.answer,
			Marks:         q.marks,
		})
		if err != nil {
			log.Fatal().Err(err).Str("question", q.text).Msg("Failed to add question")
		}
	}

	fmt.Printf("Seeded test %d (%q) with %d questions\n", test.ID, test.Title, len(questions))
}

func upsertSubject(ctx context.Context, pool *pgxpool.Pool, name string) (int64, error) {
	var id int64
	err := pool.QueryRow(ctx, "SELECT id FROM subjects WHERE name = $1", name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		err = pool.QueryRow(ctx,
			"INSERT INTO subjects (name) VALUES ($1) RETURNING id", name,
		).Scan(&id)
	}
	if err != nil {
		return 0, fmt.Errorf("upsert subject %s: %w", name, err)
	}
	return id, nil
}

func upsertTopic(ctx context.Context, pool *pgxpool.Pool, subjectID int64, name string) (int64, error) {
	var id int64
	err := pool.QueryRow(ctx, "SELECT id FROM topics WHERE subject_id = $1 AND name = $2", subjectID, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		err = pool.QueryRow(ctx,
			"INSERT INTO topics (subject_id, name) VALUES ($1, $2) RETURNING id",
			subjectID, name,
		).Scan(&id)
	}
	if err != nil {
		return 0, fmt.Errorf("upsert topic %s: %w", name, err)
	}
	return id, nil
}
