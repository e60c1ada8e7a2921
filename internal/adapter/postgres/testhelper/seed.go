package testhelper

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// SeedUser creates a users row with the given role and returns its id.
func SeedUser(t *testing.T, pool *pgxpool.Pool, role string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO users (id, email, role, full_name) VALUES ($1, $2, $3, $4)`,
		id, "testuser-"+uniqueSuffix()+"@example.com", role, "Test User",
	)
	if err != nil {
		t.Fatalf("testhelper: SeedUser: %v", err)
	}
	return id
}

// SeedLesson creates an active lesson and returns its id.
func SeedLesson(t *testing.T, pool *pgxpool.Pool, area string, level, xpReward int) string {
	t.Helper()

	var id string
	err := pool.QueryRow(context.Background(),
		`INSERT INTO lessons (title, area, level, type, xp_reward, order_index)
		 VALUES ($1, $2, $3, 'reading', $4, 1)
		 RETURNING id::text`,
		"Lesson "+uniqueSuffix(), area, level, xpReward,
	).Scan(&id)
	if err != nil {
		t.Fatalf("testhelper: SeedLesson: %v", err)
	}
	return id
}

// SeedQuestion creates a multiple-choice question for lessonID and returns its id.
func SeedQuestion(t *testing.T, pool *pgxpool.Pool, lessonID string, options []string, answer string) string {
	t.Helper()

	var id string
	err := pool.QueryRow(context.Background(),
		`INSERT INTO questions (lesson_id, question_text, options, correct_answer)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id::text`,
		lessonID, "Question "+uniqueSuffix(), options, answer,
	).Scan(&id)
	if err != nil {
		t.Fatalf("testhelper: SeedQuestion: %v", err)
	}
	return id
}
